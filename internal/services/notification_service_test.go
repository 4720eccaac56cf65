package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amawa/backend/internal/models"
)

// fakeSender records outgoing messages and can be told to fail
type fakeSender struct {
	sent []string
	fail error
}

func (f *fakeSender) SendText(ctx context.Context, phone, body string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.sent = append(f.sent, body)
	return "wamid.test", nil
}

func TestQueueForClientCreatesQueuedRow(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := NewNotificationService(db, nil, sender, newTestMetrics())
	ctx := context.Background()

	f := seedClientWithContract(t, db, "PLAN-HOGAR", models.DeliveryInPerson)
	svc.QueueForClient(ctx, f.client, "Hola")

	queued, err := svc.List(ctx, models.NotificationQueued, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, f.client.Phone, queued[0].Phone)
	assert.Equal(t, "Hola", queued[0].Body)
	assert.Equal(t, 0, queued[0].Attempts)
}

func TestQueueForClientSkipsClientsWithoutPhone(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil, &fakeSender{}, newTestMetrics())
	ctx := context.Background()

	f := seedClientWithContract(t, db, "PLAN-HOGAR", models.DeliveryInPerson)
	f.client.Phone = ""
	require.NoError(t, db.Save(f.client).Error)

	svc.QueueForClient(ctx, f.client, "Hola")

	queued, err := svc.List(ctx, models.NotificationQueued, 10)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestDeliverMarksSent(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := NewNotificationService(db, nil, sender, newTestMetrics())
	ctx := context.Background()

	f := seedClientWithContract(t, db, "PLAN-HOGAR", models.DeliveryInPerson)
	svc.QueueForClient(ctx, f.client, "Hola")
	queued, err := svc.List(ctx, models.NotificationQueued, 1)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	require.NoError(t, svc.Deliver(ctx, queued[0].ID))

	sent, err := svc.List(ctx, models.NotificationSent, 10)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, 1, sent[0].Attempts)
	require.NotNil(t, sent[0].ProviderMessageID)
	assert.Equal(t, "wamid.test", *sent[0].ProviderMessageID)
	require.NotNil(t, sent[0].SentAt)
	assert.Nil(t, sent[0].LastError)
	assert.Len(t, sender.sent, 1)

	// Re-delivery of a SENT notification is a no-op.
	require.NoError(t, svc.Deliver(ctx, queued[0].ID))
	assert.Len(t, sender.sent, 1)
}

func TestDeliverRecordsFailure(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{fail: errors.New("provider unavailable")}
	svc := NewNotificationService(db, nil, sender, newTestMetrics())
	ctx := context.Background()

	f := seedClientWithContract(t, db, "PLAN-HOGAR", models.DeliveryInPerson)
	svc.QueueForClient(ctx, f.client, "Hola")
	queued, err := svc.List(ctx, models.NotificationQueued, 1)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	require.Error(t, svc.Deliver(ctx, queued[0].ID))

	failed, err := svc.List(ctx, models.NotificationFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Attempts)
	require.NotNil(t, failed[0].LastError)
	assert.Contains(t, *failed[0].LastError, "provider unavailable")
}

func TestRetryPendingStopsAfterMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{fail: errors.New("provider unavailable")}
	svc := NewNotificationService(db, nil, sender, newTestMetrics())
	ctx := context.Background()

	f := seedClientWithContract(t, db, "PLAN-HOGAR", models.DeliveryInPerson)
	svc.QueueForClient(ctx, f.client, "Hola")

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RetryPending(ctx))
	}

	failed, err := svc.List(ctx, models.NotificationFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, maxDeliveryAttempts, failed[0].Attempts)

	// Once the provider recovers, the record stays FAILED: retries are
	// capped, operators re-queue by hand.
	sender.fail = nil
	require.NoError(t, svc.RetryPending(ctx))
	assert.Empty(t, sender.sent)
}

func TestRemindUpcomingQueuesSpanishReminder(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := NewNotificationService(db, nil, sender, newTestMetrics())
	ctx := context.Background()

	f := seedClientWithContract(t, db, "PLAN-HOGAR", models.DeliveryInPerson)
	soon := time.Now().Add(48 * time.Hour)
	seedMaintenance(t, db, f, 1, soon)
	// Outside the window, must not be reminded.
	seedMaintenance(t, db, f, 2, time.Now().Add(30*24*time.Hour))

	require.NoError(t, svc.RemindUpcoming(ctx, 7*24*time.Hour))

	queued, err := svc.List(ctx, models.NotificationQueued, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Contains(t, queued[0].Body, f.client.Name)
	assert.Contains(t, queued[0].Body, soon.Format("02/01/2006"))
}
