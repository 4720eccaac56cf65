package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amawa/backend/internal/models"
)

func newIncidentService(t *testing.T) (*IncidentService, *NotificationService, fixture) {
	db := newTestDB(t)
	notifier := NewNotificationService(db, nil, &fakeSender{}, newTestMetrics())
	svc := NewIncidentService(db, notifier)
	f := seedClientWithContract(t, db, "PLAN-HOGAR", models.DeliveryInPerson)
	return svc, notifier, f
}

func TestCreateIncidentDefaultsAndNotifies(t *testing.T) {
	svc, notifier, f := newIncidentService(t)
	ctx := context.Background()

	incident := &models.Incident{
		ClientID:    f.client.ID,
		Description: "Fuga en el purificador",
	}
	require.NoError(t, svc.Create(ctx, incident))
	assert.Equal(t, models.IncidentOpen, incident.Status)
	assert.Equal(t, "MEDIUM", incident.Severity)

	queued, err := notifier.List(ctx, models.NotificationQueued, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Contains(t, queued[0].Body, "incidencia")
}

func TestResolveIncidentOnce(t *testing.T) {
	svc, notifier, f := newIncidentService(t)
	ctx := context.Background()

	incident := &models.Incident{
		ClientID:    f.client.ID,
		Description: "Filtro con ruido",
		Severity:    "HIGH",
	}
	require.NoError(t, svc.Create(ctx, incident))

	resolved, err := svc.Resolve(ctx, incident.ID, "Filtro reemplazado")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentResolved, resolved.Status)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, "Filtro reemplazado", *resolved.Resolution)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = svc.Resolve(ctx, incident.ID, "otra vez")
	require.Error(t, err)

	// Creation plus resolution, one message each.
	queued, err := notifier.List(ctx, models.NotificationQueued, 10)
	require.NoError(t, err)
	assert.Len(t, queued, 2)
}

func TestUpdateRejectsResolvedIncident(t *testing.T) {
	svc, _, f := newIncidentService(t)
	ctx := context.Background()

	incident := &models.Incident{ClientID: f.client.ID, Description: "Sin presión de agua"}
	require.NoError(t, svc.Create(ctx, incident))
	_, err := svc.Resolve(ctx, incident.ID, "Bomba ajustada")
	require.NoError(t, err)

	incident.Description = "cambio tardío"
	require.Error(t, svc.Update(ctx, incident))
}
