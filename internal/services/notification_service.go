package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/metrics"
	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
)

// maxDeliveryAttempts bounds retries before a notification stays FAILED
const maxDeliveryAttempts = 3

// notificationEnvelope is the queue message linking back to the delivery log
type notificationEnvelope struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// Sender delivers one outbound message, returning the provider message ID
type Sender interface {
	SendText(ctx context.Context, phone, body string) (string, error)
}

// QueuePublisher pushes notification envelopes onto the outbound queue
type QueuePublisher interface {
	SendMessage(ctx context.Context, body interface{}) error
}

// NotificationService queues and delivers WhatsApp messages to clients and
// technicians, keeping a delivery log for every attempt
type NotificationService struct {
	repo            *repositories.NotificationRepository
	maintenanceRepo *repositories.MaintenanceRepository
	queue           QueuePublisher
	sender          Sender
	metrics         *metrics.Metrics
}

// NewNotificationService creates a new notification service. The queue is
// optional: without it, deliveries happen through the fallback retry job.
func NewNotificationService(db *gorm.DB, queue QueuePublisher, sender Sender, metricsCollector *metrics.Metrics) *NotificationService {
	return &NotificationService{
		repo:            repositories.NewNotificationRepository(db),
		maintenanceRepo: repositories.NewMaintenanceRepository(db),
		queue:           queue,
		sender:          sender,
		metrics:         metricsCollector,
	}
}

// Queue records an outbound message and pushes it onto the delivery queue
func (s *NotificationService) Queue(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Channel == "" {
		n.Channel = "WHATSAPP"
	}
	n.Status = models.NotificationQueued

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.metrics.IncrementCounter("notifications_queued")

	if s.queue != nil {
		envelope := notificationEnvelope{NotificationID: n.ID}
		if err := s.queue.SendMessage(ctx, envelope); err != nil {
			// The fallback job will retry anything left QUEUED
			log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("Failed to enqueue notification")
		}
	}
	return nil
}

// QueueForClient queues a message to a client's WhatsApp number. Best
// effort: failures are logged, never propagated into the caller's
// transition.
func (s *NotificationService) QueueForClient(ctx context.Context, client *models.Client, body string) {
	if client.Phone == "" {
		return
	}
	n := &models.Notification{
		ClientID: &client.ID,
		Phone:    client.Phone,
		Body:     body,
	}
	if err := s.Queue(ctx, n); err != nil {
		log.Error().Err(err).Str("client_id", client.ID.String()).Msg("Failed to queue client notification")
	}
}

// ProcessMessage handles one queue message in the worker
func (s *NotificationService) ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error {
	var envelope notificationEnvelope
	if err := json.Unmarshal(message.Body, &envelope); err != nil {
		return errors.Wrap(err, "failed to unmarshal notification envelope")
	}
	return s.Deliver(ctx, envelope.NotificationID)
}

// Deliver sends one queued notification through the provider and records
// the outcome
func (s *NotificationService) Deliver(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.Status == models.NotificationSent {
		return nil
	}

	n.Attempts++
	providerID, err := s.sender.SendText(ctx, n.Phone, n.Body)
	if err != nil {
		msg := err.Error()
		n.Status = models.NotificationFailed
		n.LastError = &msg
		s.metrics.RecordError("notification_delivery")
		if updateErr := s.repo.Update(ctx, n); updateErr != nil {
			return updateErr
		}
		return errors.Wrap(err, "failed to deliver notification")
	}

	now := time.Now()
	n.Status = models.NotificationSent
	n.SentAt = &now
	n.ProviderMessageID = &providerID
	n.LastError = nil
	s.metrics.RecordSuccess("notification_delivery")

	return s.repo.Update(ctx, n)
}

// RetryPending re-delivers QUEUED and FAILED notifications, used by the
// fallback cron job
func (s *NotificationService) RetryPending(ctx context.Context) error {
	for _, status := range []models.NotificationStatus{models.NotificationQueued, models.NotificationFailed} {
		pending, err := s.repo.ListByStatus(ctx, status, 100)
		if err != nil {
			return err
		}
		for i := range pending {
			n := &pending[i]
			if n.Attempts >= maxDeliveryAttempts {
				continue
			}
			if err := s.Deliver(ctx, n.ID); err != nil {
				log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("Retry delivery failed")
			}
		}
	}
	return nil
}

// RemindUpcoming queues maintenance reminders for visits due inside the
// window
func (s *NotificationService) RemindUpcoming(ctx context.Context, window time.Duration) error {
	now := time.Now()
	due, err := s.maintenanceRepo.DueBetween(ctx, now, now.Add(window))
	if err != nil {
		return err
	}

	for i := range due {
		m := &due[i]
		if m.Client.Phone == "" {
			continue
		}
		body := fmt.Sprintf(
			"Hola %s, tu mantenimiento está programado para el %s. Te contactaremos para coordinar la visita.",
			m.Client.Name, m.ScheduledDate.Format("02/01/2006"))
		s.QueueForClient(ctx, &m.Client, body)
	}

	log.Info().Int("reminders", len(due)).Msg("Maintenance reminders queued")
	return nil
}

// List lists the delivery log for a status
func (s *NotificationService) List(ctx context.Context, status models.NotificationStatus, limit int) ([]models.Notification, error) {
	return s.repo.ListByStatus(ctx, status, limit)
}
