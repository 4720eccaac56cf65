package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
)

// IncidentService tracks reported equipment and service problems
type IncidentService struct {
	incidentRepo *repositories.IncidentRepository
	clientRepo   *repositories.ClientRepository
	notifier     *NotificationService
}

// NewIncidentService creates a new incident service
func NewIncidentService(db *gorm.DB, notifier *NotificationService) *IncidentService {
	return &IncidentService{
		incidentRepo: repositories.NewIncidentRepository(db),
		clientRepo:   repositories.NewClientRepository(db),
		notifier:     notifier,
	}
}

// Create registers a new incident and notifies the client that it was
// received
func (s *IncidentService) Create(ctx context.Context, incident *models.Incident) error {
	client, err := s.clientRepo.GetByID(ctx, incident.ClientID)
	if err != nil {
		return err
	}

	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	if incident.Severity == "" {
		incident.Severity = "MEDIUM"
	}
	incident.Status = models.IncidentOpen

	if err := s.incidentRepo.Create(ctx, incident); err != nil {
		return err
	}

	// Notification is a side effect outside the transition's guarantees
	s.notifier.QueueForClient(ctx, client,
		"Hemos registrado tu incidencia y un técnico la revisará pronto.")
	return nil
}

// GetByID gets an incident by ID
func (s *IncidentService) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return s.incidentRepo.GetByID(ctx, id)
}

// List lists incidents, optionally narrowed by status or client
func (s *IncidentService) List(ctx context.Context, status models.IncidentStatus, clientID *uuid.UUID) ([]models.Incident, error) {
	return s.incidentRepo.List(ctx, status, clientID)
}

// Update saves changes to an open incident
func (s *IncidentService) Update(ctx context.Context, incident *models.Incident) error {
	existing, err := s.incidentRepo.GetByID(ctx, incident.ID)
	if err != nil {
		return err
	}
	if existing.Status == models.IncidentResolved {
		return errors.New("incident is already resolved")
	}
	return s.incidentRepo.Update(ctx, incident)
}

// Resolve closes an incident with a resolution note
func (s *IncidentService) Resolve(ctx context.Context, id uuid.UUID, resolution string) (*models.Incident, error) {
	incident, err := s.incidentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident.Status == models.IncidentResolved {
		return nil, errors.New("incident is already resolved")
	}

	now := time.Now()
	incident.Status = models.IncidentResolved
	incident.Resolution = &resolution
	incident.ResolvedAt = &now

	if err := s.incidentRepo.Update(ctx, incident); err != nil {
		return nil, err
	}

	if client, err := s.clientRepo.GetByID(ctx, incident.ClientID); err == nil {
		s.notifier.QueueForClient(ctx, client,
			"Tu incidencia ha sido resuelta. ¡Gracias por tu paciencia!")
	}
	return incident, nil
}
