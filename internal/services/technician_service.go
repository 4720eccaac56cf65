package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
)

// TechnicianService manages the field technician roster
type TechnicianService struct {
	repo *repositories.TechnicianRepository
}

// NewTechnicianService creates a new technician service
func NewTechnicianService(db *gorm.DB) *TechnicianService {
	return &TechnicianService{repo: repositories.NewTechnicianRepository(db)}
}

// Create registers a new technician
func (s *TechnicianService) Create(ctx context.Context, technician *models.Technician) error {
	if technician.ID == uuid.Nil {
		technician.ID = uuid.New()
	}
	return s.repo.Create(ctx, technician)
}

// GetByID loads a technician
func (s *TechnicianService) GetByID(ctx context.Context, id uuid.UUID) (*models.Technician, error) {
	return s.repo.GetByID(ctx, id)
}

// Update persists technician changes
func (s *TechnicianService) Update(ctx context.Context, technician *models.Technician) error {
	return s.repo.Update(ctx, technician)
}

// Deactivate takes a technician off the active roster without losing history
func (s *TechnicianService) Deactivate(ctx context.Context, id uuid.UUID) (*models.Technician, error) {
	technician, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	technician.Active = false
	if err := s.repo.Update(ctx, technician); err != nil {
		return nil, err
	}
	return technician, nil
}

// ListActive lists active technicians
func (s *TechnicianService) ListActive(ctx context.Context) ([]models.Technician, error) {
	return s.repo.ListActive(ctx)
}
