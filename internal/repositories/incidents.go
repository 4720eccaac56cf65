package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
)

// IncidentRepository provides access to incident data
type IncidentRepository struct {
	db *gorm.DB
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *gorm.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create creates a new incident
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	return r.db.WithContext(ctx).Create(incident).Error
}

// GetByID gets an incident by ID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	var incident models.Incident
	err := r.db.WithContext(ctx).First(&incident, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get incident")
	}
	return &incident, nil
}

// Update saves changes to an incident
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	return r.db.WithContext(ctx).Save(incident).Error
}

// List lists incidents, optionally narrowed by status or client
func (r *IncidentRepository) List(ctx context.Context, status models.IncidentStatus, clientID *uuid.UUID) ([]models.Incident, error) {
	q := r.db.WithContext(ctx).Model(&models.Incident{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if clientID != nil {
		q = q.Where("client_id = ?", *clientID)
	}

	var incidents []models.Incident
	if err := q.Order("created_at DESC").Find(&incidents).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list incidents")
	}
	return incidents, nil
}

// NotificationRepository provides access to the outbound message log
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification record
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// GetByID gets a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get notification")
	}
	return &n, nil
}

// Update saves changes to a notification record
func (r *NotificationRepository) Update(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Save(n).Error
}

// ListByStatus lists notifications in a delivery state, oldest first
func (r *NotificationRepository) ListByStatus(ctx context.Context, status models.NotificationStatus, limit int) ([]models.Notification, error) {
	q := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var list []models.Notification
	if err := q.Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return list, nil
}
