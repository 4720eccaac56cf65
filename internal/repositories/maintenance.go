package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
)

// MaintenanceRepository provides access to maintenance data
type MaintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository creates a new maintenance repository
func NewMaintenanceRepository(db *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Create creates a new maintenance
func (r *MaintenanceRepository) Create(ctx context.Context, m *models.Maintenance) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetByID gets a maintenance by ID with its contract preloaded
func (r *MaintenanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Maintenance, error) {
	var m models.Maintenance
	err := r.db.WithContext(ctx).
		Preload("Contract").
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get maintenance")
	}
	return &m, nil
}

// Update saves changes to a maintenance
func (r *MaintenanceRepository) Update(ctx context.Context, m *models.Maintenance) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// MaintenanceListFilter narrows maintenance listings
type MaintenanceListFilter struct {
	ClientID     *uuid.UUID
	TechnicianID *uuid.UUID
	Status       models.MaintenanceStatus
	Month        int
	Year         int
	Limit        int
	Offset       int
}

// List lists maintenances matching the filter
func (r *MaintenanceRepository) List(ctx context.Context, filter MaintenanceListFilter) ([]models.Maintenance, error) {
	q := r.db.WithContext(ctx).Model(&models.Maintenance{})
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.TechnicianID != nil {
		q = q.Where("technician_id = ?", *filter.TechnicianID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Month != 0 && filter.Year != 0 {
		start, end := monthBounds(filter.Year, filter.Month)
		q = q.Where("scheduled_date >= ? AND scheduled_date < ?", start, end)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var list []models.Maintenance
	if err := q.Order("scheduled_date").Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list maintenances")
	}
	return list, nil
}

// PendingUnassigned selects the PENDING maintenances of a period and delivery
// type that are not yet attached to a work order, with contracts preloaded
func (r *MaintenanceRepository) PendingUnassigned(ctx context.Context, year, month int, deliveryType models.DeliveryType) ([]models.Maintenance, error) {
	start, end := monthBounds(year, month)

	var list []models.Maintenance
	err := r.db.WithContext(ctx).
		Preload("Contract").
		Preload("Client").
		Where("status = ? AND delivery_type = ? AND work_order_id IS NULL", models.MaintenancePending, deliveryType).
		Where("scheduled_date >= ? AND scheduled_date < ?", start, end).
		Order("scheduled_date").
		Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to select pending maintenances")
	}
	return list, nil
}

// DueBetween selects PENDING maintenances scheduled inside a window, used by
// the reminder job
func (r *MaintenanceRepository) DueBetween(ctx context.Context, from, to time.Time) ([]models.Maintenance, error) {
	var list []models.Maintenance
	err := r.db.WithContext(ctx).
		Preload("Client").
		Where("status = ? AND scheduled_date >= ? AND scheduled_date < ?", models.MaintenancePending, from, to).
		Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to select due maintenances")
	}
	return list, nil
}

// CountByStatus counts maintenances of a period grouped by status
func (r *MaintenanceRepository) CountByStatus(ctx context.Context, year, month int) (map[models.MaintenanceStatus]int64, error) {
	start, end := monthBounds(year, month)

	var rows []struct {
		Status models.MaintenanceStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Maintenance{}).
		Select("status, count(*) as count").
		Where("scheduled_date >= ? AND scheduled_date < ?", start, end).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count maintenances")
	}

	counts := make(map[models.MaintenanceStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// TechnicianHistory summarises one technician's completion record, used by
// the suggestion scorer
type TechnicianHistory struct {
	Completed          int64
	CompletedForClient int64
	LastCompletedAt    *time.Time
	OpenAssignments    int64
}

// HistoryForTechnician aggregates the scorer inputs for one technician
func (r *MaintenanceRepository) HistoryForTechnician(ctx context.Context, technicianID, clientID uuid.UUID) (*TechnicianHistory, error) {
	var h TechnicianHistory

	err := r.db.WithContext(ctx).
		Model(&models.Maintenance{}).
		Where("technician_id = ? AND status = ?", technicianID, models.MaintenanceCompleted).
		Count(&h.Completed).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count completions")
	}

	err = r.db.WithContext(ctx).
		Model(&models.Maintenance{}).
		Where("technician_id = ? AND client_id = ? AND status = ?", technicianID, clientID, models.MaintenanceCompleted).
		Count(&h.CompletedForClient).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count client completions")
	}

	var last models.Maintenance
	err = r.db.WithContext(ctx).
		Where("technician_id = ? AND status = ? AND completed_at IS NOT NULL", technicianID, models.MaintenanceCompleted).
		Order("completed_at DESC").
		First(&last).Error
	if err == nil {
		h.LastCompletedAt = last.CompletedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "failed to get last completion")
	}

	err = r.db.WithContext(ctx).
		Model(&models.Maintenance{}).
		Where("technician_id = ? AND status = ?", technicianID, models.MaintenancePending).
		Count(&h.OpenAssignments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count open assignments")
	}

	return &h, nil
}

func monthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
