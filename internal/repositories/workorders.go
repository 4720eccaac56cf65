package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
)

// WorkOrderRepository provides access to work order data
type WorkOrderRepository struct {
	db *gorm.DB
}

// NewWorkOrderRepository creates a new work order repository
func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// Create creates a new work order
func (r *WorkOrderRepository) Create(ctx context.Context, order *models.WorkOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID gets a work order with its usage rows preloaded
func (r *WorkOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Usages").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get work order")
	}
	return &order, nil
}

// List lists work orders, newest first
func (r *WorkOrderRepository) List(ctx context.Context, limit, offset int) ([]models.WorkOrder, error) {
	q := r.db.WithContext(ctx).Order("year DESC, month DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var orders []models.WorkOrder
	if err := q.Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list work orders")
	}
	return orders, nil
}

// UsageCount counts the usage rows attached to a work order
func (r *WorkOrderRepository) UsageCount(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WorkOrderFilterUsage{}).
		Where("work_order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count usage rows")
	}
	return count, nil
}

// LinkMaintenances attaches maintenances to a work order
func (r *WorkOrderRepository) LinkMaintenances(tx *gorm.DB, orderID uuid.UUID, maintenanceIDs []uuid.UUID) error {
	if len(maintenanceIDs) == 0 {
		return nil
	}
	err := tx.Model(&models.Maintenance{}).
		Where("id IN ?", maintenanceIDs).
		Update("work_order_id", orderID).Error
	return errors.Wrap(err, "failed to link maintenances")
}

// UnlinkMaintenances returns a work order's maintenances to the unassigned
// pool
func (r *WorkOrderRepository) UnlinkMaintenances(tx *gorm.DB, orderID uuid.UUID) error {
	err := tx.Model(&models.Maintenance{}).
		Where("work_order_id = ?", orderID).
		Update("work_order_id", nil).Error
	return errors.Wrap(err, "failed to unlink maintenances")
}
