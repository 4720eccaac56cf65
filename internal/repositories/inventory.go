package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amawa/backend/internal/models"
)

// FilterRepository provides access to filter SKU data
type FilterRepository struct {
	db *gorm.DB
}

// NewFilterRepository creates a new filter repository
func NewFilterRepository(db *gorm.DB) *FilterRepository {
	return &FilterRepository{db: db}
}

// Create creates a new filter
func (r *FilterRepository) Create(ctx context.Context, filter *models.Filter) error {
	return r.db.WithContext(ctx).Create(filter).Error
}

// GetByID gets a filter by ID
func (r *FilterRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Filter, error) {
	var filter models.Filter
	err := r.db.WithContext(ctx).First(&filter, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get filter")
	}
	return &filter, nil
}

// GetBySKU gets a filter by SKU
func (r *FilterRepository) GetBySKU(ctx context.Context, sku string) (*models.Filter, error) {
	var filter models.Filter
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&filter).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get filter by SKU")
	}
	return &filter, nil
}

// Update saves changes to a filter
func (r *FilterRepository) Update(ctx context.Context, filter *models.Filter) error {
	return r.db.WithContext(ctx).Save(filter).Error
}

// List lists all filters
func (r *FilterRepository) List(ctx context.Context) ([]models.Filter, error) {
	var filters []models.Filter
	if err := r.db.WithContext(ctx).Order("sku").Find(&filters).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list filters")
	}
	return filters, nil
}

// IsReferenced reports whether a filter is referenced by package items or
// usage records. Referenced filters cannot be deleted.
func (r *FilterRepository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FilterPackageItem{}).
		Where("filter_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to count package item references")
	}
	if count > 0 {
		return true, nil
	}

	err = r.db.WithContext(ctx).
		Model(&models.WorkOrderFilterUsage{}).
		Where("filter_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to count usage references")
	}
	return count > 0, nil
}

// Delete soft-deletes a filter
func (r *FilterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Filter{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InventoryRepository provides access to per-location stock records
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Create creates a new inventory row
func (r *InventoryRepository) Create(ctx context.Context, inv *models.Inventory) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

// GetByID gets an inventory row by ID
func (r *InventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get inventory row")
	}
	return &inv, nil
}

// Update saves changes to an inventory row
func (r *InventoryRepository) Update(ctx context.Context, inv *models.Inventory) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

// List lists all inventory rows with filters preloaded
func (r *InventoryRepository) List(ctx context.Context) ([]models.Inventory, error) {
	var rows []models.Inventory
	err := r.db.WithContext(ctx).
		Preload("Filter").
		Order("location").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list inventory")
	}
	return rows, nil
}

// LowStock lists rows below their minimum stock threshold
func (r *InventoryRepository) LowStock(ctx context.Context) ([]models.Inventory, error) {
	var rows []models.Inventory
	err := r.db.WithContext(ctx).
		Preload("Filter").
		Where("quantity < min_stock").
		Order("location").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list low stock")
	}
	return rows, nil
}

// ListByFilter lists a filter's inventory rows ordered by location. When
// forUpdate is set the rows are locked for the duration of the surrounding
// transaction (no-op on sqlite, which locks the whole database).
func (r *InventoryRepository) ListByFilter(tx *gorm.DB, filterID uuid.UUID, forUpdate bool) ([]models.Inventory, error) {
	q := tx.Where("filter_id = ?", filterID).Order("location")
	if forUpdate && tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []models.Inventory
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list filter inventory")
	}
	return rows, nil
}
