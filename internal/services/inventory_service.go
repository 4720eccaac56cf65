package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/metrics"
	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
)

// InventoryRow is an inventory record with its derived status
type InventoryRow struct {
	models.Inventory
	SKU        string             `json:"sku"`
	FilterName string             `json:"filter_name"`
	StockState models.StockStatus `json:"stock_status"`
}

// InventoryService handles filter SKUs and per-location stock
type InventoryService struct {
	filterRepo    *repositories.FilterRepository
	inventoryRepo *repositories.InventoryRepository
	metrics       *metrics.Metrics
}

// NewInventoryService creates a new inventory service
func NewInventoryService(db *gorm.DB, metricsCollector *metrics.Metrics) *InventoryService {
	return &InventoryService{
		filterRepo:    repositories.NewFilterRepository(db),
		inventoryRepo: repositories.NewInventoryRepository(db),
		metrics:       metricsCollector,
	}
}

// CreateFilter creates a new filter SKU
func (s *InventoryService) CreateFilter(ctx context.Context, filter *models.Filter) error {
	if filter.ID == uuid.Nil {
		filter.ID = uuid.New()
	}
	return s.filterRepo.Create(ctx, filter)
}

// ListFilters lists all filter SKUs
func (s *InventoryService) ListFilters(ctx context.Context) ([]models.Filter, error) {
	return s.filterRepo.List(ctx)
}

// UpdateFilter saves changes to a filter. The SKU is immutable once
// referenced.
func (s *InventoryService) UpdateFilter(ctx context.Context, filter *models.Filter) error {
	existing, err := s.filterRepo.GetByID(ctx, filter.ID)
	if err != nil {
		return err
	}
	if existing.SKU != filter.SKU {
		referenced, err := s.filterRepo.IsReferenced(ctx, filter.ID)
		if err != nil {
			return err
		}
		if referenced {
			return errors.Errorf("SKU %s is referenced and cannot be renamed", existing.SKU)
		}
	}
	return s.filterRepo.Update(ctx, filter)
}

// DeleteFilter removes a filter unless it is referenced by package items or
// usage records
func (s *InventoryService) DeleteFilter(ctx context.Context, id uuid.UUID) error {
	filter, err := s.filterRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	referenced, err := s.filterRepo.IsReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return &ReferencedFilterError{SKU: filter.SKU}
	}

	return s.filterRepo.Delete(ctx, id)
}

// CreateLocation creates a stock record for a filter at a location
func (s *InventoryService) CreateLocation(ctx context.Context, inv *models.Inventory) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if _, err := s.filterRepo.GetByID(ctx, inv.FilterID); err != nil {
		return err
	}
	return s.inventoryRepo.Create(ctx, inv)
}

// List lists all stock records with their derived status
func (s *InventoryService) List(ctx context.Context) ([]InventoryRow, error) {
	rows, err := s.inventoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.withStatus(rows), nil
}

// LowStock lists records below their minimum threshold
func (s *InventoryService) LowStock(ctx context.Context) ([]InventoryRow, error) {
	rows, err := s.inventoryRepo.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	low := s.withStatus(rows)
	s.metrics.SetGauge("inventory_low_stock_rows", int64(len(low)))
	return low, nil
}

// Adjust applies a signed quantity delta to a stock record. The resulting
// quantity may not go negative.
func (s *InventoryService) Adjust(ctx context.Context, id uuid.UUID, delta int) (*models.Inventory, error) {
	inv, err := s.inventoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Quantity+delta < 0 {
		return nil, errors.Errorf("adjustment would drive quantity negative (%d%+d)", inv.Quantity, delta)
	}
	inv.Quantity += delta

	if err := s.inventoryRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InventoryService) withStatus(rows []models.Inventory) []InventoryRow {
	out := make([]InventoryRow, len(rows))
	for i, row := range rows {
		out[i] = InventoryRow{
			Inventory:  row,
			SKU:        row.Filter.SKU,
			FilterName: row.Filter.Name,
			StockState: row.Status(),
		}
	}
	return out
}
