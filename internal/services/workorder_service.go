package services

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/cycle"
	"github.com/amawa/backend/internal/metrics"
	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
	"github.com/amawa/backend/internal/tracing"
)

// DefaultRestoreLocation receives restored stock when a filter has no
// inventory rows left at cancel time
const DefaultRestoreLocation = "ALMACEN CENTRAL"

// MappedMaintenance is one preview entry that resolved to a package
type MappedMaintenance struct {
	MaintenanceID uuid.UUID `json:"maintenance_id"`
	ClientID      uuid.UUID `json:"client_id"`
	ClientName    string    `json:"client_name"`
	PlanCode      string    `json:"plan_code"`
	CycleNumber   int       `json:"cycle_number"`
	CycleMonths   int       `json:"cycle_months"`
	PackageName   string    `json:"package_name"`
}

// UnmappedMaintenance is one preview entry that needs manual reconciliation
type UnmappedMaintenance struct {
	MaintenanceID uuid.UUID `json:"maintenance_id"`
	ClientID      uuid.UUID `json:"client_id"`
	ClientName    string    `json:"client_name"`
	PlanCode      string    `json:"plan_code"`
	CycleNumber   int       `json:"cycle_number"`
	CycleMonths   int       `json:"cycle_months"`
	Reason        string    `json:"reason"`
}

// WorkOrderPreview is the read-only dry run an operator reviews before
// creating a work order
type WorkOrderPreview struct {
	Month          int                   `json:"month"`
	Year           int                   `json:"year"`
	DeliveryType   models.DeliveryType   `json:"delivery_type"`
	Total          int                   `json:"total"`
	Mapped         []MappedMaintenance   `json:"mapped"`
	Unmapped       []UnmappedMaintenance `json:"unmapped"`
	PackageSummary map[string]int        `json:"package_summary"`
	FilterSummary  map[string]int        `json:"filter_summary"`
	CanGenerate    bool                  `json:"can_generate"`
}

// InventoryMovement reports one location-level stock change made by a
// confirm or cancel
type InventoryMovement struct {
	SKU      string `json:"sku"`
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
}

// WorkOrderService manages the work order lifecycle:
// DRAFT -> GENERATED -> CANCELLED
type WorkOrderService struct {
	db              *gorm.DB
	orderRepo       *repositories.WorkOrderRepository
	maintenanceRepo *repositories.MaintenanceRepository
	filterRepo      *repositories.FilterRepository
	inventoryRepo   *repositories.InventoryRepository
	mappings        *MappingService
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
}

// NewWorkOrderService creates a new work order service
func NewWorkOrderService(
	db *gorm.DB,
	mappings *MappingService,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *WorkOrderService {
	return &WorkOrderService{
		db:              db,
		orderRepo:       repositories.NewWorkOrderRepository(db),
		maintenanceRepo: repositories.NewMaintenanceRepository(db),
		filterRepo:      repositories.NewFilterRepository(db),
		inventoryRepo:   repositories.NewInventoryRepository(db),
		mappings:        mappings,
		metrics:         metricsCollector,
		tracer:          tracer,
	}
}

// Preview analyses the pending maintenances of a period without mutating
// anything. Re-runnable; the operator uses it before committing a draft.
func (s *WorkOrderService) Preview(ctx context.Context, year, month int, deliveryType models.DeliveryType) (*WorkOrderPreview, error) {
	txn := s.tracer.StartTransaction("work-order-preview")
	defer s.tracer.EndTransaction(txn)

	pending, err := s.maintenanceRepo.PendingUnassigned(ctx, year, month, deliveryType)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	table, err := s.mappings.Table(ctx)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	preview := &WorkOrderPreview{
		Month:          month,
		Year:           year,
		DeliveryType:   deliveryType,
		Total:          len(pending),
		Mapped:         []MappedMaintenance{},
		Unmapped:       []UnmappedMaintenance{},
		PackageSummary: map[string]int{},
		FilterSummary:  map[string]int{},
	}

	for i := range pending {
		m := &pending[i]
		cycleNumber := m.CycleNumber
		res := cycle.ResolvePackage(m.Contract.PlanCode, &cycleNumber, table)

		if !res.Resolved() {
			preview.Unmapped = append(preview.Unmapped, UnmappedMaintenance{
				MaintenanceID: m.ID,
				ClientID:      m.ClientID,
				ClientName:    m.Client.Name,
				PlanCode:      m.Contract.PlanCode,
				CycleNumber:   m.CycleNumber,
				CycleMonths:   res.CycleMonths,
				Reason:        res.Reason,
			})
			continue
		}

		pkg := res.Mapping.Package
		preview.Mapped = append(preview.Mapped, MappedMaintenance{
			MaintenanceID: m.ID,
			ClientID:      m.ClientID,
			ClientName:    m.Client.Name,
			PlanCode:      m.Contract.PlanCode,
			CycleNumber:   m.CycleNumber,
			CycleMonths:   res.CycleMonths,
			PackageName:   pkg.Name,
		})
		preview.PackageSummary[pkg.Name]++
		for _, item := range pkg.Items {
			preview.FilterSummary[item.Filter.SKU] += item.Quantity
		}
	}

	preview.CanGenerate = len(preview.Unmapped) == 0
	return preview, nil
}

// CreateDraft persists a DRAFT work order for a period and links its mapped
// maintenances. Rejected while any maintenance of the period is unmapped.
func (s *WorkOrderService) CreateDraft(ctx context.Context, year, month int, deliveryType models.DeliveryType) (*models.WorkOrder, error) {
	txn := s.tracer.StartTransaction("work-order-create-draft")
	defer s.tracer.EndTransaction(txn)

	preview, err := s.Preview(ctx, year, month, deliveryType)
	if err != nil {
		return nil, err
	}
	if !preview.CanGenerate {
		return nil, &UnmappedMaintenancesError{Unmapped: preview.Unmapped}
	}
	if len(preview.Mapped) == 0 {
		return nil, errors.New("no pending maintenances in period")
	}

	summary, err := json.Marshal(preview.FilterSummary)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode filter summary")
	}

	order := &models.WorkOrder{
		ID:            uuid.New(),
		Month:         month,
		Year:          year,
		DeliveryType:  deliveryType,
		Status:        models.WorkOrderDraft,
		FilterSummary: summary,
	}

	maintenanceIDs := make([]uuid.UUID, len(preview.Mapped))
	for i, m := range preview.Mapped {
		maintenanceIDs[i] = m.MaintenanceID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return errors.Wrap(err, "failed to create work order")
		}
		return s.orderRepo.LinkMaintenances(tx, order.ID, maintenanceIDs)
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.metrics.IncrementCounter("work_orders_created")
	log.Info().
		Str("order_id", order.ID.String()).
		Int("maintenances", len(maintenanceIDs)).
		Msg("Work order draft created")

	return order, nil
}

// Confirm transitions DRAFT -> GENERATED, deducting the order's filter
// demand from inventory. All-or-nothing: the sufficiency check runs over
// every SKU before any row is touched, and the whole sequence shares one
// transaction.
func (s *WorkOrderService) Confirm(ctx context.Context, orderID uuid.UUID) (*models.WorkOrder, []InventoryMovement, error) {
	txn := s.tracer.StartTransaction("work-order-confirm")
	defer s.tracer.EndTransaction(txn)

	var order *models.WorkOrder
	var deducted []InventoryMovement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.WorkOrder
		if err := tx.First(&current, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repositories.ErrNotFound
			}
			return errors.Wrap(err, "failed to load work order")
		}

		if current.Status != models.WorkOrderDraft {
			return &StateError{Current: current.Status, Expected: models.WorkOrderDraft}
		}

		// Guard against double deduction
		var usageCount int64
		err := tx.Model(&models.WorkOrderFilterUsage{}).
			Where("work_order_id = ?", current.ID).
			Count(&usageCount).Error
		if err != nil {
			return errors.Wrap(err, "failed to count usage rows")
		}
		if usageCount > 0 {
			return errors.New("work order already has filter usage records")
		}

		summary := map[string]int{}
		if len(current.FilterSummary) > 0 {
			if err := json.Unmarshal(current.FilterSummary, &summary); err != nil {
				return errors.Wrap(err, "failed to decode filter summary")
			}
		}

		// Deterministic SKU order keeps the drain sequence reproducible
		skus := make([]string, 0, len(summary))
		for sku := range summary {
			skus = append(skus, sku)
		}
		sort.Strings(skus)

		type skuStock struct {
			filter *models.Filter
			rows   []models.Inventory
			needed int
		}

		// Phase 1: check every SKU before mutating anything
		stocks := make([]skuStock, 0, len(skus))
		var shortages []StockShortage
		for _, sku := range skus {
			needed := summary[sku]
			if needed <= 0 {
				continue
			}

			var filter models.Filter
			if err := tx.Where("sku = ?", sku).First(&filter).Error; err != nil {
				return errors.Wrapf(translateNotFound(err), "failed to load filter %s", sku)
			}

			rows, err := s.inventoryRepo.ListByFilter(tx, filter.ID, true)
			if err != nil {
				return err
			}

			available := 0
			for _, row := range rows {
				available += row.Quantity
			}
			if available < needed {
				shortages = append(shortages, StockShortage{SKU: sku, Needed: needed, Available: available})
				continue
			}

			stocks = append(stocks, skuStock{filter: &filter, rows: rows, needed: needed})
		}
		if len(shortages) > 0 {
			return &InsufficientStockError{Shortages: shortages}
		}

		// Phase 2: drain locations in order until each SKU is covered
		now := time.Now()
		for _, stock := range stocks {
			remaining := stock.needed
			for i := range stock.rows {
				if remaining == 0 {
					break
				}
				row := &stock.rows[i]
				take := remaining
				if take > row.Quantity {
					take = row.Quantity
				}
				if take == 0 {
					continue
				}

				row.Quantity -= take
				remaining -= take
				if err := tx.Save(row).Error; err != nil {
					return errors.Wrap(err, "failed to deduct inventory")
				}
				deducted = append(deducted, InventoryMovement{
					SKU:      stock.filter.SKU,
					Location: row.Location,
					Quantity: take,
				})
			}

			usage := &models.WorkOrderFilterUsage{
				ID:           uuid.New(),
				WorkOrderID:  current.ID,
				FilterID:     stock.filter.ID,
				QuantityUsed: stock.needed,
			}
			if err := tx.Create(usage).Error; err != nil {
				return errors.Wrap(err, "failed to record filter usage")
			}
		}

		current.Status = models.WorkOrderGenerated
		current.GeneratedAt = &now
		if err := tx.Save(&current).Error; err != nil {
			return errors.Wrap(err, "failed to update work order")
		}

		order = &current
		return nil
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("work_order_confirm")
		return nil, nil, err
	}

	s.metrics.RecordSuccess("work_order_confirm")
	s.metrics.IncrementCounter("work_orders_confirmed")
	log.Info().
		Str("order_id", order.ID.String()).
		Int("movements", len(deducted)).
		Msg("Work order confirmed, inventory deducted")

	return order, deducted, nil
}

// Cancel transitions GENERATED -> CANCELLED, restoring every deducted
// quantity and returning the order's maintenances to the unassigned pool.
// Restoration is idempotent per usage row: already-restored rows are
// skipped.
func (s *WorkOrderService) Cancel(ctx context.Context, orderID uuid.UUID) (*models.WorkOrder, []InventoryMovement, error) {
	txn := s.tracer.StartTransaction("work-order-cancel")
	defer s.tracer.EndTransaction(txn)

	var order *models.WorkOrder
	var restored []InventoryMovement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.WorkOrder
		if err := tx.Preload("Usages.Filter").First(&current, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repositories.ErrNotFound
			}
			return errors.Wrap(err, "failed to load work order")
		}

		if current.Status != models.WorkOrderGenerated {
			return &StateError{Current: current.Status, Expected: models.WorkOrderGenerated}
		}

		now := time.Now()
		for i := range current.Usages {
			usage := &current.Usages[i]
			if usage.RestoredAt != nil {
				continue
			}

			target, err := s.restoreTarget(tx, usage.FilterID)
			if err != nil {
				return err
			}

			target.Quantity += usage.QuantityUsed
			if err := tx.Save(target).Error; err != nil {
				return errors.Wrap(err, "failed to restore inventory")
			}

			usage.RestoredAt = &now
			if err := tx.Save(usage).Error; err != nil {
				return errors.Wrap(err, "failed to mark usage restored")
			}

			restored = append(restored, InventoryMovement{
				SKU:      usage.Filter.SKU,
				Location: target.Location,
				Quantity: usage.QuantityUsed,
			})
		}

		if err := s.orderRepo.UnlinkMaintenances(tx, current.ID); err != nil {
			return err
		}

		current.Status = models.WorkOrderCancelled
		current.CancelledAt = &now
		if err := tx.Save(&current).Error; err != nil {
			return errors.Wrap(err, "failed to update work order")
		}

		order = &current
		return nil
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("work_order_cancel")
		return nil, nil, err
	}

	s.metrics.RecordSuccess("work_order_cancel")
	s.metrics.IncrementCounter("work_orders_cancelled")
	log.Info().
		Str("order_id", order.ID.String()).
		Int("movements", len(restored)).
		Msg("Work order cancelled, inventory restored")

	return order, restored, nil
}

// restoreTarget picks the inventory row that receives restored stock: the
// location flagged primary when one exists, otherwise the highest-quantity
// location, otherwise a fresh row at the default location.
func (s *WorkOrderService) restoreTarget(tx *gorm.DB, filterID uuid.UUID) (*models.Inventory, error) {
	rows, err := s.inventoryRepo.ListByFilter(tx, filterID, true)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		row := &models.Inventory{
			ID:       uuid.New(),
			FilterID: filterID,
			Location: DefaultRestoreLocation,
			Quantity: 0,
		}
		if err := tx.Create(row).Error; err != nil {
			return nil, errors.Wrap(err, "failed to create restore location")
		}
		return row, nil
	}

	best := &rows[0]
	for i := range rows {
		if rows[i].Primary {
			return &rows[i], nil
		}
		if rows[i].Quantity > best.Quantity {
			best = &rows[i]
		}
	}
	return best, nil
}

// Delete removes a DRAFT order and returns its maintenances to the pool.
// Non-draft orders cannot be deleted.
func (s *WorkOrderService) Delete(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != models.WorkOrderDraft {
		return &StateError{Current: order.Status, Expected: models.WorkOrderDraft}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.UnlinkMaintenances(tx, order.ID); err != nil {
			return err
		}
		if err := tx.Where("work_order_id = ?", order.ID).Delete(&models.WorkOrderFilterUsage{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete usage rows")
		}
		if err := tx.Delete(&models.WorkOrder{}, "id = ?", order.ID).Error; err != nil {
			return errors.Wrap(err, "failed to delete work order")
		}
		return nil
	})
}

// GetByID gets a work order with its usage rows
func (s *WorkOrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*models.WorkOrder, error) {
	return s.orderRepo.GetByID(ctx, orderID)
}

// List lists work orders, newest first
func (s *WorkOrderService) List(ctx context.Context, limit, offset int) ([]models.WorkOrder, error) {
	return s.orderRepo.List(ctx, limit, offset)
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}
