package services

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/amawa/backend/internal/models"
)

// ErrSearchUnavailable is returned when the search backend was not
// initialized, so full-text client search cannot be served
var ErrSearchUnavailable = errors.New("search is unavailable")

// StateError reports an illegal work order transition
type StateError struct {
	Current  models.WorkOrderStatus
	Expected models.WorkOrderStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("work order is %s, expected %s", e.Current, e.Expected)
}

// StockShortage describes one SKU that cannot cover a work order's demand
type StockShortage struct {
	SKU       string `json:"sku"`
	Needed    int    `json:"needed"`
	Available int    `json:"available"`
}

// InsufficientStockError aborts a confirm before any deduction. The shortage
// list carries enough detail for the operator to restock.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d filter(s)", len(e.Shortages))
}

// UnmappedMaintenancesError blocks draft creation while maintenances cannot
// be resolved to a filter package
type UnmappedMaintenancesError struct {
	Unmapped []UnmappedMaintenance
}

func (e *UnmappedMaintenancesError) Error() string {
	return fmt.Sprintf("%d maintenance(s) cannot be resolved to a package", len(e.Unmapped))
}

// ReferencedFilterError blocks deletion of a filter still referenced by
// package items or usage records
type ReferencedFilterError struct {
	SKU string
}

func (e *ReferencedFilterError) Error() string {
	return fmt.Sprintf("filter %s is referenced and cannot be deleted", e.SKU)
}
