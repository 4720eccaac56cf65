package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
)

func newWorkOrderService(t *testing.T, db *gorm.DB) *WorkOrderService {
	t.Helper()
	mappings := NewMappingService(db, nil, time.Minute)
	return NewWorkOrderService(db, mappings, newTestMetrics(), newTestTracer(t))
}

func TestPreviewPartitionsMappedAndUnmapped(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	mapped := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	unmapped := seedClientWithContract(t, db, "PLAN-SIN-MAPA", models.DeliveryInPerson)

	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 2})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)

	scheduled := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	seedMaintenance(t, db, mapped, 1, scheduled)
	seedMaintenance(t, db, unmapped, 1, scheduled)

	preview, err := svc.Preview(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)

	assert.Equal(t, 2, preview.Total)
	assert.Len(t, preview.Mapped, 1)
	assert.Len(t, preview.Unmapped, 1)
	assert.False(t, preview.CanGenerate)
	assert.Equal(t, "Plan no mapeado a paquete de filtros", preview.Unmapped[0].Reason)
	assert.Equal(t, map[string]int{"SED-10": 2}, preview.FilterSummary)
	assert.Equal(t, map[string]int{"Paquete Semestral": 1}, preview.PackageSummary)
}

func TestPreviewIsReadOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 2})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	first, err := svc.Preview(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	second, err := svc.Preview(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.FilterSummary, second.FilterSummary)

	var orderCount int64
	require.NoError(t, db.Model(&models.WorkOrder{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCreateDraftRejectsUnmapped(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "PLAN-SIN-MAPA", models.DeliveryInPerson)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	_, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.Error(t, err)

	var unmappedErr *UnmappedMaintenancesError
	require.ErrorAs(t, err, &unmappedErr)
	assert.Len(t, unmappedErr.Unmapped, 1)
}

func TestCreateDraftLinksMaintenances(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 3})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	m := seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderDraft, order.Status)

	var summary map[string]int
	require.NoError(t, json.Unmarshal(order.FilterSummary, &summary))
	assert.Equal(t, map[string]int{"SED-10": 3}, summary)

	var linked models.Maintenance
	require.NoError(t, db.First(&linked, "id = ?", m.ID).Error)
	require.NotNil(t, linked.WorkOrderID)
	assert.Equal(t, order.ID, *linked.WorkOrderID)

	// a linked maintenance drops out of the next preview
	preview, err := svc.Preview(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	assert.Zero(t, preview.Total)
}

func TestConfirmDrainsLocationsInOrder(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 6})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	first := seedInventory(t, db, sediment.ID, "ALMACEN A", 5, 1, false)
	second := seedInventory(t, db, sediment.ID, "BODEGA B", 3, 1, false)

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)

	confirmed, movements, err := svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.WorkOrderGenerated, confirmed.Status)
	require.NotNil(t, confirmed.GeneratedAt)

	require.Len(t, movements, 2)
	assert.Equal(t, InventoryMovement{SKU: "SED-10", Location: "ALMACEN A", Quantity: 5}, movements[0])
	assert.Equal(t, InventoryMovement{SKU: "SED-10", Location: "BODEGA B", Quantity: 1}, movements[1])

	assert.Equal(t, 0, inventoryQuantity(t, db, first.ID))
	assert.Equal(t, 2, inventoryQuantity(t, db, second.ID))

	var usages []models.WorkOrderFilterUsage
	require.NoError(t, db.Where("work_order_id = ?", order.ID).Find(&usages).Error)
	require.Len(t, usages, 1)
	assert.Equal(t, 6, usages[0].QuantityUsed)
	assert.Nil(t, usages[0].RestoredAt)
}

func TestConfirmIsAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	carbon := seedFilter(t, db, "CARB-05", "Carbon activado")
	pkg := seedPackage(t, db, "Paquete Completo", map[*models.Filter]int{sediment: 2, carbon: 4})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	// sediment is plentiful, carbon is short
	sedimentRow := seedInventory(t, db, sediment.ID, "ALMACEN A", 10, 1, false)
	carbonRow := seedInventory(t, db, carbon.ID, "ALMACEN A", 1, 1, false)

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)

	_, _, err = svc.Confirm(ctx, order.ID)
	require.Error(t, err)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, StockShortage{SKU: "CARB-05", Needed: 4, Available: 1}, stockErr.Shortages[0])

	// nothing was deducted, not even the sufficient SKU
	assert.Equal(t, 10, inventoryQuantity(t, db, sedimentRow.ID))
	assert.Equal(t, 1, inventoryQuantity(t, db, carbonRow.ID))

	var current models.WorkOrder
	require.NoError(t, db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, models.WorkOrderDraft, current.Status)

	var usageCount int64
	require.NoError(t, db.Model(&models.WorkOrderFilterUsage{}).Where("work_order_id = ?", order.ID).Count(&usageCount).Error)
	assert.Zero(t, usageCount)
}

func TestConfirmRequiresDraft(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 1})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	seedInventory(t, db, sediment.ID, "ALMACEN A", 10, 1, false)

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	_, _, err = svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	_, _, err = svc.Confirm(ctx, order.ID)
	require.Error(t, err)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.WorkOrderGenerated, stateErr.Current)
	assert.Equal(t, models.WorkOrderDraft, stateErr.Expected)
}

func TestCancelRestoresAndUnlinks(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 6})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	m := seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	first := seedInventory(t, db, sediment.ID, "ALMACEN A", 5, 1, false)
	second := seedInventory(t, db, sediment.ID, "BODEGA B", 3, 1, false)

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	_, _, err = svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	cancelled, movements, err := svc.Cancel(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.WorkOrderCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.Len(t, movements, 1)
	assert.Equal(t, 6, movements[0].Quantity)

	// total stock is back where it started
	total := inventoryQuantity(t, db, first.ID) + inventoryQuantity(t, db, second.ID)
	assert.Equal(t, 8, total)

	var linked models.Maintenance
	require.NoError(t, db.First(&linked, "id = ?", m.ID).Error)
	assert.Nil(t, linked.WorkOrderID)

	var usage models.WorkOrderFilterUsage
	require.NoError(t, db.First(&usage, "work_order_id = ?", order.ID).Error)
	assert.NotNil(t, usage.RestoredAt)
}

func TestCancelSkipsAlreadyRestoredRows(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 4})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	inv := seedInventory(t, db, sediment.ID, "ALMACEN A", 10, 1, false)

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	_, _, err = svc.Confirm(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 6, inventoryQuantity(t, db, inv.ID))

	// A usage row stamped restored_at counts as already handled
	stamped := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.WorkOrderFilterUsage{}).
		Where("work_order_id = ?", order.ID).
		Update("restored_at", stamped).Error)

	cancelled, movements, err := svc.Cancel(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.WorkOrderCancelled, cancelled.Status)
	assert.Empty(t, movements)
	assert.Equal(t, 6, inventoryQuantity(t, db, inv.ID))

	var usage models.WorkOrderFilterUsage
	require.NoError(t, db.First(&usage, "work_order_id = ?", order.ID).Error)
	require.NotNil(t, usage.RestoredAt)
	assert.WithinDuration(t, stamped, *usage.RestoredAt, time.Second)
}

func TestCancelRequiresGenerated(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 1})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)

	_, _, err = svc.Cancel(ctx, order.ID)
	require.Error(t, err)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.WorkOrderDraft, stateErr.Current)
	assert.Equal(t, models.WorkOrderGenerated, stateErr.Expected)
}

func TestCancelPrefersPrimaryLocation(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 2})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	// primary holds less stock than the other location after the deduction
	primary := seedInventory(t, db, sediment.ID, "ALMACEN A", 2, 1, true)
	bulk := seedInventory(t, db, sediment.ID, "BODEGA B", 50, 1, false)

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	_, _, err = svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	_, movements, err := svc.Cancel(ctx, order.ID)
	require.NoError(t, err)

	require.Len(t, movements, 1)
	assert.Equal(t, "ALMACEN A", movements[0].Location)
	assert.Equal(t, 2, inventoryQuantity(t, db, primary.ID))
	assert.Equal(t, 50, inventoryQuantity(t, db, bulk.ID))
}

func TestCancelCreatesDefaultLocationWhenNoneLeft(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 2})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	row := seedInventory(t, db, sediment.ID, "ALMACEN A", 5, 1, false)

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	_, _, err = svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	// the location disappears before the cancellation
	require.NoError(t, db.Unscoped().Delete(&models.Inventory{}, "id = ?", row.ID).Error)

	_, movements, err := svc.Cancel(ctx, order.ID)
	require.NoError(t, err)

	require.Len(t, movements, 1)
	assert.Equal(t, DefaultRestoreLocation, movements[0].Location)

	var restored models.Inventory
	require.NoError(t, db.First(&restored, "filter_id = ? AND location = ?", sediment.ID, DefaultRestoreLocation).Error)
	assert.Equal(t, 2, restored.Quantity)
}

func TestDeleteDraftOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newWorkOrderService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	sediment := seedFilter(t, db, "SED-10", "Sedimento 10um")
	pkg := seedPackage(t, db, "Paquete Semestral", map[*models.Filter]int{sediment: 1})
	seedMapping(t, db, "4200RODE", 6, pkg.ID)
	m := seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	seedInventory(t, db, sediment.ID, "ALMACEN A", 10, 1, false)

	order, err := svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, order.ID))

	var linked models.Maintenance
	require.NoError(t, db.First(&linked, "id = ?", m.ID).Error)
	assert.Nil(t, linked.WorkOrderID)

	// a generated order refuses deletion
	order, err = svc.CreateDraft(ctx, 2026, 9, models.DeliveryInPerson)
	require.NoError(t, err)
	_, _, err = svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, order.ID)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
}
