package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amawa/backend/internal/models"
)

func TestListDerivesStockStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, newTestMetrics())
	ctx := context.Background()

	filter := seedFilter(t, db, "SED-10", "Sedimento 10")
	seedInventory(t, db, filter.ID, "ALMACEN A", 1, 5, false)
	seedInventory(t, db, filter.ID, "BODEGA B", 7, 5, false)
	seedInventory(t, db, filter.ID, "BODEGA C", 10, 5, false)

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byLocation := make(map[string]InventoryRow, len(rows))
	for _, row := range rows {
		byLocation[row.Location] = row
	}
	assert.Equal(t, models.StockLow, byLocation["ALMACEN A"].StockState)
	assert.Equal(t, models.StockWarning, byLocation["BODEGA B"].StockState)
	assert.Equal(t, models.StockOK, byLocation["BODEGA C"].StockState)
	assert.Equal(t, "SED-10", byLocation["ALMACEN A"].SKU)
}

func TestLowStockOnlyListsRowsBelowMinimum(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, newTestMetrics())
	ctx := context.Background()

	filter := seedFilter(t, db, "CARB-05", "Carbon 5")
	seedInventory(t, db, filter.ID, "ALMACEN A", 2, 5, false)
	seedInventory(t, db, filter.ID, "BODEGA B", 9, 5, false)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "ALMACEN A", low[0].Location)
	assert.Equal(t, models.StockLow, low[0].StockState)
}

func TestDeleteFilterBlockedWhenReferenced(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, newTestMetrics())
	ctx := context.Background()

	filter := seedFilter(t, db, "SED-10", "Sedimento 10")
	seedPackage(t, db, "Paquete basico", map[*models.Filter]int{filter: 2})

	err := svc.DeleteFilter(ctx, filter.ID)
	var refErr *ReferencedFilterError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "SED-10", refErr.SKU)

	var count int64
	require.NoError(t, db.Model(&models.Filter{}).Where("id = ?", filter.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeleteFilterRemovesUnreferenced(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, newTestMetrics())
	ctx := context.Background()

	filter := seedFilter(t, db, "UV-01", "Lampara UV")
	require.NoError(t, svc.DeleteFilter(ctx, filter.ID))

	var count int64
	require.NoError(t, db.Model(&models.Filter{}).Where("id = ?", filter.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestUpdateFilterSKUImmutableWhenReferenced(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, newTestMetrics())
	ctx := context.Background()

	filter := seedFilter(t, db, "SED-10", "Sedimento 10")
	seedPackage(t, db, "Paquete basico", map[*models.Filter]int{filter: 1})

	renamed := *filter
	renamed.SKU = "SED-20"
	err := svc.UpdateFilter(ctx, &renamed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SED-10")

	// Other fields stay editable.
	updated := *filter
	updated.Name = "Sedimento 10 micras"
	require.NoError(t, svc.UpdateFilter(ctx, &updated))

	var got models.Filter
	require.NoError(t, db.First(&got, "id = ?", filter.ID).Error)
	assert.Equal(t, "SED-10", got.SKU)
	assert.Equal(t, "Sedimento 10 micras", got.Name)
}

func TestAdjustAppliesDeltaAndRejectsNegative(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, newTestMetrics())
	ctx := context.Background()

	filter := seedFilter(t, db, "SED-10", "Sedimento 10")
	inv := seedInventory(t, db, filter.ID, "ALMACEN A", 4, 2, true)

	got, err := svc.Adjust(ctx, inv.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
	assert.Equal(t, 1, inventoryQuantity(t, db, inv.ID))

	_, err = svc.Adjust(ctx, inv.ID, -2)
	require.Error(t, err)
	assert.Equal(t, 1, inventoryQuantity(t, db, inv.ID))

	got, err = svc.Adjust(ctx, inv.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Quantity)
}

func TestCreateLocationRequiresExistingFilter(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, newTestMetrics())
	ctx := context.Background()

	filter := seedFilter(t, db, "SED-10", "Sedimento 10")
	err := svc.CreateLocation(ctx, &models.Inventory{
		FilterID: filter.ID,
		Location: "ALMACEN A",
		Quantity: 3,
		MinStock: 1,
	})
	require.NoError(t, err)

	err = svc.CreateLocation(ctx, &models.Inventory{
		FilterID: uuid.New(),
		Location: "ALMACEN A",
	})
	require.Error(t, err)
}
