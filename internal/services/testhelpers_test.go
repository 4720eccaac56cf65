package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amawa/backend/config"
	"github.com/amawa/backend/internal/metrics"
	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/tracing"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, models.SetupModels(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestTracer(t *testing.T) tracing.Tracer {
	t.Helper()
	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	return tracer
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics()
}

// fixture is one client with an active contract, reused across tests
type fixture struct {
	client   *models.Client
	contract *models.Contract
}

func seedClientWithContract(t *testing.T, db *gorm.DB, planCode string, deliveryType models.DeliveryType) fixture {
	t.Helper()

	client := &models.Client{
		ID:       uuid.New(),
		Name:     "Cliente Prueba",
		Phone:    "+51987654321",
		District: "Miraflores",
		Active:   true,
	}
	require.NoError(t, db.Create(client).Error)

	contract := &models.Contract{
		ID:           uuid.New(),
		ClientID:     client.ID,
		PlanCode:     planCode,
		DeliveryType: deliveryType,
		StartDate:    time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Active:       true,
	}
	require.NoError(t, db.Create(contract).Error)

	return fixture{client: client, contract: contract}
}

func seedFilter(t *testing.T, db *gorm.DB, sku, name string) *models.Filter {
	t.Helper()
	filter := &models.Filter{ID: uuid.New(), SKU: sku, Name: name}
	require.NoError(t, db.Create(filter).Error)
	return filter
}

func seedInventory(t *testing.T, db *gorm.DB, filterID uuid.UUID, location string, quantity, minStock int, primary bool) *models.Inventory {
	t.Helper()
	inv := &models.Inventory{
		ID:       uuid.New(),
		FilterID: filterID,
		Location: location,
		Quantity: quantity,
		MinStock: minStock,
		Primary:  primary,
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func seedPackage(t *testing.T, db *gorm.DB, name string, items map[*models.Filter]int) *models.FilterPackage {
	t.Helper()
	pkg := &models.FilterPackage{ID: uuid.New(), Name: name}
	for filter, quantity := range items {
		pkg.Items = append(pkg.Items, models.FilterPackageItem{
			ID:       uuid.New(),
			FilterID: filter.ID,
			Quantity: quantity,
		})
	}
	require.NoError(t, db.Create(pkg).Error)
	return pkg
}

func seedMapping(t *testing.T, db *gorm.DB, planCode string, cycleMonths int, packageID uuid.UUID) *models.PlanPackageMapping {
	t.Helper()
	mapping := &models.PlanPackageMapping{
		ID:               uuid.New(),
		PlanCode:         planCode,
		MaintenanceCycle: cycleMonths,
		PackageID:        packageID,
	}
	require.NoError(t, db.Create(mapping).Error)
	return mapping
}

func seedMaintenance(t *testing.T, db *gorm.DB, f fixture, cycleNumber int, scheduled time.Time) *models.Maintenance {
	t.Helper()
	m := &models.Maintenance{
		ID:            uuid.New(),
		ClientID:      f.client.ID,
		ContractID:    f.contract.ID,
		CycleNumber:   cycleNumber,
		Status:        models.MaintenancePending,
		DeliveryType:  f.contract.DeliveryType,
		ScheduledDate: scheduled,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func inventoryQuantity(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var inv models.Inventory
	require.NoError(t, db.First(&inv, "id = ?", id).Error)
	return inv.Quantity
}
