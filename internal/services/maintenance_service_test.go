package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
)

func newMaintenanceService(t *testing.T, db *gorm.DB) *MaintenanceService {
	t.Helper()
	mappings := NewMappingService(db, nil, time.Minute)
	return NewMaintenanceService(db, mappings, newTestTracer(t))
}

func seedTechnician(t *testing.T, db *gorm.DB, name string, active bool) *models.Technician {
	t.Helper()
	technician := &models.Technician{ID: uuid.New(), Name: name, Active: active}
	require.NoError(t, db.Create(technician).Error)
	return technician
}

func completeVisit(t *testing.T, db *gorm.DB, f fixture, technicianID uuid.UUID, completedAt time.Time) {
	t.Helper()
	m := &models.Maintenance{
		ID:            uuid.New(),
		ClientID:      f.client.ID,
		ContractID:    f.contract.ID,
		TechnicianID:  &technicianID,
		CycleNumber:   1,
		Status:        models.MaintenanceCompleted,
		DeliveryType:  f.contract.DeliveryType,
		ScheduledDate: completedAt,
		CompletedAt:   &completedAt,
	}
	require.NoError(t, db.Create(m).Error)
}

func TestScheduleDefaultsFromContract(t *testing.T) {
	db := newTestDB(t)
	svc := newMaintenanceService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryShipping)

	m := &models.Maintenance{
		ContractID:    f.contract.ID,
		ScheduledDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.Schedule(ctx, m))

	assert.Equal(t, f.client.ID, m.ClientID)
	assert.Equal(t, models.MaintenancePending, m.Status)
	assert.Equal(t, models.DeliveryShipping, m.DeliveryType)
	assert.Equal(t, 1, m.CycleNumber)
}

func TestCompleteSchedulesFollowUp(t *testing.T) {
	db := newTestDB(t)
	svc := newMaintenanceService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	m := seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	notes := "Cambio de filtros completo"
	completed, next, err := svc.Complete(ctx, m.ID, &notes)
	require.NoError(t, err)

	assert.Equal(t, models.MaintenanceCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.Notes)
	assert.Equal(t, notes, *completed.Notes)

	// cycle 2 resolves to a 12-month interval
	assert.Equal(t, 2, next.CycleNumber)
	assert.Equal(t, models.MaintenancePending, next.Status)
	expected := completed.CompletedAt.AddDate(0, 12, 0)
	assert.WithinDuration(t, expected, next.ScheduledDate, time.Minute)
}

func TestCompleteRejectsNonPending(t *testing.T) {
	db := newTestDB(t)
	svc := newMaintenanceService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	m := seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	_, _, err := svc.Complete(ctx, m.ID, nil)
	require.NoError(t, err)

	_, _, err = svc.Complete(ctx, m.ID, nil)
	require.Error(t, err)
}

func TestAssignRequiresActiveTechnician(t *testing.T) {
	db := newTestDB(t)
	svc := newMaintenanceService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	m := seedMaintenance(t, db, f, 1, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	inactive := seedTechnician(t, db, "Tecnico Inactivo", false)

	_, err := svc.Assign(ctx, m.ID, inactive.ID)
	require.Error(t, err)

	active := seedTechnician(t, db, "Tecnico Activo", true)
	assigned, err := svc.Assign(ctx, m.ID, active.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.TechnicianID)
	assert.Equal(t, active.ID, *assigned.TechnicianID)
}

func TestSuggestTechniciansRanking(t *testing.T) {
	db := newTestDB(t)
	svc := newMaintenanceService(t, db)
	ctx := context.Background()

	f := seedClientWithContract(t, db, "4200RODE", models.DeliveryInPerson)
	other := seedClientWithContract(t, db, "WHS-PLUS", models.DeliveryInPerson)

	veteran := seedTechnician(t, db, "Veterano", true)
	stranger := seedTechnician(t, db, "Nuevo", true)

	// the veteran has completed visits for this client, the other candidate
	// only for someone else
	lastMonth := time.Now().AddDate(0, -1, 0)
	completeVisit(t, db, f, veteran.ID, lastMonth)
	completeVisit(t, db, f, veteran.ID, lastMonth.AddDate(0, 0, 3))
	completeVisit(t, db, other, stranger.ID, lastMonth)

	m := seedMaintenance(t, db, f, 2, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))

	suggestions, err := svc.SuggestTechnicians(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, veteran.ID, suggestions[0].Technician.ID)
	assert.Equal(t, int64(2), suggestions[0].CompletedForClient)
	assert.Greater(t, suggestions[0].Score, suggestions[1].Score)
}

func TestScoreTechnicianWorkloadPenalty(t *testing.T) {
	now := time.Now()

	busy := scoreTechnician(&repositories.TechnicianHistory{Completed: 3, CompletedForClient: 3, OpenAssignments: 4}, now)
	free := scoreTechnician(&repositories.TechnicianHistory{Completed: 3, CompletedForClient: 3}, now)

	assert.Less(t, busy, free)
}

func TestScoreTechnicianRecencyDecay(t *testing.T) {
	now := time.Now()
	recent := now.AddDate(0, 0, -5)
	stale := now.AddDate(0, 0, -200)

	withRecent := scoreTechnician(&repositories.TechnicianHistory{Completed: 1, LastCompletedAt: &recent}, now)
	withStale := scoreTechnician(&repositories.TechnicianHistory{Completed: 1, LastCompletedAt: &stale}, now)
	withNone := scoreTechnician(&repositories.TechnicianHistory{Completed: 1}, now)

	assert.Greater(t, withRecent, withStale)
	assert.Equal(t, withNone, withStale)
}
