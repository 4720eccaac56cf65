package cycle

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amawa/backend/internal/models"
)

func intPtr(n int) *int { return &n }

func TestEffectiveCycleMonths(t *testing.T) {
	cases := map[int]int{
		1:  6,
		2:  12,
		3:  18,
		4:  24,
		5:  6,
		8:  24,
		13: 6,
	}
	for input, want := range cases {
		assert.Equal(t, want, EffectiveCycleMonths(intPtr(input)), "cycle %d", input)
	}
}

func TestEffectiveCycleMonths_DefaultsToFirstPhase(t *testing.T) {
	assert.Equal(t, 6, EffectiveCycleMonths(nil))
	assert.Equal(t, 6, EffectiveCycleMonths(intPtr(0)))
	assert.Equal(t, 6, EffectiveCycleMonths(intPtr(-3)))
}

func TestEffectiveCycleMonths_Periodicity(t *testing.T) {
	for n := 1; n <= 100; n++ {
		require.Equal(t, EffectiveCycleMonths(intPtr(n)), EffectiveCycleMonths(intPtr(n+4)), "cycle %d", n)
	}
}

func TestResolvePackage(t *testing.T) {
	pkgID := uuid.New()
	table := BuildMappingTable([]models.PlanPackageMapping{
		{PlanCode: "4200RODE", MaintenanceCycle: 6, PackageID: pkgID},
		{PlanCode: "4200RODE", MaintenanceCycle: 12, PackageID: pkgID},
	})

	res := ResolvePackage("4200RODE", intPtr(1), table)
	require.True(t, res.Resolved())
	assert.Equal(t, 6, res.CycleMonths)
	assert.Equal(t, pkgID, res.Mapping.PackageID)

	res = ResolvePackage("4200RODE", intPtr(5), table)
	require.True(t, res.Resolved(), "cycle 5 wraps back to the 6-month phase")
}

func TestResolvePackage_UnmappedCycle(t *testing.T) {
	// Plan mapped only for 6 and 12 months; cycle 3 is the 18-month phase.
	table := BuildMappingTable([]models.PlanPackageMapping{
		{PlanCode: "4200RODE", MaintenanceCycle: 6, PackageID: uuid.New()},
		{PlanCode: "4200RODE", MaintenanceCycle: 12, PackageID: uuid.New()},
	})

	res := ResolvePackage("4200RODE", intPtr(3), table)
	require.False(t, res.Resolved())
	assert.Equal(t, 18, res.CycleMonths)
	assert.Equal(t, "Plan no mapeado a paquete de filtros", res.Reason)
}

func TestResolvePackage_NoPlan(t *testing.T) {
	table := BuildMappingTable(nil)

	res := ResolvePackage("", intPtr(2), table)
	require.False(t, res.Resolved())
	assert.Equal(t, ReasonNoPlan, res.Reason)
}

func TestBuildMappingTable_KeepsFirstDuplicate(t *testing.T) {
	first := uuid.New()
	table := BuildMappingTable([]models.PlanPackageMapping{
		{PlanCode: "P1", MaintenanceCycle: 6, PackageID: first},
		{PlanCode: "P1", MaintenanceCycle: 6, PackageID: uuid.New()},
	})

	require.Len(t, table, 1)
	assert.Equal(t, first, table[MappingKey{PlanCode: "P1", CycleMonths: 6}].PackageID)
}
