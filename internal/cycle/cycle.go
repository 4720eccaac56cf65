// Package cycle derives the effective maintenance interval from a client's
// cycle ordinal and resolves the filter package a visit requires.
package cycle

import (
	"github.com/amawa/backend/internal/models"
)

// Reasons a maintenance cannot be resolved to a package. Surfaced verbatim in
// work-order previews so operators can reconcile before generating.
const (
	ReasonNoPlan    = "Sin plan asignado"
	ReasonNoMapping = "Plan no mapeado a paquete de filtros"
)

// EffectiveCycleMonths maps a maintenance cycle ordinal to the repeating
// 6/12/18/24-month phase. Nil or non-positive input defaults to the first
// phase. Total over all integers.
func EffectiveCycleMonths(cycleNumber *int) int {
	if cycleNumber == nil || *cycleNumber <= 0 {
		return 6
	}
	phase := ((*cycleNumber - 1) % 4) + 1
	return phase * 6
}

// MappingTable indexes plan/package mappings by (plan code, cycle months)
type MappingTable map[MappingKey]*models.PlanPackageMapping

// MappingKey identifies one mapping table entry
type MappingKey struct {
	PlanCode    string
	CycleMonths int
}

// BuildMappingTable indexes a mapping list for resolution lookups. Later
// duplicates for the same (plan, cycle) pair are ignored.
func BuildMappingTable(mappings []models.PlanPackageMapping) MappingTable {
	table := make(MappingTable, len(mappings))
	for i := range mappings {
		m := &mappings[i]
		key := MappingKey{PlanCode: m.PlanCode, CycleMonths: m.MaintenanceCycle}
		if _, exists := table[key]; !exists {
			table[key] = m
		}
	}
	return table
}

// Resolution is the outcome of resolving a maintenance against the table
type Resolution struct {
	CycleMonths int
	Mapping     *models.PlanPackageMapping
	// Reason is set when no package could be resolved
	Reason string
}

// Resolved reports whether the maintenance maps to a package
func (r Resolution) Resolved() bool {
	return r.Mapping != nil
}

// ResolvePackage looks up the package required for a plan at a given cycle
// ordinal. A miss is not an error: callers treat it as "needs manual
// reconciliation" and must never fail a surrounding batch operation on it.
func ResolvePackage(planCode string, cycleNumber *int, table MappingTable) Resolution {
	months := EffectiveCycleMonths(cycleNumber)
	if planCode == "" {
		return Resolution{CycleMonths: months, Reason: ReasonNoPlan}
	}
	mapping, ok := table[MappingKey{PlanCode: planCode, CycleMonths: months}]
	if !ok {
		return Resolution{CycleMonths: months, Reason: ReasonNoMapping}
	}
	return Resolution{CycleMonths: months, Mapping: mapping}
}
