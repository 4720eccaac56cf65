package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/cycle"
	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
	"github.com/amawa/backend/internal/tracing"
)

// Scorer weights. Completions for the same client dominate; open workload
// counts against the candidate.
const (
	weightClientHistory = 5.0
	weightTotalHistory  = 1.0
	weightRecency       = 2.0
	weightWorkload      = 1.5
	recencyWindowDays   = 90
)

// TechnicianSuggestion is one ranked candidate for a maintenance assignment
type TechnicianSuggestion struct {
	Technician         models.Technician `json:"technician"`
	Score              float64           `json:"score"`
	CompletedForClient int64             `json:"completed_for_client"`
	CompletedTotal     int64             `json:"completed_total"`
	OpenAssignments    int64             `json:"open_assignments"`
}

// MaintenanceService handles the maintenance visit lifecycle
type MaintenanceService struct {
	db              *gorm.DB
	maintenanceRepo *repositories.MaintenanceRepository
	contractRepo    *repositories.ContractRepository
	technicianRepo  *repositories.TechnicianRepository
	mappings        *MappingService
	tracer          tracing.Tracer
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(db *gorm.DB, mappings *MappingService, tracer tracing.Tracer) *MaintenanceService {
	return &MaintenanceService{
		db:              db,
		maintenanceRepo: repositories.NewMaintenanceRepository(db),
		contractRepo:    repositories.NewContractRepository(db),
		technicianRepo:  repositories.NewTechnicianRepository(db),
		mappings:        mappings,
		tracer:          tracer,
	}
}

// Schedule creates a new PENDING maintenance under the client's active
// contract. The cycle number defaults to one more than the client's latest
// visit when not given.
func (s *MaintenanceService) Schedule(ctx context.Context, m *models.Maintenance) error {
	contract, err := s.contractRepo.GetByID(ctx, m.ContractID)
	if err != nil {
		return err
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.ClientID = contract.ClientID
	m.Status = models.MaintenancePending
	if m.DeliveryType == "" {
		m.DeliveryType = contract.DeliveryType
	}
	if m.CycleNumber <= 0 {
		m.CycleNumber = 1
	}

	return s.maintenanceRepo.Create(ctx, m)
}

// GetByID gets a maintenance with its resolved cycle detail
func (s *MaintenanceService) GetByID(ctx context.Context, id uuid.UUID) (*models.Maintenance, *cycle.Resolution, error) {
	m, err := s.maintenanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	table, err := s.mappings.Table(ctx)
	if err != nil {
		return nil, nil, err
	}
	res := cycle.ResolvePackage(m.Contract.PlanCode, &m.CycleNumber, table)
	return m, &res, nil
}

// List lists maintenances matching the filter
func (s *MaintenanceService) List(ctx context.Context, filter repositories.MaintenanceListFilter) ([]models.Maintenance, error) {
	return s.maintenanceRepo.List(ctx, filter)
}

// Assign sets the technician for a maintenance
func (s *MaintenanceService) Assign(ctx context.Context, maintenanceID, technicianID uuid.UUID) (*models.Maintenance, error) {
	m, err := s.maintenanceRepo.GetByID(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MaintenancePending {
		return nil, errors.Errorf("maintenance is %s, only pending visits can be assigned", m.Status)
	}

	technician, err := s.technicianRepo.GetByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if !technician.Active {
		return nil, errors.New("technician is not active")
	}

	m.TechnicianID = &technician.ID
	if err := s.maintenanceRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Complete stamps a maintenance COMPLETED and schedules the follow-up visit:
// cycle number + 1, due the effective cycle months ahead of completion.
func (s *MaintenanceService) Complete(ctx context.Context, id uuid.UUID, notes *string) (*models.Maintenance, *models.Maintenance, error) {
	txn := s.tracer.StartTransaction("maintenance-complete")
	defer s.tracer.EndTransaction(txn)

	m, err := s.maintenanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if m.Status != models.MaintenancePending {
		return nil, nil, errors.Errorf("maintenance is %s, only pending visits can be completed", m.Status)
	}

	now := time.Now()
	m.Status = models.MaintenanceCompleted
	m.CompletedAt = &now
	if notes != nil {
		m.Notes = notes
	}

	nextCycle := m.CycleNumber + 1
	months := cycle.EffectiveCycleMonths(&nextCycle)
	next := &models.Maintenance{
		ID:            uuid.New(),
		ClientID:      m.ClientID,
		ContractID:    m.ContractID,
		CycleNumber:   nextCycle,
		Status:        models.MaintenancePending,
		DeliveryType:  m.DeliveryType,
		ScheduledDate: now.AddDate(0, months, 0),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(m).Error; err != nil {
			return errors.Wrap(err, "failed to complete maintenance")
		}
		if err := tx.Create(next).Error; err != nil {
			return errors.Wrap(err, "failed to schedule next maintenance")
		}
		return nil
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, nil, err
	}

	log.Info().
		Str("maintenance_id", m.ID.String()).
		Int("next_cycle", nextCycle).
		Int("next_months", months).
		Msg("Maintenance completed, follow-up scheduled")

	return m, next, nil
}

// SuggestTechnicians ranks active technicians for a maintenance by a
// weighted sum over completions for the same client, overall completions,
// recency of the last job and current open workload.
func (s *MaintenanceService) SuggestTechnicians(ctx context.Context, maintenanceID uuid.UUID) ([]TechnicianSuggestion, error) {
	m, err := s.maintenanceRepo.GetByID(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	technicians, err := s.technicianRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := make([]TechnicianSuggestion, 0, len(technicians))
	for _, technician := range technicians {
		history, err := s.maintenanceRepo.HistoryForTechnician(ctx, technician.ID, m.ClientID)
		if err != nil {
			return nil, err
		}

		suggestions = append(suggestions, TechnicianSuggestion{
			Technician:         technician,
			Score:              scoreTechnician(history, time.Now()),
			CompletedForClient: history.CompletedForClient,
			CompletedTotal:     history.Completed,
			OpenAssignments:    history.OpenAssignments,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	return suggestions, nil
}

// scoreTechnician computes the weighted heuristic for one candidate
func scoreTechnician(h *repositories.TechnicianHistory, now time.Time) float64 {
	score := weightClientHistory*float64(h.CompletedForClient) +
		weightTotalHistory*float64(h.Completed) -
		weightWorkload*float64(h.OpenAssignments)

	if h.LastCompletedAt != nil {
		days := now.Sub(*h.LastCompletedAt).Hours() / 24
		if days < recencyWindowDays {
			score += weightRecency * (1 - days/recencyWindowDays)
		}
	}
	return score
}

// MonthlyStats aggregates one month's maintenance activity
type MonthlyStats struct {
	Month         int                                `json:"month"`
	Year          int                                `json:"year"`
	ByStatus      map[models.MaintenanceStatus]int64 `json:"by_status"`
	PackageDemand map[string]int                     `json:"package_demand"`
	Unmapped      int                                `json:"unmapped"`
}

// Stats aggregates counts by status plus the projected package demand of the
// month's pending visits
func (s *MaintenanceService) Stats(ctx context.Context, year, month int) (*MonthlyStats, error) {
	counts, err := s.maintenanceRepo.CountByStatus(ctx, year, month)
	if err != nil {
		return nil, err
	}

	table, err := s.mappings.Table(ctx)
	if err != nil {
		return nil, err
	}

	stats := &MonthlyStats{
		Month:         month,
		Year:          year,
		ByStatus:      counts,
		PackageDemand: map[string]int{},
	}

	for _, deliveryType := range []models.DeliveryType{models.DeliveryInPerson, models.DeliveryShipping} {
		pending, err := s.maintenanceRepo.PendingUnassigned(ctx, year, month, deliveryType)
		if err != nil {
			return nil, err
		}
		for i := range pending {
			m := &pending[i]
			res := cycle.ResolvePackage(m.Contract.PlanCode, &m.CycleNumber, table)
			if res.Resolved() {
				stats.PackageDemand[res.Mapping.Package.Name]++
			} else {
				stats.Unmapped++
			}
		}
	}

	return stats, nil
}
