package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
	"github.com/amawa/backend/internal/services"
	"github.com/amawa/backend/internal/tracing"
)

// MaintenancesHandler handles maintenance scheduling HTTP requests
type MaintenancesHandler struct {
	maintenances *services.MaintenanceService
	tracer       tracing.Tracer
}

// NewMaintenancesHandler creates a new maintenances handler
func NewMaintenancesHandler(maintenances *services.MaintenanceService, tracer tracing.Tracer) *MaintenancesHandler {
	return &MaintenancesHandler{maintenances: maintenances, tracer: tracer}
}

// ScheduleRequest is the payload for scheduling a maintenance visit
type ScheduleRequest struct {
	ClientID      uuid.UUID `json:"client_id" binding:"required"`
	ContractID    uuid.UUID `json:"contract_id" binding:"required"`
	CycleNumber   int       `json:"cycle_number"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	Notes         *string   `json:"notes"`
}

// AssignRequest is the payload for assigning a technician
type AssignRequest struct {
	TechnicianID uuid.UUID `json:"technician_id" binding:"required"`
}

// CompleteRequest is the payload for completing a visit
type CompleteRequest struct {
	Notes *string `json:"notes"`
}

// HandleSchedule schedules a new maintenance visit
func (h *MaintenancesHandler) HandleSchedule(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-schedule-maintenance")
	defer h.tracer.EndTransaction(txn)

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	m := &models.Maintenance{
		ClientID:      req.ClientID,
		ContractID:    req.ContractID,
		CycleNumber:   req.CycleNumber,
		ScheduledDate: req.ScheduledDate,
		Notes:         req.Notes,
	}
	if err := h.maintenances.Schedule(c.Request.Context(), m); err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// HandleGet returns one maintenance with its resolved cycle and package
func (h *MaintenancesHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	m, resolution, err := h.maintenances.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"maintenance": m, "resolution": resolution})
}

// HandleList lists maintenances matching the query filters
func (h *MaintenancesHandler) HandleList(c *gin.Context) {
	filter := repositories.MaintenanceListFilter{
		Status: models.MaintenanceStatus(c.Query("status")),
		Month:  parseIntQuery(c, "month", 0),
		Year:   parseIntQuery(c, "year", 0),
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondValidationError(c, err)
			return
		}
		filter.ClientID = &id
	}
	if raw := c.Query("technician_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondValidationError(c, err)
			return
		}
		filter.TechnicianID = &id
	}

	list, err := h.maintenances.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"maintenances": list, "count": len(list)})
}

// HandleAssign assigns a technician to a pending maintenance
func (h *MaintenancesHandler) HandleAssign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	m, err := h.maintenances.Assign(c.Request.Context(), id, req.TechnicianID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// HandleComplete completes a visit and schedules the next cycle
func (h *MaintenancesHandler) HandleComplete(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-complete-maintenance")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	var req CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondValidationError(c, err)
			return
		}
	}

	completed, next, err := h.maintenances.Complete(c.Request.Context(), id, req.Notes)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed, "next": next})
}

// HandleSuggest ranks active technicians for a maintenance visit
func (h *MaintenancesHandler) HandleSuggest(c *gin.Context) {
	raw := c.Query("maintenance_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "query parameter 'maintenance_id' is required",
			Code:    "VALIDATION",
		})
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	suggestions, err := h.maintenances.SuggestTechnicians(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// HandleStats returns the monthly status and package demand summary
func (h *MaintenancesHandler) HandleStats(c *gin.Context) {
	now := time.Now()
	year := parseIntQuery(c, "year", now.Year())
	month := parseIntQuery(c, "month", int(now.Month()))

	stats, err := h.maintenances.Stats(c.Request.Context(), year, month)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers the handler's routes
func (h *MaintenancesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/maintenances", h.HandleSchedule)
	rg.GET("/maintenances", h.HandleList)
	rg.GET("/maintenances/stats/monthly", h.HandleStats)
	rg.GET("/maintenances/:id", h.HandleGet)
	rg.POST("/maintenances/:id/assign", h.HandleAssign)
	rg.POST("/maintenances/:id/complete", h.HandleComplete)
	rg.GET("/technicians/suggest", h.HandleSuggest)
}
