package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/services"
)

// IncidentsHandler handles incident and notification log HTTP requests
type IncidentsHandler struct {
	incidents     *services.IncidentService
	notifications *services.NotificationService
}

// NewIncidentsHandler creates a new incidents handler
func NewIncidentsHandler(incidents *services.IncidentService, notifications *services.NotificationService) *IncidentsHandler {
	return &IncidentsHandler{incidents: incidents, notifications: notifications}
}

// IncidentRequest is the payload for reporting an incident
type IncidentRequest struct {
	ClientID      uuid.UUID  `json:"client_id" binding:"required"`
	MaintenanceID *uuid.UUID `json:"maintenance_id"`
	Severity      string     `json:"severity" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	Description   string     `json:"description" binding:"required"`
}

// ResolveRequest is the payload for resolving an incident
type ResolveRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// HandleCreate reports a new incident
func (h *IncidentsHandler) HandleCreate(c *gin.Context) {
	var req IncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	incident := &models.Incident{
		ClientID:      req.ClientID,
		MaintenanceID: req.MaintenanceID,
		Severity:      req.Severity,
		Description:   req.Description,
	}
	if err := h.incidents.Create(c.Request.Context(), incident); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, incident)
}

// HandleGet returns one incident
func (h *IncidentsHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	incident, err := h.incidents.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

// HandleList lists incidents with optional status and client filters
func (h *IncidentsHandler) HandleList(c *gin.Context) {
	var clientID *uuid.UUID
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondValidationError(c, err)
			return
		}
		clientID = &id
	}

	incidents, err := h.incidents.List(c.Request.Context(), models.IncidentStatus(c.Query("status")), clientID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": incidents, "count": len(incidents)})
}

// HandleResolve resolves an incident and notifies the client
func (h *IncidentsHandler) HandleResolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	incident, err := h.incidents.Resolve(c.Request.Context(), id, req.Resolution)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, incident)
}

// HandleListNotifications lists the outbound message log for a status
func (h *IncidentsHandler) HandleListNotifications(c *gin.Context) {
	status := models.NotificationStatus(c.DefaultQuery("status", string(models.NotificationQueued)))
	notifications, err := h.notifications.List(c.Request.Context(), status, parseIntQuery(c, "limit", 50))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "count": len(notifications)})
}

// RegisterRoutes registers the handler's routes
func (h *IncidentsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/incidents", h.HandleCreate)
	rg.GET("/incidents", h.HandleList)
	rg.GET("/incidents/:id", h.HandleGet)
	rg.POST("/incidents/:id/resolve", h.HandleResolve)
	rg.GET("/notifications", h.HandleListNotifications)
}
