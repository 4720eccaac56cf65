package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/services"
)

// TechniciansHandler handles technician roster HTTP requests
type TechniciansHandler struct {
	technicians *services.TechnicianService
}

// NewTechniciansHandler creates a new technicians handler
func NewTechniciansHandler(technicians *services.TechnicianService) *TechniciansHandler {
	return &TechniciansHandler{technicians: technicians}
}

// TechnicianRequest is the payload for creating or updating a technician
type TechnicianRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

// HandleCreate registers a new technician
func (h *TechniciansHandler) HandleCreate(c *gin.Context) {
	var req TechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	technician := &models.Technician{
		Name:   req.Name,
		Phone:  req.Phone,
		Active: true,
	}
	if err := h.technicians.Create(c.Request.Context(), technician); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, technician)
}

// HandleGet returns one technician
func (h *TechniciansHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	technician, err := h.technicians.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, technician)
}

// HandleUpdate updates a technician
func (h *TechniciansHandler) HandleUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	var req TechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	technician, err := h.technicians.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	technician.Name = req.Name
	technician.Phone = req.Phone
	if err := h.technicians.Update(c.Request.Context(), technician); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, technician)
}

// HandleDeactivate takes a technician off the active roster
func (h *TechniciansHandler) HandleDeactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	technician, err := h.technicians.Deactivate(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, technician)
}

// HandleList lists active technicians
func (h *TechniciansHandler) HandleList(c *gin.Context) {
	technicians, err := h.technicians.ListActive(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicians": technicians, "count": len(technicians)})
}

// RegisterRoutes registers the handler's routes
func (h *TechniciansHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/technicians", h.HandleCreate)
	rg.GET("/technicians", h.HandleList)
	rg.GET("/technicians/:id", h.HandleGet)
	rg.PUT("/technicians/:id", h.HandleUpdate)
	rg.POST("/technicians/:id/deactivate", h.HandleDeactivate)
}
