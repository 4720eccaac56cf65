package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/services"
)

// InventoryHandler handles filter catalog and stock HTTP requests
type InventoryHandler struct {
	inventory *services.InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// FilterRequest is the payload for creating or updating a filter SKU
type FilterRequest struct {
	SKU      string  `json:"sku" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category"`
	UnitCost float64 `json:"unit_cost"`
}

// LocationRequest is the payload for creating a stock location row
type LocationRequest struct {
	FilterID uuid.UUID `json:"filter_id" binding:"required"`
	Location string    `json:"location" binding:"required"`
	Quantity int       `json:"quantity"`
	MinStock int       `json:"min_stock"`
	Primary  bool      `json:"primary"`
}

// AdjustRequest is the payload for a manual stock adjustment
type AdjustRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// HandleCreateFilter creates a filter SKU
func (h *InventoryHandler) HandleCreateFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	filter := &models.Filter{
		SKU:      req.SKU,
		Name:     req.Name,
		Category: req.Category,
		UnitCost: req.UnitCost,
	}
	if err := h.inventory.CreateFilter(c.Request.Context(), filter); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, filter)
}

// HandleListFilters lists the filter catalog
func (h *InventoryHandler) HandleListFilters(c *gin.Context) {
	filters, err := h.inventory.ListFilters(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filters": filters, "count": len(filters)})
}

// HandleUpdateFilter updates a filter SKU
func (h *InventoryHandler) HandleUpdateFilter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	filter := &models.Filter{
		ID:       id,
		SKU:      req.SKU,
		Name:     req.Name,
		Category: req.Category,
		UnitCost: req.UnitCost,
	}
	if err := h.inventory.UpdateFilter(c.Request.Context(), filter); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, filter)
}

// HandleDeleteFilter deletes an unreferenced filter SKU
func (h *InventoryHandler) HandleDeleteFilter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	if err := h.inventory.DeleteFilter(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleCreateLocation creates a stock row for a filter at a location
func (h *InventoryHandler) HandleCreateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	inv := &models.Inventory{
		FilterID: req.FilterID,
		Location: req.Location,
		Quantity: req.Quantity,
		MinStock: req.MinStock,
		Primary:  req.Primary,
	}
	if err := h.inventory.CreateLocation(c.Request.Context(), inv); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// HandleList lists all stock rows with their derived status
func (h *InventoryHandler) HandleList(c *gin.Context) {
	rows, err := h.inventory.List(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": rows, "count": len(rows)})
}

// HandleLowStock lists rows under their minimum stock
func (h *InventoryHandler) HandleLowStock(c *gin.Context) {
	rows, err := h.inventory.LowStock(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": rows, "count": len(rows)})
}

// HandleAdjust applies a manual quantity adjustment
func (h *InventoryHandler) HandleAdjust(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	inv, err := h.inventory.Adjust(c.Request.Context(), id, req.Delta)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// RegisterRoutes registers the handler's routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/filters", h.HandleCreateFilter)
	rg.GET("/filters", h.HandleListFilters)
	rg.PUT("/filters/:id", h.HandleUpdateFilter)
	rg.DELETE("/filters/:id", h.HandleDeleteFilter)
	rg.POST("/inventory", h.HandleCreateLocation)
	rg.GET("/inventory", h.HandleList)
	rg.GET("/inventory/low-stock", h.HandleLowStock)
	rg.POST("/inventory/:id/adjust", h.HandleAdjust)
}
