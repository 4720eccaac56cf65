package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/services"
)

// MappingsHandler handles filter package and plan mapping HTTP requests
type MappingsHandler struct {
	mappings *services.MappingService
}

// NewMappingsHandler creates a new mappings handler
func NewMappingsHandler(mappings *services.MappingService) *MappingsHandler {
	return &MappingsHandler{mappings: mappings}
}

// PackageItemRequest is one SKU line inside a package payload
type PackageItemRequest struct {
	FilterID uuid.UUID `json:"filter_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

// PackageRequest is the payload for creating a filter package
type PackageRequest struct {
	Name  string               `json:"name" binding:"required"`
	Items []PackageItemRequest `json:"items" binding:"required,min=1,dive"`
}

// MappingRequest is the payload for mapping a plan and cycle to a package
type MappingRequest struct {
	PlanCode         string    `json:"plan_code" binding:"required,plancode"`
	MaintenanceCycle int       `json:"maintenance_cycle" binding:"required,oneof=6 12 18 24"`
	PackageID        uuid.UUID `json:"package_id" binding:"required"`
}

// HandleCreatePackage creates a filter package with its items
func (h *MappingsHandler) HandleCreatePackage(c *gin.Context) {
	var req PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	pkg := &models.FilterPackage{Name: req.Name}
	for _, item := range req.Items {
		pkg.Items = append(pkg.Items, models.FilterPackageItem{
			FilterID: item.FilterID,
			Quantity: item.Quantity,
		})
	}
	if err := h.mappings.CreatePackage(c.Request.Context(), pkg); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

// HandleListPackages lists filter packages with their items
func (h *MappingsHandler) HandleListPackages(c *gin.Context) {
	packages, err := h.mappings.ListPackages(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages, "count": len(packages)})
}

// HandleCreateMapping maps a plan and cycle to a package
func (h *MappingsHandler) HandleCreateMapping(c *gin.Context) {
	var req MappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	mapping := &models.PlanPackageMapping{
		PlanCode:         req.PlanCode,
		MaintenanceCycle: req.MaintenanceCycle,
		PackageID:        req.PackageID,
	}
	if err := h.mappings.Create(c.Request.Context(), mapping); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapping)
}

// HandleListMappings lists plan-to-package mappings
func (h *MappingsHandler) HandleListMappings(c *gin.Context) {
	mappings, err := h.mappings.List(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mappings": mappings, "count": len(mappings)})
}

// HandleDeleteMapping removes a mapping
func (h *MappingsHandler) HandleDeleteMapping(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	if err := h.mappings.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleRefreshCache drops the cached mapping table so the next read hits
// the database
func (h *MappingsHandler) HandleRefreshCache(c *gin.Context) {
	if err := h.mappings.Invalidate(c.Request.Context()); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

// RegisterRoutes registers the handler's routes
func (h *MappingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/packages", h.HandleCreatePackage)
	rg.GET("/packages", h.HandleListPackages)
	rg.POST("/package-mappings", h.HandleCreateMapping)
	rg.GET("/package-mappings", h.HandleListMappings)
	rg.DELETE("/package-mappings/:id", h.HandleDeleteMapping)
	rg.POST("/package-mappings/cache/refresh", h.HandleRefreshCache)
}
