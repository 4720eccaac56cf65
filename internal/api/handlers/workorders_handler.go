package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/services"
	"github.com/amawa/backend/internal/tracing"
)

// WorkOrdersHandler handles work order lifecycle HTTP requests
type WorkOrdersHandler struct {
	orders *services.WorkOrderService
	tracer tracing.Tracer
}

// NewWorkOrdersHandler creates a new work orders handler
func NewWorkOrdersHandler(orders *services.WorkOrderService, tracer tracing.Tracer) *WorkOrdersHandler {
	return &WorkOrdersHandler{orders: orders, tracer: tracer}
}

// WorkOrderRequest selects the maintenance population for a preview or draft
type WorkOrderRequest struct {
	Year         int    `json:"year" binding:"required"`
	Month        int    `json:"month" binding:"required,min=1,max=12"`
	DeliveryType string `json:"delivery_type" binding:"required,oneof=IN_PERSON SHIPPING"`
}

// HandlePreview runs the read-only dry run for a period
func (h *WorkOrdersHandler) HandlePreview(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-preview-work-order")
	defer h.tracer.EndTransaction(txn)

	req, ok := h.bindPeriod(c)
	if !ok {
		return
	}

	preview, err := h.orders.Preview(c.Request.Context(), req.Year, req.Month, models.DeliveryType(req.DeliveryType))
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// HandleCreate creates a draft work order for a period
func (h *WorkOrdersHandler) HandleCreate(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-work-order")
	defer h.tracer.EndTransaction(txn)

	var req WorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	order, err := h.orders.CreateDraft(c.Request.Context(), req.Year, req.Month, models.DeliveryType(req.DeliveryType))
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// HandleConfirm confirms a draft, deducting inventory atomically
func (h *WorkOrdersHandler) HandleConfirm(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-confirm-work-order")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}
	h.tracer.AddAttribute(txn, "work_order_id", id.String())

	order, movements, err := h.orders.Confirm(c.Request.Context(), id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_order": order, "movements": movements})
}

// HandleCancel cancels a generated work order, restoring inventory
func (h *WorkOrdersHandler) HandleCancel(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-cancel-work-order")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}
	h.tracer.AddAttribute(txn, "work_order_id", id.String())

	order, movements, err := h.orders.Cancel(c.Request.Context(), id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_order": order, "movements": movements})
}

// HandleDelete deletes a draft
func (h *WorkOrdersHandler) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGet returns one work order with its usage rows
func (h *WorkOrdersHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleList lists work orders, newest first
func (h *WorkOrdersHandler) HandleList(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_orders": orders, "count": len(orders)})
}

// bindPeriod reads the period either from the JSON body or from query
// parameters, so previews work as both GET and POST
func (h *WorkOrdersHandler) bindPeriod(c *gin.Context) (WorkOrderRequest, bool) {
	var req WorkOrderRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondValidationError(c, err)
			return req, false
		}
		return req, true
	}

	now := time.Now()
	req.Year = parseIntQuery(c, "year", now.Year())
	req.Month = parseIntQuery(c, "month", int(now.Month()))
	req.DeliveryType = c.DefaultQuery("delivery_type", string(models.DeliveryInPerson))
	if req.Month < 1 || req.Month > 12 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "month must be between 1 and 12",
			Code:    "VALIDATION",
		})
		return req, false
	}
	return req, true
}

// RegisterRoutes registers the handler's routes
func (h *WorkOrdersHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/work-orders/preview", h.HandlePreview)
	rg.POST("/work-orders/preview", h.HandlePreview)
	rg.POST("/work-orders", h.HandleCreate)
	rg.GET("/work-orders", h.HandleList)
	rg.GET("/work-orders/:id", h.HandleGet)
	rg.POST("/work-orders/:id/confirm", h.HandleConfirm)
	rg.POST("/work-orders/:id/cancel", h.HandleCancel)
	rg.DELETE("/work-orders/:id", h.HandleDelete)
}
