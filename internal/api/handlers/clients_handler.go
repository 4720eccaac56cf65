package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
	"github.com/amawa/backend/internal/services"
	"github.com/amawa/backend/internal/tracing"
)

// ClientsHandler handles client and contract HTTP requests
type ClientsHandler struct {
	clients *services.ClientService
	tracer  tracing.Tracer
}

// NewClientsHandler creates a new clients handler
func NewClientsHandler(clients *services.ClientService, tracer tracing.Tracer) *ClientsHandler {
	return &ClientsHandler{clients: clients, tracer: tracer}
}

// ClientRequest is the payload for creating or updating a client
type ClientRequest struct {
	Name     string  `json:"name" binding:"required"`
	Phone    string  `json:"phone" binding:"required"`
	Email    *string `json:"email"`
	Address  string  `json:"address"`
	District string  `json:"district"`
	Notes    *string `json:"notes"`
}

// ContractRequest is the payload for attaching a contract to a client
type ContractRequest struct {
	PlanCode     string    `json:"plan_code" binding:"required,plancode"`
	DeliveryType string    `json:"delivery_type" binding:"required,oneof=IN_PERSON SHIPPING"`
	StartDate    time.Time `json:"start_date" binding:"required"`
}

// HandleCreate creates a new client
func (h *ClientsHandler) HandleCreate(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-client")
	defer h.tracer.EndTransaction(txn)

	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	client := &models.Client{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		District: req.District,
		Notes:    req.Notes,
		Active:   true,
	}
	if err := h.clients.Create(c.Request.Context(), client); err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, client)
}

// HandleGet returns one client
func (h *ClientsHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	client, err := h.clients.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// HandleUpdate updates a client
func (h *ClientsHandler) HandleUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	client, err := h.clients.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	client.Name = req.Name
	client.Phone = req.Phone
	client.Email = req.Email
	client.Address = req.Address
	client.District = req.District
	client.Notes = req.Notes

	if err := h.clients.Update(c.Request.Context(), client); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// HandleDelete soft-deletes a client
func (h *ClientsHandler) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	if err := h.clients.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleList lists clients with optional district and active filters
func (h *ClientsHandler) HandleList(c *gin.Context) {
	filter := repositories.ClientListFilter{
		District: c.Query("district"),
		Limit:    parseIntQuery(c, "limit", 50),
		Offset:   parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}

	clients, err := h.clients.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients, "count": len(clients)})
}

// HandleSearch runs a full-text query over the client index
func (h *ClientsHandler) HandleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "query parameter 'q' is required",
			Code:    "VALIDATION",
		})
		return
	}

	results, err := h.clients.Search(c.Request.Context(), query, parseIntQuery(c, "limit", 20))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// HandleAddContract attaches a contract to a client
func (h *ClientsHandler) HandleAddContract(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, err)
		return
	}

	contract := &models.Contract{
		ClientID:     clientID,
		PlanCode:     req.PlanCode,
		DeliveryType: models.DeliveryType(req.DeliveryType),
		StartDate:    req.StartDate,
		Active:       true,
	}
	if err := h.clients.AddContract(c.Request.Context(), contract); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

// HandleListContracts lists a client's contracts
func (h *ClientsHandler) HandleListContracts(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, err)
		return
	}

	contracts, err := h.clients.ListContracts(c.Request.Context(), clientID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": contracts, "count": len(contracts)})
}

// RegisterRoutes registers the handler's routes
func (h *ClientsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/clients", h.HandleCreate)
	rg.GET("/clients", h.HandleList)
	rg.GET("/clients/search", h.HandleSearch)
	rg.GET("/clients/:id", h.HandleGet)
	rg.PUT("/clients/:id", h.HandleUpdate)
	rg.DELETE("/clients/:id", h.HandleDelete)
	rg.POST("/clients/:id/contracts", h.HandleAddContract)
	rg.GET("/clients/:id/contracts", h.HandleListContracts)
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
