package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/amawa/backend/internal/repositories"
	"github.com/amawa/backend/internal/services"
)

// ErrorResponse is the JSON body returned for every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// RespondError maps service and repository errors onto HTTP responses.
// Business conflicts keep their detail arrays; persistence faults stay opaque.
func RespondError(c *gin.Context, err error) {
	var (
		stateErr      *services.StateError
		stockErr      *services.InsufficientStockError
		unmappedErr   *services.UnmappedMaintenancesError
		referencedErr *services.ReferencedFilterError
	)

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "resource not found",
			Code:    "NOT_FOUND",
		})
	case errors.Is(err, repositories.ErrDuplicateKey):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "resource already exists",
			Code:    "DUPLICATE",
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: stateErr.Error(),
			Code:    "INVALID_STATE",
		})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: stockErr.Error(),
			Code:    "INSUFFICIENT_STOCK",
			Details: stockErr.Shortages,
		})
	case errors.As(err, &unmappedErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: unmappedErr.Error(),
			Code:    "UNMAPPED_MAINTENANCES",
			Details: unmappedErr.Unmapped,
		})
	case errors.As(err, &referencedErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: referencedErr.Error(),
			Code:    "FILTER_REFERENCED",
		})
	case errors.Is(err, services.ErrSearchUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "search is unavailable",
			Code:    "SEARCH_UNAVAILABLE",
		})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "internal server error",
			Code:    "INTERNAL",
		})
	}
}

// RespondValidationError returns a 400 for malformed request payloads
func RespondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Message: err.Error(),
		Code:    "VALIDATION",
	})
}
