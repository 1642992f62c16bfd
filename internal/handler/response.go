package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"paygate/internal/provider"
	"paygate/internal/repository"
	"paygate/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository/provider errors to HTTP
// status codes. Each error kind in the taxonomy keeps a stable outward
// signal: bad request, not found, conflict, or upstream payment failure.
func mapErrorToHTTPStatus(err error) int {
	var providerErr *provider.Error

	switch {
	// Not found
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCurrency),
		errors.Is(err, service.ErrUnknownProvider),
		errors.Is(err, service.ErrInvalidTransactionID),
		errors.Is(err, service.ErrInvalidReference),
		errors.Is(err, service.ErrMissingToken),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest

	// State machine and concurrency conflicts
	case errors.Is(err, service.ErrPaymentNotRefundable),
		errors.Is(err, service.ErrPaymentNotConfirmable),
		errors.Is(err, service.ErrPaymentConflict),
		errors.Is(err, repository.ErrStaleStatus),
		errors.Is(err, repository.ErrDuplicateTransaction):
		return http.StatusConflict

	// Upstream provider failures
	case errors.As(err, &providerErr):
		return http.StatusPaymentRequired

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
