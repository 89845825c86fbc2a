package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	catalogdomain "github.com/merchantiq/catalogsync/internal/catalog/domain"
	"github.com/merchantiq/catalogsync/internal/syncrun"
	tenantdomain "github.com/merchantiq/catalogsync/internal/tenant/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, tenantdomain.ErrTenantNotFound),
		errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "resource not found",
		}
	case errors.Is(err, tenantdomain.ErrInvalidDomain):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid shop domain",
		}
	case errors.Is(err, tenantdomain.ErrNoActivePlan):
		return http.StatusConflict, errorPayload{
			Type:    "no_active_plan",
			Message: "tenant has no active plan",
		}
	case errors.Is(err, syncrun.ErrInactiveSubscription):
		return http.StatusConflict, errorPayload{
			Type:    "inactive_subscription",
			Message: "subscription does not permit syncing",
		}
	case errors.Is(err, syncrun.ErrSyncInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "sync_in_progress",
			Message: "a sync is already running for this tenant",
		}
	case errors.Is(err, catalogdomain.ErrFetchTransport):
		return http.StatusBadGateway, errorPayload{
			Type:    "source_unavailable",
			Message: "catalog source is unreachable",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}
