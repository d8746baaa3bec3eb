// Package controller holds the HTTP error contract and the response and
// binding helpers shared by handlers.
package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Andi3172/fullstack-tic-project/pkg/auth"
	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/orders"
	"github.com/Andi3172/fullstack-tic-project/pkg/users"
)

// AppError is the single application error contract shared across layers.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MapError maps application errors to HTTP responses. Domain errors are
// translated first; anything unrecognised becomes an opaque 500.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	requestID := logger.RequestIDFromContext(ctx)

	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = fromDomain(err)
	}
	if appErr == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_server_error",
			Message:   "an unexpected error occurred",
			RequestID: requestID,
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = inferStatusFromCode(appErr.Code)
	}
	message := appErr.Message
	if message == "" {
		message = "an unexpected error occurred"
	}

	return status, ErrorResponse{
		Error:     errorCategory(status, appErr.Code),
		Code:      appErr.Code,
		Message:   message,
		RequestID: requestID,
		Details:   appErr.Details,
	}
}

func fromDomain(err error) *AppError {
	var notFound *orders.ProductNotFoundError
	var invalid *orders.ValidationError
	switch {
	case errors.As(err, &notFound):
		return &AppError{
			Code:       "order.product_not_found",
			Message:    notFound.Error(),
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]interface{}{"productId": notFound.ProductID},
			Cause:      err,
		}
	case errors.As(err, &invalid):
		details := map[string]interface{}{}
		if invalid.Field != "" {
			details["field"] = invalid.Field
		}
		return &AppError{Code: "validation.failed", Message: invalid.Error(), HTTPStatus: http.StatusBadRequest, Details: details, Cause: err}
	case errors.Is(err, orders.ErrStatusRequired):
		return &AppError{Code: "validation.status_required", Message: "Status is required", HTTPStatus: http.StatusBadRequest, Cause: err}
	case errors.Is(err, orders.ErrInvalidStatus):
		return &AppError{Code: "validation.invalid_status", Message: "Invalid status", HTTPStatus: http.StatusBadRequest, Cause: err}
	case errors.Is(err, catalog.ErrNotFound):
		return &AppError{Code: "product.not_found", Message: "Product not found", HTTPStatus: http.StatusNotFound, Cause: err}
	case errors.Is(err, orders.ErrOrderNotFound):
		return &AppError{Code: "order.not_found", Message: "Order not found", HTTPStatus: http.StatusNotFound, Cause: err}
	case errors.Is(err, orders.ErrForbidden):
		return &AppError{Code: "auth.forbidden", Message: "Access denied", HTTPStatus: http.StatusForbidden, Cause: err}
	case errors.Is(err, users.ErrInvalidIdentity):
		return &AppError{Code: "validation.invalid_identity", Message: "Invalid user data from token", HTTPStatus: http.StatusBadRequest, Cause: err}
	case errors.Is(err, auth.ErrInvalidToken):
		return &AppError{Code: "auth.unauthorized", Message: "Invalid token", HTTPStatus: http.StatusUnauthorized, Cause: err}
	case errors.Is(err, catalog.ErrStoreUnavailable):
		return &AppError{Code: "store.unavailable", Message: "Server error", HTTPStatus: http.StatusServiceUnavailable, Cause: err}
	}
	return nil
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{Code: "validation.failed", Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: "resource.not_found", Message: message, HTTPStatus: http.StatusNotFound}
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: "auth.unauthorized", Message: message, HTTPStatus: http.StatusUnauthorized}
}

// NewInternalError creates a new internal error with optional cause.
func NewInternalError(message string, cause error) *AppError {
	return &AppError{Code: "internal.error", Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

func errorCategory(status int, code string) string {
	if strings.HasPrefix(strings.ToLower(code), "validation.") {
		return "validation_error"
	}

	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "application_error"
	}
}

func inferStatusFromCode(code string) int {
	lowerCode := strings.ToLower(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(lowerCode, "validation."):
		return http.StatusBadRequest
	case strings.Contains(lowerCode, "unauthorized"):
		return http.StatusUnauthorized
	case strings.Contains(lowerCode, "forbidden"):
		return http.StatusForbidden
	case strings.Contains(lowerCode, "not_found"):
		return http.StatusNotFound
	case strings.Contains(lowerCode, "conflict"):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
