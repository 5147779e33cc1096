// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/financeai/backend/internal/analysis"
	"github.com/financeai/backend/internal/jobs"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewUnsupportedMediaTypeError creates a 415 error for non-PDF uploads
func NewUnsupportedMediaTypeError(message string) *APIError {
	return &APIError{
		Status:  http.StatusUnsupportedMediaType,
		Code:    "UNSUPPORTED_MEDIA_TYPE",
		Message: message,
	}
}

// NewQueryInFlightError creates a 409 error for a busy query slot
func NewQueryInFlightError() *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "QUERY_IN_FLIGHT",
		Message: "a query is already being answered",
	}
}

// NewReportInFlightError creates a 409 error for a busy report slot
func NewReportInFlightError() *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "REPORT_IN_FLIGHT",
		Message: "a report is already being generated",
	}
}

// NewUnsupportedStateError creates a 409 error for operations the current
// state cannot serve
func NewUnsupportedStateError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "UNSUPPORTED_STATE",
		Message: message,
	}
}

// NewUpstreamError creates a 502 error for analysis service failures
func NewUpstreamError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadGateway,
		Code:    "UPSTREAM_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// mapDomainError translates well-known sentinel errors into APIErrors.
// Unknown errors come back unchanged for the handler to wrap itself.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, jobs.ErrUnsupportedMediaType):
		return NewUnsupportedMediaTypeError(err.Error())
	case errors.Is(err, jobs.ErrQueryInFlight):
		return NewQueryInFlightError()
	case errors.Is(err, jobs.ErrReportInFlight):
		return NewReportInFlightError()
	case errors.Is(err, jobs.ErrUnsupportedState):
		return NewUnsupportedStateError(err.Error())
	case errors.Is(err, jobs.ErrJobNotFound):
		return NewNotFoundError("job", "")
	case errors.Is(err, analysis.ErrNoDocumentsYet):
		return NewUnsupportedStateError(err.Error())
	case errors.Is(err, analysis.ErrCompanyNotFound):
		return NewNotFoundError("company", "")
	}
	return err
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := mapDomainError(err).(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
			Details: err.Error(),
		}
	}

	if !c.Response().Committed {
		c.JSON(apiErr.Status, apiErr)
	}
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
