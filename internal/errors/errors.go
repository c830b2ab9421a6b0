package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidDataset     = "INVALID_DATASET"
	CodeNotFound           = "NOT_FOUND"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInternalServer     = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodePopulationUnloaded = "POPULATION_UNAVAILABLE"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
)

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")

	// 404 Not Found
	ErrNotFound = New(http.StatusNotFound, CodeNotFound, "Resource not found")

	// 413 Payload Too Large
	ErrPayloadTooLarge = New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body exceeds the maximum allowed size")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalServer = New(http.StatusInternalServerError, CodeInternalServer, "Internal server error")

	// 503 Service Unavailable
	ErrPopulationUnavailable = New(http.StatusServiceUnavailable, CodePopulationUnloaded, "Population data is not loaded")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// InvalidDataset creates the error returned when a dataset cannot be exported.
// details carries the per-column problems.
func InvalidDataset(details interface{}) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeInvalidDataset, "Dataset cannot be exported", details)
}

// NotFoundError creates a not found error with details
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), resource)
}

// UnsupportedFormat creates the error for an unknown export format.
func UnsupportedFormat(format string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeUnsupportedFormat, fmt.Sprintf("Unsupported export format: %s", format), format)
}
