package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced by the engine's public operations. Sources wrap
// them with fmt.Errorf("...: %w", err); callers test with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrProductNotFound     = fmt.Errorf("product %w", ErrNotFound)
	ErrUnauthenticated     = errors.New("caller is not authenticated")
	ErrInternalComputation = errors.New("internal computation failure")
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeProductNotFound = "PRODUCT_NOT_FOUND"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	CodeTimeout         = "REQUEST_TIMEOUT"
	CodeInternalServer  = "INTERNAL_SERVER_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
