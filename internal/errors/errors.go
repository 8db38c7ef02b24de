package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeConfiguration     ErrorType = "configuration"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeEncoding          ErrorType = "encoding"
	ErrorTypeSizeExceeded      ErrorType = "size_exceeded"
	ErrorTypeTransport         ErrorType = "transport"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeAPI               ErrorType = "api"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeInternal          ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type           ErrorType `json:"type"`
	Message        string    `json:"message"`
	Details        string    `json:"details,omitempty"`
	StatusCode     int       `json:"status_code"`
	UpstreamStatus int       `json:"upstream_status,omitempty"` // set for api errors
	Cause          error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns the error with details attached.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewConfigurationError creates an error for missing or invalid startup configuration
func NewConfigurationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewEncodingError creates an error for images that cannot be decoded or serialized
func NewEncodingError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeEncoding,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewSizeExceededError creates an error for payloads above the transport ceiling
func NewSizeExceededError(size, limit int) *AppError {
	return &AppError{
		Type:       ErrorTypeSizeExceeded,
		Message:    fmt.Sprintf("encoded image is %d bytes, limit is %d bytes", size, limit),
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}

// NewImageTooLargeError reports a fetched photo larger than the download cap
func NewImageTooLargeError(limit int64) *AppError {
	return &AppError{
		Type:       ErrorTypeSizeExceeded,
		Message:    fmt.Sprintf("image exceeds the %d byte download limit", limit),
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}

// NewTransportError creates a new network error
func NewTransportError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransport,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewAPIError creates an error for a non-success response from the inference endpoint
func NewAPIError(upstreamStatus int, message string) *AppError {
	return &AppError{
		Type:           ErrorTypeAPI,
		Message:        message,
		StatusCode:     http.StatusBadGateway,
		UpstreamStatus: upstreamStatus,
	}
}

// NewMalformedResponseError creates an error for a success response with an unexpected shape
func NewMalformedResponseError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeMalformedResponse,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// As extracts an *AppError from the chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// IsTransport reports whether the error is a network failure, timeouts included
func IsTransport(err error) bool {
	return IsType(err, ErrorTypeTransport) || IsType(err, ErrorTypeTimeout)
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
