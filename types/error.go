package types

import "fmt"

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Chat pipeline error codes
const (
	ErrNotFound            ErrorCode = "NOT_FOUND"             // tenant has no knowledge base or no identity
	ErrInvalidTenantData   ErrorCode = "INVALID_TENANT_DATA"   // stored artifacts exist but are malformed
	ErrNoReplicasAvailable ErrorCode = "NO_REPLICAS_AVAILABLE" // gateway hosts zero matching replicas
	ErrUpstreamInference   ErrorCode = "UPSTREAM_INFERENCE"    // completion call failed or timed out
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"       // request validation failure at the API boundary
	ErrInternalError       ErrorCode = "INTERNAL_ERROR"        // defensive catch-all
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Tenant     string    `json:"tenant,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithTenant tags the error with the tenant it occurred for.
func (e *Error) WithTenant(tenant string) *Error {
	e.Tenant = tenant
	return e
}

// GetErrorCode extracts the error code from an error. Unknown error types
// report as ErrInternalError so callers always get a mappable code.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ErrInternalError
}

// AsError returns err as a *Error, wrapping foreign errors as INTERNAL_ERROR.
func AsError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return NewError(ErrInternalError, "internal error").WithCause(err)
}
