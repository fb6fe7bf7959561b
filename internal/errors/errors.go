package errors

import "fmt"

// Error codes
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeStorage        = "STORAGE_ERROR"
	ErrCodeNetwork        = "NETWORK_ERROR"
	ErrCodeServerRejected = "SERVER_REJECTED"
	ErrCodeEmptyQueue     = "EMPTY_QUEUE"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "INVALID_INPUT")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the operation that produced err may succeed on a
// later attempt. Only network-class failures qualify; validation rejections
// from the server are permanent.
func Retryable(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeNetwork
	}
	return false
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewInvalidInputError creates a new INVALID_INPUT error
func NewInvalidInputError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
		Status:  400,
	}
}

// NewStorageError wraps a durable-store failure
func NewStorageError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeStorage,
		Message: "storage operation failed",
		Status:  500,
		Err:     err,
	}
}

// NewNetworkError wraps a retryable transport failure (timeouts included)
func NewNetworkError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeNetwork,
		Message: "network request failed",
		Status:  502,
		Err:     err,
	}
}

// NewServerRejectedError creates a permanent, non-retryable rejection from the
// remote API (4xx validation class)
func NewServerRejectedError(status int, code string, message string) *AppError {
	return &AppError{
		Code:    ErrCodeServerRejected,
		Message: fmt.Sprintf("server rejected request: %s: %s", code, message),
		Status:  status,
	}
}

// NewEmptyQueueError signals that there is nothing to study right now
func NewEmptyQueueError() *AppError {
	return &AppError{
		Code:    ErrCodeEmptyQueue,
		Message: "no cards available for study",
		Status:  409,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}
