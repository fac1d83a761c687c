package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for each error type
type ErrorCode string

const (
	// General errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	ErrCodeConflict   ErrorCode = "CONFLICT"

	// Inventory errors
	ErrCodeInvalidBatch      ErrorCode = "INVALID_BATCH"
	ErrCodeInvalidStatus     ErrorCode = "INVALID_STATUS"
	ErrCodeBatchNotFound     ErrorCode = "BATCH_NOT_FOUND"
	ErrCodeWarehouseRequired ErrorCode = "WAREHOUSE_REQUIRED"

	// Synchronization errors
	ErrCodeTransientFetch     ErrorCode = "TRANSIENT_FETCH"
	ErrCodeSubscriptionFailed ErrorCode = "SUBSCRIPTION_FAILED"
	ErrCodePartialAggregation ErrorCode = "PARTIAL_AGGREGATION"

	// Database errors
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeRecordNotFound  ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeDuplicateRecord ErrorCode = "DUPLICATE_RECORD"

	// Queue errors
	ErrCodeQueueError ErrorCode = "QUEUE_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternal, message)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message)
}

func InvalidBatch(message string) *AppError {
	return New(ErrCodeInvalidBatch, message)
}

func InvalidStatus(status string) *AppError {
	return New(ErrCodeInvalidStatus,
		fmt.Sprintf("invalid batch status: %s", status))
}

// Synchronization errors

// TransientFetch marks a bulk read failure that the caller may retry explicitly.
func TransientFetch(err error) *AppError {
	return Wrap(err, ErrCodeTransientFetch, "bulk read against source of truth failed")
}

// SubscriptionFailed marks a change feed that could not be established.
func SubscriptionFailed(err error) *AppError {
	return Wrap(err, ErrCodeSubscriptionFailed, "change feed subscription failed")
}

// PartialAggregation marks an alert source failure tolerated during aggregation.
func PartialAggregation(source string, err error) *AppError {
	return Wrap(err, ErrCodePartialAggregation,
		fmt.Sprintf("alert source %s failed, count omitted", source))
}

// Database errors

func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, "database operation failed")
}

func RecordNotFound(resource string) *AppError {
	return New(ErrCodeRecordNotFound,
		fmt.Sprintf("%s not found", resource))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether err carries the given error code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}
