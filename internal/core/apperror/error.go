// Package apperror provides the structured error type returned by the data access layer.
// Callers branch on Code; storage-specific errors never cross the service boundary unwrapped.
package apperror

import (
	"errors"
	"fmt"
)

// Error codes
const (
	// Lookup matched nothing under the active visibility path.
	CodeNotFound = "NOT_FOUND"

	// A required reference does not resolve to an existing parent row.
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"

	// A delete/restore could not complete; nothing from the call was committed.
	CodeOperationFailed = "OPERATION_FAILED"

	CodeValidation = "VALIDATION_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// AppError is the standard error type of the module.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (entity, id, field, ...)
	Details map[string]any `json:"details,omitempty"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewNotFound creates a not found error.
// A soft-deleted record read through the default path produces exactly the
// same error as a record that never existed.
func NewNotFound(entity string, id any) *AppError {
	details := map[string]any{"entity": entity}
	if id != nil {
		details["id"] = id
	}
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: details,
	}
}

// NewConstraintViolation creates a referential integrity error.
func NewConstraintViolation(entity, message string) *AppError {
	return &AppError{
		Code:    CodeConstraintViolation,
		Message: message,
		Details: map[string]any{"entity": entity},
	}
}

// NewOperationFailed creates an error for a delete/restore that was rolled back.
func NewOperationFailed(operation, entity string, id any) *AppError {
	return &AppError{
		Code:    CodeOperationFailed,
		Message: fmt.Sprintf("%s %s failed", operation, entity),
		Details: map[string]any{"operation": operation, "entity": entity, "id": id},
	}
}

// NewValidation creates a validation error
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether the first AppError in the chain carries code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConstraintViolation checks if error is CodeConstraintViolation
func IsConstraintViolation(err error) bool {
	return HasCode(err, CodeConstraintViolation)
}

// IsOperationFailed checks if error is CodeOperationFailed
func IsOperationFailed(err error) bool {
	return HasCode(err, CodeOperationFailed)
}

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}
