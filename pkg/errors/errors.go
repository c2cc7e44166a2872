package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an error for callers and for transport mapping
type ErrorType string

const (
	// Core errors
	ErrorTypeIntegrity      ErrorType = "INTEGRITY"
	ErrorTypeMalformedRule  ErrorType = "MALFORMED_RULE"
	ErrorTypeNoMatch        ErrorType = "NO_MATCH"
	ErrorTypeMatchTimeout   ErrorType = "MATCH_TIMEOUT"
	ErrorTypeUnresolvedRule ErrorType = "UNRESOLVED_RULE"
	ErrorTypeConflictRetry  ErrorType = "CONFLICT_RETRY"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND"

	// Application errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// AppError is the error value returned by every core operation
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
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

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// Constructor functions for the error taxonomy

// NewIntegrityError signals a Structure that would violate identifier or
// referential invariants. Never repaired silently.
func NewIntegrityError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeIntegrity,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewMalformedRuleError signals an edit script referencing identifiers absent
// from the rule's own pattern. Rejected before the layer enters a stack.
func NewMalformedRuleError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeMalformedRule,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNoMatchError signals that no complete correspondence mapping exists.
func NewNoMatchError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNoMatch,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewMatchTimeoutError signals that the correspondence search exhausted its
// node-expansion budget.
func NewMatchTimeoutError(budget int) *AppError {
	return &AppError{
		Type:       ErrorTypeMatchTimeout,
		Message:    fmt.Sprintf("correspondence search exceeded expansion budget of %d", budget),
		Details:    map[string]interface{}{"budget": budget},
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewUnresolvedRuleError signals that the rule layer at the given depth could
// not be anchored; depths at and above it stay unresolved.
func NewUnresolvedRuleError(depth int, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeUnresolvedRule,
		Message:    fmt.Sprintf("rule layer at depth %d could not be resolved", depth),
		Details:    map[string]interface{}{"depth": depth},
		Cause:      cause,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewConflictRetryError signals that a resolution observed a concurrent
// mutation mid-flight and its result was discarded.
func NewConflictRetryError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflictRetry,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Helper functions

// GetAppError extracts an AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsIntegrity checks if an error is an integrity error
func IsIntegrity(err error) bool {
	return IsType(err, ErrorTypeIntegrity)
}

// IsMalformedRule checks if an error is a malformed rule error
func IsMalformedRule(err error) bool {
	return IsType(err, ErrorTypeMalformedRule)
}

// IsNoMatch checks if an error is a no-match error
func IsNoMatch(err error) bool {
	return IsType(err, ErrorTypeNoMatch)
}

// IsMatchTimeout checks if an error is a match timeout error
func IsMatchTimeout(err error) bool {
	return IsType(err, ErrorTypeMatchTimeout)
}

// IsUnresolvedRule checks if an error is an unresolved rule error
func IsUnresolvedRule(err error) bool {
	return IsType(err, ErrorTypeUnresolvedRule)
}

// UnresolvedDepth returns the failing depth carried by an unresolved rule
// error, or -1 when the error is of another kind.
func UnresolvedDepth(err error) int {
	appErr := GetAppError(err)
	if appErr == nil || appErr.Type != ErrorTypeUnresolvedRule {
		return -1
	}
	if depth, ok := appErr.Details["depth"].(int); ok {
		return depth
	}
	return -1
}

// IsConflictRetry checks if an error is a concurrent modification retry signal
func IsConflictRetry(err error) bool {
	return IsType(err, ErrorTypeConflictRetry)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to the message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
