// Package domain contains the core business entities for Digital Galaxy.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Error Kinds
	// ===========================================

	// ErrNotAuthenticated indicates the request carried no valid credential.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden indicates the principal is authenticated but lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrBlocked indicates the principal has been blocked by an administrator.
	ErrBlocked = errors.New("user is blocked")

	// ErrValidationFailed indicates malformed input.
	ErrValidationFailed = errors.New("validation failed")

	// ErrConflict indicates a state-machine precondition was violated.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates an unknown id.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates a transient store or network failure that outlived its retries.
	ErrUnavailable = errors.New("service unavailable")

	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrUserAlreadyExists indicates a user with the same email exists.
	ErrUserAlreadyExists = fmt.Errorf("user already exists: %w", ErrConflict)

	// ErrInvalidCredentials indicates login failed.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrNotAuthenticated)

	// ===========================================
	// Product Errors
	// ===========================================

	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)

	// ===========================================
	// Payment Request Errors
	// ===========================================

	// ErrTicketNotFound indicates the requested payment request does not exist.
	ErrTicketNotFound = fmt.Errorf("payment request %w", ErrNotFound)
)

// ValidationError reports which input field was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidationFailed.Error(), e.Field, e.Reason)
}

// Unwrap returns ErrValidationFailed so errors.Is matches the kind.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ConflictError reports the state that was expected and the state actually found.
type ConflictError struct {
	Expected string
	Actual   string
}

// NewConflictError creates a ConflictError.
func NewConflictError(expected, actual string) *ConflictError {
	return &ConflictError{Expected: expected, Actual: actual}
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrConflict.Error(), e.Expected, e.Actual)
}

// Unwrap returns ErrConflict so errors.Is matches the kind.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., product id, ticket id).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// Kind returns the generic error kind an error belongs to, or nil when the
// error is not a domain error.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotAuthenticated,
		ErrForbidden,
		ErrBlocked,
		ErrValidationFailed,
		ErrConflict,
		ErrNotFound,
		ErrUnavailable,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
