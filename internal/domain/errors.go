// Package domain holds the quote entity and the errors quote operations fail
// with. Errors describe what went wrong with the Quotes Service exchange, not
// how a UI shows it; adapters map them to HTTP statuses or terminal text.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound means the Quotes Service has no such route or resource.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input or the request was rejected as invalid.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden means the credential was missing or rejected.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable means the Quotes Service could not serve the call right now.
	ErrUnavailable = errors.New("unavailable")

	// ErrClosed means the view was torn down before the operation finished.
	ErrClosed = errors.New("view closed")
)

// categoryError is a failure in one of the sentinel categories. The message
// is fixed at construction.
type categoryError struct {
	category error
	msg      string
}

func (e *categoryError) Error() string { return e.msg }

func (e *categoryError) Unwrap() error { return e.category }

func withReason(msg, reason string) string {
	if reason == "" {
		return msg
	}

	return msg + ": " + reason
}

// NewNotFoundError reports that what does not exist on the Quotes Service.
func NewNotFoundError(what string) error {
	return &categoryError{category: ErrNotFound, msg: what + " not found"}
}

// NewForbiddenError reports that the credential was refused for op.
func NewForbiddenError(op, reason string) error {
	return &categoryError{
		category: ErrForbidden,
		msg:      withReason(fmt.Sprintf("%s: credential refused", op), reason),
	}
}

// NewUnavailableError reports that service could not serve the call.
func NewUnavailableError(service, reason string) error {
	return &categoryError{
		category: ErrUnavailable,
		msg:      withReason(service+" unavailable", reason),
	}
}

// ValidationError is an input or request rejected as invalid. Field names
// the offending input when there is one.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}

	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsForbidden checks if an error is a forbidden error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
