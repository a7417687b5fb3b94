package request

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no request exists for the given id
	ErrNotFound = errors.New("request not found")

	// ErrInvalidState is returned when an action is attempted on a terminal
	// request or on a chain step that has already been consumed
	ErrInvalidState = errors.New("invalid request state")

	// ErrUnauthorized is returned when the acting identity lacks the role
	// or ownership required for the attempted action
	ErrUnauthorized = errors.New("actor not authorized")
)

// ValidationError describes a payload field that failed a catalog rule.
// No request record is created when validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
