package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a value object or entity fails validation.
	// Every *ValidationError unwraps to it.
	ErrValidation = errors.New("validation failed")

	// ErrDailyCapExceeded is returned when adding steps to a daily aggregate
	// would push its total above DailyStepCap.
	ErrDailyCapExceeded = errors.New("daily step cap exceeded")

	// ErrInvalidLevel is returned when a level name is not part of the level table.
	ErrInvalidLevel = errors.New("invalid guardian level")
)

// ValidationError reports which constraint a value violated.
type ValidationError struct {
	Field  string // The field or value object being constructed (e.g., "step_count")
	Value  any    // The rejected value
	Reason string // Human-readable constraint description
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// Unwrap allows errors.Is(err, ErrValidation) for every validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field string, value any, reason string) *ValidationError {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}
