package workouts

import (
	"errors"
	"fmt"
)

var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrNoWorkouts      = errors.New("no workouts")
)

// ValidationError is an out-of-bound or wrong-enum input,
// rejected before any computation or storage mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DomainError is a physiologically invalid input combination,
// e.g. age >= 220, a non-positive heart rate, or an unsupported modality.
type DomainError struct {
	Reason string
}

func (e *DomainError) Error() string {
	return e.Reason
}
