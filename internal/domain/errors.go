package domain

import (
	"errors"
	"fmt"
)

// Common domain errors surfaced by the swarm core.
var (
	// ErrInvalidRequest indicates an analysis request missing required
	// fields.
	ErrInvalidRequest = errors.New("invalid analysis request")

	// ErrUnknownAgent indicates a requested agent id is not in the
	// registry.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrNoAgentsSelected indicates an analysis was requested with an
	// empty agent selection.
	ErrNoAgentsSelected = errors.New("no agents selected")

	// ErrPredictionNotFound indicates a settlement referenced a
	// prediction record that does not exist.
	ErrPredictionNotFound = errors.New("prediction record not found")

	// ErrAlreadySettled indicates a settlement was attempted against a
	// record that already left pending. Surfaced explicitly so
	// double-settlement bugs in the surrounding ledger are not masked.
	ErrAlreadySettled = errors.New("prediction already settled")

	// ErrInvalidOutcome indicates a settlement outcome outside
	// won/lost/push.
	ErrInvalidOutcome = errors.New("invalid settlement outcome")
)

// InvalidRequestError wraps ErrInvalidRequest with the specific field
// problem so callers can report it.
type InvalidRequestError struct {
	Reason string
}

// NewInvalidRequestError builds an InvalidRequestError for the given reason.
func NewInvalidRequestError(reason string) *InvalidRequestError {
	return &InvalidRequestError{Reason: reason}
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid analysis request: %s", e.Reason)
}

// Unwrap makes the error match ErrInvalidRequest under errors.Is.
func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }
