package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrValidation indicates malformed setup input (vectors, enum values,
	// controllable body count).
	ErrValidation = errors.New("dynamo: validation failed")

	// ErrDegenerate indicates a zero-distance normalization between two
	// coincident bodies.
	ErrDegenerate = errors.New("dynamo: arithmetic degeneracy (coincident bodies)")

	// ErrUnknownSession indicates a request for a session with no live engine.
	ErrUnknownSession = errors.New("dynamo: unknown session")

	// ErrNoControllable indicates a control event for a session without a
	// controllable body.
	ErrNoControllable = errors.New("dynamo: no controllable body")

	// ErrInvalidDirection indicates a control direction outside up/down/left/right.
	ErrInvalidDirection = errors.New("dynamo: invalid direction")
)

// ValidationError describes a single rejected setup field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid is shorthand for building a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
