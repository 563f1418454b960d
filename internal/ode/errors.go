package ode

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrNotInitialized indicates use of an engine or model before INIT.
	ErrNotInitialized = errors.New("ode: not initialized")

	// ErrUnknownVariable indicates a name not declared in the model schema.
	ErrUnknownVariable = errors.New("ode: unknown differential variable")

	// ErrUnknownAttr indicates a derived attribute the model does not expose.
	ErrUnknownAttr = errors.New("ode: unknown model attribute")

	// ErrUnknownConstant indicates a constant the model does not declare.
	ErrUnknownConstant = errors.New("ode: unknown model constant")

	// ErrUnknownModel indicates a model identifier absent from the registry.
	ErrUnknownModel = errors.New("ode: unknown model")

	// ErrUnknownMethod indicates a method the model does not register.
	ErrUnknownMethod = errors.New("ode: unknown model method")

	// ErrBackwardTime indicates an advance target before the current time.
	ErrBackwardTime = errors.New("ode: target time precedes current time")

	// ErrOutOfRange indicates an interpolant query outside its valid range.
	ErrOutOfRange = errors.New("ode: time outside interpolant range")

	// ErrShapeMismatch indicates mismatched vector dimensions.
	ErrShapeMismatch = errors.New("ode: dimension mismatch")

	// ErrStepTooSmall indicates the adaptive step fell below the minimum.
	ErrStepTooSmall = errors.New("ode: adaptive step below minimum")
)

// ModelError wraps a failure inside a model's derivative or method code.
type ModelError struct {
	Model   string
	Op      string
	Wrapped error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %s: %v", e.Model, e.Op, e.Wrapped)
}

func (e *ModelError) Unwrap() error {
	return e.Wrapped
}

// IntegrationError reports a stepper failure. The engine's committed time
// and state remain at the last successfully completed step boundary.
type IntegrationError struct {
	T       float64
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failed at t=%g: %v", e.T, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
