package engine

import (
	"errors"
	"fmt"

	"github.com/kafaat/sahool-intel/pkg/breaker"
)

// ErrorClass classifies an engine failure for logging and health reporting.
type ErrorClass string

const (
	// ErrorClassTimeout indicates the engine lost the timeout race.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCircuitOpen indicates the circuit breaker rejected the
	// call without invoking the engine.
	ErrorClassCircuitOpen ErrorClass = "circuit_open"

	// ErrorClassTransient indicates a temporary engine failure.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent indicates a non-recoverable failure such as
	// invalid input.
	ErrorClassPermanent ErrorClass = "permanent"
)

// Error is a classified engine failure with context.
type Error struct {
	// Class is the failure classification.
	Class ErrorClass `json:"class"`

	// Engine is the engine kind that failed, if known.
	Engine Kind `json:"engine,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Engine != "" {
		return fmt.Sprintf("[%s] engine %s: %s", e.Class, e.Engine, e.message())
	}
	return fmt.Sprintf("[%s] %s", e.Class, e.message())
}

func (e *Error) message() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransientError creates a transient engine error.
func NewTransientError(message string, err error) *Error {
	return &Error{Class: ErrorClassTransient, Message: message, Err: err}
}

// NewPermanentError creates a permanent engine error.
func NewPermanentError(message string, err error) *Error {
	return &Error{Class: ErrorClassPermanent, Message: message, Err: err}
}

// WithEngine attaches the failing engine kind to the error.
func (e *Error) WithEngine(kind Kind) *Error {
	e.Engine = kind
	return e
}

// Classify wraps an arbitrary failure from the fan-out into a classified
// engine error. Breaker rejections and timeouts get their own classes so
// health reports can distinguish fast-fails from slow engines.
func Classify(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		if classified.Engine == "" {
			classified.Engine = kind
		}
		return classified
	}

	switch {
	case errors.Is(err, breaker.ErrOpen):
		return &Error{Class: ErrorClassCircuitOpen, Engine: kind, Message: "call rejected", Err: err}
	case errors.Is(err, breaker.ErrTimeout):
		return &Error{Class: ErrorClassTimeout, Engine: kind, Message: "call timed out", Err: err}
	default:
		return &Error{Class: ErrorClassTransient, Engine: kind, Message: "call failed", Err: err}
	}
}

// IsCircuitOpen reports whether the error is a breaker rejection.
func IsCircuitOpen(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassCircuitOpen
	}
	return errors.Is(err, breaker.ErrOpen)
}

// IsTimeout reports whether the error is a lost timeout race.
func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassTimeout
	}
	return errors.Is(err, breaker.ErrTimeout)
}
