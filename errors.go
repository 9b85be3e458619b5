package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatcher.
var (
	// ErrNilHandler is returned when a nil handler is supplied to Subscribe.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidEvent is returned when a dispatched value is not a well-formed
	// event (missing code or name) or an unsupported event key type is given.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrDuplicateCode is returned when the code generator produced a
	// subscription code that is already registered. With a correct generator
	// this is unreachable and indicates an internal-consistency failure.
	ErrDuplicateCode = errors.New("duplicate subscription code")

	// ErrSubscriptionNotFound is returned when a removal or lookup targets a
	// code, handler, or namespace with no matching subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrConfiguration is returned when bulk-operation input is malformed,
	// e.g. a per-item parameter list whose length does not match the events.
	ErrConfiguration = errors.New("invalid bulk configuration")

	// ErrAmbiguousResult is returned by OneAndOnlyResult when the
	// notification content does not hold exactly one entry.
	ErrAmbiguousResult = errors.New("notification does not have exactly one result")

	// ErrHandlerPanic matches PanicError values via errors.Is.
	ErrHandlerPanic = errors.New("handler panicked")
)

// HandlerError records one handler failure inside a notification.
type HandlerError struct {
	// Code is the subscription code whose handler failed.
	Code string

	// Handler is the declared name of the failing handler.
	Handler string

	// Namespace is the dispatch target namespace.
	Namespace string

	// Err is the underlying error. Panics are wrapped in a PanicError.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %q (subscription %s) in namespace %q: %v",
		e.Handler, e.Code, e.Namespace, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured at recovery time.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
