// Package exec runs individual handler invocations with panic recovery,
// timing, and optional timeouts. It is the isolation boundary that keeps one
// misbehaving handler from unwinding a whole dispatch.
package exec

import (
	"context"
	"runtime/debug"
	"time"
)

// Invoker is a single prepared handler invocation.
type Invoker func(ctx context.Context) (any, error)

// Result captures the outcome of one invocation.
type Result struct {
	// Value is the handler's return value on success.
	Value any

	// Err is the handler's returned error, or the context error when the
	// invocation was skipped.
	Err error

	// Panicked reports that the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic().
	PanicValue any

	// Stack is the stack trace captured at panic recovery.
	Stack []byte

	// Skipped reports that the handler never ran (context already done).
	Skipped bool

	// Duration is the wall time spent in the handler.
	Duration time.Duration
}

// OK reports whether the invocation ran and completed without error.
func (r Result) OK() bool {
	return !r.Skipped && !r.Panicked && r.Err == nil
}

// PanicHandler is called with the recovered value and stack when an
// invocation panics.
type PanicHandler func(recovered any, stack []byte)

// Executor runs invocations. The zero value is usable.
type Executor struct {
	panicHandler PanicHandler
}

// Option configures an Executor.
type Option func(*Executor)

// WithPanicHandler sets a hook called on every recovered panic.
func WithPanicHandler(h PanicHandler) Option {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// New creates an executor with the given options.
func New(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one invocation, recovering panics and recording timing.
// If the context is already done the invocation is skipped.
func (e *Executor) Execute(ctx context.Context, fn Invoker) (result Result) {
	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err(), Skipped: true}
	default:
	}

	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			result.Value = nil
			result.Err = nil
			result.Panicked = true
			result.PanicValue = r
			result.Stack = debug.Stack()

			if e.panicHandler != nil {
				// The hook must not take the process down either.
				func() {
					defer func() { _ = recover() }()
					e.panicHandler(r, result.Stack)
				}()
			}
		}
	}()

	value, err := fn(ctx)
	result.Value = value
	result.Err = err
	return result
}

// ExecuteWithTimeout runs one invocation under a deadline. The handler must
// respect context cancellation for the timeout to take effect; the executor
// never abandons a running goroutine.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, fn Invoker, timeout time.Duration) Result {
	if timeout <= 0 {
		return e.Execute(ctx, fn)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.Execute(ctx, fn)
}
