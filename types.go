package dispatch

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// Namespace constants for common subscription scopes.
const (
	// NamespaceGlobal is the default namespace for subscriptions and dispatches.
	NamespaceGlobal = "global"

	// NamespaceLocal is a conventional namespace for component-internal events.
	NamespaceLocal = "local"
)

// Handler processes a dispatched event.
// The extra args are passed through from the Dispatch call unchanged.
type Handler interface {
	// Name identifies the handler. Notification content is keyed by this name.
	Name() string

	// Handle processes an event and returns a result value.
	Handle(ctx context.Context, evt *Event, args ...any) (any, error)
}

// HandlerFunc is a function adapter for Handler.
// Its name is derived from the function's declared name via the runtime,
// with the package path stripped.
type HandlerFunc func(ctx context.Context, evt *Event, args ...any) (any, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, evt *Event, args ...any) (any, error) {
	return f(ctx, evt, args...)
}

// Name returns the declared name of the underlying function.
// Anonymous functions report their compiler-assigned name (e.g. "Test.func1").
func (f HandlerFunc) Name() string {
	return funcName(reflect.ValueOf(f).Pointer())
}

// namedHandler wraps a function with an explicit name.
type namedHandler struct {
	name string
	fn   HandlerFunc
}

// Func creates a Handler with an explicit name.
// Use this instead of a bare HandlerFunc when the notification content key
// must be stable (e.g. closures, which otherwise report generated names).
func Func(name string, fn HandlerFunc) Handler {
	return &namedHandler{name: name, fn: fn}
}

func (h *namedHandler) Name() string { return h.name }

func (h *namedHandler) Handle(ctx context.Context, evt *Event, args ...any) (any, error) {
	return h.fn(ctx, evt, args...)
}

// funcName resolves a function pointer to its short declared name.
func funcName(pc uintptr) string {
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "anonymous"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if name == "" {
		return "anonymous"
	}
	return name
}

// isNilHandler reports whether h carries no callable: a nil interface, a
// typed-nil function adapter, or a nil pointer implementation. All of them
// would panic on invocation and are rejected up front.
func isNilHandler(h Handler) bool {
	if h == nil {
		return true
	}
	switch v := h.(type) {
	case HandlerFunc:
		return v == nil
	case *namedHandler:
		return v == nil || v.fn == nil
	}
	rv := reflect.ValueOf(h)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// handlersEqual reports whether two handlers are the same callable.
// Function-backed handlers compare by code pointer, everything else by
// interface equality. Used by the handler-scoped removal and query paths;
// subscription identity itself is always the code, never the handler.
func handlersEqual(a, b Handler) bool {
	if a == nil || b == nil {
		return a == b
	}

	pa, aok := handlerPointer(a)
	pb, bok := handlerPointer(b)
	if aok && bok {
		return pa == pb
	}
	if aok != bok {
		return false
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Type().Comparable() {
		return false
	}
	return a == b
}

// handlerPointer extracts the code pointer behind function-backed handlers.
func handlerPointer(h Handler) (uintptr, bool) {
	switch v := h.(type) {
	case HandlerFunc:
		return reflect.ValueOf(v).Pointer(), true
	case *namedHandler:
		return reflect.ValueOf(v.fn).Pointer(), true
	default:
		return 0, false
	}
}

// Status is the aggregate outcome of a single dispatch.
type Status int

const (
	// StatusSuccess means every invoked handler completed without error.
	StatusSuccess Status = iota

	// StatusFailure means at least one handler returned an error or panicked.
	StatusFailure
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// FilterFunc is a predicate for filtering events at delivery time.
// Return true to deliver the event to the subscription's handler.
type FilterFunc func(evt *Event) bool

// Stats contains dispatcher counters.
type Stats struct {
	// Dispatches is the total number of Dispatch calls.
	Dispatches uint64

	// HandlersExecuted is the total number of handler invocations.
	HandlersExecuted uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// AvgHandlerTimeNs is the average handler execution time in nanoseconds.
	AvgHandlerTimeNs int64

	// ActiveSubscriptions is the current number of registered subscriptions.
	ActiveSubscriptions int
}

// PanicHandler is called when a handler panics during dispatch.
// The panic is already captured into the notification; this hook exists for
// logging and crash reporting.
type PanicHandler func(evt *Event, sub *Subscription, recovered any, stack []byte)
