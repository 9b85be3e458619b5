package dispatch

import (
	"fmt"
	"time"
)

// Notification is the immutable record of one dispatch's outcome.
type Notification struct {
	id        int64
	event     *Event
	namespace string
	start     time.Time
	end       time.Time
	status    Status
	content   map[string]any
	order     []string
	errs      []HandlerError
}

// notificationBuilder accumulates dispatch results. Internal: notifications
// are only ever constructed by Dispatch.
type notificationBuilder struct {
	id        int64
	event     *Event
	namespace string
	start     time.Time
	content   map[string]any
	order     []string
	errs      []HandlerError
}

func newNotificationBuilder(id int64, evt *Event, namespace string, start time.Time) *notificationBuilder {
	return &notificationBuilder{
		id:        id,
		event:     evt,
		namespace: namespace,
		start:     start,
		content:   make(map[string]any),
	}
}

// addResult records a handler's return value under its declared name.
// A later handler sharing a name overwrites the earlier result but keeps its
// original position, matching map-update semantics.
func (b *notificationBuilder) addResult(name string, value any) {
	if _, exists := b.content[name]; !exists {
		b.order = append(b.order, name)
	}
	b.content[name] = value
}

func (b *notificationBuilder) addError(e HandlerError) {
	b.errs = append(b.errs, e)
}

// build finalizes the notification. Status is derived: failure iff any
// error was recorded.
func (b *notificationBuilder) build(end time.Time) *Notification {
	status := StatusSuccess
	if len(b.errs) > 0 {
		status = StatusFailure
	}
	return &Notification{
		id:        b.id,
		event:     b.event,
		namespace: b.namespace,
		start:     b.start,
		end:       end,
		status:    status,
		content:   b.content,
		order:     b.order,
		errs:      b.errs,
	}
}

// ID returns the notification's unique identifier.
func (n *Notification) ID() int64 { return n.id }

// Event returns the dispatched event.
func (n *Notification) Event() *Event { return n.event }

// Namespace returns the dispatch target namespace.
func (n *Notification) Namespace() string { return n.namespace }

// Start returns the dispatch start timestamp.
func (n *Notification) Start() time.Time { return n.start }

// End returns the dispatch end timestamp.
func (n *Notification) End() time.Time { return n.end }

// Duration returns end minus start.
func (n *Notification) Duration() time.Duration { return n.end.Sub(n.start) }

// Status returns the aggregate outcome.
func (n *Notification) Status() Status { return n.status }

// HasErrors reports whether any handler failed.
func (n *Notification) HasErrors() bool { return len(n.errs) > 0 }

// Errors returns the handler failures in invocation order.
func (n *Notification) Errors() []HandlerError {
	out := make([]HandlerError, len(n.errs))
	copy(out, n.errs)
	return out
}

// Contains reports whether a handler with the given name recorded a result.
func (n *Notification) Contains(name string) bool {
	_, ok := n.content[name]
	return ok
}

// Result returns the value recorded under a handler name.
func (n *Notification) Result(name string) (any, bool) {
	v, ok := n.content[name]
	return v, ok
}

// HandlerNames returns the content keys in insertion order.
func (n *Notification) HandlerNames() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// HandlerResults returns the content values in insertion order.
func (n *Notification) HandlerResults() []any {
	out := make([]any, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.content[name])
	}
	return out
}

// OneAndOnlyResult returns the sole recorded result. Fails with
// ErrAmbiguousResult when the content holds zero or more than one entry.
// Intended for callers dispatching into single-handler namespaces.
func (n *Notification) OneAndOnlyResult() (any, error) {
	if len(n.order) != 1 {
		return nil, fmt.Errorf("%w: have %d", ErrAmbiguousResult, len(n.order))
	}
	return n.content[n.order[0]], nil
}

// Handle returns an error carrying the first handler failure when the
// notification represents a failed dispatch, nil otherwise.
func (n *Notification) Handle() error {
	if !n.HasErrors() {
		return nil
	}
	first := n.errs[0]
	return fmt.Errorf("dispatch of %q to %q failed with %d error(s): %w",
		n.event.Name(), n.namespace, len(n.errs), &first)
}

// String returns a debug representation.
func (n *Notification) String() string {
	return fmt.Sprintf("Notification(id=%d event=%q namespace=%q status=%s results=%d errors=%d)",
		n.id, n.event.Name(), n.namespace, n.status, len(n.order), len(n.errs))
}
