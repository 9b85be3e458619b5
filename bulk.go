package dispatch

import (
	"context"
	"fmt"
)

// bulkConfig holds the broadcastable per-item parameters for BulkSubscribe.
// Each list may be empty (defaults), hold one element (broadcast to every
// entry), or hold exactly one element per event (zipped positionally).
type bulkConfig struct {
	namespaces  []string
	priorities  []int
	persistents []bool
}

// BulkOption configures a BulkSubscribe call.
type BulkOption func(*bulkConfig)

// WithNamespaces sets the namespace per entry, or one namespace for all.
func WithNamespaces(namespaces ...string) BulkOption {
	return func(c *bulkConfig) {
		c.namespaces = namespaces
	}
}

// WithPriorities sets the priority per entry, or one priority for all.
func WithPriorities(priorities ...int) BulkOption {
	return func(c *bulkConfig) {
		c.priorities = priorities
	}
}

// WithPersistents sets the persistence flag per entry, or one flag for all.
func WithPersistents(persistents ...bool) BulkOption {
	return func(c *bulkConfig) {
		c.persistents = persistents
	}
}

// pick resolves the broadcast-or-zip value for entry i.
func pick[T any](values []T, i int, fallback T) T {
	switch len(values) {
	case 0:
		return fallback
	case 1:
		return values[0]
	default:
		return values[i]
	}
}

// checkLen validates one parameter list against the entry count.
func checkLen[T any](name string, values []T, n int) error {
	if len(values) > 1 && len(values) != n {
		return fmt.Errorf("%w: %s has %d values for %d entries",
			ErrConfiguration, name, len(values), n)
	}
	return nil
}

// BulkSubscribe registers one subscription per (event, handler) pair.
// Events and handlers are zipped positionally and must have equal length.
// Optional parameters broadcast a single value or zip per entry; any other
// length fails with ErrConfiguration before anything is registered.
//
// Entry validation failures (e.g. a nil handler) surface with the offending
// index; entries already applied stay registered, and their codes are
// returned alongside the error.
func (d *Dispatcher) BulkSubscribe(events []any, handlers []Handler, opts ...BulkOption) ([]string, error) {
	if len(events) != len(handlers) {
		return nil, fmt.Errorf("%w: %d events for %d handlers",
			ErrConfiguration, len(events), len(handlers))
	}

	cfg := bulkConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := len(events)
	if err := checkLen("namespaces", cfg.namespaces, n); err != nil {
		return nil, err
	}
	if err := checkLen("priorities", cfg.priorities, n); err != nil {
		return nil, err
	}
	if err := checkLen("persistents", cfg.persistents, n); err != nil {
		return nil, err
	}

	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		subOpts := []SubscribeOption{
			WithNamespace(pick(cfg.namespaces, i, NamespaceGlobal)),
			WithPriority(pick(cfg.priorities, i, 0)),
		}
		if pick(cfg.persistents, i, false) {
			subOpts = append(subOpts, WithPersistent())
		}

		code, err := d.Subscribe(events[i], handlers[i], subOpts...)
		if err != nil {
			return codes, fmt.Errorf("entry %d: %w", i, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// BulkDispatch dispatches each event in order to the same namespace,
// collecting one notification per event. A malformed event aborts the loop;
// notifications already produced are returned alongside the error.
func (d *Dispatcher) BulkDispatch(ctx context.Context, events []*Event, namespace string, args ...any) ([]*Notification, error) {
	notifications := make([]*Notification, 0, len(events))
	for i, evt := range events {
		n, err := d.Dispatch(ctx, evt, namespace, args...)
		if err != nil {
			return notifications, fmt.Errorf("event %d: %w", i, err)
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// BulkUnsubscribe removes subscriptions by code. It stops at the first
// missing code and reports its index.
func (d *Dispatcher) BulkUnsubscribe(codes []string) error {
	for i, code := range codes {
		if err := d.UnsubscribeByCode(code); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}
