package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/dispatch/exec"
	"github.com/dshills/dispatch/ident"
)

// dispatcherStats holds the live counters behind Stats.
type dispatcherStats struct {
	dispatches       atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
	totalHandlerNs   atomic.Int64
}

// Dispatcher is the coordinator: it owns one Registry and exposes the
// subscribe, unsubscribe, query, and dispatch surface. Handlers run
// synchronously on the dispatching goroutine; the registry lock is never
// held while a handler executes, so handlers may re-enter the dispatcher.
type Dispatcher struct {
	registry *Registry
	executor *exec.Executor
	gen      ident.Generator
	now      func() time.Time
	log      zerolog.Logger
	timeout  time.Duration
	onPanic  PanicHandler

	stats dispatcherStats
}

// Config holds dispatcher settings.
type Config struct {
	// Generator produces event IDs, subscription codes, and notification
	// IDs. Defaults to a UUID-backed generator.
	Generator ident.Generator

	// Clock stamps notification start and end times. Defaults to time.Now.
	Clock func() time.Time

	// Logger receives structured dispatch and registry activity.
	// Defaults to a no-op logger.
	Logger zerolog.Logger

	// HandlerTimeout, when positive, bounds each handler invocation.
	// Handlers must respect context cancellation for it to take effect.
	HandlerTimeout time.Duration

	// OnPanic is called after a handler panic is captured.
	OnPanic PanicHandler
}

// Option configures a Dispatcher.
type Option func(*Config)

// WithGenerator sets the identifier generator.
func WithGenerator(gen ident.Generator) Option {
	return func(c *Config) {
		if gen != nil {
			c.Generator = gen
		}
	}
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Clock = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithHandlerTimeout bounds each handler invocation.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HandlerTimeout = timeout
	}
}

// WithPanicHandler sets a hook called when a handler panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *Config) {
		c.OnPanic = h
	}
}

// New creates a Dispatcher with a fresh Registry.
func New(opts ...Option) *Dispatcher {
	cfg := Config{
		Generator: ident.NewUUID(),
		Clock:     time.Now,
		Logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Dispatcher{
		registry: NewRegistry(),
		executor: exec.New(),
		gen:      cfg.Generator,
		now:      cfg.Clock,
		log:      cfg.Logger,
		timeout:  cfg.HandlerTimeout,
		onPanic:  cfg.OnPanic,
	}
}

// Registry returns the dispatcher's subscription registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// eventCodeOf extracts the matchable key from a subscribe/unsubscribe event
// argument: a raw string key, an *Event (its code), or nil for a
// namespace-wide binding.
func eventCodeOf(event any) (string, error) {
	switch v := event.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case *Event:
		if v == nil {
			return "", nil
		}
		return v.Code(), nil
	default:
		return "", fmt.Errorf("%w: unsupported event key type %T", ErrInvalidEvent, event)
	}
}

// Subscribe registers a handler. The event may be a raw matchable key
// (string), an *Event whose code is extracted, or nil for a namespace-wide
// subscription. Returns the unique subscription code used for removal.
func (d *Dispatcher) Subscribe(event any, handler Handler, opts ...SubscribeOption) (string, error) {
	if isNilHandler(handler) {
		return "", ErrNilHandler
	}
	eventCode, err := eventCodeOf(event)
	if err != nil {
		return "", err
	}

	sub := newSubscription(d.gen.NextCode(), eventCode, handler, opts...)
	if err := d.registry.Add(sub); err != nil {
		return "", err
	}

	d.log.Debug().
		Str("code", sub.Code()).
		Str("event", sub.EventCode()).
		Str("namespace", sub.Namespace()).
		Int("priority", sub.Priority()).
		Bool("persistent", sub.Persistent()).
		Str("handler", handler.Name()).
		Msg("subscribed")

	return sub.Code(), nil
}

// SubscribeFunc registers a plain function handler.
func (d *Dispatcher) SubscribeFunc(event any, fn HandlerFunc, opts ...SubscribeOption) (string, error) {
	return d.Subscribe(event, fn, opts...)
}

// Unsubscribe removes the single oldest subscription matching exactly the
// (event, handler, namespace) triple. Fails with ErrSubscriptionNotFound
// when none match. Namespace defaults to "global" when empty.
func (d *Dispatcher) Unsubscribe(event any, handler Handler, namespace string) error {
	if isNilHandler(handler) {
		return ErrNilHandler
	}
	eventCode, err := eventCodeOf(event)
	if err != nil {
		return err
	}
	if namespace == "" {
		namespace = NamespaceGlobal
	}

	for _, sub := range d.registry.FindByHandler(handler, namespace) {
		if sub.EventCode() != eventCode {
			continue
		}
		if _, err := d.registry.RemoveByCode(sub.Code()); err != nil {
			continue // removed concurrently; keep scanning
		}
		d.log.Debug().Str("code", sub.Code()).Msg("unsubscribed")
		return nil
	}
	return fmt.Errorf("%w: event %q handler %q namespace %q",
		ErrSubscriptionNotFound, eventCode, handler.Name(), namespace)
}

// UnsubscribeByCode removes the subscription with the given code.
func (d *Dispatcher) UnsubscribeByCode(code string) error {
	sub, err := d.registry.RemoveByCode(code)
	if err != nil {
		return err
	}
	d.log.Debug().Str("code", sub.Code()).Msg("unsubscribed")
	return nil
}

// UnsubscribeByHandler removes every subscription bound to the handler
// across all namespaces. Returns the number removed; zero is not an error.
func (d *Dispatcher) UnsubscribeByHandler(handler Handler) int {
	return d.registry.RemoveByHandler(handler, "")
}

// UnsubscribeByEvent removes every subscription bound to the event key
// across all namespaces. Returns the number removed; zero is not an error.
func (d *Dispatcher) UnsubscribeByEvent(event any) (int, error) {
	eventCode, err := eventCodeOf(event)
	if err != nil {
		return 0, err
	}
	return d.registry.RemoveByEvent(eventCode), nil
}

// UnsubscribeByNamespace removes every subscription under the namespace.
// Returns the number removed.
func (d *Dispatcher) UnsubscribeByNamespace(namespace string) int {
	return d.registry.RemoveByNamespace(namespace)
}

// UnsubscribeAll clears every subscription.
func (d *Dispatcher) UnsubscribeAll() {
	d.registry.RemoveAll()
}

// SubscriptionByCode returns the subscription registered under code.
func (d *Dispatcher) SubscriptionByCode(code string) (*Subscription, error) {
	return d.registry.FindByCode(code)
}

// SubscriptionsByEvent returns every subscription bound to the given event
// key across all namespaces.
func (d *Dispatcher) SubscriptionsByEvent(event any) ([]*Subscription, error) {
	eventCode, err := eventCodeOf(event)
	if err != nil {
		return nil, err
	}
	return d.registry.FindByEvent(eventCode), nil
}

// SubscriptionsByHandler returns every subscription bound to the handler.
func (d *Dispatcher) SubscriptionsByHandler(handler Handler) []*Subscription {
	return d.registry.FindByHandler(handler, "")
}

// SubscriptionsByNamespace returns every subscription under the namespace.
func (d *Dispatcher) SubscriptionsByNamespace(namespace string) []*Subscription {
	return d.registry.FindByNamespace(namespace)
}

// Dispatch invokes every subscription matching (namespace, event code) in
// priority order (higher first, registration order breaking ties) and
// aggregates the outcome into a fresh Notification.
//
// Handler failures are data, not errors: a handler that returns an error or
// panics is recorded in the notification and never stops the remaining
// handlers. Dispatch itself only fails for a malformed event. No matching
// subscriptions is success with empty content.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *Event, namespace string, args ...any) (*Notification, error) {
	if evt.IsZero() {
		return nil, fmt.Errorf("%w: event must have a code and a name", ErrInvalidEvent)
	}
	if namespace == "" {
		namespace = NamespaceGlobal
	}

	start := d.now()
	builder := newNotificationBuilder(d.gen.NextID(), evt, namespace, start)
	d.stats.dispatches.Add(1)

	// Snapshot taken under the registry's read lock; handlers run outside
	// it so they may subscribe, unsubscribe, or dispatch re-entrantly.
	matches := d.registry.Find(namespace, evt.Code())

	for _, sub := range matches {
		if !sub.shouldDeliver(evt) {
			continue
		}
		d.invoke(ctx, builder, evt, namespace, sub, args)
	}

	n := builder.build(d.now())

	d.log.Debug().
		Str("event", evt.Code()).
		Str("namespace", namespace).
		Int("handlers", len(matches)).
		Int("errors", len(n.errs)).
		Dur("duration", n.Duration()).
		Msg("dispatched")

	return n, nil
}

// invoke runs one subscription's handler with isolation and records the
// outcome on the builder.
func (d *Dispatcher) invoke(ctx context.Context, builder *notificationBuilder, evt *Event, namespace string, sub *Subscription, args []any) {
	handler := sub.Handler()
	call := func(ctx context.Context) (any, error) {
		return handler.Handle(ctx, evt, args...)
	}

	var result exec.Result
	if d.timeout > 0 {
		result = d.executor.ExecuteWithTimeout(ctx, call, d.timeout)
	} else {
		result = d.executor.Execute(ctx, call)
	}

	d.stats.handlersExecuted.Add(1)
	d.stats.totalHandlerNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Panicked:
		d.stats.handlerPanics.Add(1)
		builder.addError(HandlerError{
			Code:      sub.Code(),
			Handler:   handler.Name(),
			Namespace: namespace,
			Err:       &PanicError{Value: result.PanicValue, Stack: result.Stack},
		})
		d.log.Warn().
			Str("handler", handler.Name()).
			Str("code", sub.Code()).
			Interface("panic", result.PanicValue).
			Msg("handler panicked")
		if d.onPanic != nil {
			d.onPanic(evt, sub, result.PanicValue, result.Stack)
		}

	case result.Err != nil:
		d.stats.handlerErrors.Add(1)
		builder.addError(HandlerError{
			Code:      sub.Code(),
			Handler:   handler.Name(),
			Namespace: namespace,
			Err:       result.Err,
		})
		d.log.Warn().
			Str("handler", handler.Name()).
			Str("code", sub.Code()).
			Err(result.Err).
			Msg("handler failed")

	default:
		builder.addResult(handler.Name(), result.Value)
	}

	// One-shot subscriptions leave the registry after a clean delivery.
	if sub.Once() && result.OK() {
		_, _ = d.registry.RemoveByCode(sub.Code())
	}
}

// Stats returns a snapshot of dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	executed := d.stats.handlersExecuted.Load()
	var avgNs int64
	if executed > 0 {
		avgNs = d.stats.totalHandlerNs.Load() / int64(executed)
	}
	return Stats{
		Dispatches:          d.stats.dispatches.Load(),
		HandlersExecuted:    executed,
		HandlerErrors:       d.stats.handlerErrors.Load(),
		HandlerPanics:       d.stats.handlerPanics.Load(),
		AvgHandlerTimeNs:    avgNs,
		ActiveSubscriptions: d.registry.Count(),
	}
}
