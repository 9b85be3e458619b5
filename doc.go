// Package dispatch provides an in-process publish/subscribe event
// dispatcher: callers register handlers against a namespace (and,
// optionally, an event identity within it) and later dispatch events so
// that every matching handler runs and its outcome is aggregated into a
// single Notification.
//
// # Model
//
// A Subscription binds a handler to a (namespace, event code) pair; an
// empty event code makes it namespace-wide. Handlers execute in priority
// order, higher first, with registration order breaking ties — the ordering
// is deterministic and part of the contract.
//
// A handler failure is data, not an exception: errors and panics are
// captured into the returned Notification and never stop the remaining
// handlers, so one misbehaving subscriber cannot break delivery to the
// rest. A dispatch with no matching subscriptions succeeds with empty
// content.
//
// # Basic Usage
//
//	d := dispatch.New()
//
//	code, err := d.Subscribe("user.created", dispatch.Func("welcome",
//	    func(ctx context.Context, evt *dispatch.Event, args ...any) (any, error) {
//	        name, _ := evt.Get("name")
//	        return fmt.Sprintf("welcome, %v", name), nil
//	    }),
//	    dispatch.WithNamespace("accounts"),
//	    dispatch.WithPriority(10),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	evt := dispatch.NewEvent("user.created", map[string]any{"name": "Alice"})
//	n, err := d.Dispatch(ctx, evt, "accounts")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, _ := n.OneAndOnlyResult()
//
//	_ = d.UnsubscribeByCode(code)
//
// # Concurrency
//
// The Dispatcher and Registry are safe for concurrent use. Dispatch takes a
// snapshot of matching subscriptions under a short-lived read lock and runs
// handlers outside it, so handlers may subscribe, unsubscribe, or dispatch
// re-entrantly without deadlocking. A subscription added or removed while a
// dispatch is in flight may or may not be included in that dispatch.
//
// # Subpackages
//
//   - ident: identifier/code generation
//   - exec: per-handler execution with panic capture
//   - config: TOML manifest for persistent subscriptions
//   - script: handlers written in Lua
//   - metrics: Prometheus collector over dispatcher stats
package dispatch
