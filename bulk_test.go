package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestBulkSubscribe(t *testing.T) {
	d := New()

	codes, err := d.BulkSubscribe(
		[]any{"a", "b", "c"},
		[]Handler{HandlerFunc(noopHandler), HandlerFunc(noopHandler), HandlerFunc(noopHandler)},
	)
	if err != nil {
		t.Fatalf("BulkSubscribe failed: %v", err)
	}
	if len(codes) != 3 {
		t.Errorf("got %d codes, want 3", len(codes))
	}
	if d.Registry().Count() != 3 {
		t.Errorf("Count() = %d, want 3", d.Registry().Count())
	}
}

func TestBulkSubscribe_LengthMismatch(t *testing.T) {
	d := New()
	_, err := d.BulkSubscribe(
		[]any{"a", "b"},
		[]Handler{HandlerFunc(noopHandler)},
	)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
	if d.Registry().Count() != 0 {
		t.Error("failed BulkSubscribe left subscriptions behind")
	}
}

func TestBulkSubscribe_BroadcastAndZip(t *testing.T) {
	d := New()

	codes, err := d.BulkSubscribe(
		[]any{"a", "b"},
		[]Handler{HandlerFunc(noopHandler), HandlerFunc(noopHandler)},
		WithNamespaces("ui"),       // one value broadcasts
		WithPriorities(5, 1),       // per-entry zip
		WithPersistents(true, false),
	)
	if err != nil {
		t.Fatalf("BulkSubscribe failed: %v", err)
	}

	first, _ := d.SubscriptionByCode(codes[0])
	second, _ := d.SubscriptionByCode(codes[1])

	if first.Namespace() != "ui" || second.Namespace() != "ui" {
		t.Error("single namespace should broadcast to every entry")
	}
	if first.Priority() != 5 || second.Priority() != 1 {
		t.Errorf("priorities = %d/%d, want 5/1", first.Priority(), second.Priority())
	}
	if !first.Persistent() || second.Persistent() {
		t.Errorf("persistents = %v/%v, want true/false", first.Persistent(), second.Persistent())
	}
}

func TestBulkSubscribe_ParamLengthValidatedUpFront(t *testing.T) {
	d := New()
	_, err := d.BulkSubscribe(
		[]any{"a", "b", "c"},
		[]Handler{HandlerFunc(noopHandler), HandlerFunc(noopHandler), HandlerFunc(noopHandler)},
		WithPriorities(1, 2), // neither one nor three
	)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
	if d.Registry().Count() != 0 {
		t.Error("nothing should be registered when a parameter list is malformed")
	}
}

func TestBulkSubscribe_PartialFailureKeepsApplied(t *testing.T) {
	d := New()
	codes, err := d.BulkSubscribe(
		[]any{"a", "b"},
		[]Handler{HandlerFunc(noopHandler), nil}, // second entry invalid
	)
	if err == nil {
		t.Fatal("BulkSubscribe should fail on nil handler")
	}
	if !errors.Is(err, ErrNilHandler) {
		t.Errorf("err = %v, want wrapped ErrNilHandler", err)
	}
	if len(codes) != 1 {
		t.Errorf("got %d applied codes, want the 1 entry before the failure", len(codes))
	}
	if d.Registry().Count() != 1 {
		t.Errorf("Count() = %d, want 1", d.Registry().Count())
	}
}

func TestBulkSubscribe_EventsStayIsolated(t *testing.T) {
	d := New()
	var h1Calls, h2Calls int

	_, err := d.BulkSubscribe(
		[]any{"e1", "e2"},
		[]Handler{
			Func("h1", func(_ context.Context, _ *Event, _ ...any) (any, error) {
				h1Calls++
				return nil, nil
			}),
			Func("h2", func(_ context.Context, _ *Event, _ ...any) (any, error) {
				h2Calls++
				return nil, nil
			}),
		},
		WithPriorities(0, 10),
	)
	if err != nil {
		t.Fatalf("BulkSubscribe failed: %v", err)
	}

	if _, err := d.Dispatch(context.Background(), NewEvent("e2", nil), NamespaceGlobal); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if h2Calls != 1 {
		t.Errorf("h2 ran %d times, want 1", h2Calls)
	}
	if h1Calls != 0 {
		t.Error("h1 ran for a dispatch of e2")
	}
}

func TestBulkDispatch(t *testing.T) {
	d := New()
	var mu sync.Mutex
	var order []string

	for _, name := range []string{"e1", "e2"} {
		name := name
		d.Subscribe(name, Func("on-"+name, func(_ context.Context, evt *Event, _ ...any) (any, error) {
			mu.Lock()
			order = append(order, evt.Code())
			mu.Unlock()
			return evt.Code(), nil
		}))
	}

	events := []*Event{NewEvent("e1", nil), NewEvent("e2", nil)}
	notes, err := d.BulkDispatch(context.Background(), events, NamespaceGlobal)
	if err != nil {
		t.Fatalf("BulkDispatch failed: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("got %d notifications, want 2", len(notes))
	}

	mu.Lock()
	if len(order) != 2 || order[0] != "e1" || order[1] != "e2" {
		t.Errorf("dispatch order = %v, want [e1 e2]", order)
	}
	mu.Unlock()

	if v, _ := notes[0].Result("on-e1"); v != "e1" {
		t.Errorf("notes[0].Result = %v, want e1", v)
	}
	if v, _ := notes[1].Result("on-e2"); v != "e2" {
		t.Errorf("notes[1].Result = %v, want e2", v)
	}
}

func TestBulkDispatch_InvalidEventAborts(t *testing.T) {
	d := New()
	events := []*Event{NewEvent("good", nil), nil, NewEvent("never", nil)}

	notes, err := d.BulkDispatch(context.Background(), events, NamespaceGlobal)
	if !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("err = %v, want wrapped ErrInvalidEvent", err)
	}
	if len(notes) != 1 {
		t.Errorf("got %d notifications, want the 1 before the failure", len(notes))
	}
}

func TestBulkUnsubscribe(t *testing.T) {
	d := New()
	var codes []string
	for i := 0; i < 3; i++ {
		code, _ := d.Subscribe(fmt.Sprintf("ev%d", i), HandlerFunc(noopHandler))
		codes = append(codes, code)
	}

	if err := d.BulkUnsubscribe(codes); err != nil {
		t.Fatalf("BulkUnsubscribe failed: %v", err)
	}
	if d.Registry().Count() != 0 {
		t.Errorf("Count() = %d, want 0", d.Registry().Count())
	}

	if err := d.BulkUnsubscribe([]string{"missing"}); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("err = %v, want wrapped ErrSubscriptionNotFound", err)
	}
}
