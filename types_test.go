package dispatch

import (
	"context"
	"testing"
)

func namedTestHandler(_ context.Context, _ *Event, _ ...any) (any, error) {
	return "named", nil
}

func TestHandlerFunc_Name(t *testing.T) {
	var f HandlerFunc = namedTestHandler
	if got := f.Name(); got != "namedTestHandler" {
		t.Errorf("Name() = %q, want %q", got, "namedTestHandler")
	}
}

func TestHandlerFunc_Handle(t *testing.T) {
	var f HandlerFunc = func(_ context.Context, evt *Event, args ...any) (any, error) {
		return evt.Name(), nil
	}
	v, err := f.Handle(context.Background(), NewEvent("ping", nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if v != "ping" {
		t.Errorf("Handle() = %v, want %q", v, "ping")
	}
}

func TestFunc_ExplicitName(t *testing.T) {
	h := Func("greeter", func(_ context.Context, _ *Event, _ ...any) (any, error) {
		return nil, nil
	})
	if h.Name() != "greeter" {
		t.Errorf("Name() = %q, want %q", h.Name(), "greeter")
	}
}

func TestHandlersEqual(t *testing.T) {
	var f HandlerFunc = namedTestHandler
	var g HandlerFunc = namedTestHandler
	if !handlersEqual(f, g) {
		t.Error("same function should compare equal")
	}

	var other HandlerFunc = func(_ context.Context, _ *Event, _ ...any) (any, error) {
		return nil, nil
	}
	if handlersEqual(f, other) {
		t.Error("different functions should not compare equal")
	}

	// Func wrapping the same function matches the bare HandlerFunc; both
	// resolve to the same code pointer.
	wrapped := Func("alias", namedTestHandler)
	if !handlersEqual(f, wrapped) {
		t.Error("Func wrapper of the same function should compare equal")
	}

	if handlersEqual(f, nil) {
		t.Error("non-nil vs nil should not compare equal")
	}
	if !handlersEqual(nil, nil) {
		t.Error("nil vs nil should compare equal")
	}
}

func TestStatus_String(t *testing.T) {
	cases := []struct {
		status Status
		want   string
	}{
		{StatusSuccess, "success"},
		{StatusFailure, "failure"},
		{Status(99), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("Status(%d).String() = %q, want %q", tc.status, got, tc.want)
		}
	}
}
