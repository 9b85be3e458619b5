package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/dispatch"
)

func gatherValues(t *testing.T, c *Collector) map[string]float64 {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	return values
}

func TestCollector_Describe(t *testing.T) {
	c := NewCollector(dispatch.New())
	ch := make(chan *prometheus.Desc, 10)
	c.Describe(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	if count != 6 {
		t.Errorf("Describe sent %d descriptors, want 6", count)
	}
}

func TestCollector_Collect(t *testing.T) {
	d := dispatch.New()

	d.Subscribe("ev", dispatch.Func("ok", func(_ context.Context, _ *dispatch.Event, _ ...any) (any, error) {
		return nil, nil
	}))
	d.Subscribe("ev", dispatch.Func("bad", func(_ context.Context, _ *dispatch.Event, _ ...any) (any, error) {
		return nil, errors.New("x")
	}))

	d.Dispatch(context.Background(), dispatch.NewEvent("ev", nil), dispatch.NamespaceGlobal)
	d.Dispatch(context.Background(), dispatch.NewEvent("ev", nil), dispatch.NamespaceGlobal)

	values := gatherValues(t, NewCollector(d))

	cases := map[string]float64{
		"dispatch_events_dispatches_total":        2,
		"dispatch_events_handlers_executed_total": 4,
		"dispatch_events_handler_errors_total":    2,
		"dispatch_events_handler_panics_total":    0,
		"dispatch_events_active_subscriptions":    2,
	}
	for name, want := range cases {
		got, ok := values[name]
		if !ok {
			t.Errorf("metric %s missing from gather", name)
			continue
		}
		if got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	if _, ok := values["dispatch_events_handler_duration_avg_seconds"]; !ok {
		t.Error("average duration metric missing from gather")
	}
}

func TestCollector_ZeroState(t *testing.T) {
	values := gatherValues(t, NewCollector(dispatch.New()))
	if values["dispatch_events_dispatches_total"] != 0 {
		t.Errorf("fresh dispatcher dispatches = %v, want 0", values["dispatch_events_dispatches_total"])
	}
}
