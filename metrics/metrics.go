// Package metrics exposes dispatcher counters as a Prometheus collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/dispatch"
)

// Collector reads a dispatcher's counters on every scrape. Register it with
// prometheus.MustRegister; it holds no state of its own.
type Collector struct {
	d *dispatch.Dispatcher

	dispatches    *prometheus.Desc
	executed      *prometheus.Desc
	errors        *prometheus.Desc
	panics        *prometheus.Desc
	avgHandler    *prometheus.Desc
	subscriptions *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector for d.
func NewCollector(d *dispatch.Dispatcher) *Collector {
	return &Collector{
		d: d,
		dispatches: prometheus.NewDesc(
			prometheus.BuildFQName("dispatch", "events", "dispatches_total"),
			"Total number of dispatched events",
			nil, nil,
		),
		executed: prometheus.NewDesc(
			prometheus.BuildFQName("dispatch", "events", "handlers_executed_total"),
			"Total number of handler invocations",
			nil, nil,
		),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName("dispatch", "events", "handler_errors_total"),
			"Total number of handler invocations that returned an error",
			nil, nil,
		),
		panics: prometheus.NewDesc(
			prometheus.BuildFQName("dispatch", "events", "handler_panics_total"),
			"Total number of handler invocations that panicked",
			nil, nil,
		),
		avgHandler: prometheus.NewDesc(
			prometheus.BuildFQName("dispatch", "events", "handler_duration_avg_seconds"),
			"Average handler execution time in seconds",
			nil, nil,
		),
		subscriptions: prometheus.NewDesc(
			prometheus.BuildFQName("dispatch", "events", "active_subscriptions"),
			"Number of currently registered subscriptions",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.dispatches
	ch <- c.executed
	ch <- c.errors
	ch <- c.panics
	ch <- c.avgHandler
	ch <- c.subscriptions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.d.Stats()
	ch <- prometheus.MustNewConstMetric(c.dispatches, prometheus.CounterValue, float64(s.Dispatches))
	ch <- prometheus.MustNewConstMetric(c.executed, prometheus.CounterValue, float64(s.HandlersExecuted))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.HandlerErrors))
	ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(s.HandlerPanics))
	ch <- prometheus.MustNewConstMetric(c.avgHandler, prometheus.GaugeValue, float64(s.AvgHandlerTimeNs)/1e9)
	ch <- prometheus.MustNewConstMetric(c.subscriptions, prometheus.GaugeValue, float64(s.ActiveSubscriptions))
}
