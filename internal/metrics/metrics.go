// Package metrics exposes Prometheus metrics for the watch daemon.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/foxzi/postq/internal/queue"
)

// Metrics holds all Prometheus metrics for postq
type Metrics struct {
	// Snapshot gauges
	QueueMessages *prometheus.GaugeVec
	QueueBytes    prometheus.Gauge
	OldestSeconds prometheus.Gauge

	// Load counters
	LoadsTotal        prometheus.Counter
	LoadFailuresTotal prometheus.Counter

	// Action counters
	ActionsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		QueueMessages: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "postq_queue_messages",
				Help: "Messages in the current queue snapshot by status",
			},
			[]string{"status"},
		),
		QueueBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "postq_queue_bytes",
				Help: "Aggregate size of the current queue snapshot in bytes",
			},
		),
		OldestSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "postq_queue_oldest_seconds",
				Help: "Age of the oldest queued message in seconds",
			},
		),
		LoadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "postq_loads_total",
				Help: "Total number of successful snapshot loads",
			},
		),
		LoadFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "postq_load_failures_total",
				Help: "Total number of failed snapshot loads",
			},
		),
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postq_actions_total",
				Help: "Total number of queue actions by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.QueueMessages,
		m.QueueBytes,
		m.OldestSeconds,
		m.LoadsTotal,
		m.LoadFailuresTotal,
		m.ActionsTotal,
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSnapshot updates the snapshot gauges from a store summary.
func (m *Metrics) ObserveSnapshot(sum *queue.Summary) {
	m.QueueMessages.Reset()
	for status, n := range sum.ByStatus {
		m.QueueMessages.WithLabelValues(string(status)).Set(float64(n))
	}
	m.QueueBytes.Set(float64(sum.Bytes))

	if sum.Oldest.IsZero() {
		m.OldestSeconds.Set(0)
	} else {
		m.OldestSeconds.Set(time.Since(sum.Oldest).Seconds())
	}
}

// ObserveLoad records a snapshot load attempt.
func (m *Metrics) ObserveLoad(err error) {
	if err != nil {
		m.LoadFailuresTotal.Inc()
		return
	}
	m.LoadsTotal.Inc()
}

// ObserveAction records one per-message action outcome.
func (m *Metrics) ObserveAction(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ActionsTotal.WithLabelValues(op, outcome).Inc()
}
