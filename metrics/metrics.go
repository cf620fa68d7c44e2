// Package metrics defines the Prometheus collectors for the signal lifecycle
// and correlation pipeline.
//
// Collectors register on the registry passed to New, so tests can build as
// many instances as they like without colliding on the default registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blackgpt"

type Metrics struct {
	registry *prometheus.Registry

	// SignalsCreated counts accepted uploads. Labels: status
	SignalsCreated *prometheus.CounterVec
	// ValidationRejections counts uploads refused by the provenance gate.
	ValidationRejections prometheus.Counter
	// Verifications counts reviewer decisions. Labels: action
	Verifications *prometheus.CounterVec
	// CorrelationRuns counts correlation jobs by outcome (completed, failed, conflict).
	CorrelationRuns *prometheus.CounterVec
	// CorrelationDuration measures a whole correlation job.
	CorrelationDuration prometheus.Histogram
	// ConnectorQueries counts connector calls. Labels: source, outcome (ok, error, demo, cached)
	ConnectorQueries *prometheus.CounterVec
	// ConnectorDuration measures single connector calls. Labels: source
	ConnectorDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SignalsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "created_total",
			Help:      "Signals accepted at upload, by initial status",
		}, []string{"status"}),
		ValidationRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "validation_rejections_total",
			Help:      "Uploads rejected by field or provenance validation",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "verifications_total",
			Help:      "Reviewer decisions by action",
		}, []string{"action"}),
		CorrelationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correlation",
			Name:      "runs_total",
			Help:      "Correlation jobs by outcome",
		}, []string{"outcome"}),
		CorrelationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "correlation",
			Name:      "duration_seconds",
			Help:      "Wall time of a correlation job",
			Buckets:   prometheus.DefBuckets,
		}),
		ConnectorQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connector",
			Name:      "queries_total",
			Help:      "Public source queries by source and outcome",
		}, []string{"source", "outcome"}),
		ConnectorDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "connector",
			Name:      "duration_seconds",
			Help:      "Latency of a single public source query",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SignalCreated(status string) {
	if m != nil {
		m.SignalsCreated.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ValidationRejected() {
	if m != nil {
		m.ValidationRejections.Inc()
	}
}

func (m *Metrics) Verified(action string) {
	if m != nil {
		m.Verifications.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) CorrelationFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CorrelationRuns.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.CorrelationDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ConnectorQueried(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ConnectorQueries.WithLabelValues(source, outcome).Inc()
	m.ConnectorDuration.WithLabelValues(source).Observe(d.Seconds())
}
