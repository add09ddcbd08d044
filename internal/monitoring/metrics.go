package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service and its tracing
// pipeline.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Span lifecycle metrics
	SpansStarted prometheus.Counter
	SpansEnded   prometheus.Counter

	// Export pipeline metrics
	SpansExported    prometheus.Counter
	SpansDropped     *prometheus.CounterVec
	ExportRetries    prometheus.Counter
	ExportQueueDepth prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
}

// Drop reasons recorded on the SpansDropped counter.
const (
	DropReasonQueueFull       = "queue_full"
	DropReasonRetriesExceeded = "retries_exceeded"
	DropReasonCanceled        = "canceled"
	DropReasonShutdown        = "shutdown"
)

// NewMetrics creates a metrics collector with its own registry so multiple
// pipelines (and tests) never collide on the default registerer.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		startTime: time.Now(),
		registry:  registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traced_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traced_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SpansStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "traced_spans_started_total",
				Help: "Total number of spans started",
			},
		),
		SpansEnded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "traced_spans_ended_total",
				Help: "Total number of spans ended",
			},
		),

		SpansExported: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "traced_spans_exported_total",
				Help: "Total number of spans successfully flushed to the sink",
			},
		),
		SpansDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traced_spans_dropped_total",
				Help: "Total number of spans dropped, by reason",
			},
			[]string{"reason"},
		),
		ExportRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "traced_export_retries_total",
				Help: "Total number of export batch retry attempts",
			},
		),
		ExportQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "traced_export_queue_depth",
				Help: "Current number of spans waiting in the export queue",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "traced_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// Registry returns the prometheus registry backing these metrics, for
// mounting the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records request metrics.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDrop counts a dropped span (or batch of spans) with its reason.
func (m *Metrics) RecordDrop(reason string, count int) {
	m.SpansDropped.WithLabelValues(reason).Add(float64(count))
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
