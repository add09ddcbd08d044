package trace

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vectorbench/traced/internal/monitoring"
)

// Enqueuer accepts finished spans for asynchronous export.
type Enqueuer interface {
	Enqueue(span *Span)
}

// Recorder owns every in-flight span from Start until End hands it to the
// exporter. The registry is keyed by span ID so concurrent requests never
// interfere with each other's spans.
type Recorder struct {
	exporter Enqueuer
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu       sync.Mutex
	inflight map[SpanID]*Span
}

// NewRecorder creates a recorder that hands ended spans to exporter.
func NewRecorder(exporter Enqueuer, logger *zap.Logger) *Recorder {
	return &Recorder{
		exporter: exporter,
		logger:   logger,
		inflight: make(map[SpanID]*Span),
	}
}

// WithMetrics attaches pipeline metrics to the recorder.
func (r *Recorder) WithMetrics(m *monitoring.Metrics) *Recorder {
	r.metrics = m
	return r
}

// Start allocates a span under parent: fresh span ID, trace ID from the
// parent, parent span ID set to the parent's span ID. It returns the span
// and the trace context representing the new span's position, which is what
// gets injected into outbound calls.
func (r *Recorder) Start(name string, parent TraceContext) (*Span, TraceContext) {
	span := &Span{
		TraceID:      parent.TraceID,
		SpanID:       NewSpanID(),
		ParentSpanID: parent.SpanID,
		Name:         name,
		StartTime:    time.Now(),
		Sampled:      parent.Sampled,
		Attributes:   make(map[string]Value),
	}

	r.mu.Lock()
	r.inflight[span.SpanID] = span
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SpansStarted.Inc()
	}

	return span, span.Context()
}

// End finalizes the span and hands it to the exporter. The first call sets
// the end time and enqueues exactly once; subsequent calls are no-ops. A
// span ended by cancellation keeps whatever state it holds (an UNSET status
// is exported as such, never discarded).
func (r *Recorder) End(span *Span) {
	if span == nil {
		return
	}
	if !span.finish(time.Now()) {
		return
	}

	r.mu.Lock()
	delete(r.inflight, span.SpanID)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SpansEnded.Inc()
	}

	r.exporter.Enqueue(span)
}

// InFlight returns the number of spans started but not yet ended.
func (r *Recorder) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}
