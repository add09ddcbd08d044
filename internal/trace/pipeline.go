package trace

import (
	"context"

	"go.uber.org/zap"

	"github.com/vectorbench/traced/internal/monitoring"
)

// Pipeline is the explicitly constructed tracing stack: propagator, span
// recorder, and exporter. There is no package-level tracer; the pipeline is
// built at startup, handed to whatever needs it, and shut down by the
// owner's teardown sequence.
type Pipeline struct {
	Propagator *Propagator
	Recorder   *Recorder
	Exporter   *Exporter

	logger *zap.Logger
}

// NewPipeline assembles a pipeline exporting to sink.
func NewPipeline(cfg ExporterConfig, sink Sink, logger *zap.Logger) *Pipeline {
	exporter := NewExporter(cfg, sink, logger)
	return &Pipeline{
		Propagator: NewPropagator(),
		Recorder:   NewRecorder(exporter, logger),
		Exporter:   exporter,
		logger:     logger,
	}
}

// WithMetrics wires pipeline metrics into the recorder and exporter.
func (p *Pipeline) WithMetrics(m *monitoring.Metrics) *Pipeline {
	p.Recorder.WithMetrics(m)
	p.Exporter.WithMetrics(m)
	return p
}

// ForceFlush synchronously drains the export queue.
func (p *Pipeline) ForceFlush(ctx context.Context) {
	p.Exporter.ForceFlush(ctx)
}

// Shutdown drains and stops the exporter within the context deadline.
func (p *Pipeline) Shutdown(ctx context.Context) ShutdownReport {
	report := p.Exporter.Shutdown(ctx)
	p.logger.Info("tracing pipeline stopped",
		zap.Int("spans_flushed", report.Flushed),
		zap.Int("spans_dropped", report.Dropped),
	)
	return report
}

// contextKey types request-context values privately to this package.
type contextKey string

const traceContextKey contextKey = "trace_context"

// ContextWith returns a context carrying the trace context.
func ContextWith(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey, tc)
}

// FromContext retrieves the trace context stored by the middleware.
func FromContext(ctx context.Context) (TraceContext, bool) {
	tc, ok := ctx.Value(traceContextKey).(TraceContext)
	return tc, ok
}
