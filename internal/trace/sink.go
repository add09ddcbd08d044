package trace

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Sink receives ordered batches of finished spans. Implementations are
// pluggable: in-memory collector, structured log, or a remote collector.
type Sink interface {
	// Export delivers one batch. An error marks the whole batch as failed;
	// the exporter owns retry policy, so sinks must not retry internally.
	Export(ctx context.Context, spans []*Span) error

	// Shutdown releases sink resources within the context deadline.
	Shutdown(ctx context.Context) error
}

// MemorySink collects finished spans in memory. It backs the span
// inspection endpoint and tests.
type MemorySink struct {
	mu    sync.Mutex
	spans []*Span
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Export appends the batch to the collected spans.
func (s *MemorySink) Export(_ context.Context, spans []*Span) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = append(s.spans, spans...)
	return nil
}

// Shutdown is a no-op for the in-memory sink.
func (s *MemorySink) Shutdown(context.Context) error { return nil }

// Spans returns a copy of all collected spans in export order.
func (s *MemorySink) Spans() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.spans))
	copy(out, s.spans)
	return out
}

// Clear discards all collected spans.
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = nil
}

// LogSink writes each finished span as a structured log entry.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs spans through the given logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Export logs each span in the batch.
func (s *LogSink) Export(_ context.Context, spans []*Span) error {
	for _, span := range spans {
		fields := []zap.Field{
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
			zap.String("operation", span.Name),
			zap.String("status", span.Status().String()),
			zap.Duration("duration", span.Duration()),
		}
		if span.ParentSpanID != "" {
			fields = append(fields, zap.String("parent_span_id", string(span.ParentSpanID)))
		}
		s.logger.Info("span completed", fields...)
	}
	return nil
}

// Shutdown flushes the underlying logger.
func (s *LogSink) Shutdown(context.Context) error {
	// Sync errors on stdout sinks are expected and carry no signal.
	_ = s.logger.Sync()
	return nil
}

// HTTPSink ships span batches to a remote collector endpoint as JSON.
type HTTPSink struct {
	client   *resty.Client
	endpoint string
}

// NewHTTPSink creates a sink posting batches to endpoint. Retries stay with
// the exporter, so the client performs single attempts only.
func NewHTTPSink(endpoint string, timeout time.Duration) *HTTPSink {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "traced-exporter/1.0")

	return &HTTPSink{
		client:   client,
		endpoint: endpoint,
	}
}

// Export posts the batch; any non-2xx response is a failed export.
func (s *HTTPSink) Export(ctx context.Context, spans []*Span) error {
	records := make([]SpanRecord, len(spans))
	for i, span := range spans {
		records[i] = NewSpanRecord(span)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"spans": records}).
		Post(s.endpoint)
	if err != nil {
		return fmt.Errorf("collector post: %w", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("collector rejected batch: status %d", resp.StatusCode())
	}
	return nil
}

// Shutdown is a no-op; the HTTP client holds no long-lived connections that
// outlive idle timeouts.
func (s *HTTPSink) Shutdown(context.Context) error { return nil }
