package trace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vectorbench/traced/internal/monitoring"
)

// ExporterConfig bounds the export pipeline.
type ExporterConfig struct {
	BatchSize     int           // max spans per flush
	FlushInterval time.Duration // time-based flush trigger
	RetryLimit    int           // retries per batch after the first attempt
	RetryBackoff  time.Duration // initial backoff, doubled per retry
	QueueCapacity int           // bound before drop-oldest engages
}

// DefaultExporterConfig returns production defaults.
func DefaultExporterConfig() ExporterConfig {
	return ExporterConfig{
		BatchSize:     64,
		FlushInterval: 5 * time.Second,
		RetryLimit:    3,
		RetryBackoff:  100 * time.Millisecond,
		QueueCapacity: 2048,
	}
}

func (c ExporterConfig) withDefaults() ExporterConfig {
	def := DefaultExporterConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = def.RetryLimit
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	return c
}

// ShutdownReport accounts for every span still queued when shutdown began.
type ShutdownReport struct {
	Flushed int
	Dropped int
}

// Exporter ships finished spans to a sink off the request path. Spans are
// held in a bounded queue drained by one background worker; when the queue
// is full the oldest unsent span is dropped so producers never block. Every
// enqueued span is either flushed exactly once or counted as dropped with a
// logged reason.
type Exporter struct {
	cfg     ExporterConfig
	sink    Sink
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu     sync.Mutex
	queue  []*Span
	closed bool

	flushed int64
	dropped int64

	kick chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewExporter creates an exporter and starts its draining worker.
func NewExporter(cfg ExporterConfig, sink Sink, logger *zap.Logger) *Exporter {
	e := &Exporter{
		cfg:    cfg.withDefaults(),
		sink:   sink,
		logger: logger,
		kick:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}

	e.wg.Add(1)
	go e.run()

	return e
}

// WithMetrics attaches pipeline metrics to the exporter.
func (e *Exporter) WithMetrics(m *monitoring.Metrics) *Exporter {
	e.metrics = m
	return e
}

// Enqueue appends a finished span to the queue without blocking. When the
// queue is at capacity the oldest unsent span is dropped and logged. After
// shutdown begins, new spans are refused and counted as dropped.
func (e *Exporter) Enqueue(span *Span) {
	e.mu.Lock()

	if e.closed {
		e.dropped++
		e.mu.Unlock()
		e.recordDrop(monitoring.DropReasonShutdown, 1)
		e.logger.Warn("span refused, exporter shut down",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
		return
	}

	var evicted *Span
	if len(e.queue) >= e.cfg.QueueCapacity {
		evicted = e.queue[0]
		e.queue = e.queue[1:]
		e.dropped++
	}
	e.queue = append(e.queue, span)
	depth := len(e.queue)
	e.mu.Unlock()

	e.setQueueDepth(depth)

	if evicted != nil {
		e.recordDrop(monitoring.DropReasonQueueFull, 1)
		e.logger.Warn("export queue full, dropped oldest span",
			zap.String("trace_id", string(evicted.TraceID)),
			zap.String("span_id", string(evicted.SpanID)),
			zap.Int("capacity", e.cfg.QueueCapacity),
		)
	}

	if depth >= e.cfg.BatchSize {
		select {
		case e.kick <- struct{}{}:
		default:
		}
	}
}

// run drains the queue on the flush interval or when the batch threshold is
// reached.
func (e *Exporter) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.drain(context.Background())
		case <-e.kick:
			e.drain(context.Background())
		case <-e.stop:
			return
		}
	}
}

// drain flushes batches until the queue is empty.
func (e *Exporter) drain(ctx context.Context) {
	for {
		batch := e.nextBatch()
		if len(batch) == 0 {
			return
		}
		e.exportBatch(ctx, batch)
	}
}

// nextBatch pops up to BatchSize spans. Each span leaves the queue exactly
// once, so concurrent drains never double-export.
func (e *Exporter) nextBatch() []*Span {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.queue)
	if n == 0 {
		return nil
	}
	if n > e.cfg.BatchSize {
		n = e.cfg.BatchSize
	}

	batch := make([]*Span, n)
	copy(batch, e.queue[:n])
	e.queue = e.queue[n:]

	e.setQueueDepth(len(e.queue))
	return batch
}

// exportBatch delivers one batch, retrying the same batch up to RetryLimit
// times with exponential backoff. An exhausted batch is dropped and counted,
// never retried again.
func (e *Exporter) exportBatch(ctx context.Context, batch []*Span) {
	backoff := e.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= e.cfg.RetryLimit; attempt++ {
		if attempt > 0 {
			if e.metrics != nil {
				e.metrics.ExportRetries.Inc()
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				e.dropBatch(batch, monitoring.DropReasonCanceled, ctx.Err())
				return
			}
			backoff *= 2
		}

		lastErr = e.sink.Export(ctx, batch)
		if lastErr == nil {
			e.mu.Lock()
			e.flushed += int64(len(batch))
			e.mu.Unlock()
			if e.metrics != nil {
				e.metrics.SpansExported.Add(float64(len(batch)))
			}
			return
		}
	}

	e.dropBatch(batch, monitoring.DropReasonRetriesExceeded, lastErr)
}

func (e *Exporter) dropBatch(batch []*Span, reason string, cause error) {
	e.mu.Lock()
	e.dropped += int64(len(batch))
	e.mu.Unlock()

	e.recordDrop(reason, len(batch))
	e.logger.Error("export batch dropped",
		zap.String("reason", reason),
		zap.Int("count", len(batch)),
		zap.Int("retry_limit", e.cfg.RetryLimit),
		zap.Error(cause),
	)
}

// ForceFlush synchronously drains everything queued right now. It is meant
// for inspection endpoints and tests, not the request hot path.
func (e *Exporter) ForceFlush(ctx context.Context) {
	e.drain(ctx)
}

// Shutdown stops accepting spans, attempts one final flush of the queue
// within the context deadline, and reports how many spans were flushed
// versus dropped since the exporter started.
func (e *Exporter) Shutdown(ctx context.Context) ShutdownReport {
	e.mu.Lock()
	alreadyClosed := e.closed
	e.closed = true
	e.mu.Unlock()

	if !alreadyClosed {
		close(e.stop)
		e.wg.Wait()
		e.drain(ctx)

		// Anything still queued did not make it out before the deadline.
		e.mu.Lock()
		remaining := len(e.queue)
		e.queue = nil
		e.dropped += int64(remaining)
		e.mu.Unlock()

		e.setQueueDepth(0)

		if remaining > 0 {
			e.recordDrop(monitoring.DropReasonShutdown, remaining)
			e.logger.Warn("spans dropped at shutdown", zap.Int("count", remaining))
		}

		if err := e.sink.Shutdown(ctx); err != nil {
			e.logger.Warn("sink shutdown failed", zap.Error(err))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return ShutdownReport{
		Flushed: int(e.flushed),
		Dropped: int(e.dropped),
	}
}

// QueueLen returns the current number of queued spans.
func (e *Exporter) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Stats returns lifetime flush and drop counts.
func (e *Exporter) Stats() (flushed, dropped int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushed, e.dropped
}

func (e *Exporter) recordDrop(reason string, count int) {
	if e.metrics != nil {
		e.metrics.RecordDrop(reason, count)
	}
}

func (e *Exporter) setQueueDepth(depth int) {
	if e.metrics != nil {
		e.metrics.ExportQueueDepth.Set(float64(depth))
	}
}
