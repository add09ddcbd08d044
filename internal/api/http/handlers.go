// Package http contains the HTTP handlers for the traced service.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vectorbench/traced/internal/httpclient"
	"github.com/vectorbench/traced/internal/logging"
	"github.com/vectorbench/traced/internal/trace"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	pipeline      *trace.Pipeline
	sink          *trace.MemorySink // nil unless the memory sink is configured
	downstream    *httpclient.Client
	downstreamURL string
	logger        *logging.Logger
}

// NewHandlers creates the handler set. sink may be nil when span inspection
// is not available.
func NewHandlers(
	pipeline *trace.Pipeline,
	sink *trace.MemorySink,
	downstream *httpclient.Client,
	downstreamURL string,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		pipeline:      pipeline,
		sink:          sink,
		downstream:    downstream,
		downstreamURL: downstreamURL,
		logger:        logger,
	}
}

// Root returns a welcome message.
func (h *Handlers) Root(c *gin.Context) {
	if span, ok := trace.SpanFrom(c); ok {
		span.SetAttribute("endpoint", trace.StringValue("root"))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the traced service",
	})
}

// Error runs a unit of work that fails internally, recovers, and reports
// success. The request's span carries status ERROR for the failure, but the
// business outcome is a 200: span status and response code are controlled
// independently.
func (h *Handlers) Error(c *gin.Context) {
	span, hasSpan := trace.SpanFrom(c)
	if hasSpan {
		span.SetAttribute("endpoint", trace.StringValue("error"))
	}

	if err := h.flakyWork(); err != nil {
		if hasSpan {
			span.SetStatus(trace.StatusError)
			span.AddEvent("operation failed", map[string]trace.Value{
				"message": trace.StringValue(err.Error()),
			})
		}
		h.logger.Warn("recovered from internal failure", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// flakyWork simulates a processing step that always fails internally.
func (h *Handlers) flakyWork() error {
	return errors.New("simulated processing failure")
}

// Downstream calls the echo endpoint of the downstream service, propagating
// the current trace context, and relays the response.
func (h *Handlers) Downstream(c *gin.Context) {
	if span, ok := trace.SpanFrom(c); ok {
		span.SetAttribute("endpoint", trace.StringValue("downstream"))
	}

	tc := trace.CurrentContext(c)
	url := fmt.Sprintf("%s/echo/%s", h.downstreamURL, tc.TraceID)

	resp, err := h.downstream.Get(c.Request.Context(), url, tc)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "downstream call failed"})
		c.Error(err)
		return
	}

	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "downstream returned invalid JSON"})
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"downstream_response": body})
}

// Echo simulates a downstream service: it reports the trace ID it was asked
// to continue and the one it actually joined, so callers can verify context
// propagation end to end.
func (h *Handlers) Echo(c *gin.Context) {
	if span, ok := trace.SpanFrom(c); ok {
		span.SetAttribute("endpoint", trace.StringValue("echo"))
	}

	original := c.Param("trace_id")
	current := string(trace.CurrentContext(c).TraceID)

	c.JSON(http.StatusOK, gin.H{
		"original_trace_id":  original,
		"current_trace_id":   current,
		"context_propagated": original == current,
	})
}

// Spans flushes the pipeline and returns every span collected by the memory
// sink, then clears it. Used to inspect tracing behavior in tests and
// development.
func (h *Handlers) Spans(c *gin.Context) {
	if h.sink == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "span inspection requires the memory sink",
		})
		return
	}

	h.pipeline.ForceFlush(c.Request.Context())

	spans := h.sink.Spans()
	h.sink.Clear()

	records := make([]trace.SpanRecord, 0, len(spans))
	for _, span := range spans {
		records = append(records, trace.NewSpanRecord(span))
	}

	c.JSON(http.StatusOK, gin.H{"spans": records})
}

// Health reports liveness and pipeline statistics.
func (h *Handlers) Health(c *gin.Context) {
	flushed, dropped := h.pipeline.Exporter.Stats()

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"tracing": gin.H{
			"spans_in_flight": h.pipeline.Recorder.InFlight(),
			"queue_depth":     h.pipeline.Exporter.QueueLen(),
			"spans_flushed":   flushed,
			"spans_dropped":   dropped,
		},
	})
}
