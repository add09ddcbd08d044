package trace

import (
	"fmt"
	"strings"
)

// Header is the transport header carrying trace context between services.
const Header = "X-Trace-Context"

// Propagator encodes and decodes TraceContext to and from the wire format
// `<32 hex trace_id>-<16 hex span_id>-<1 digit sampled flag>`.
type Propagator struct{}

// NewPropagator creates a propagator for the single-header wire format.
func NewPropagator() *Propagator {
	return &Propagator{}
}

// Extract parses a header value into a TraceContext. Extraction fails soft:
// a missing or malformed header yields a freshly generated root context, so
// an upstream without tracing can never abort request processing.
func (p *Propagator) Extract(headerValue string) TraceContext {
	tc, ok := p.parse(headerValue)
	if !ok {
		return NewRootContext()
	}
	return tc
}

func (p *Propagator) parse(headerValue string) (TraceContext, bool) {
	parts := strings.Split(strings.TrimSpace(headerValue), "-")
	if len(parts) != 3 {
		return TraceContext{}, false
	}

	traceID := TraceID(parts[0])
	spanID := SpanID(parts[1])
	if !traceID.IsValid() || !spanID.IsValid() {
		return TraceContext{}, false
	}

	var sampled bool
	switch parts[2] {
	case "0":
		sampled = false
	case "1":
		sampled = true
	default:
		return TraceContext{}, false
	}

	return TraceContext{
		TraceID: traceID,
		SpanID:  spanID,
		Sampled: sampled,
	}, true
}

// Inject serializes a TraceContext deterministically. For any well-formed
// header h, Inject(Extract(h)) == h.
func (p *Propagator) Inject(tc TraceContext) string {
	flag := 0
	if tc.Sampled {
		flag = 1
	}
	return fmt.Sprintf("%s-%s-%d", tc.TraceID, tc.SpanID, flag)
}
