package trace

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// TraceID is a 128-bit trace identifier, lowercase hex encoded (32 chars).
// It is fixed for an entire trace and generated once at the trace root.
type TraceID string

// SpanID is a 64-bit span identifier, lowercase hex encoded (16 chars).
type SpanID string

const (
	traceIDHexLen = 32
	spanIDHexLen  = 16
)

// IsValid reports whether the trace ID is well-formed hex and non-zero.
func (t TraceID) IsValid() bool {
	return isNonZeroHex(string(t), traceIDHexLen)
}

// IsValid reports whether the span ID is well-formed hex and non-zero.
func (s SpanID) IsValid() bool {
	return isNonZeroHex(string(s), spanIDHexLen)
}

func isNonZeroHex(v string, length int) bool {
	if len(v) != length {
		return false
	}
	zero := true
	for _, c := range v {
		switch {
		case c >= '0' && c <= '9':
			if c != '0' {
				zero = false
			}
		case c >= 'a' && c <= 'f':
			zero = false
		default:
			return false
		}
	}
	return !zero
}

// NewTraceID generates a random 128-bit trace ID.
func NewTraceID() TraceID {
	return TraceID(hex.EncodeToString(randomBytes(16)))
}

// NewSpanID generates a random 64-bit span ID.
func NewSpanID() SpanID {
	return SpanID(hex.EncodeToString(randomBytes(8)))
}

// randomBytes draws n bytes (n <= 16) from a fresh v4 UUID. UUIDs give us
// collision-resistant entropy without managing a seeded source.
func randomBytes(n int) []byte {
	id := uuid.New()
	return id[:n]
}

// TraceContext is an immutable position in a trace. A child context shares
// its parent's TraceID and records the parent's SpanID as ParentSpanID.
type TraceContext struct {
	TraceID      TraceID
	SpanID       SpanID
	ParentSpanID SpanID // empty for a root context
	Sampled      bool
}

// NewRootContext starts a fresh trace with no parent.
func NewRootContext() TraceContext {
	return TraceContext{
		TraceID: NewTraceID(),
		SpanID:  NewSpanID(),
		Sampled: true,
	}
}

// ChildOption overrides child context fields.
type ChildOption func(*TraceContext)

// WithSampled overrides the inherited sampling decision.
func WithSampled(sampled bool) ChildOption {
	return func(tc *TraceContext) {
		tc.Sampled = sampled
	}
}

// ChildOf derives a new context in the same trace: same TraceID, fresh
// SpanID, ParentSpanID set to the parent's SpanID. Sampling is inherited
// unless overridden.
func ChildOf(parent TraceContext, opts ...ChildOption) TraceContext {
	child := TraceContext{
		TraceID:      parent.TraceID,
		SpanID:       NewSpanID(),
		ParentSpanID: parent.SpanID,
		Sampled:      parent.Sampled,
	}
	for _, opt := range opts {
		opt(&child)
	}
	return child
}

// IsValid reports whether both identifiers are well-formed.
func (tc TraceContext) IsValid() bool {
	return tc.TraceID.IsValid() && tc.SpanID.IsValid()
}

// IsRoot reports whether the context has no parent.
func (tc TraceContext) IsRoot() bool {
	return tc.ParentSpanID == ""
}
