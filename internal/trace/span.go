package trace

import (
	"sync"
	"time"
)

// Status is the outcome of a span. A span moves from StatusUnset to at most
// one of StatusOK or StatusError and never back.
type Status int

const (
	StatusUnset Status = iota
	StatusOK
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	default:
		return "UNSET"
	}
}

// ValueKind identifies the scalar kind held by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is an attribute value restricted to a closed set of scalar kinds so
// export serialization stays well-defined.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	b    bool
}

// StringValue wraps a string attribute value.
func StringValue(v string) Value { return Value{kind: KindString, str: v} }

// IntValue wraps an integer attribute value.
func IntValue(v int64) Value { return Value{kind: KindInt, num: v} }

// FloatValue wraps a float attribute value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, flt: v} }

// BoolValue wraps a boolean attribute value.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind returns the scalar kind of the value.
func (v Value) Kind() ValueKind { return v.kind }

// Any returns the underlying scalar for serialization.
func (v Value) Any() interface{} {
	switch v.kind {
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

// Event is a timestamped annotation within a span.
type Event struct {
	Time       time.Time
	Name       string
	Attributes map[string]Value
}

// Span is a mutable record of one unit of work. It is owned by the operation
// that started it until End hands it to the exporter; after that it is
// read-only.
type Span struct {
	TraceID      TraceID
	SpanID       SpanID
	ParentSpanID SpanID
	Name         string
	StartTime    time.Time
	EndTime      time.Time
	Sampled      bool
	Attributes   map[string]Value
	Events       []Event

	mu     sync.Mutex
	status Status
	ended  bool
}

// SetAttribute sets an attribute without altering span timing.
func (s *Span) SetAttribute(key string, value Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.Attributes[key] = value
}

// AddEvent appends a timestamped event to the span.
func (s *Span) AddEvent(name string, attributes map[string]Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.Events = append(s.Events, Event{
		Time:       time.Now(),
		Name:       name,
		Attributes: attributes,
	})
}

// SetStatus transitions the span out of StatusUnset. The first productive
// call wins; later calls and StatusUnset arguments are no-ops.
func (s *Span) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.status != StatusUnset || status == StatusUnset {
		return
	}
	s.status = status
}

// Status returns the current status of the span.
func (s *Span) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Ended reports whether End has completed for this span.
func (s *Span) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// finish marks the span ended. It returns false if the span was already
// ended, making End idempotent.
func (s *Span) finish(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	s.ended = true
	s.EndTime = at
	return true
}

// Context returns the trace context positioned at this span. Child work and
// outbound propagation derive from it.
func (s *Span) Context() TraceContext {
	return TraceContext{
		TraceID:      s.TraceID,
		SpanID:       s.SpanID,
		ParentSpanID: s.ParentSpanID,
		Sampled:      s.Sampled,
	}
}

// Duration returns the elapsed time of an ended span.
func (s *Span) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
