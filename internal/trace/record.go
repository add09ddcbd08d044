package trace

import "time"

// SpanRecord is the serialization form of a finished span, used by the HTTP
// sink and the span inspection endpoint.
type SpanRecord struct {
	Name         string                 `json:"name"`
	TraceID      string                 `json:"trace_id"`
	SpanID       string                 `json:"span_id"`
	ParentSpanID *string                `json:"parent_id"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      time.Time              `json:"end_time"`
	Status       string                 `json:"status"`
	Sampled      bool                   `json:"sampled"`
	Attributes   map[string]interface{} `json:"attributes"`
	Events       []EventRecord          `json:"events,omitempty"`
}

// EventRecord is the serialization form of a span event.
type EventRecord struct {
	Time       time.Time              `json:"time"`
	Name       string                 `json:"name"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// NewSpanRecord flattens a finished span into its serialization form.
func NewSpanRecord(span *Span) SpanRecord {
	record := SpanRecord{
		Name:       span.Name,
		TraceID:    string(span.TraceID),
		SpanID:     string(span.SpanID),
		StartTime:  span.StartTime,
		EndTime:    span.EndTime,
		Status:     span.Status().String(),
		Sampled:    span.Sampled,
		Attributes: flattenAttributes(span.Attributes),
	}

	if span.ParentSpanID != "" {
		parent := string(span.ParentSpanID)
		record.ParentSpanID = &parent
	}

	for _, event := range span.Events {
		record.Events = append(record.Events, EventRecord{
			Time:       event.Time,
			Name:       event.Name,
			Attributes: flattenAttributes(event.Attributes),
		})
	}

	return record
}

func flattenAttributes(attributes map[string]Value) map[string]interface{} {
	if len(attributes) == 0 {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(attributes))
	for key, value := range attributes {
		out[key] = value.Any()
	}
	return out
}
