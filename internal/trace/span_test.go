package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpan() *Span {
	parent := NewRootContext()
	return &Span{
		TraceID:      parent.TraceID,
		SpanID:       NewSpanID(),
		ParentSpanID: parent.SpanID,
		Name:         "test",
		StartTime:    time.Now(),
		Sampled:      true,
		Attributes:   make(map[string]Value),
	}
}

func TestSpanStatusFirstCallWins(t *testing.T) {
	span := newTestSpan()
	assert.Equal(t, StatusUnset, span.Status())

	span.SetStatus(StatusError)
	assert.Equal(t, StatusError, span.Status())

	// The first productive transition sticks; later calls are no-ops.
	span.SetStatus(StatusOK)
	assert.Equal(t, StatusError, span.Status())

	span.SetStatus(StatusError)
	assert.Equal(t, StatusError, span.Status())
}

func TestSpanStatusUnsetIsNotProductive(t *testing.T) {
	span := newTestSpan()

	span.SetStatus(StatusUnset)
	assert.Equal(t, StatusUnset, span.Status())

	span.SetStatus(StatusOK)
	assert.Equal(t, StatusOK, span.Status())
}

func TestSpanAttributesAndEvents(t *testing.T) {
	span := newTestSpan()

	span.SetAttribute("endpoint", StringValue("root"))
	span.SetAttribute("attempt", IntValue(2))
	span.SetAttribute("ratio", FloatValue(0.5))
	span.SetAttribute("cached", BoolValue(true))

	require.Len(t, span.Attributes, 4)
	assert.Equal(t, "root", span.Attributes["endpoint"].Any())
	assert.Equal(t, int64(2), span.Attributes["attempt"].Any())
	assert.Equal(t, 0.5, span.Attributes["ratio"].Any())
	assert.Equal(t, true, span.Attributes["cached"].Any())

	span.AddEvent("retry", map[string]Value{"attempt": IntValue(1)})
	require.Len(t, span.Events, 1)
	assert.Equal(t, "retry", span.Events[0].Name)
	assert.False(t, span.Events[0].Time.IsZero())
}

func TestSpanImmutableAfterEnd(t *testing.T) {
	span := newTestSpan()
	require.True(t, span.finish(time.Now()))

	span.SetAttribute("late", StringValue("ignored"))
	span.AddEvent("late", nil)
	span.SetStatus(StatusError)

	assert.Empty(t, span.Attributes)
	assert.Empty(t, span.Events)
	assert.Equal(t, StatusUnset, span.Status())
}

func TestSpanFinishIdempotent(t *testing.T) {
	span := newTestSpan()

	first := time.Now()
	require.True(t, span.finish(first))
	assert.False(t, span.finish(first.Add(time.Second)))
	assert.Equal(t, first, span.EndTime)
	assert.True(t, span.Ended())
	assert.GreaterOrEqual(t, span.EndTime.UnixNano(), span.StartTime.UnixNano())
}

func TestSpanContext(t *testing.T) {
	span := newTestSpan()
	tc := span.Context()

	assert.Equal(t, span.TraceID, tc.TraceID)
	assert.Equal(t, span.SpanID, tc.SpanID)
	assert.Equal(t, span.ParentSpanID, tc.ParentSpanID)
	assert.True(t, tc.Sampled)
}

func TestSpanRecord(t *testing.T) {
	span := newTestSpan()
	span.SetAttribute("endpoint", StringValue("root"))
	span.SetStatus(StatusError)
	require.True(t, span.finish(time.Now()))

	record := NewSpanRecord(span)

	assert.Equal(t, string(span.TraceID), record.TraceID)
	assert.Equal(t, string(span.SpanID), record.SpanID)
	require.NotNil(t, record.ParentSpanID)
	assert.Equal(t, string(span.ParentSpanID), *record.ParentSpanID)
	assert.Equal(t, "ERROR", record.Status)
	assert.Equal(t, "root", record.Attributes["endpoint"])
}

func TestSpanRecordRootHasNilParent(t *testing.T) {
	span := newTestSpan()
	span.ParentSpanID = ""

	record := NewSpanRecord(span)
	assert.Nil(t, record.ParentSpanID)
}
