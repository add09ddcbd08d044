package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootContext(t *testing.T) {
	tc := NewRootContext()

	assert.True(t, tc.TraceID.IsValid())
	assert.True(t, tc.SpanID.IsValid())
	assert.True(t, tc.IsRoot())
	assert.True(t, tc.Sampled)
	assert.Len(t, string(tc.TraceID), 32)
	assert.Len(t, string(tc.SpanID), 16)
}

func TestNewRootContextUnique(t *testing.T) {
	a := NewRootContext()
	b := NewRootContext()

	assert.NotEqual(t, a.TraceID, b.TraceID)
	assert.NotEqual(t, a.SpanID, b.SpanID)
}

func TestChildOf(t *testing.T) {
	parent := NewRootContext()
	child := ChildOf(parent)

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentSpanID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
	assert.True(t, child.SpanID.IsValid())
	assert.False(t, child.IsRoot())
}

func TestChildOfInheritsSampling(t *testing.T) {
	parent := NewRootContext()
	parent.Sampled = false

	child := ChildOf(parent)
	assert.False(t, child.Sampled)

	overridden := ChildOf(parent, WithSampled(true))
	assert.True(t, overridden.Sampled)
}

func TestIDValidation(t *testing.T) {
	tests := []struct {
		name  string
		trace string
		valid bool
	}{
		{"valid", "4bf92f3577b34da6a3ce929d0e0e4736", true},
		{"all zeros", "00000000000000000000000000000000", false},
		{"too short", "4bf92f3577b34da6", false},
		{"too long", "4bf92f3577b34da6a3ce929d0e0e473600", false},
		{"uppercase rejected", "4BF92F3577B34DA6A3CE929D0E0E4736", false},
		{"non-hex", "4bf92f3577b34da6a3ce929d0e0e473g", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, TraceID(tt.trace).IsValid())
		})
	}

	require.True(t, SpanID("00f067aa0ba902b7").IsValid())
	assert.False(t, SpanID("0000000000000000").IsValid())
	assert.False(t, SpanID("00f067aa").IsValid())
}
