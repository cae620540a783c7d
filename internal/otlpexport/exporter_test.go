package otlpexport

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/reactmon/internal/calltree"
)

func requestTree() *calltree.Tree {
	return &calltree.Tree{
		ID: "tree-7",
		Actions: []calltree.Action{
			{
				Name: "render", StartTime: 1000, StopTime: 1500,
				Actions: []calltree.Action{
					{Name: "diff", StartTime: 1100, StopTime: 1200},
					{Name: "commit", StartTime: 1200, StopTime: 1450},
				},
			},
		},
	}
}

func TestBuildRequestSpanStructure(t *testing.T) {
	anchor := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	req, err := buildRequest(requestTree(), anchor)
	require.NoError(t, err)
	require.Len(t, req.ResourceSpans, 1)
	require.Len(t, req.ResourceSpans[0].ScopeSpans, 1)

	spans := req.ResourceSpans[0].ScopeSpans[0].Spans
	require.Len(t, spans, 3)

	// Pre-order: render, diff, commit.
	assert.Equal(t, "render", spans[0].Name)
	assert.Equal(t, "diff", spans[1].Name)
	assert.Equal(t, "commit", spans[2].Name)

	// Root has no parent; children point at the root span.
	assert.Empty(t, spans[0].ParentSpanId)
	assert.Equal(t, spans[0].SpanId, spans[1].ParentSpanId)
	assert.Equal(t, spans[0].SpanId, spans[2].ParentSpanId)

	// All spans share the trace id derived from the tree id.
	for _, sp := range spans {
		assert.Equal(t, spans[0].TraceId, sp.TraceId)
		assert.Len(t, sp.TraceId, 16)
		assert.Len(t, sp.SpanId, 8)
	}
	assert.NotEqual(t, spans[0].SpanId, spans[1].SpanId)

	// Offsets are microseconds from the first action's start.
	base := uint64(anchor.UnixNano())
	assert.Equal(t, base, spans[0].StartTimeUnixNano)
	assert.Equal(t, base+500_000, spans[0].EndTimeUnixNano)
	assert.Equal(t, base+100_000, spans[1].StartTimeUnixNano)
	assert.Equal(t, base+200_000, spans[1].EndTimeUnixNano)
}

func TestBuildRequestStableTraceID(t *testing.T) {
	a, err := buildRequest(requestTree(), time.Now())
	require.NoError(t, err)
	b, err := buildRequest(requestTree(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	idA := a.ResourceSpans[0].ScopeSpans[0].Spans[0].TraceId
	idB := b.ResourceSpans[0].ScopeSpans[0].Spans[0].TraceId
	assert.True(t, bytes.Equal(idA, idB), "trace id must be stable across exports")

	other := requestTree()
	other.ID = "tree-8"
	c, err := buildRequest(other, time.Now())
	require.NoError(t, err)
	idC := c.ResourceSpans[0].ScopeSpans[0].Spans[0].TraceId
	assert.False(t, bytes.Equal(idA, idC), "distinct trees must get distinct trace ids")
}

func TestBuildRequestRejectsEmptyTree(t *testing.T) {
	_, err := buildRequest(&calltree.Tree{ID: "empty"}, time.Now())
	assert.Error(t, err)
}

func TestBuildRequestResourceAttributes(t *testing.T) {
	req, err := buildRequest(requestTree(), time.Now())
	require.NoError(t, err)

	attrs := req.ResourceSpans[0].Resource.Attributes
	got := map[string]string{}
	for _, kv := range attrs {
		got[kv.Key] = kv.Value.GetStringValue()
	}
	assert.Equal(t, serviceName, got["service.name"])
	assert.Equal(t, "tree-7", got["calltree.id"])
}
