package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("dago-workflow", "test", exporter))

	ctx, parent := StartSpan(context.Background(), "workflow.execute")
	parent.WithAttributes(map[string]string{"workflow_id": "wf-1"})

	_, child := StartSpan(ctx, "instruction.execute")
	EndSpan(child, errors.New("boom"))
	EndSpan(parent, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "instruction.execute", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, codes.Ok, spans[1].Status.Code)
}

func TestNilSpanIsSafe(t *testing.T) {
	var s *Span
	assert.NotPanics(t, func() {
		s.WithAttributes(map[string]string{"a": "b"})
		s.AddEvent("x")
		EndSpan(s, nil)
	})
}
