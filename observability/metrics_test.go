package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordInteraction("command", 200, 0.01)
	m.RecordHandlerError("component")
	m.TaskStarted()
	m.TaskFinished()
	m.RecordSyncCall("create")
	m.RecordSyncRun("ok", 1.5)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		401: "4xx",
		404: "4xx",
		500: "5xx",
		501: "5xx",
		0:   "other",
	}
	for status, want := range tests {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestNilTracerReturnsParentContext(t *testing.T) {
	var tr *Tracer
	ctx := context.Background()

	got, span := tr.StartDispatchSpan(ctx, "dsp_x", "1")
	if got != ctx {
		t.Fatal("nil tracer should return the parent context")
	}
	tr.EndDispatchSpan(span, "completed", 200, nil)
}

func TestTracerFromProvider(t *testing.T) {
	tr := NewTracerFromProvider(noop.NewTracerProvider())

	_, span := tr.StartSyncSpan(context.Background(), "sync_x", "", 3)
	if span == nil {
		t.Fatal("expected a span")
	}
	tr.EndSyncSpan(span, 2, errors.New("boom"))
}
