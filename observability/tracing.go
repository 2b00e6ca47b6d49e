package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/herald"

// Tracer provides OpenTelemetry tracing for Herald. A nil *Tracer starts
// non-recording spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// NewTracerFromProvider creates a tracer from an explicit provider.
func NewTracerFromProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(tracerName)}
}

func (t *Tracer) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartDispatchSpan starts a span for one inbound interaction.
func (t *Tracer) StartDispatchSpan(ctx context.Context, dispatchID, interactionID string) (context.Context, trace.Span) {
	return t.start(ctx, "herald.dispatch",
		attribute.String("herald.dispatch_id", dispatchID),
		attribute.String("herald.interaction_id", interactionID),
	)
}

// EndDispatchSpan ends a dispatch span with result attributes.
func (t *Tracer) EndDispatchSpan(span trace.Span, state string, statusCode int, err error) {
	span.SetAttributes(
		attribute.String("herald.state", state),
		attribute.Int("http.status_code", statusCode),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// StartSyncSpan starts a span for one registry sync run.
func (t *Tracer) StartSyncSpan(ctx context.Context, runID, guildID string, desired int) (context.Context, trace.Span) {
	return t.start(ctx, "herald.sync",
		attribute.String("herald.sync_id", runID),
		attribute.String("herald.guild_id", guildID),
		attribute.Int("herald.desired", desired),
	)
}

// EndSyncSpan ends a sync span with the number of mutating calls issued.
func (t *Tracer) EndSyncSpan(span trace.Span, calls int, err error) {
	span.SetAttributes(attribute.Int("herald.calls", calls))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
