package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the generator tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("primegen")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts a span for the entire generation run.
	StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span)

	// StartLoadSpan starts a span for the checkpoint replay.
	StartLoadSpan(ctx context.Context) (context.Context, trace.Span)

	// StartFlushSpan starts a span for one checkpoint flush.
	StartFlushSpan(ctx context.Context, batchSize int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartRunSpan starts a span for the entire generation run.
func (m *otelSpanManager) StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "primegen.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartLoadSpan starts a span for the checkpoint replay.
func (m *otelSpanManager) StartLoadSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "primegen.load",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartFlushSpan starts a span for one checkpoint flush.
func (m *otelSpanManager) StartFlushSpan(ctx context.Context, batchSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "primegen.flush",
		trace.WithAttributes(
			attribute.Int("flush.primes", batchSize),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
