package pathprojector

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/kinproj/internal/pathprojector"
)

// Tracer returns a tracer for the pathprojector package.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// startSpan starts the span of one Apply call.
func startSpan(ctx context.Context, queryID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "pathprojector.Apply",
		trace.WithAttributes(attribute.String("pathprojector.query_id", queryID)))
}

// endSpan annotates span with the outcome and ends it.
func endSpan(span trace.Span, o *outcome) {
	span.SetAttributes(
		attribute.Bool("pathprojector.success", o.ok),
		attribute.Int("pathprojector.segments", o.segments),
		attribute.Int("pathprojector.depth", o.depth),
	)
	if !o.ok {
		span.SetStatus(codes.Error, o.reason)
	}
	span.End()
}
