// Package tracing wraps OpenTelemetry span creation for the pipeline
// executor and bulk coordinator, and exposes the active trace/span ids so the
// logging package can stitch log lines to the span that produced them.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "blundertutor"

// Tracer returns the tracer registered under this module's instrumentation
// scope on whatever TracerProvider the host process configured (otel's
// default no-op provider makes every span free when none was set).
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan begins a span named `name` as a child of any span already in
// ctx, returning the derived context and the span; callers must End it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{}
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return Tracer().Start(ctx, name, opts...)
}

// ExtractIDs returns the active trace/span ids from ctx as lowercase hex,
// or empty strings when no span is recording.
func ExtractIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
