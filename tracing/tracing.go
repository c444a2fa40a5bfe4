// Package tracing provides an optional OpenTelemetry layer for guarded
// remote operations. It is entirely opt-in — with a nil [Config] every
// wrapper is a no-op passthrough.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pagecraft-ai/keystone/errclass"
)

// Config holds the OpenTelemetry configuration used by the operation
// wrappers.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil
	// the global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider
}

// tracer returns a configured [trace.Tracer].
func (c *Config) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/pagecraft-ai/keystone/tracing")
}

// Operation wraps op so that every invocation runs inside a client span
// named name, with the classified error kind recorded on failure. If cfg
// is nil the operation is returned unchanged.
func Operation[T any](cfg *Config, name string, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	if cfg == nil {
		return op
	}
	return func(ctx context.Context) (T, error) {
		ctx, span := cfg.tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		result, err := op(ctx)
		recordStatus(span, err)
		return result, err
	}
}

// AttemptEvent records a retry attempt as an event on the span carried by
// ctx. Wire it into retry.Config.OnRetry:
//
//	cfg.OnRetry = func(attempt int, err error) {
//		tracing.AttemptEvent(ctx, attempt, err)
//	}
//
// Without a recording span in ctx this is a no-op.
func AttemptEvent(ctx context.Context, attempt int, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("retry", trace.WithAttributes(
		attribute.Int("retry.attempt", attempt),
		attribute.String("error.kind", string(errclass.KindOf(err))),
	))
}

// recordStatus sets the span status and records the classified error kind.
func recordStatus(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.kind", string(errclass.KindOf(err))))
	span.SetStatus(codes.Error, err.Error())
}
