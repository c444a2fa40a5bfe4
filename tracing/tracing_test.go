package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pagecraft-ai/keystone/errclass"
)

func recorderConfig() (*Config, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return &Config{TracerProvider: tp}, sr
}

func TestOperation_NilConfigPassthrough(t *testing.T) {
	op := func(_ context.Context) (int, error) { return 42, nil }
	wrapped := Operation(nil, "fetch", op)

	v, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
}

func TestOperation_RecordsSuccessSpan(t *testing.T) {
	cfg, sr := recorderConfig()

	wrapped := Operation(cfg, "fetch-context", func(_ context.Context) (string, error) {
		return "ok", nil
	})
	if _, err := wrapped(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "fetch-context" {
		t.Fatalf("expected span name %q, got %q", "fetch-context", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Fatalf("expected Ok status, got %v", spans[0].Status().Code)
	}
}

func TestOperation_RecordsClassifiedFailure(t *testing.T) {
	cfg, sr := recorderConfig()

	wrapped := Operation(cfg, "fetch-context", func(_ context.Context) (string, error) {
		return "", errclass.New(errclass.ServiceUnavailable, "down")
	})
	if _, err := wrapped(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("expected Error status, got %v", spans[0].Status().Code)
	}

	var kind string
	for _, attr := range spans[0].Attributes() {
		if attr.Key == attribute.Key("error.kind") {
			kind = attr.Value.AsString()
		}
	}
	if kind != string(errclass.ServiceUnavailable) {
		t.Fatalf("expected error.kind %q, got %q", errclass.ServiceUnavailable, kind)
	}
}

func TestAttemptEvent(t *testing.T) {
	cfg, sr := recorderConfig()

	wrapped := Operation(cfg, "flaky", func(ctx context.Context) (int, error) {
		AttemptEvent(ctx, 1, errclass.New(errclass.Timeout, "slow"))
		return 1, nil
	})
	if _, err := wrapped(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	events := spans[0].Events()
	if len(events) != 1 || events[0].Name != "retry" {
		t.Fatalf("expected a retry event, got %+v", events)
	}
}

func TestAttemptEvent_NoSpanIsNoOp(t *testing.T) {
	// Must not panic without a recording span in ctx.
	AttemptEvent(context.Background(), 1, errclass.New(errclass.Timeout, "slow"))
}
