package errclass

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify_PassesThroughClassified(t *testing.T) {
	orig := New(RateLimited, "slow down")
	got := Classify(fmt.Errorf("calling provider: %w", orig))
	if got != orig {
		t.Fatalf("expected the original classified error, got %v", got)
	}
}

func TestClassify_ContextDeadline(t *testing.T) {
	e := Classify(context.DeadlineExceeded)
	if e.Kind != Timeout {
		t.Fatalf("expected Timeout, got %s", e.Kind)
	}
	if !e.Retryable {
		t.Fatal("expected timeout to be retryable")
	}
}

func TestClassify_ContextCanceled(t *testing.T) {
	e := Classify(context.Canceled)
	if e.Retryable {
		t.Fatal("expected canceled to be non-retryable")
	}
}

func TestClassify_GRPCCodes(t *testing.T) {
	cases := []struct {
		code      codes.Code
		kind      Kind
		retryable bool
	}{
		{codes.InvalidArgument, Validation, false},
		{codes.DeadlineExceeded, Timeout, true},
		{codes.ResourceExhausted, RateLimited, true},
		{codes.Unavailable, ServiceUnavailable, true},
		{codes.Unauthenticated, AuthFailure, false},
		{codes.PermissionDenied, PermissionDenied, false},
		{codes.NotFound, NotFound, false},
		{codes.Internal, Internal, false},
	}
	for _, tc := range cases {
		e := Classify(status.Error(tc.code, "boom"))
		if e.Kind != tc.kind {
			t.Fatalf("code %v: expected kind %s, got %s", tc.code, tc.kind, e.Kind)
		}
		if e.Retryable != tc.retryable {
			t.Fatalf("code %v: expected retryable=%v", tc.code, tc.retryable)
		}
	}
}

func TestClassify_UnknownError(t *testing.T) {
	e := Classify(errors.New("mystery"))
	if e.Kind != Internal {
		t.Fatalf("expected Internal, got %s", e.Kind)
	}
	if e.Retryable {
		t.Fatal("expected unclassified errors to be non-retryable")
	}
}

func TestCircuitOpenNeverRetryable(t *testing.T) {
	if IsRetryable(New(CircuitOpen, "breaker open")) {
		t.Fatal("CircuitOpen must never be retryable")
	}
}

func TestMarkRetryableOverridesDefault(t *testing.T) {
	e := New(Internal, "flaky backend").MarkRetryable(true)
	if !IsRetryable(e) {
		t.Fatal("expected override to make the error retryable")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	e := Wrap(cause, NetworkUnavailable, "fetch failed")
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
}

func TestFromStatusCode(t *testing.T) {
	cases := []struct {
		code int
		kind Kind
	}{
		{400, Validation},
		{401, AuthFailure},
		{403, PermissionDenied},
		{404, NotFound},
		{408, Timeout},
		{422, Validation},
		{429, RateLimited},
		{500, Internal},
		{503, ServiceUnavailable},
	}
	for _, tc := range cases {
		if got := FromStatusCode(tc.code); got != tc.kind {
			t.Fatalf("status %d: expected %s, got %s", tc.code, tc.kind, got)
		}
	}
}
