// Package errclass defines the classified error type shared by the retry
// loop, the circuit breaker, and callers that map failures to user-facing
// guidance. Classification answers exactly two questions: what kind of
// failure is this, and is it worth retrying.
package errclass

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies a failure category. Kinds are string-based for
// debuggability and natural JSON serialization.
type Kind string

const (
	// Validation indicates malformed caller input. Never retried.
	Validation Kind = "VALIDATION"

	// NetworkUnavailable indicates the remote endpoint could not be reached.
	NetworkUnavailable Kind = "NETWORK_UNAVAILABLE"

	// Timeout indicates an operation exceeded its time limit.
	Timeout Kind = "TIMEOUT"

	// RateLimited indicates the remote service rejected the call for
	// exceeding its rate limit.
	RateLimited Kind = "RATE_LIMITED"

	// ServiceUnavailable indicates the remote service is up but refusing
	// or failing to serve requests.
	ServiceUnavailable Kind = "SERVICE_UNAVAILABLE"

	// AuthFailure indicates missing or invalid credentials.
	AuthFailure Kind = "AUTH_FAILURE"

	// PermissionDenied indicates valid credentials without sufficient rights.
	PermissionDenied Kind = "PERMISSION_DENIED"

	// NotFound indicates the requested resource does not exist.
	NotFound Kind = "NOT_FOUND"

	// Internal indicates an unexpected failure with no more specific kind.
	Internal Kind = "INTERNAL"

	// CircuitOpen is synthetic: produced only by the circuit breaker's
	// fast-fail path, never by a remote call. It distinguishes "we didn't
	// try" from "we tried and failed" and is never retried.
	CircuitOpen Kind = "CIRCUIT_OPEN"
)

// defaultRetryable maps each kind to its default retry decision.
// Kinds absent from the map are not retryable.
var defaultRetryable = map[Kind]bool{
	NetworkUnavailable: true,
	Timeout:            true,
	RateLimited:        true,
	ServiceUnavailable: true,
}

// Error is a classified error. It carries enough structure for the retry
// loop to decide control flow and for callers to render guidance, while
// remaining compatible with errors.Is / errors.As via Unwrap.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Retryable  bool
	Details    map[string]any

	cause error
}

// New creates a classified error with the kind's default retryability.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: defaultRetryable[kind],
	}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap classifies an existing error, preserving it as the cause.
func Wrap(err error, kind Kind, message string) *Error {
	e := New(kind, message)
	e.cause = err
	return e
}

// WithStatus attaches an HTTP-ish status code and returns the error.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// WithDetail attaches a key/value pair to the error's details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// MarkRetryable overrides the default retry decision.
func (e *Error) MarkRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Classify normalizes an arbitrary error into a classified *Error.
// Already-classified errors (anywhere in the chain) pass through
// unchanged. Context timeouts map to Timeout, context cancellation to a
// non-retryable Internal, gRPC status errors by code, and anything else
// to a non-retryable Internal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, Timeout, "operation deadline exceeded")
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(err, Internal, "operation canceled").MarkRetryable(false)
	}
	if ge, ok := fromGRPC(err); ok {
		return ge
	}
	return Wrap(err, Internal, "unclassified failure")
}

// IsRetryable reports whether err should be retried. Unclassified errors
// are classified first, so the answer is consistent everywhere.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}

// KindOf returns the classified kind of err.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return Classify(err).Kind
}

// FromStatusCode classifies an HTTP status code into a kind. Used by
// callers whose remote operations speak plain HTTP.
func FromStatusCode(code int) Kind {
	switch {
	case code == 400 || code == 422:
		return Validation
	case code == 401:
		return AuthFailure
	case code == 403:
		return PermissionDenied
	case code == 404:
		return NotFound
	case code == 408:
		return Timeout
	case code == 429:
		return RateLimited
	case code == 503:
		return ServiceUnavailable
	case code >= 500:
		return Internal
	default:
		return Internal
	}
}
