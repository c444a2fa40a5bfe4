// Package keystone provides client-side caching and resilience primitives
// for applications calling expensive, unreliable remote services: a
// bounded TTL/LRU cache with durable write-through, a retry loop with
// exponential backoff, a circuit breaker, and composition helpers that
// tie them together without imposing a framework.
package keystone

import (
	"context"

	"github.com/pagecraft-ai/keystone/breaker"
	"github.com/pagecraft-ai/keystone/ratelimit"
	"github.com/pagecraft-ai/keystone/retry"
	"github.com/pagecraft-ai/keystone/tracing"
)

// Operation is the minimal unit of remote work that middlewares wrap: a
// nullary call that produces a value or fails.
type Operation[T any] func(ctx context.Context) (T, error)

// Middleware transforms an Operation, allowing pre/post behavior
// composition.
type Middleware[T any] func(Operation[T]) Operation[T]

// Chain composes middlewares from left to right, i.e., Chain(A, B)(op) => A(B(op)).
func Chain[T any](mw ...Middleware[T]) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

// Wrap applies the middleware chain to an operation and returns the
// wrapped operation.
func Wrap[T any](op Operation[T], mw ...Middleware[T]) Operation[T] {
	if len(mw) == 0 {
		return op
	}
	return Chain(mw...)(op)
}

// Retrying returns a Middleware running the operation through a retry
// loop. Compose it outside Breaking, so one externally visible attempt
// maps to one pass through the breaker.
func Retrying[T any](cfg retry.Config) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			return retry.Do(ctx, cfg, next)
		}
	}
}

// Breaking returns a Middleware gating the operation behind a circuit
// breaker.
func Breaking[T any](b *breaker.Breaker) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			return breaker.Do(ctx, b, next)
		}
	}
}

// Limited returns a Middleware pacing the operation through a token
// bucket. The wait is abandoned when ctx is done.
func Limited[T any](l *ratelimit.Limiter) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return func(ctx context.Context) (T, error) {
			if err := l.Wait(ctx); err != nil {
				var zero T
				return zero, err
			}
			return next(ctx)
		}
	}
}

// Traced returns a Middleware running the operation inside an
// OpenTelemetry span. A nil cfg makes it a passthrough.
func Traced[T any](cfg *tracing.Config, name string) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		return tracing.Operation(cfg, name, next)
	}
}
