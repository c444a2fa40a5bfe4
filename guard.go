package keystone

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pagecraft-ai/keystone/breaker"
	"github.com/pagecraft-ai/keystone/cache"
	"github.com/pagecraft-ai/keystone/errclass"
	"github.com/pagecraft-ai/keystone/metrics"
	"github.com/pagecraft-ai/keystone/ratelimit"
	"github.com/pagecraft-ai/keystone/retry"
)

// Guard bundles a cache, a circuit breaker and a retry policy around one
// class of remote operation: cache hit returns immediately; a miss runs
// the operation through the retry loop (each attempt gated by the
// breaker) and caches the result; exhausted retries fall back to the
// optional local loader, whose result is cached with the ephemeral TTL.
//
// A Guard is an explicit instance constructed with its configuration —
// there is no package-level ambient state. One Guard per remote-operation
// class; concurrent misses for the same key are deduplicated.
type Guard[T any] struct {
	store    cache.Store
	brk      *breaker.Breaker
	retry    retry.Config
	limiter  *ratelimit.Limiter
	fallback Operation[T]
	hook     metrics.Hook

	sf singleflight.Group
}

// GuardOption configures a Guard.
type GuardOption[T any] func(*Guard[T])

// WithStore replaces the Guard's cache. The default is a Bounded store
// with DefaultCacheSize entries and the derived TTL tier.
func WithStore[T any](s cache.Store) GuardOption[T] {
	return func(g *Guard[T]) { g.store = s }
}

// WithBreaker replaces the Guard's circuit breaker.
func WithBreaker[T any](b *breaker.Breaker) GuardOption[T] {
	return func(g *Guard[T]) { g.brk = b }
}

// WithRetry replaces the Guard's retry configuration.
func WithRetry[T any](cfg retry.Config) GuardOption[T] {
	return func(g *Guard[T]) { g.retry = cfg }
}

// WithLimiter paces remote calls through a token bucket before the first
// attempt.
func WithLimiter[T any](l *ratelimit.Limiter) GuardOption[T] {
	return func(g *Guard[T]) { g.limiter = l }
}

// WithFallback supplies a cheaper local computation used when retries
// are exhausted. Its result is cached with the ephemeral TTL. When the
// fallback itself fails, the remote error is returned.
func WithFallback[T any](op Operation[T]) GuardOption[T] {
	return func(g *Guard[T]) { g.fallback = op }
}

// WithGuardHook attaches a metrics hook observing retries and breaker
// transitions. Attach the same hook to the store via cache.WithHook to
// observe cache traffic too.
func WithGuardHook[T any](h metrics.Hook) GuardOption[T] {
	return func(g *Guard[T]) { g.hook = h }
}

// NewGuard creates a Guard, filling unset pieces with the package
// defaults.
func NewGuard[T any](opts ...GuardOption[T]) *Guard[T] {
	g := &Guard[T]{retry: DefaultRetry()}
	for _, o := range opts {
		o(g)
	}
	if g.hook == nil {
		g.hook = metrics.Nop{}
	}
	if g.store == nil {
		g.store = cache.New(DefaultCacheSize, TTLDerived, cache.WithHook(g.hook))
	}
	if g.brk == nil {
		cfg := DefaultBreaker()
		cfg.OnStateChange = func(s breaker.State) { g.hook.BreakerState(s.String()) }
		g.brk = breaker.New(cfg)
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = func(attempt int, _ error) { g.hook.RetryAttempt(attempt) }
	}
	return g
}

// Do returns the value for key, consulting the cache first and invoking
// op through the resilience stack on a miss. The retry loop wraps the
// breaker, not the reverse, so each attempt maps to one pass through the
// breaker.
func (g *Guard[T]) Do(ctx context.Context, key string, ttl time.Duration, op Operation[T]) (T, error) {
	var zero T

	if v, ok := g.store.Get(ctx, key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		// Rehydrated values can come back as decoded JSON rather than T;
		// treat the type mismatch as a miss and refetch.
	}

	v, err, _ := g.sf.Do(key, func() (any, error) {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, errclass.Classify(err)
			}
		}

		result, err := retry.Do(ctx, g.retry, func(ctx context.Context) (T, error) {
			return breaker.Do(ctx, g.brk, op)
		})
		if err == nil {
			g.store.Set(ctx, key, result, ttl)
			return result, nil
		}

		if g.fallback != nil {
			if fb, ferr := g.fallback(ctx); ferr == nil {
				g.store.Set(ctx, key, fb, TTLEphemeral)
				return fb, nil
			}
		}
		return nil, err
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Breaker exposes the Guard's circuit breaker for administrative
// operations (State, Reset).
func (g *Guard[T]) Breaker() *breaker.Breaker {
	return g.brk
}

// Store exposes the Guard's cache.
func (g *Guard[T]) Store() cache.Store {
	return g.store
}

// WithCache returns a memoized version of fn: results are stored in the
// cache under keyFn(arg) with the given TTL, and later calls with an
// equal key are served from the cache. Errors are never cached.
func WithCache[A, T any](store cache.Store, ttl time.Duration, keyFn func(A) string, fn func(context.Context, A) (T, error)) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		key := keyFn(arg)
		if v, ok := store.Get(ctx, key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
		result, err := fn(ctx, arg)
		if err != nil {
			var zero T
			return zero, err
		}
		store.Set(ctx, key, result, ttl)
		return result, nil
	}
}
