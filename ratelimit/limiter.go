// Package ratelimit provides a token-bucket limiter backed by
// golang.org/x/time/rate for pacing outbound remote calls, so bursts of
// cache misses don't trip a provider's rate limit in the first place.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter that paces outgoing requests.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter that permits rps requests per second with
// the given burst size.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow reports whether a single request may proceed right now.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// Wait blocks until a token is available or ctx is done. It returns the
// context's error when the wait is abandoned.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
