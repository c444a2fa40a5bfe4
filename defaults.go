package keystone

import (
	"time"

	"github.com/pagecraft-ai/keystone/breaker"
	"github.com/pagecraft-ai/keystone/retry"
)

// TTL tiers for data of different volatility. These are compile-time
// constants, not runtime configuration: callers pick the tier matching
// how quickly the cached data goes stale.
const (
	// TTLStatic suits long-lived, low-volatility content: templates,
	// configuration, documentation indexes.
	TTLStatic = 24 * time.Hour

	// TTLDerived suits computed results that change with their inputs.
	TTLDerived = time.Hour

	// TTLEphemeral suits per-request results and fallback values.
	TTLEphemeral = 5 * time.Minute
)

// Cache and sweep defaults.
const (
	DefaultCacheSize     = 500
	DefaultSweepInterval = 10 * time.Minute
)

// DefaultRetry returns the recommended retry configuration: three
// attempts with exponential backoff from one second, capped at thirty.
func DefaultRetry() retry.Config {
	return retry.Config{
		MaxAttempts: retry.DefaultMaxAttempts,
		BaseDelay:   retry.DefaultBaseDelay,
		MaxDelay:    retry.DefaultMaxDelay,
		Factor:      retry.DefaultFactor,
	}
}

// DefaultBreaker returns the recommended circuit breaker configuration:
// trip after five consecutive failures, probe again after a minute, and
// close on a single successful probe.
func DefaultBreaker() breaker.Config {
	return breaker.Config{
		FailureThreshold:   5,
		OpenTimeout:        time.Minute,
		HalfOpenMaxSuccess: 1,
	}
}
