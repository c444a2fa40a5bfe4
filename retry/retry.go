package retry

import (
	"context"
	"time"

	"github.com/pagecraft-ai/keystone/errclass"
)

// Config controls the retry behaviour of [Do].
type Config struct {
	// MaxAttempts is the maximum number of times fn is called (including
	// the first attempt). Zero means DefaultMaxAttempts.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Subsequent retries
	// use exponential back-off: BaseDelay * Factor^attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed back-off delay.
	MaxDelay time.Duration

	// Factor is the back-off multiplier. Zero means DefaultFactor.
	Factor float64

	// Jitter adds randomness to the delay. A value of 0.2 means ±20 % of
	// the computed delay. Zero disables jitter.
	Jitter float64

	// MaxElapsed, when non-zero, bounds the total wall-clock time spent
	// across attempts: once the budget would be exceeded by the next
	// back-off wait, Do gives up and returns the last error. Zero means
	// unbounded, matching the historical behaviour.
	MaxElapsed time.Duration

	// ShouldRetry decides whether a failed attempt is worth repeating.
	// Nil means errclass.IsRetryable.
	ShouldRetry func(error) bool

	// OnRetry is invoked after a failed attempt that will be retried,
	// before the back-off wait, with the 1-indexed attempt number and the
	// attempt's error. Observational only; it must not alter control flow.
	OnRetry func(attempt int, err error)

	// OnFinalFailure is invoked exactly once when Do gives up: attempts
	// exhausted, error not retryable, or elapsed budget spent.
	// Observational only.
	OnFinalFailure func(err error)
}

// Defaults applied by [Do] for zero-valued Config fields.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultFactor      = 2.0
)

func (cfg Config) withDefaults() Config {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Factor <= 0 {
		cfg.Factor = DefaultFactor
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = errclass.IsRetryable
	}
	return cfg
}

// Do calls fn up to cfg.MaxAttempts times, retrying only when
// cfg.ShouldRetry accepts the returned error. Between attempts an
// exponential back-off delay (with optional jitter) is applied.
//
// The error returned after the final attempt is always classified via
// errclass.Classify. Intermediate failures are observable only through
// cfg.OnRetry; they are never surfaced mid-sequence.
//
// The context is checked during every back-off wait; if ctx is done the
// function returns immediately with the classified context error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cfg = cfg.withDefaults()
	start := time.Now()

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		var result T
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}

		// Last attempt, or not worth retrying — give up without delay.
		if attempt == cfg.MaxAttempts || !cfg.ShouldRetry(err) {
			break
		}

		delay := backoff(cfg, attempt-1)
		if cfg.MaxElapsed > 0 && time.Since(start)+delay > cfg.MaxElapsed {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			cerr := errclass.Classify(ctx.Err())
			if cfg.OnFinalFailure != nil {
				cfg.OnFinalFailure(cerr)
			}
			return zero, cerr
		case <-timer.C:
		}
	}

	cerr := errclass.Classify(err)
	if cfg.OnFinalFailure != nil {
		cfg.OnFinalFailure(cerr)
	}
	return zero, cerr
}
