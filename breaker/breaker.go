// Package breaker provides a minimal, thread-safe circuit breaker for
// gating calls to unreliable remote operations.
//
// States:
//   - Closed: requests flow normally; failures are counted.
//   - Open: requests fail fast with a classified CircuitOpen error; after
//     OpenTimeout the breaker transitions to HalfOpen.
//   - HalfOpen: a limited number of probe requests are allowed through;
//     if all succeed the breaker closes, any failure reopens it.
//
// A breaker protects one class of remote operation. Compose it inside a
// retry loop (retry around breaker, not the reverse) so that one
// externally visible attempt maps to one pass through the breaker.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/pagecraft-ai/keystone/errclass"
)

// State represents the current circuit breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// String returns the state name for logs and metrics labels.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the circuit breaker parameters. It is immutable once the
// breaker is constructed.
type Config struct {
	// FailureThreshold is the number of consecutive failures in Closed
	// state before the breaker trips to Open.
	FailureThreshold int

	// OpenTimeout is how long the breaker stays Open before a call may
	// transition it to HalfOpen.
	OpenTimeout time.Duration

	// HalfOpenMaxSuccess is the number of consecutive successes required
	// in HalfOpen state to close the breaker again. The shipped default
	// is 1: a single successful probe closes the breaker.
	HalfOpenMaxSuccess int

	// OnStateChange, when non-nil, is invoked after every state
	// transition with the new state. It runs with the breaker's internal
	// lock held, so it must not call back into the breaker.
	OnStateChange func(State)
}

// Breaker is a minimal circuit breaker. All methods are safe for
// concurrent use.
type Breaker struct {
	mu sync.Mutex

	cfg Config

	state     State
	failures  int // consecutive failures in Closed
	successes int // consecutive successes in HalfOpen
	openedAt  time.Time
	nowFunc   func() time.Time // for testing; defaults to time.Now
}

// New creates a Breaker with the given configuration.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.HalfOpenMaxSuccess <= 0 {
		cfg.HalfOpenMaxSuccess = 1
	}
	return &Breaker{
		cfg:     cfg,
		state:   Closed,
		nowFunc: time.Now,
	}
}

// Do runs op through the breaker b. When the breaker is Open and the
// recovery timeout has not elapsed, op is never invoked and Do returns a
// classified CircuitOpen error — "we didn't try", as opposed to "we tried
// and failed". When op is allowed to run and fails, its own error is
// propagated and the failure recorded.
func Do[T any](ctx context.Context, b *Breaker, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if !b.Allow() {
		return zero, errclass.New(errclass.CircuitOpen, "circuit breaker is open")
	}
	result, err := op(ctx)
	if err != nil {
		b.OnFailure()
		return zero, err
	}
	b.OnSuccess()
	return result, nil
}

// State returns the current state of the breaker. In Open state it may
// auto-transition to HalfOpen if the timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkOpenTimeout()
	return b.state
}

// Allow reports whether a request is allowed through. It returns true
// when the breaker is Closed, or HalfOpen with remaining probe slots. It
// returns false when the breaker is Open (and the timeout has not yet
// elapsed).
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkOpenTimeout()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		return b.successes < b.cfg.HalfOpenMaxSuccess
	default: // Open
		return false
	}
}

// OnSuccess records a successful request.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxSuccess {
			b.transition(Closed)
			b.failures = 0
			b.successes = 0
		}
	}
}

// OnFailure records a failed request.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.toOpen()
		}
	case HalfOpen:
		b.toOpen()
	}
}

// Reset forces the breaker back to Closed with zero failure count. It is
// an administrative operation with immediate effect.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Closed {
		b.transition(Closed)
	}
	b.failures = 0
	b.successes = 0
}

// checkOpenTimeout transitions from Open to HalfOpen when the timeout has
// elapsed. Must be called with b.mu held.
func (b *Breaker) checkOpenTimeout() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(HalfOpen)
		b.successes = 0
	}
}

func (b *Breaker) toOpen() {
	b.transition(Open)
	b.openedAt = b.now()
	b.successes = 0
}

// transition sets the state and fires the observer. Must be called with
// b.mu held.
func (b *Breaker) transition(s State) {
	if b.state == s {
		return
	}
	b.state = s
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(s)
	}
}

func (b *Breaker) now() time.Time {
	if b.nowFunc != nil {
		return b.nowFunc()
	}
	return time.Now()
}
