package keystone

import (
	"context"
	"sync"
	"time"
)

// cleaner is the slice of the cache contract the Sweeper needs.
type cleaner interface {
	Cleanup(ctx context.Context) int
}

// Sweeper periodically sweeps expired entries out of a cache. It is
// owned by the process's composition root: the cache never schedules its
// own timers. Start it once at startup and Stop it on shutdown.
type Sweeper struct {
	store    cleaner
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a Sweeper running store.Cleanup every interval.
func NewSweeper(store cleaner, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: store, interval: interval}
}

// Start launches the background sweep loop. Calling Start on a running
// Sweeper is a no-op. The loop also stops when ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.store.Cleanup(ctx)
			}
		}
	}(s.done)
}

// Stop halts the sweep loop and waits for it to exit. Stop is idempotent
// and safe to call on a Sweeper that was never started.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
