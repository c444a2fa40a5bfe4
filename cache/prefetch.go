package cache

import (
	"context"
	"time"
)

// Loader produces the value for one prefetchable key.
type Loader func(ctx context.Context) (any, error)

// Prefetcher proactively warms a Bounded store with keys related to the
// one currently in use. It is strictly best-effort: population happens
// off the critical path, failures are silent, and a live entry is never
// overwritten. Nothing may depend on a prefetched key being present by a
// specific time.
type Prefetcher struct {
	store   *Bounded
	ttl     time.Duration
	loaders map[string]Loader
	related func(current string, history []string) []string
}

// NewPrefetcher creates a Prefetcher storing prefetched values with the
// given TTL. related maps the current key and an ordered recent-use
// history to the keys worth warming; nil means "warm the history".
func NewPrefetcher(store *Bounded, ttl time.Duration, related func(current string, history []string) []string) *Prefetcher {
	if related == nil {
		related = func(_ string, history []string) []string { return history }
	}
	return &Prefetcher{
		store:   store,
		ttl:     ttl,
		loaders: make(map[string]Loader),
		related: related,
	}
}

// Register binds a loader to a prefetchable key. Keys without a loader
// are skipped.
func (p *Prefetcher) Register(key string, loader Loader) {
	p.loaders[key] = loader
}

// Prefetch schedules background population of the keys related to
// current. It returns immediately; the loaders run on their own
// goroutine. Loader errors and panics are swallowed.
func (p *Prefetcher) Prefetch(ctx context.Context, current string, history []string) {
	keys := p.related(current, history)
	if len(keys) == 0 {
		return
	}

	go func() {
		defer func() { _ = recover() }()
		for _, key := range keys {
			if key == current {
				continue
			}
			loader, ok := p.loaders[key]
			if !ok {
				continue
			}
			if p.store.peek(key) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			value, err := loader(ctx)
			if err != nil {
				continue
			}
			p.store.setIfAbsent(key, value, p.ttl)
		}
	}()
}

// peek reports whether key has a live entry without touching access
// statistics. Internal to prefetching; callers use Has.
func (c *Bounded) peek(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	return ok && !el.Value.(*entry).expired(c.nowFunc())
}
