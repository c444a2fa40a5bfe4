package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pagecraft-ai/keystone/metrics"
)

const (
	// DefaultMemoryCeilingBytes is the estimated-footprint threshold above
	// which OptimizeMemory starts shedding least-accessed entries.
	DefaultMemoryCeilingBytes = 8 << 20 // 8 MiB

	// topKeysLimit bounds the TopKeys slice in Stats.
	topKeysLimit = 10

	// Rough fixed cost per entry (struct, map slot, list element) used by
	// the footprint estimate.
	entryOverheadBytes = 96

	// Fallback payload size when a value cannot be serialized.
	fallbackValueBytes = 64
)

// entry is one live key. All fields are guarded by the owning store's
// mutex.
type entry struct {
	key            string
	value          any
	createdAt      time.Time
	ttl            time.Duration
	accessCount    int64
	lastAccessedAt time.Time
	size           int64
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Bounded is an in-memory key→value store with per-entry TTL, LRU
// eviction at capacity, hit/miss accounting, and optional write-through
// of persistable keys to a durable blob store.
//
// Bounded never returns an error from any operation: serialization and
// blob I/O failures degrade to a miss or a no-op and are reported to the
// metrics hook. The cache must never be the reason a caller fails.
type Bounded struct {
	mu sync.Mutex

	maxSize    int
	defaultTTL time.Duration
	ceiling    int64

	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	hits    uint64
	misses  uint64
	mem     int64

	blob        BlobStore
	persistable func(string) bool
	hook        metrics.Hook
	nowFunc     func() time.Time // for testing; defaults to time.Now
}

// Option configures a Bounded store.
type Option func(*Bounded)

// WithBlobStore attaches a durable blob store. Keys matching the
// persistable predicate are written through to it and rehydrated from it
// after a restart.
func WithBlobStore(bs BlobStore) Option {
	return func(c *Bounded) { c.blob = bs }
}

// WithPersistable replaces the predicate deciding which keys are mirrored
// into the blob store. The default is DefaultPersistable.
func WithPersistable(pred func(key string) bool) Option {
	return func(c *Bounded) { c.persistable = pred }
}

// WithHook attaches a metrics hook observing hits, misses, evictions and
// swallowed persistence errors.
func WithHook(h metrics.Hook) Option {
	return func(c *Bounded) { c.hook = h }
}

// WithMemoryCeiling overrides the estimated-footprint threshold used by
// OptimizeMemory.
func WithMemoryCeiling(bytes int64) Option {
	return func(c *Bounded) { c.ceiling = bytes }
}

// New creates a Bounded store holding at most maxSize entries. Entries
// stored without an explicit TTL use defaultTTL.
func New(maxSize int, defaultTTL time.Duration, opts ...Option) *Bounded {
	c := &Bounded{
		maxSize:     maxSize,
		defaultTTL:  defaultTTL,
		ceiling:     DefaultMemoryCeilingBytes,
		entries:     make(map[string]*list.Element),
		lru:         list.New(),
		persistable: DefaultPersistable,
		hook:        metrics.Nop{},
		nowFunc:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get retrieves a value by key. On a hit the entry's access count and
// last-access time are refreshed. On an in-memory miss for a persistable
// key, the blob store is consulted and an unexpired durable copy is
// transparently rehydrated and counted as a hit. Blob read failures are
// swallowed and counted as a miss.
func (c *Bounded) Get(ctx context.Context, key string) (any, bool) {
	c.mu.Lock()
	now := c.nowFunc()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		if e.expired(now) {
			c.removeLocked(el)
			c.misses++
			c.mu.Unlock()
			c.hook.CacheMiss()
			return nil, false
		}
		e.accessCount++
		e.lastAccessedAt = now
		c.lru.MoveToFront(el)
		c.hits++
		v := e.value
		c.mu.Unlock()
		c.hook.CacheHit()
		return v, true
	}

	tryBlob := c.blob != nil && c.persistable(key)
	c.mu.Unlock()

	if tryBlob {
		if v, createdAt, ttl, ok := c.readBlob(ctx, key); ok {
			c.mu.Lock()
			now = c.nowFunc()
			// A Set may have landed while the blob read was in
			// flight. That entry is newer than the durable copy,
			// so it wins.
			if el, live := c.entries[key]; live {
				e := el.Value.(*entry)
				if !e.expired(now) {
					e.accessCount++
					e.lastAccessedAt = now
					c.lru.MoveToFront(el)
					c.hits++
					v := e.value
					c.mu.Unlock()
					c.hook.CacheHit()
					return v, true
				}
				c.removeLocked(el)
			}
			if now.Sub(createdAt) <= ttl {
				el := c.insertLocked(key, v, ttl, createdAt, now)
				el.Value.(*entry).accessCount = 1
				c.hits++
				c.mu.Unlock()
				c.hook.CacheHit()
				return v, true
			}
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	c.hook.CacheMiss()
	return nil, false
}

// Set inserts or overwrites the entry for key with fresh timestamps and
// an access count of 1. A zero ttl means the store's default TTL. When
// the store is full and key is new, the least-recently-used entry is
// evicted first. Persistable keys are additionally written through to
// the blob store, best effort.
func (c *Bounded) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	now := c.nowFunc()
	c.insertLocked(key, value, ttl, now, now)
	persist := c.blob != nil && c.persistable(key)
	c.mu.Unlock()

	if persist {
		c.writeBlob(ctx, key, value, now, ttl)
	}
}

// Has reports whether key resolves to a live entry. It is Get with the
// value discarded — access statistics are refreshed, so callers needing
// a side-effect-free existence check should use Stats instead.
func (c *Bounded) Has(ctx context.Context, key string) bool {
	_, ok := c.Get(ctx, key)
	return ok
}

// Delete removes the in-memory entry and, for persistable keys, the
// durable copy (best effort). It reports whether an in-memory entry
// existed.
func (c *Bounded) Delete(ctx context.Context, key string) bool {
	c.mu.Lock()
	el, ok := c.entries[key]
	if ok {
		c.removeLocked(el)
	}
	persist := c.blob != nil && c.persistable(key)
	c.mu.Unlock()

	if persist {
		if err := c.blob.Remove(ctx, namespaced(key)); err != nil {
			c.hook.PersistError("remove", err)
		}
	}
	return ok
}

// Clear empties the store and resets the hit/miss counters. Durable
// storage is left untouched.
func (c *Bounded) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.hits = 0
	c.misses = 0
	c.mem = 0
}

// Cleanup sweeps all entries, removing the expired ones and their durable
// copies, and returns how many were removed. Sweeps are idempotent and
// commute with Get/Set on unrelated keys; running Cleanup twice in a row
// with no new expirations is a no-op the second time.
func (c *Bounded) Cleanup(ctx context.Context) int {
	c.mu.Lock()
	now := c.nowFunc()
	var expired []string
	for key, el := range c.entries {
		if el.Value.(*entry).expired(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		c.removeLocked(c.entries[key])
	}
	c.mu.Unlock()

	for _, key := range expired {
		c.hook.CacheEviction("expired")
		if c.blob != nil && c.persistable(key) {
			if err := c.blob.Remove(ctx, namespaced(key)); err != nil {
				c.hook.PersistError("remove", err)
			}
		}
	}
	return len(expired)
}

// Stats returns a snapshot of the store's counters.
func (c *Bounded) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Size:        len(c.entries),
		MemoryBytes: c.mem,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}

	top := make([]KeyAccess, 0, len(c.entries))
	for key, el := range c.entries {
		top = append(top, KeyAccess{Key: key, AccessCount: el.Value.(*entry).accessCount})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].AccessCount != top[j].AccessCount {
			return top[i].AccessCount > top[j].AccessCount
		}
		return top[i].Key < top[j].Key
	})
	if len(top) > topKeysLimit {
		top = top[:topKeysLimit]
	}
	s.TopKeys = top
	return s
}

// OptimizeMemory runs Cleanup, then — if the estimated footprint still
// exceeds the ceiling — evicts the bottom 25% of entries ranked by
// ascending access count. Least-accessed eviction is deliberately
// distinct from the LRU order used at capacity.
func (c *Bounded) OptimizeMemory(ctx context.Context) {
	c.Cleanup(ctx)

	c.mu.Lock()
	if c.mem <= c.ceiling || len(c.entries) == 0 {
		c.mu.Unlock()
		return
	}

	ranked := make([]*list.Element, 0, len(c.entries))
	for _, el := range c.entries {
		ranked = append(ranked, el)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Value.(*entry).accessCount < ranked[j].Value.(*entry).accessCount
	})

	n := len(ranked) / 4
	if n < 1 {
		n = 1
	}
	for _, el := range ranked[:n] {
		c.removeLocked(el)
	}
	c.mu.Unlock()

	for i := 0; i < n; i++ {
		c.hook.CacheEviction("memory")
	}
}

// insertLocked inserts or overwrites key and returns its list element.
// Capacity eviction happens here, before a genuinely new key is added.
// Must be called with c.mu held.
func (c *Bounded) insertLocked(key string, value any, ttl time.Duration, createdAt, accessedAt time.Time) *list.Element {
	size := estimateSize(key, value)

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		c.mem += size - e.size
		e.value = value
		e.createdAt = createdAt
		e.ttl = ttl
		e.accessCount = 1
		e.lastAccessedAt = accessedAt
		e.size = size
		c.lru.MoveToFront(el)
		return el
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if back := c.lru.Back(); back != nil {
			c.removeLocked(back)
			c.hook.CacheEviction("capacity")
		}
	}

	e := &entry{
		key:            key,
		value:          value,
		createdAt:      createdAt,
		ttl:            ttl,
		accessCount:    1,
		lastAccessedAt: accessedAt,
		size:           size,
	}
	el := c.lru.PushFront(e)
	c.entries[key] = el
	c.mem += size
	return el
}

// removeLocked drops an entry from the map, the LRU list and the memory
// accounting. Must be called with c.mu held.
func (c *Bounded) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.entries, e.key)
	c.lru.Remove(el)
	c.mem -= e.size
}

// setIfAbsent stores value only when key has no live entry. Used by the
// prefetcher so that background population can never clobber data a
// caller already sees.
func (c *Bounded) setIfAbsent(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	if el, ok := c.entries[key]; ok && !el.Value.(*entry).expired(now) {
		return
	}
	c.insertLocked(key, value, ttl, now, now)
}

// estimateSize approximates an entry's payload footprint. Values that
// cannot be serialized count a fixed fallback; the estimate only has to
// be stable, not exact.
func estimateSize(key string, value any) int64 {
	n := int64(len(key)) + entryOverheadBytes
	switch v := value.(type) {
	case string:
		n += int64(len(v))
	case []byte:
		n += int64(len(v))
	default:
		if b, err := json.Marshal(value); err == nil {
			n += int64(len(b))
		} else {
			n += fallbackValueBytes
		}
	}
	return n
}
