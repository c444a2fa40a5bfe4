// Package cache provides a bounded in-memory TTL/LRU store with optional
// write-through of long-lived keys to a durable blob store, plus a
// best-effort prefetcher. The store never surfaces internal errors to
// callers: blob I/O and serialization failures degrade to a miss or a
// no-op, observable only through the injected metrics hook.
package cache

import (
	"context"
	"time"
)

// Store is the public caching contract exposed to user logic.
type Store interface {
	// Get retrieves a value by key. The boolean indicates a cache hit.
	// A hit refreshes the entry's access statistics.
	Get(ctx context.Context, key string) (any, bool)

	// Set stores a value under key with the given TTL. A zero TTL means
	// the store's default TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration)

	// Has reports whether key resolves to a live entry. It is Get with
	// the value discarded, side effects included: access statistics are
	// refreshed.
	Has(ctx context.Context, key string) bool

	// Delete removes the entry for key (and its durable copy, best
	// effort). It reports whether an in-memory entry existed.
	Delete(ctx context.Context, key string) bool

	// Clear empties the store and resets hit/miss counters. Durable
	// storage is left untouched.
	Clear()

	// Cleanup sweeps all entries, removing the expired ones, and returns
	// how many were removed. It is intended to run on a ticker owned by
	// the process, not by the store itself.
	Cleanup(ctx context.Context) int

	// Stats returns a snapshot of the store's counters.
	Stats() Stats
}

// Stats is a point-in-time snapshot of a store's accounting.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int

	// HitRate is Hits/(Hits+Misses), or 0 when there have been no
	// accesses.
	HitRate float64

	// MemoryBytes is a rough estimate of the store's payload footprint.
	MemoryBytes int64

	// TopKeys lists up to ten keys ranked by descending access count.
	TopKeys []KeyAccess
}

// KeyAccess pairs a key with its access count for stats reporting.
type KeyAccess struct {
	Key         string
	AccessCount int64
}
