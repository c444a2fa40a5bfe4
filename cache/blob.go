package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// blobPrefix namespaces every durable key: fixed prefix plus the logical
// cache key.
const blobPrefix = "keystone:cache:"

// BlobStore is the durable key-value collaborator the cache writes
// persistable entries through to. Implementations may fail; the cache
// swallows every error and reports it to the metrics hook.
type BlobStore interface {
	// Read returns the payload stored under key. The boolean indicates
	// whether a payload exists.
	Read(ctx context.Context, key string) (string, bool, error)

	// Write stores payload under key, overwriting any previous value.
	Write(ctx context.Context, key, payload string) error

	// Remove deletes the payload stored under key, if any.
	Remove(ctx context.Context, key string) error
}

// persistablePrefixes are the key-name patterns representing long-lived,
// low-volatility content categories. Keys outside these categories are
// per-request results and are never persisted.
var persistablePrefixes = []string{
	"template:",
	"config:",
	"industry:",
	"docs:",
}

// DefaultPersistable reports whether key belongs to a persistable content
// category.
func DefaultPersistable(key string) bool {
	for _, p := range persistablePrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func namespaced(key string) string {
	return blobPrefix + key
}

// blobEnvelope is the durable payload format: the value plus enough
// metadata to re-evaluate expiry after a restart.
type blobEnvelope struct {
	Data      any   `json:"data"`
	Timestamp int64 `json:"timestamp"` // epoch millis
	TTL       int64 `json:"ttl"`       // millis
}

func encodeEnvelope(value any, createdAt time.Time, ttl time.Duration) (string, error) {
	b, err := json.Marshal(blobEnvelope{
		Data:      value,
		Timestamp: createdAt.UnixMilli(),
		TTL:       ttl.Milliseconds(),
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEnvelope(payload string) (value any, createdAt time.Time, ttl time.Duration, err error) {
	var env blobEnvelope
	if err = json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, time.Time{}, 0, err
	}
	return env.Data, time.UnixMilli(env.Timestamp), time.Duration(env.TTL) * time.Millisecond, nil
}

// writeBlob serializes and writes through a persistable entry. Failures
// (serialization, storage quota, transport) are swallowed and reported to
// the hook; the in-memory entry is already live either way.
func (c *Bounded) writeBlob(ctx context.Context, key string, value any, createdAt time.Time, ttl time.Duration) {
	payload, err := encodeEnvelope(value, createdAt, ttl)
	if err != nil {
		c.hook.PersistError("encode", err)
		return
	}
	if err := c.blob.Write(ctx, namespaced(key), payload); err != nil {
		c.hook.PersistError("write", err)
	}
}

// readBlob fetches and decodes the durable copy for key. Any failure
// degrades to a miss.
func (c *Bounded) readBlob(ctx context.Context, key string) (value any, createdAt time.Time, ttl time.Duration, ok bool) {
	payload, found, err := c.blob.Read(ctx, namespaced(key))
	if err != nil {
		c.hook.PersistError("read", err)
		return nil, time.Time{}, 0, false
	}
	if !found {
		return nil, time.Time{}, 0, false
	}
	value, createdAt, ttl, err = decodeEnvelope(payload)
	if err != nil {
		c.hook.PersistError("decode", err)
		return nil, time.Time{}, 0, false
	}
	return value, createdAt, ttl, true
}

// MemoryBlob is an in-process BlobStore used in tests and as a default
// when no durable backend is configured. Failure injection fields let
// tests simulate quota and transport errors.
type MemoryBlob struct {
	mu   sync.Mutex
	data map[string]string

	// When non-nil, the corresponding operation fails with this error.
	ReadErr   error
	WriteErr  error
	RemoveErr error
}

// NewMemoryBlob creates an empty in-process blob store.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{data: make(map[string]string)}
}

// Read returns the payload stored under key.
func (m *MemoryBlob) Read(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return "", false, m.ReadErr
	}
	payload, ok := m.data[key]
	return payload, ok, nil
}

// Write stores payload under key.
func (m *MemoryBlob) Write(_ context.Context, key, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.data[key] = payload
	return nil
}

// Remove deletes the payload stored under key.
func (m *MemoryBlob) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.data, key)
	return nil
}

// Len reports how many payloads the store holds.
func (m *MemoryBlob) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
