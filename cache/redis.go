package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBlob is a Redis-backed BlobStore. Unlike MemoryBlob it returns
// transport errors to the caller; the Bounded store swallows them,
// reports them to the metrics hook and degrades to a miss or a no-op.
type RedisBlob struct {
	rdb *redis.Client
}

// NewRedisBlob creates a Redis-backed blob store.
func NewRedisBlob(addr, password string, db int) *RedisBlob {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisBlob{rdb: rdb}
}

// Read returns the payload stored under key. A missing key is a plain
// miss, not an error.
func (r *RedisBlob) Read(ctx context.Context, key string) (string, bool, error) {
	payload, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return payload, true, nil
}

// Write stores payload under key with no Redis-side expiration; the
// envelope carries its own TTL and expiry is re-evaluated on rehydration.
func (r *RedisBlob) Write(ctx context.Context, key, payload string) error {
	return r.rdb.Set(ctx, key, payload, 0).Err()
}

// Remove deletes the payload stored under key.
func (r *RedisBlob) Remove(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// Ping checks the Redis connection.
func (r *RedisBlob) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *RedisBlob) Close() error {
	return r.rdb.Close()
}
