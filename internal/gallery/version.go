// Package gallery tracks the version stations use to detect registry changes.
package gallery

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key holding the version counter.
const DefaultKey = "gallery:version"

// RedisVersion keeps the counter in Redis so every API replica agrees on it.
type RedisVersion struct {
	client *redis.Client
	key    string
}

// NewRedisVersion uses key, or DefaultKey when key is empty.
func NewRedisVersion(client *redis.Client, key string) *RedisVersion {
	if key == "" {
		key = DefaultKey
	}
	return &RedisVersion{client: client, key: key}
}

// Bump increments the version and returns the new value.
func (v *RedisVersion) Bump(ctx context.Context) (int64, error) {
	return v.client.Incr(ctx, v.key).Result()
}

// Current returns 0 until the first Bump.
func (v *RedisVersion) Current(ctx context.Context) (int64, error) {
	n, err := v.client.Get(ctx, v.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// MemoryVersion is the single-process counter.
type MemoryVersion struct {
	n atomic.Int64
}

// Bump increments the version and returns the new value.
func (v *MemoryVersion) Bump(context.Context) (int64, error) { return v.n.Add(1), nil }

// Current returns the version, 0 before the first bump.
func (v *MemoryVersion) Current(context.Context) (int64, error) { return v.n.Load(), nil }
