package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "aave-ledger:processed:"

// RedisTracker shares processed keys between ingest processes
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl}
}

func (r *RedisTracker) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check processed key: %w", err)
	}
	return n > 0, nil
}

// Mark stores the key with SETNX so an existing entry keeps its original expiry
func (r *RedisTracker) Mark(ctx context.Context, key string) error {
	if err := r.client.SetNX(ctx, keyPrefix+key, "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark processed key: %w", err)
	}
	return nil
}

func (r *RedisTracker) Close() error {
	return r.client.Close()
}
