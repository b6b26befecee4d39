package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

const redisKeyPrefix = "fraudscore:last_bulk:"

// RedisCache stores the latest bulk result as a Redis hash. Each process
// writes under its own instance key, so a restarted process starts empty.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache. A zero ttl keeps the entry until
// Close. A positive ttl is a lease: the key survives only while Heartbeat
// keeps renewing it, so the entry of a process that died without Close is
// eventually reclaimed. Idleness alone never drops a live process's entry.
func NewRedisCache(client *redis.Client, instanceID uuid.UUID, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		key:    redisKeyPrefix + instanceID.String(),
		ttl:    ttl,
	}
}

// Put overwrites the hash in a single transaction.
func (c *RedisCache) Put(ctx context.Context, entry model.CachedTable) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key)
		pipe.HSet(ctx, c.key,
			"handle", entry.Handle.String(),
			"data", entry.Data,
			"rows", entry.Rows,
			"created_at", entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if c.ttl > 0 {
			pipe.Expire(ctx, c.key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store bulk result in redis: %w", err)
	}
	return nil
}

// Latest reads the hash back. A missing key is model.ErrNoCacheAvailable.
func (c *RedisCache) Latest(ctx context.Context) (model.CachedTable, error) {
	vals, err := c.client.HGetAll(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(vals) == 0) {
		return model.CachedTable{}, model.ErrNoCacheAvailable
	}
	if err != nil {
		return model.CachedTable{}, fmt.Errorf("failed to read bulk result from redis: %w", err)
	}

	handle, err := model.ParseCacheHandle(vals["handle"])
	if err != nil {
		return model.CachedTable{}, fmt.Errorf("corrupt cache handle in redis: %w", err)
	}
	rows, err := strconv.Atoi(vals["rows"])
	if err != nil {
		return model.CachedTable{}, fmt.Errorf("corrupt row count in redis: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, vals["created_at"])
	if err != nil {
		return model.CachedTable{}, fmt.Errorf("corrupt timestamp in redis: %w", err)
	}

	return model.CachedTable{
		Handle:    handle,
		Data:      []byte(vals["data"]),
		Rows:      rows,
		CreatedAt: createdAt,
	}, nil
}

// Close removes this instance's entry.
func (c *RedisCache) Close(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to delete bulk result from redis: %w", err)
	}
	return nil
}

// Heartbeat renews the lease on this instance's key. EXPIRE on a missing
// key is a no-op, so heartbeating before the first Put is harmless.
func (c *RedisCache) Heartbeat(ctx context.Context) error {
	if c.ttl <= 0 {
		return nil
	}
	if err := c.client.Expire(ctx, c.key, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to renew bulk result lease in redis: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
