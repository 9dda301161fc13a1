// Package cache holds the Redis client setup and a small JSON value cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis creates a client and verifies the connection with a ping.
func ConnectRedis(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// JSON caches a single JSON-encoded value. Entries are stored under
// <key>:<generation>, and Invalidate bumps the generation held in <key>:gen.
// A Set carries the generation its Get observed, so a fill computed before an
// invalidation lands on a key nobody reads any more. Redis errors are logged
// and treated as misses; the cache never fails a request.
type JSON[T any] struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewJSON[T any](client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *JSON[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSON[T]{client: client, key: key, ttl: ttl, logger: logger}
}

func (c *JSON[T]) genKey() string { return c.key + ":gen" }

func (c *JSON[T]) entryKey(gen int64) string { return c.key + ":" + strconv.FormatInt(gen, 10) }

// Get returns the cached value. On a miss it returns the generation a later
// Set must pass; a negative generation means the cache could not be read and
// the Set will be skipped.
func (c *JSON[T]) Get(ctx context.Context) (T, int64, bool) {
	var zero T
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if err != nil && err != redis.Nil {
		c.logger.Warn("cache generation read failed", "key", c.key, "error", err)
		return zero, -1, false
	}
	raw, err := c.client.Get(ctx, c.entryKey(gen)).Bytes()
	if err == redis.Nil {
		return zero, gen, false
	}
	if err != nil {
		c.logger.Warn("cache get failed", "key", c.key, "error", err)
		return zero, -1, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("cache entry unreadable", "key", c.key, "error", err)
		return zero, gen, false
	}
	return v, gen, true
}

func (c *JSON[T]) Set(ctx context.Context, gen int64, v T) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", c.key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.entryKey(gen), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "key", c.key, "error", err)
	}
}

func (c *JSON[T]) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", "key", c.key, "error", err)
	}
}
