package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// testRedisClient skips the test when no Redis is reachable.
func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("skipping integration test: redis not reachable: %v", err)
	}
	t.Cleanup(func() {
		if keys := client.Keys(ctx, "test:json*").Val(); len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = client.Close()
	})
	return client
}

func TestJSON_RoundTrip(t *testing.T) {
	client := testRedisClient(t)
	c := NewJSON[[]string](client, "test:json", time.Minute, nil)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)

	c.Set(ctx, gen, []string{"travel", "food"})
	got, _, ok := c.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, []string{"travel", "food"}, got)

	c.Invalidate(ctx)
	_, _, ok = c.Get(ctx)
	assert.False(t, ok)
}

func TestJSON_StaleSetIsDropped(t *testing.T) {
	client := testRedisClient(t)
	c := NewJSON[[]string](client, "test:json", time.Minute, nil)
	ctx := context.Background()

	_, before, ok := c.Get(ctx)
	assert.False(t, ok)
	c.Invalidate(ctx)
	c.Set(ctx, before, []string{"stale"})

	_, after, ok := c.Get(ctx)
	assert.False(t, ok, "fill from before the invalidation must not be served")
	assert.Greater(t, after, before)

	c.Set(ctx, after, []string{"fresh"})
	got, _, ok := c.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, []string{"fresh"}, got)
}

func TestJSON_UnreachableIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := NewJSON[int](client, "k", time.Minute, nil)

	_, gen, ok := c.Get(context.Background())
	assert.False(t, ok)
	assert.Negative(t, gen)
	c.Set(context.Background(), gen, 1)
	c.Invalidate(context.Background())
}
