package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// newTestClient connects to GALAXY_TEST_REDIS_ADDR or skips the test.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("GALAXY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GALAXY_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCache_Integration(t *testing.T) {
	client := newTestClient(t)
	c := NewCache(client)
	ctx := context.Background()
	prefix := "test:" + domain.NewID().String() + ":"

	_, err := c.Get(ctx, prefix+"missing")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, prefix+"k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, prefix+"k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	n, err := c.Increment(ctx, prefix+"n", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, c.Expire(ctx, prefix+"n", time.Minute))
	ttl, err := client.PTTL(ctx, prefix+"n").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, prefix+"k"))
	_, err = c.Get(ctx, prefix+"k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	_ = c.Delete(ctx, prefix+"n")
}

func TestCache_UnavailableWrapsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewCache(client)
	_, err := c.Increment(context.Background(), "k", 1)
	assert.ErrorIs(t, err, repository.ErrCacheUnavailable)
}
