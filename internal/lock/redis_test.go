package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
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

func TestRedisLocker_Integration(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	prefix := "test:lock:" + time.Now().Format("150405.000000") + ":"

	a := NewRedisLocker(client, prefix)
	b := NewRedisLocker(client, prefix)

	ok, err := a.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	released, err := b.Release(ctx, "k")
	require.NoError(t, err)
	assert.False(t, released, "a locker never releases a lock it does not hold")

	held, err := b.IsHeld(ctx, "k")
	require.NoError(t, err)
	assert.True(t, held)

	released, err = a.Release(ctx, "k")
	require.NoError(t, err)
	assert.True(t, released)

	ok, err = b.AcquireWithRetry(ctx, "k", time.Minute, 3, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	_, _ = b.Release(ctx, "k")
}

func TestRedisLocker_ExpiredLockNotStolen(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	prefix := "test:lock:" + time.Now().Format("150405.000000") + ":"

	a := NewRedisLocker(client, prefix)
	b := NewRedisLocker(client, prefix)

	ok, err := a.Acquire(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	ok, err = b.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	released, err := a.Release(ctx, "k")
	require.NoError(t, err)
	assert.False(t, released)

	held, err := b.IsHeld(ctx, "k")
	require.NoError(t, err)
	assert.True(t, held)
	_, _ = b.Release(ctx, "k")
}
