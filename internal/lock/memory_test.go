package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Close()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	held, err := l.IsHeld(ctx, "k")
	require.NoError(t, err)
	assert.True(t, held)

	released, err := l.Release(ctx, "k")
	require.NoError(t, err)
	assert.True(t, released)

	released, err = l.Release(ctx, "k")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestMemoryLocker_Expiry(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Close()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	held, err := l.IsHeld(ctx, "k")
	require.NoError(t, err)
	assert.False(t, held)

	ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_AcquireWithRetry(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Close()
	ctx := context.Background()

	_, _ = l.Acquire(ctx, "k", time.Minute)

	ok, err := l.AcquireWithRetry(ctx, "k", time.Minute, 2, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_, _ = l.Release(context.Background(), "k")
	}()

	ok, err = l.AcquireWithRetry(ctx, "k", time.Minute, 1000, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_AcquireWithRetryCancelled(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Close()

	_, _ = l.Acquire(context.Background(), "k", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ok, err := l.AcquireWithRetry(ctx, "k", time.Minute, 1_000_000, time.Millisecond)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLock_SerializesCallers(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Close()
	ctx := context.Background()
	opts := Options{TTL: time.Minute, MaxRetries: 10_000, RetryDelay: time.Millisecond}

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(ctx, l, Keys.Channel("chat"), opts, func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)

	held, err := l.IsHeld(ctx, Keys.Channel("chat"))
	require.NoError(t, err)
	assert.False(t, held)
}

func TestWithLock_NotAcquired(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Close()
	ctx := context.Background()

	_, _ = l.Acquire(ctx, "busy", time.Minute)

	called := false
	err := WithLock(ctx, l, "busy", Options{TTL: time.Minute}, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrNotAcquired))
	assert.False(t, called)
}

func TestWithLock_ReturnsFnError(t *testing.T) {
	l := NewMemoryLocker()
	defer l.Close()
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithLock(ctx, l, "k", Options{TTL: time.Minute}, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	held, _ := l.IsHeld(ctx, "k")
	assert.False(t, held)
}

func TestKeys_Channel(t *testing.T) {
	assert.Equal(t, "lock:channel:notifications", Keys.Channel("notifications"))
}
