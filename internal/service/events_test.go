package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/lock"
	"github.com/prn-tf/digital-galaxy/internal/realtime"
)

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(ctx context.Context, ev realtime.Event) error {
	p.calls++
	return errors.New("relay down")
}

func testLockOptions() lock.Options {
	return lock.Options{TTL: time.Second, MaxRetries: 200, RetryDelay: time.Millisecond}
}

func TestEventBus_Commit(t *testing.T) {
	msg := domain.NewChatMessage(principalOf(testUser(false, false)), "hello")
	ev := realtime.NewChatEvent(msg)

	t.Run("publishes after create", func(t *testing.T) {
		hub := realtime.NewHub(nil, zerolog.Nop())
		sub, err := hub.Subscribe(realtime.ChannelChat)
		require.NoError(t, err)
		defer sub.Close()

		bus := NewEventBus(lock.NewMemoryLocker(), hub, testLockOptions(), zerolog.Nop())
		created := false
		require.NoError(t, bus.Commit(context.Background(), ev, func(ctx context.Context) error {
			created = true
			assert.Equal(t, 0, sub.Pending())
			return nil
		}))
		assert.True(t, created)
		assert.Equal(t, 1, sub.Pending())
	})

	t.Run("create failure skips publish", func(t *testing.T) {
		pub := &failingPublisher{}
		bus := NewEventBus(lock.NewMemoryLocker(), pub, testLockOptions(), zerolog.Nop())

		err := bus.Commit(context.Background(), ev, func(ctx context.Context) error {
			return domain.ErrUnavailable
		})
		require.ErrorIs(t, err, domain.ErrUnavailable)
		assert.Equal(t, 0, pub.calls)
	})

	t.Run("publish failure keeps the commit", func(t *testing.T) {
		pub := &failingPublisher{}
		bus := NewEventBus(lock.NewMemoryLocker(), pub, testLockOptions(), zerolog.Nop())

		err := bus.Commit(context.Background(), ev, func(ctx context.Context) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, 1, pub.calls)
	})

	t.Run("busy channel is unavailable", func(t *testing.T) {
		locker := lock.NewMemoryLocker()
		defer locker.Close()
		ok, err := locker.Acquire(context.Background(), lock.Keys.Channel(string(realtime.ChannelChat)), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		bus := NewEventBus(locker, realtime.NewHub(nil, zerolog.Nop()), lock.Options{TTL: time.Second}, zerolog.Nop())
		err = bus.Commit(context.Background(), ev, func(ctx context.Context) error {
			t.Fatal("create must not run without the lock")
			return nil
		})
		require.ErrorIs(t, err, domain.ErrUnavailable)
	})

	t.Run("unexpected error is internal", func(t *testing.T) {
		bus := NewEventBus(lock.NewMemoryLocker(), realtime.NewHub(nil, zerolog.Nop()), testLockOptions(), zerolog.Nop())
		err := bus.Commit(context.Background(), ev, func(ctx context.Context) error {
			return errors.New("disk on fire")
		})
		require.ErrorIs(t, err, ErrInternalError)
	})
}
