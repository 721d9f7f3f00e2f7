package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

func TestRedisRelay_Integration(t *testing.T) {
	addr := os.Getenv("GALAXY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GALAXY_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	prefix := "test:" + domain.NewID().String() + ":"

	// Two instances sharing one Redis.
	hubA, hubB := newTestHub(), newTestHub()
	relayA := NewRedisRelay(client, hubA, prefix, nil, zerolog.Nop())
	relayB := NewRedisRelay(client, hubB, prefix, nil, zerolog.Nop())
	require.NoError(t, relayA.Start(ctx))
	defer relayA.Close()
	require.NoError(t, relayB.Start(ctx))
	defer relayB.Close()

	subA, _ := hubA.Subscribe(ChannelNotifications)
	defer subA.Close()
	subB, _ := hubB.Subscribe(ChannelNotifications)
	defer subB.Close()

	var sent []Event
	for i := 0; i < 20; i++ {
		ev := notificationEvent("n")
		sent = append(sent, ev)
		publisher := relayA
		if i%2 == 1 {
			publisher = relayB
		}
		require.NoError(t, publisher.Publish(ctx, ev))
	}

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, sub := range []*Subscription{subA, subB} {
		for i, want := range sent {
			got, err := sub.Next(readCtx)
			require.NoError(t, err)
			assert.Equal(t, want.ID(), got.ID())
			assert.Equal(t, uint64(i+1), got.Seq)
		}
	}
}

func TestRedisRelay_PublishValidates(t *testing.T) {
	relay := NewRedisRelay(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), newTestHub(), "p:", nil, zerolog.Nop())
	err := relay.Publish(context.Background(), Event{Channel: ChannelChat})
	assert.Error(t, err)
	assert.NoError(t, relay.Close(), "closing a relay that never started is a no-op")
}
