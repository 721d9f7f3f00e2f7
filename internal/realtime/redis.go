package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/metrics"
)

// RedisRelay publishes events through Redis pub/sub so every instance's hub
// receives them. Redis delivers messages of one channel in PUBLISH order,
// and publishers hold the channel lock across PUBLISH, so all instances see
// the same order.
type RedisRelay struct {
	client  redis.UniversalClient
	hub     *Hub
	prefix  string
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisRelay creates a relay that feeds hub. Redis channels are named prefix+channel.
func NewRedisRelay(client redis.UniversalClient, hub *Hub, prefix string, m *metrics.Metrics, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		hub:     hub,
		prefix:  prefix,
		metrics: m,
		logger:  logger.With().Str("component", "redis_relay").Logger(),
	}
}

// Start subscribes to every channel and pumps received events into the hub
// until Close is called. It returns once the subscription is confirmed.
func (r *RedisRelay) Start(ctx context.Context) error {
	names := make([]string, 0, len(Channels))
	for _, c := range Channels {
		names = append(names, r.prefix+string(c))
	}

	pubsub := r.client.Subscribe(ctx, names...)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %v: %w", names, err)
	}

	r.mu.Lock()
	r.pubsub = pubsub
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.pump(pubsub.Channel(), r.done)

	r.logger.Info().Strs("channels", names).Msg("relay subscribed")
	return nil
}

func (r *RedisRelay) pump(msgs <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	for msg := range msgs {
		channel := Channel(strings.TrimPrefix(msg.Channel, r.prefix))

		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			r.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
			continue
		}
		if ev.Channel != channel {
			r.logger.Warn().
				Str("channel", msg.Channel).
				Str("event_channel", string(ev.Channel)).
				Msg("dropping event published on the wrong channel")
			continue
		}
		if err := ev.Validate(); err != nil {
			r.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping invalid event")
			continue
		}

		r.hub.Deliver(ev)
	}
}

// Publish sends ev to Redis. Local subscribers receive it through the relay loop.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	ev.Seq = 0
	ev.Snapshot = false
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := r.client.Publish(ctx, r.prefix+string(ev.Channel), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Channel, err)
	}

	r.metrics.EventPublished(string(ev.Channel))
	return nil
}

// Close unsubscribes and waits for the relay loop to finish.
func (r *RedisRelay) Close() error {
	r.mu.Lock()
	pubsub, done := r.pubsub, r.done
	r.pubsub = nil
	r.mu.Unlock()

	if pubsub == nil {
		return nil
	}

	err := pubsub.Close()
	<-done
	return err
}

// Ensure RedisRelay implements Publisher.
var _ Publisher = (*RedisRelay)(nil)
