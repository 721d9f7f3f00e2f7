package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/lock"
	"github.com/prn-tf/digital-galaxy/internal/realtime"
)

// EventBus persists a record and publishes it while holding the channel
// lock, so publication order on a channel equals insertion order.
type EventBus struct {
	locker    lock.Locker
	publisher realtime.Publisher
	opts      lock.Options
	logger    zerolog.Logger
}

// NewEventBus creates an EventBus.
func NewEventBus(locker lock.Locker, publisher realtime.Publisher, opts lock.Options, logger zerolog.Logger) *EventBus {
	return &EventBus{
		locker:    locker,
		publisher: publisher,
		opts:      opts,
		logger:    logger.With().Str("component", "event_bus").Logger(),
	}
}

// Commit runs create and, if it succeeds, publishes ev on its channel.
// A publish failure is logged and does not undo the create; subscribers
// recover the record from the snapshot when they reconnect.
func (b *EventBus) Commit(ctx context.Context, ev realtime.Event, create func(ctx context.Context) error) error {
	locked := false
	err := lock.WithLock(ctx, b.locker, lock.Keys.Channel(string(ev.Channel)), b.opts, func(ctx context.Context) error {
		locked = true
		if err := create(ctx); err != nil {
			return err
		}

		if err := b.publisher.Publish(ctx, ev); err != nil {
			b.logger.Error().
				Err(err).
				Str("channel", string(ev.Channel)).
				Str("event_id", ev.ID().String()).
				Msg("failed to publish committed event")
		}
		return nil
	})
	if err == nil {
		return nil
	}

	if !locked && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		// Busy channel or unreachable lock backend.
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return internal(err)
}
