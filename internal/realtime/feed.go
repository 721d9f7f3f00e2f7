package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SnapshotSource reads the stored history of a channel, oldest first.
type SnapshotSource interface {
	Snapshot(ctx context.Context, channel Channel) ([]Event, error)
}

// Feed opens subscriptions that start with a snapshot of stored history.
type Feed struct {
	hub    *Hub
	source SnapshotSource
}

// NewFeed creates a Feed.
func NewFeed(hub *Hub, source SnapshotSource) *Feed {
	return &Feed{hub: hub, source: source}
}

// Open registers a subscription, then reads the snapshot. Events that commit
// while the snapshot is read are buffered live and dropped if the snapshot
// already holds them. The stream closes when ctx is done or Close is called.
func (f *Feed) Open(ctx context.Context, channel Channel) (*Stream, error) {
	sub, err := f.hub.Subscribe(channel)
	if err != nil {
		return nil, err
	}

	snapshot, err := f.source.Snapshot(ctx, channel)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to read %s snapshot: %w", channel, err)
	}

	seen := make(map[uuid.UUID]struct{}, len(snapshot))
	for i := range snapshot {
		snapshot[i].Channel = channel
		snapshot[i].Snapshot = true
		snapshot[i].Seq = 0
		seen[snapshot[i].ID()] = struct{}{}
	}

	s := &Stream{
		sub:      sub,
		snapshot: snapshot,
		seen:     seen,
	}
	s.stop = context.AfterFunc(ctx, sub.Close)
	return s, nil
}

// Stream yields the snapshot followed by live events. It is not safe for
// concurrent use by several readers.
type Stream struct {
	sub      *Subscription
	snapshot []Event
	seen     map[uuid.UUID]struct{}
	stop     func() bool
}

// Channel returns the channel of the stream.
func (s *Stream) Channel() Channel {
	return s.sub.Channel()
}

// SnapshotLen returns the number of snapshot events not yet read.
func (s *Stream) SnapshotLen() int {
	return len(s.snapshot)
}

// Next returns the next event. After the stream is closed it returns
// ErrSubscriptionClosed.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	select {
	case <-s.sub.Done():
		return Event{}, ErrSubscriptionClosed
	default:
	}

	if len(s.snapshot) > 0 {
		ev := s.snapshot[0]
		s.snapshot = s.snapshot[1:]
		return ev, nil
	}

	for {
		ev, err := s.sub.Next(ctx)
		if err != nil {
			return Event{}, err
		}

		if s.seen != nil {
			if _, dup := s.seen[ev.ID()]; dup {
				continue
			}
			// Live events arrive in insertion order, so once one is newer than
			// the snapshot every later one is too.
			s.seen = nil
		}
		return ev, nil
	}
}

// Done is closed when the stream is closed.
func (s *Stream) Done() <-chan struct{} {
	return s.sub.Done()
}

// Close unregisters the stream and drops anything buffered.
func (s *Stream) Close() {
	s.stop()
	s.snapshot = nil
	s.sub.Close()
}
