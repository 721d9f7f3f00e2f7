package realtime

import (
	"context"
	"errors"
	"sync"
)

// ErrSubscriptionClosed is returned by Next once the subscription is closed.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Subscription is one registration on a hub channel.
// Its mailbox is unbounded: push appends to the backlog and signals a
// one-slot channel, so the hub never waits for a slow consumer.
type Subscription struct {
	hub     *Hub
	channel Channel

	mu      sync.Mutex
	backlog []Event
	closed  bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSubscription(hub *Hub, channel Channel) *Subscription {
	return &Subscription{
		hub:     hub,
		channel: channel,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Channel returns the subscribed channel.
func (s *Subscription) Channel() Channel {
	return s.channel
}

// push appends ev to the backlog. It reports false once the subscription is closed.
func (s *Subscription) push(ev Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.backlog = append(s.backlog, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

// Next returns the oldest undelivered event, waiting until one arrives,
// ctx is done, or the subscription is closed.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return Event{}, ErrSubscriptionClosed
		}
		if len(s.backlog) > 0 {
			ev := s.backlog[0]
			s.backlog[0] = Event{}
			s.backlog = s.backlog[1:]
			if len(s.backlog) == 0 {
				s.backlog = nil
			}
			s.mu.Unlock()
			return ev, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.done:
			return Event{}, ErrSubscriptionClosed
		case <-s.notify:
		}
	}
}

// Pending returns the number of buffered events.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backlog)
}

// Done is closed when the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close unregisters the subscription and drops its backlog. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)

		s.mu.Lock()
		s.closed = true
		s.backlog = nil
		s.mu.Unlock()

		close(s.done)
	})
}
