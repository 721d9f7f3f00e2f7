package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/metrics"
)

// Publisher delivers persisted records to subscribers.
// Implementations must preserve the order of calls for each channel and must not block on consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Hub is the in-process fan-out for every channel.
type Hub struct {
	mu   sync.Mutex
	subs map[Channel]map[*Subscription]struct{}
	seq  map[Channel]*atomic.Uint64

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewHub creates a Hub. m may be nil.
func NewHub(m *metrics.Metrics, logger zerolog.Logger) *Hub {
	h := &Hub{
		subs:    make(map[Channel]map[*Subscription]struct{}),
		seq:     make(map[Channel]*atomic.Uint64),
		metrics: m,
		logger:  logger.With().Str("component", "realtime_hub").Logger(),
	}
	for _, c := range Channels {
		h.subs[c] = make(map[*Subscription]struct{})
		h.seq[c] = new(atomic.Uint64)
	}
	return h
}

// Subscribe registers a subscription. Events delivered after Subscribe
// returns are buffered in its mailbox until read.
func (h *Hub) Subscribe(channel Channel) (*Subscription, error) {
	if _, err := ParseChannel(string(channel)); err != nil {
		return nil, err
	}

	s := newSubscription(h, channel)

	h.mu.Lock()
	h.subs[channel][s] = struct{}{}
	n := len(h.subs[channel])
	h.mu.Unlock()

	h.metrics.SubscriberAdded(string(channel))
	h.logger.Debug().Str("channel", string(channel)).Int("subscribers", n).Msg("subscribed")
	return s, nil
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[s.channel][s]
	delete(h.subs[s.channel], s)
	h.mu.Unlock()

	if ok {
		h.metrics.SubscriberRemoved(string(s.channel))
	}
}

// Deliver assigns the next sequence number of the channel and appends ev
// to every subscription's mailbox. It never blocks on a consumer.
func (h *Hub) Deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seq, ok := h.seq[ev.Channel]
	if !ok {
		h.logger.Warn().Str("channel", string(ev.Channel)).Msg("dropping event for unknown channel")
		return
	}
	ev.Seq = seq.Add(1)
	ev.Snapshot = false

	for s := range h.subs[ev.Channel] {
		s.push(ev)
	}
}

// Publish delivers ev locally. It satisfies Publisher for single-node deployments.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	h.Deliver(ev)
	h.metrics.EventPublished(string(ev.Channel))
	return nil
}

// LastSeq returns the last sequence number assigned on channel.
func (h *Hub) LastSeq(channel Channel) uint64 {
	if seq, ok := h.seq[channel]; ok {
		return seq.Load()
	}
	return 0
}

// Subscribers returns the number of registered subscriptions on channel.
func (h *Hub) Subscribers(channel Channel) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[channel])
}

// Close closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

// Ensure Hub implements Publisher.
var _ Publisher = (*Hub)(nil)
