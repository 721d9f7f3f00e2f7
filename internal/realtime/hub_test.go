package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/metrics"
)

func newTestHub() *Hub {
	return NewHub(metrics.New(), zerolog.Nop())
}

func chatEvent(text string) Event {
	return NewChatEvent(domain.NewChatMessage(domain.Principal{ID: domain.NewID(), Role: domain.RoleUser}, text))
}

func notificationEvent(title string) Event {
	return NewNotificationEvent(domain.NewNotification(title, "body"))
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    Channel
		wantErr bool
	}{
		{"chat", ChannelChat, false},
		{"notifications", ChannelNotifications, false},
		{"admin", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChannel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidationFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvent_Validate(t *testing.T) {
	chat := chatEvent("hi")
	note := notificationEvent("t")

	assert.NoError(t, chat.Validate())
	assert.NoError(t, note.Validate())

	wrong := chat
	wrong.Channel = ChannelNotifications
	assert.Error(t, wrong.Validate())

	both := chat
	both.Notification = note.Notification
	assert.Error(t, both.Validate())

	assert.Error(t, Event{Channel: "other"}.Validate())
}

func TestEvent_JSON(t *testing.T) {
	ev := notificationEvent("Maintenance")
	ev.Seq = 7

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "notifications", decoded["channel"])
	assert.Equal(t, float64(7), decoded["seq"])
	assert.Equal(t, false, decoded["snapshot"])
	assert.NotContains(t, decoded, "chat")
	assert.Contains(t, decoded, "notification")
}

func TestHub_DeliversInPublicationOrder(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	sub, err := h.Subscribe(ChannelChat)
	require.NoError(t, err)
	defer sub.Close()

	var want []Event
	for i := 0; i < 100; i++ {
		ev := chatEvent("m")
		want = append(want, ev)
		require.NoError(t, h.Publish(ctx, ev))
	}

	for i, w := range want {
		got, err := sub.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, w.ID(), got.ID())
		assert.Equal(t, uint64(i+1), got.Seq)
		assert.False(t, got.Snapshot)
	}
	assert.Equal(t, uint64(100), h.LastSeq(ChannelChat))
}

func TestHub_ChannelsAreIsolated(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	chat, _ := h.Subscribe(ChannelChat)
	defer chat.Close()
	notes, _ := h.Subscribe(ChannelNotifications)
	defer notes.Close()

	require.NoError(t, h.Publish(ctx, notificationEvent("n1")))

	got, err := notes.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, ChannelNotifications, got.Channel)
	assert.Equal(t, uint64(1), got.Seq)

	assert.Equal(t, 0, chat.Pending())
	assert.Equal(t, uint64(0), h.LastSeq(ChannelChat))
}

func TestHub_EverySubscriberGetsEachEventOnce(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	subs := make([]*Subscription, 3)
	for i := range subs {
		subs[i], _ = h.Subscribe(ChannelNotifications)
		defer subs[i].Close()
	}

	ev := notificationEvent("hello")
	require.NoError(t, h.Publish(ctx, ev))

	for _, s := range subs {
		got, err := s.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, ev.ID(), got.ID())
		assert.Equal(t, 0, s.Pending())
	}
}

func TestHub_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	slow, _ := h.Subscribe(ChannelChat)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10_000; i++ {
			_ = h.Publish(ctx, chatEvent("flood"))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher blocked on a subscriber that never reads")
	}
	assert.Equal(t, 10_000, slow.Pending())
}

func TestHub_ConcurrentPublishersKeepSequenceDense(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	sub, _ := h.Subscribe(ChannelChat)
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = h.Publish(ctx, chatEvent("x"))
			}
		}()
	}
	wg.Wait()

	for want := uint64(1); want <= 400; want++ {
		got, err := sub.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got.Seq)
	}
}

func TestHub_PublishRejectsInvalidEvent(t *testing.T) {
	h := newTestHub()
	err := h.Publish(context.Background(), Event{Channel: ChannelChat})
	assert.Error(t, err)
	assert.Equal(t, uint64(0), h.LastSeq(ChannelChat))
}

func TestHub_SubscribeUnknownChannel(t *testing.T) {
	_, err := newTestHub().Subscribe("other")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestSubscription_CloseReleases(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	sub, _ := h.Subscribe(ChannelChat)
	require.NoError(t, h.Publish(ctx, chatEvent("pending")))
	assert.Equal(t, 1, h.Subscribers(ChannelChat))

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, h.Subscribers(ChannelChat))
	assert.Equal(t, 0, sub.Pending())

	_, err := sub.Next(ctx)
	assert.ErrorIs(t, err, ErrSubscriptionClosed)

	require.NoError(t, h.Publish(ctx, chatEvent("after close")))
	assert.Equal(t, 0, sub.Pending())
}

func TestSubscription_NextWakesOnClose(t *testing.T) {
	h := newTestHub()
	sub, _ := h.Subscribe(ChannelChat)

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	sub.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrSubscriptionClosed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestSubscription_NextHonorsContext(t *testing.T) {
	h := newTestHub()
	sub, _ := h.Subscribe(ChannelChat)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sub.Next(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestHub_Close(t *testing.T) {
	h := newTestHub()
	a, _ := h.Subscribe(ChannelChat)
	b, _ := h.Subscribe(ChannelNotifications)

	h.Close()

	assert.Equal(t, 0, h.Subscribers(ChannelChat))
	assert.Equal(t, 0, h.Subscribers(ChannelNotifications))
	<-a.Done()
	<-b.Done()
}
