// Package realtime fans chat messages and notifications out to connected
// subscribers. Each channel is delivered in one total order, publishers never
// wait for consumers, and a new subscriber receives the stored history
// followed by live events with nothing missed or repeated.
package realtime

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// Channel names an event stream.
type Channel string

const (
	// ChannelChat carries chat messages.
	ChannelChat Channel = "chat"

	// ChannelNotifications carries broadcast notifications.
	ChannelNotifications Channel = "notifications"
)

// Channels lists every known channel.
var Channels = []Channel{ChannelChat, ChannelNotifications}

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelChat, ChannelNotifications:
		return c, nil
	default:
		return "", domain.NewValidationError("channel", fmt.Sprintf("unknown channel %q", s))
	}
}

// Event is one delivery on a channel. Exactly one of Chat and Notification is set.
type Event struct {
	Channel Channel `json:"channel"`

	// Seq is the per-channel delivery sequence of the local hub. Snapshot events carry 0.
	Seq uint64 `json:"seq"`

	// Snapshot marks history replayed when the subscription opened.
	Snapshot bool `json:"snapshot"`

	Chat         *domain.ChatMessage  `json:"chat,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

// NewChatEvent wraps a persisted chat message.
func NewChatEvent(msg *domain.ChatMessage) Event {
	return Event{Channel: ChannelChat, Chat: msg}
}

// NewNotificationEvent wraps a persisted notification.
func NewNotificationEvent(n *domain.Notification) Event {
	return Event{Channel: ChannelNotifications, Notification: n}
}

// ID returns the id of the carried record.
func (e Event) ID() uuid.UUID {
	switch {
	case e.Chat != nil:
		return e.Chat.ID
	case e.Notification != nil:
		return e.Notification.ID
	default:
		return uuid.Nil
	}
}

// Validate checks that the payload matches the channel.
func (e Event) Validate() error {
	switch e.Channel {
	case ChannelChat:
		if e.Chat == nil || e.Notification != nil {
			return fmt.Errorf("chat event must carry exactly one chat message")
		}
	case ChannelNotifications:
		if e.Notification == nil || e.Chat != nil {
			return fmt.Errorf("notification event must carry exactly one notification")
		}
	default:
		return fmt.Errorf("unknown channel %q", e.Channel)
	}
	return nil
}
