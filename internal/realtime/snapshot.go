package realtime

import (
	"context"
	"slices"

	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// RepositorySnapshot reads channel history from the store.
type RepositorySnapshot struct {
	chats         repository.ChatRepository
	notifications repository.NotificationRepository

	// limit keeps the newest limit records. Zero keeps everything.
	limit int
}

// NewRepositorySnapshot creates a RepositorySnapshot.
func NewRepositorySnapshot(chats repository.ChatRepository, notifications repository.NotificationRepository, limit int) *RepositorySnapshot {
	return &RepositorySnapshot{chats: chats, notifications: notifications, limit: limit}
}

// Snapshot returns the newest records of channel, oldest first.
func (r *RepositorySnapshot) Snapshot(ctx context.Context, channel Channel) ([]Event, error) {
	opts := repository.ListOptions{Limit: r.limit, Descending: r.limit > 0}

	var events []Event
	switch channel {
	case ChannelChat:
		msgs, err := r.chats.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		events = make([]Event, 0, len(msgs))
		for _, m := range msgs {
			events = append(events, NewChatEvent(m))
		}

	case ChannelNotifications:
		ns, err := r.notifications.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		events = make([]Event, 0, len(ns))
		for _, n := range ns {
			events = append(events, NewNotificationEvent(n))
		}

	default:
		_, err := ParseChannel(string(channel))
		return nil, err
	}

	if opts.Descending {
		slices.Reverse(events)
	}
	return events, nil
}

// Ensure RepositorySnapshot implements SnapshotSource.
var _ SnapshotSource = (*RepositorySnapshot)(nil)
