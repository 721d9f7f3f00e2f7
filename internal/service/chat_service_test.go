package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/realtime"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

func TestChatService_PostChatMessage(t *testing.T) {
	p := newPlatform(t, ModerationOptions{})
	user := principalOf(p.addUser(false, false))
	admin := principalOf(p.addUser(true, false))
	ctx := context.Background()

	first, err := p.chatSvc.PostChatMessage(ctx, user, "  hi there ")
	require.NoError(t, err)
	assert.Equal(t, "hi there", first.Message)
	assert.False(t, first.IsFromAdmin)
	assert.Equal(t, user.ID, first.FromUserID)

	stream, err := p.feed.Open(ctx, realtime.ChannelChat)
	require.NoError(t, err)
	defer stream.Close()
	assert.Equal(t, 1, stream.SnapshotLen())

	second, err := p.chatSvc.PostChatMessage(ctx, admin, "welcome")
	require.NoError(t, err)
	assert.True(t, second.IsFromAdmin)

	ev := nextEvent(t, stream)
	assert.True(t, ev.Snapshot)
	assert.Equal(t, first.ID, ev.Chat.ID)

	ev = nextEvent(t, stream)
	assert.False(t, ev.Snapshot)
	assert.Equal(t, second.ID, ev.Chat.ID)

	history, err := p.chatSvc.ListChat(ctx, user, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
}

func TestChatService_PostChatMessageRejected(t *testing.T) {
	p := newPlatform(t, ModerationOptions{})
	user := principalOf(p.addUser(false, false))

	tests := []struct {
		name      string
		principal domain.Principal
		text      string
		wantErr   error
	}{
		{"anonymous", domain.Anonymous(), "hello", domain.ErrNotAuthenticated},
		{"blocked", principalOf(p.addUser(false, true)), "hello", domain.ErrBlocked},
		{"blank", user, " \n\t ", domain.ErrValidationFailed},
		{"too long", user, strings.Repeat("x", domain.MaxChatMessageLength+1), domain.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.chatSvc.PostChatMessage(context.Background(), tt.principal, tt.text)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := p.chatSvc.PostChatMessage(context.Background(), user, strings.Repeat("é", domain.MaxChatMessageLength))
	require.NoError(t, err, "length counts characters, not bytes")
	assert.Len(t, p.chat.items, 1)
}

func TestChatService_ListNotifications(t *testing.T) {
	p := newPlatform(t, ModerationOptions{})
	admin := principalOf(p.addUser(true, false))
	user := principalOf(p.addUser(false, false))
	ctx := context.Background()

	older, err := p.moderation.BroadcastNotification(ctx, admin, "first", "one")
	require.NoError(t, err)
	newer, err := p.moderation.BroadcastNotification(ctx, admin, "second", "two")
	require.NoError(t, err)

	items, err := p.chatSvc.ListNotifications(ctx, user, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID)
	assert.Equal(t, older.ID, items[1].ID)

	_, err = p.chatSvc.ListNotifications(ctx, domain.Anonymous(), repository.ListOptions{})
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
}
