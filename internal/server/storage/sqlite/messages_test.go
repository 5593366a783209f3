package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/internal/server/storage"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	s, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
	}

	return s, cleanup
}

func createTestMessage(t *testing.T, s *Storage, sender, conversation, body string) *models.Message {
	t.Helper()
	msg, replayed, err := s.CreateMessage(context.Background(), &models.Message{
		ConversationID: conversation,
		SenderID:       sender,
		ClientID:       uuid.New().String(),
		Body:           body,
	})
	require.NoError(t, err)
	require.False(t, replayed)
	return msg
}

func TestMessageStorage_CreateMessage(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	msg := &models.Message{
		ID:             "local-1234",
		ConversationID: "conv-1",
		SenderID:       "alice",
		ClientID:       "key-1",
		Body:           "hello",
		Status:         models.MessageStatusPending,
	}

	stored, replayed, err := s.CreateMessage(ctx, msg)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, "local-1234", stored.ID, "server assigns its own id")
	assert.Empty(t, stored.Status)
	assert.Equal(t, "local-1234", msg.ID, "input must not be modified")

	got, err := s.GetMessage(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Body)
	assert.Equal(t, "key-1", got.ClientID)
	assert.Equal(t, stored.CreatedAt, got.CreatedAt)
}

func TestMessageStorage_CreateMessage_IdempotentReplay(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first, replayed, err := s.CreateMessage(ctx, &models.Message{
		ConversationID: "conv-1", SenderID: "alice", ClientID: "key-1", Body: "hello",
	})
	require.NoError(t, err)
	require.False(t, replayed)

	second, replayed, err := s.CreateMessage(ctx, &models.Message{
		ConversationID: "conv-1", SenderID: "alice", ClientID: "key-1", Body: "hello",
	})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	// Тот же ключ другого пользователя - другое сообщение
	other, replayed, err := s.CreateMessage(ctx, &models.Message{
		ConversationID: "conv-1", SenderID: "bob", ClientID: "key-1", Body: "hello",
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, first.ID, other.ID)

	msgs, err := s.ListMessages(ctx, "conv-1", time.Time{}, "", 100)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestMessageStorage_GetMessage_NotFound(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetMessage(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
}

func TestMessageStorage_UpdateMessage(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	msg := createTestMessage(t, s, "alice", "conv-1", "hello")
	now := time.Now().Add(time.Second)

	tests := []struct {
		wantErr  error
		name     string
		userID   string
		body     string
		key      string
		replayed bool
	}{
		{name: "sender edits", userID: "alice", body: "edited", key: "edit-1"},
		{name: "replay returns stored", userID: "alice", body: "edited", key: "edit-1", replayed: true},
		{name: "other user forbidden", userID: "bob", body: "hacked", key: "edit-2", wantErr: storage.ErrForbidden},
		{name: "new key edits again", userID: "alice", body: "x", key: "edit-3", replayed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, replayed, err := s.UpdateMessage(ctx, msg.ID, tt.userID, tt.body, tt.key, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.replayed, replayed)
			assert.Equal(t, tt.body, got.Body)
		})
	}

	_, _, err := s.DeleteMessage(ctx, msg.ID, "alice", "edit-1", now)
	assert.ErrorIs(t, err, storage.ErrIdempotencyConflict)

	_, _, err = s.UpdateMessage(ctx, "missing", "alice", "x", "", now)
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
}

func TestMessageStorage_DeleteMessage(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	msg := createTestMessage(t, s, "alice", "conv-1", "hello")
	now := time.Now().Add(time.Second)

	_, _, err := s.DeleteMessage(ctx, msg.ID, "bob", "del-0", now)
	assert.ErrorIs(t, err, storage.ErrForbidden)

	deleted, replayed, err := s.DeleteMessage(ctx, msg.ID, "alice", "del-1", now)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.True(t, deleted.Deleted)
	assert.Empty(t, deleted.Body)

	again, replayed, err := s.DeleteMessage(ctx, msg.ID, "alice", "del-2", now)
	require.NoError(t, err)
	assert.True(t, replayed, "deleting twice changes nothing")
	assert.True(t, again.Deleted)

	_, _, err = s.UpdateMessage(ctx, msg.ID, "alice", "revive", "edit-9", now)
	assert.ErrorIs(t, err, storage.ErrMessageDeleted)
}

func TestMessageStorage_ListMessagesSince(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	old := createTestMessage(t, s, "alice", "conv-1", "old")
	createTestMessage(t, s, "alice", "conv-2", "other conversation")

	checkpoint := time.Now().Add(time.Second)
	fresh, _, err := s.CreateMessage(ctx, &models.Message{
		ConversationID: "conv-1", SenderID: "bob", ClientID: "k", Body: "fresh",
		CreatedAt: checkpoint.Add(time.Second),
	})
	require.NoError(t, err)

	msgs, err := s.ListMessages(ctx, "conv-1", checkpoint, "", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, fresh.ID, msgs[0].ID)

	// Реакция на старое сообщение делает его снова видимым для догрузки
	_, err = s.AddReaction(ctx, models.Reaction{
		MessageID: old.ID, UserID: "bob", Emoji: "👍", CreatedAt: checkpoint.Add(2 * time.Second),
	})
	require.NoError(t, err)

	msgs, err = s.ListMessages(ctx, "conv-1", checkpoint, "", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, old.ID, msgs[1].ID)
	assert.Len(t, msgs[1].Reactions, 1)

	limited, err := s.ListMessages(ctx, "conv-1", time.Time{}, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMessageStorage_ListMessagesCursor(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// Все сообщения в одной миллисекунде: страницы различаются только по id
	at := time.Now().Truncate(time.Millisecond)
	created := make(map[string]bool)
	for i := range 5 {
		msg, _, err := s.CreateMessage(ctx, &models.Message{
			ConversationID: "conv-1", SenderID: "alice", ClientID: fmt.Sprintf("key-%d", i), Body: "same ms",
			CreatedAt: at,
		})
		require.NoError(t, err)
		created[msg.ID] = true
	}

	seen := make(map[string]bool)
	since, after := at, ""
	for range 10 {
		page, err := s.ListMessages(ctx, "conv-1", since, after, 2)
		require.NoError(t, err)
		for _, msg := range page {
			assert.False(t, seen[msg.ID], "message %s returned twice", msg.ID)
			seen[msg.ID] = true
		}
		if len(page) < 2 {
			break
		}
		last := page[len(page)-1]
		since, after = last.UpdatedAt, last.ID
	}
	assert.Equal(t, created, seen)
}

func TestMessageStorage_Reactions(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	msg := createTestMessage(t, s, "alice", "conv-1", "hello")
	now := time.Now()

	added, err := s.AddReaction(ctx, models.Reaction{MessageID: msg.ID, UserID: "bob", Emoji: "👍", CreatedAt: now})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddReaction(ctx, models.Reaction{MessageID: msg.ID, UserID: "bob", Emoji: "👍", CreatedAt: now})
	require.NoError(t, err)
	assert.False(t, added, "duplicate reaction is ignored")

	added, err = s.AddReaction(ctx, models.Reaction{MessageID: msg.ID, UserID: "carol", Emoji: "👍", CreatedAt: now})
	require.NoError(t, err)
	assert.True(t, added)

	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, got.Reactions, 2)

	removed, err := s.RemoveReaction(ctx, msg.ID, "bob", "👍", now)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveReaction(ctx, msg.ID, "bob", "👍", now)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.AddReaction(ctx, models.Reaction{MessageID: "missing", UserID: "bob", Emoji: "👍"})
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
}

func TestStorage_DeleteIdempotencyKeysBefore(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	msg := createTestMessage(t, s, "alice", "conv-1", "hello")

	old := time.Now().Add(-48 * time.Hour)
	_, _, err := s.UpdateMessage(ctx, msg.ID, "alice", "v1", "old-key", old)
	require.NoError(t, err)
	_, _, err = s.UpdateMessage(ctx, msg.ID, "alice", "v2", "new-key", time.Now())
	require.NoError(t, err)

	removed, err := s.DeleteIdempotencyKeysBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	require.NoError(t, s.Ping(ctx))
}
