package storage

import (
	"context"
	"time"

	"github.com/iudanet/chatsync/internal/models"
)

// MessageStorage defines interface for conversation messages persistence.
// Every mutating call is idempotent for the same (user, idempotency key) pair:
// a replayed request returns the already stored result with replayed=true.
type MessageStorage interface {
	// CreateMessage stores a new message; msg.ClientID is the idempotency key.
	// Returns the stored message (existing one on replay).
	CreateMessage(ctx context.Context, msg *models.Message) (stored *models.Message, replayed bool, err error)

	// GetMessage retrieves a message with reactions.
	// Returns ErrMessageNotFound if message doesn't exist
	GetMessage(ctx context.Context, id string) (*models.Message, error)

	// ListMessages returns messages of a conversation changed at or after since
	// (including edits, deletions and reactions), ordered by (updated_at, id).
	// Non-empty afterID continues a page: only messages after (since, afterID) are returned.
	ListMessages(ctx context.Context, conversationID string, since time.Time, afterID string, limit int) ([]*models.Message, error)

	// UpdateMessage replaces message body. Only the sender may edit.
	UpdateMessage(ctx context.Context, id, userID, body, idempotencyKey string, now time.Time) (msg *models.Message, replayed bool, err error)

	// DeleteMessage marks message as deleted. Only the sender may delete.
	DeleteMessage(ctx context.Context, id, userID, idempotencyKey string, now time.Time) (msg *models.Message, replayed bool, err error)

	// AddReaction adds (user, emoji) reaction. Adding an existing reaction changes nothing.
	AddReaction(ctx context.Context, reaction models.Reaction) (added bool, err error)

	// RemoveReaction removes (user, emoji) reaction. Removing a missing reaction changes nothing.
	RemoveReaction(ctx context.Context, messageID, userID, emoji string, now time.Time) (removed bool, err error)
}
