package storage

import (
	"context"

	"github.com/iudanet/chatsync/internal/models"
)

//go:generate moq -out messages_mock.go . MessageStorage

// MessageStorage defines local cache of conversation messages
type MessageStorage interface {
	// SaveMessage stores or replaces message
	SaveMessage(ctx context.Context, msg *models.Message) error

	// GetMessage retrieves message by ID
	// Returns ErrMessageNotFound if message doesn't exist
	GetMessage(ctx context.Context, id string) (*models.Message, error)

	// ListMessages returns conversation messages ordered by creation time
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)

	// ReplaceMessageID moves message stored under temporary ID to the server ID
	ReplaceMessageID(ctx context.Context, localID string, msg *models.Message) error

	// SetMessageStatus updates delivery status of the message
	SetMessageStatus(ctx context.Context, id string, status models.MessageStatus) error

	// MessagesByStatus returns messages with specific delivery status
	MessagesByStatus(ctx context.Context, status models.MessageStatus) ([]*models.Message, error)
}

//go:generate moq -out idmap_mock.go . IDMapStorage

// IDMapStorage defines mapping of temporary client IDs to server IDs
type IDMapStorage interface {
	// SaveIDMapping remembers that localID was assigned serverID
	SaveIDMapping(ctx context.Context, localID, serverID string) error

	// ResolveID returns server ID for temporary ID.
	// IDs without mapping are returned unchanged
	ResolveID(ctx context.Context, id string) (string, error)
}
