package storage

import (
	"context"

	"github.com/iudanet/chatsync/internal/models"
)

//go:generate moq -out session_mock.go . SessionStorage

// SessionStorage defines interface for storing user session on client
type SessionStorage interface {
	// SaveSession stores session, replacing the previous one
	SaveSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves current session
	// Returns ErrSessionNotFound if user is not logged in
	GetSession(ctx context.Context) (*models.Session, error)

	// DeleteSession removes current session
	DeleteSession(ctx context.Context) error
}
