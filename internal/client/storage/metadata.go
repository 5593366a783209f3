package storage

import (
	"context"
	"time"
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// GetOrCreateNodeID returns replica node ID, creating it on first call
	GetOrCreateNodeID(ctx context.Context) (string, error)

	// SaveClock saves Lamport clock value of the replica
	SaveClock(ctx context.Context, counter int64) error

	// GetClock retrieves saved Lamport clock value
	// Returns 0 if nothing was saved yet
	GetClock(ctx context.Context) (int64, error)

	// SaveLastSeen saves time of the newest server change seen in conversation
	SaveLastSeen(ctx context.Context, conversationID string, at time.Time) error

	// GetLastSeen retrieves time of the newest server change seen in conversation
	// Returns zero time if conversation was never fetched
	GetLastSeen(ctx context.Context, conversationID string) (time.Time, error)
}
