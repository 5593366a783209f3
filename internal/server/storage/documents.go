package storage

import (
	"context"

	"github.com/iudanet/chatsync/internal/crdt"
)

// DocumentStorage defines interface for collaborative documents persistence
type DocumentStorage interface {
	// GetDocument retrieves a document by ID
	// Returns ErrDocumentNotFound if document doesn't exist
	GetDocument(ctx context.Context, id string) (*crdt.Document, error)

	// MergeDocument merges doc into the stored copy (creating it if absent)
	// and returns the merged result. Load, merge and save happen in one transaction.
	MergeDocument(ctx context.Context, doc *crdt.Document) (*crdt.Document, error)
}
