package storage

import (
	"context"

	"github.com/iudanet/chatsync/internal/crdt"
)

//go:generate moq -out documents_mock.go . DocumentStorage

// DocumentStorage defines local replicas of collaborative documents
type DocumentStorage interface {
	// MergeDocument merges doc into the stored replica in a single transaction
	// and returns the result. Missing replica is created from doc.
	// All writers go through it, so concurrent changes are never overwritten.
	MergeDocument(ctx context.Context, doc *crdt.Document) (*crdt.Document, error)

	// GetDocument retrieves document replica by ID
	// Returns ErrDocumentNotFound if document doesn't exist
	GetDocument(ctx context.Context, id string) (*crdt.Document, error)

	// ListDocumentIDs returns IDs of all local documents
	ListDocumentIDs(ctx context.Context) ([]string, error)
}
