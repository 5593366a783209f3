package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/server/storage"
)

// GetDocument retrieves a document by ID
func (s *Storage) GetDocument(ctx context.Context, id string) (*crdt.Document, error) {
	return s.loadDocument(ctx, s.db, id)
}

func (s *Storage) loadDocument(ctx context.Context, q querier, id string) (*crdt.Document, error) {
	var body []byte
	err := q.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc := crdt.NewDocument(id)
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return doc, nil
}

// MergeDocument merges doc into the stored copy and returns the merged result
func (s *Storage) MergeDocument(ctx context.Context, doc *crdt.Document) (*crdt.Document, error) {
	var merged *crdt.Document

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stored, err := s.loadDocument(ctx, tx, doc.ID)
		if err != nil && !errors.Is(err, storage.ErrDocumentNotFound) {
			return err
		}

		merged, err = crdt.Merge(stored, doc)
		if err != nil {
			return fmt.Errorf("failed to merge document %s: %w", doc.ID, err)
		}

		body, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, body, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
		`, doc.ID, body, timeToMillis(time.Now())); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return merged, nil
}
