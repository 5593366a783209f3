package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/chatsync/internal/client/storage"
	"github.com/iudanet/chatsync/internal/crdt"
)

// MergeDocument сливает doc с сохраненной репликой внутри одной транзакции записи.
// Чтение, слияние и запись не разделены, поэтому параллельная правка не теряется.
func (s *Storage) MergeDocument(ctx context.Context, doc *crdt.Document) (*crdt.Document, error) {
	var merged *crdt.Document
	err := s.update(func(tx *bbolt.Tx) error {
		docs, err := bucket(tx, bucketDocuments)
		if err != nil {
			return err
		}

		stored := crdt.NewDocument(doc.ID)
		if data := docs.Get([]byte(doc.ID)); data != nil {
			if err := json.Unmarshal(data, stored); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
		}

		merged, err = crdt.Merge(stored, doc)
		if err != nil {
			return err
		}

		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		if err := docs.Put([]byte(doc.ID), data); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// GetDocument возвращает реплику документа
func (s *Storage) GetDocument(ctx context.Context, id string) (*crdt.Document, error) {
	var doc *crdt.Document
	err := s.view(func(tx *bbolt.Tx) error {
		docs, err := bucket(tx, bucketDocuments)
		if err != nil {
			return err
		}
		data := docs.Get([]byte(id))
		if data == nil {
			return storage.ErrDocumentNotFound
		}
		doc = crdt.NewDocument(id)
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("failed to unmarshal document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocumentIDs возвращает идентификаторы локальных документов
func (s *Storage) ListDocumentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.view(func(tx *bbolt.Tx) error {
		docs, err := bucket(tx, bucketDocuments)
		if err != nil {
			return err
		}
		return docs.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return ids, nil
}
