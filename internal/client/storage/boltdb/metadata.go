package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	keyNodeID = "node_id"
	keyClock  = "lamport_clock"
)

// GetOrCreateNodeID возвращает идентификатор реплики, создавая его при первом вызове
func (s *Storage) GetOrCreateNodeID(ctx context.Context) (string, error) {
	var nodeID string

	err := s.update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMetadata)
		if err != nil {
			return err
		}
		if v := b.Get([]byte(keyNodeID)); v != nil {
			nodeID = string(v)
			return nil
		}
		nodeID = uuid.NewString()
		return b.Put([]byte(keyNodeID), []byte(nodeID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get node id: %w", err)
	}

	return nodeID, nil
}

// SaveClock сохраняет значение часов Лампорта
func (s *Storage) SaveClock(ctx context.Context, counter int64) error {
	return s.update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMetadata)
		if err != nil {
			return err
		}

		// Конвертируем int64 в bytes
		counterBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(counterBytes, uint64(counter))

		if err := b.Put([]byte(keyClock), counterBytes); err != nil {
			return fmt.Errorf("failed to save clock: %w", err)
		}
		return nil
	})
}

// GetClock возвращает сохраненное значение часов Лампорта или 0
func (s *Storage) GetClock(ctx context.Context) (int64, error) {
	var counter int64

	err := s.view(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMetadata)
		if err != nil {
			return err
		}
		if v := b.Get([]byte(keyClock)); v != nil {
			counter = int64(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get clock: %w", err)
	}

	return counter, nil
}

// SaveLastSeen сохраняет время последнего увиденного изменения в беседе
func (s *Storage) SaveLastSeen(ctx context.Context, conversationID string, at time.Time) error {
	return s.update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketLastSeen)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(conversationID), []byte(at.UTC().Format(time.RFC3339Nano))); err != nil {
			return fmt.Errorf("failed to save last seen: %w", err)
		}
		return nil
	})
}

// GetLastSeen возвращает время последнего увиденного изменения или нулевое время
func (s *Storage) GetLastSeen(ctx context.Context, conversationID string) (time.Time, error) {
	var at time.Time

	err := s.view(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketLastSeen)
		if err != nil {
			return err
		}
		v := b.Get([]byte(conversationID))
		if v == nil {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return fmt.Errorf("failed to parse last seen: %w", err)
		}
		at = parsed
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last seen: %w", err)
	}

	return at, nil
}
