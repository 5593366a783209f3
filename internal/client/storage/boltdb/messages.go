package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/chatsync/internal/client/storage"
	"github.com/iudanet/chatsync/internal/models"
)

// SaveMessage сохраняет или заменяет сообщение
func (s *Storage) SaveMessage(ctx context.Context, msg *models.Message) error {
	return s.update(func(tx *bbolt.Tx) error {
		return putMessage(tx, msg)
	})
}

func putMessage(tx *bbolt.Tx, msg *models.Message) error {
	messages, err := bucket(tx, bucketMessages)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := messages.Put([]byte(msg.ID), data); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func getMessage(tx *bbolt.Tx, id string) (*models.Message, error) {
	messages, err := bucket(tx, bucketMessages)
	if err != nil {
		return nil, err
	}
	data := messages.Get([]byte(id))
	if data == nil {
		return nil, storage.ErrMessageNotFound
	}
	msg := &models.Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return msg, nil
}

// GetMessage возвращает сообщение по ID
func (s *Storage) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg *models.Message
	err := s.view(func(tx *bbolt.Tx) error {
		var err error
		msg, err = getMessage(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages возвращает сообщения беседы в порядке создания
func (s *Storage) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	return s.filterMessages(func(msg *models.Message) bool {
		return msg.ConversationID == conversationID
	})
}

// MessagesByStatus возвращает сообщения с заданным статусом доставки
func (s *Storage) MessagesByStatus(ctx context.Context, status models.MessageStatus) ([]*models.Message, error) {
	return s.filterMessages(func(msg *models.Message) bool {
		return msg.Status == status
	})
}

func (s *Storage) filterMessages(keep func(msg *models.Message) bool) ([]*models.Message, error) {
	var result []*models.Message
	err := s.view(func(tx *bbolt.Tx) error {
		messages, err := bucket(tx, bucketMessages)
		if err != nil {
			return err
		}
		return messages.ForEach(func(k, v []byte) error {
			msg := &models.Message{}
			if err := json.Unmarshal(v, msg); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			if keep(msg) {
				result = append(result, msg)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ReplaceMessageID заменяет временную запись сообщения серверной в одной транзакции
func (s *Storage) ReplaceMessageID(ctx context.Context, localID string, msg *models.Message) error {
	return s.update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketMessages).Delete([]byte(localID)); err != nil {
			return fmt.Errorf("failed to delete local message: %w", err)
		}
		return putMessage(tx, msg)
	})
}

// SetMessageStatus обновляет статус доставки сообщения
func (s *Storage) SetMessageStatus(ctx context.Context, id string, status models.MessageStatus) error {
	return s.update(func(tx *bbolt.Tx) error {
		msg, err := getMessage(tx, id)
		if err != nil {
			return err
		}
		msg.Status = status
		return putMessage(tx, msg)
	})
}

// SaveIDMapping запоминает серверный ID для временного
func (s *Storage) SaveIDMapping(ctx context.Context, localID, serverID string) error {
	return s.update(func(tx *bbolt.Tx) error {
		ids, err := bucket(tx, bucketIDMap)
		if err != nil {
			return err
		}
		if err := ids.Put([]byte(localID), []byte(serverID)); err != nil {
			return fmt.Errorf("failed to save id mapping: %w", err)
		}
		return nil
	})
}

// ResolveID возвращает серверный ID для временного или сам id, если отображения нет
func (s *Storage) ResolveID(ctx context.Context, id string) (string, error) {
	resolved := id
	err := s.view(func(tx *bbolt.Tx) error {
		ids, err := bucket(tx, bucketIDMap)
		if err != nil {
			return err
		}
		if v := ids.Get([]byte(id)); v != nil {
			resolved = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve id: %w", err)
	}
	return resolved, nil
}
