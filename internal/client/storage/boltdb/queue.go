package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/chatsync/internal/client/storage"
	"github.com/iudanet/chatsync/internal/models"
)

// Enqueue добавляет действие в конец очереди.
// Порядковый номер выдается NextSequence, поэтому порядок ключей совпадает с порядком создания.
func (s *Storage) Enqueue(ctx context.Context, action *models.OfflineAction) error {
	return s.update(func(tx *bbolt.Tx) error {
		return enqueue(tx, action)
	})
}

func enqueue(tx *bbolt.Tx, action *models.OfflineAction) error {
	actions, err := bucket(tx, bucketActions)
	if err != nil {
		return err
	}
	index, err := bucket(tx, bucketActionIndex)
	if err != nil {
		return err
	}
	if index.Get([]byte(action.ID)) != nil {
		return storage.ErrActionExists
	}

	seq, err := actions.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}
	action.Seq = seq
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}

	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}
	if err := actions.Put(itob(seq), data); err != nil {
		return fmt.Errorf("failed to save action: %w", err)
	}
	if err := index.Put([]byte(action.ID), itob(seq)); err != nil {
		return fmt.Errorf("failed to index action: %w", err)
	}
	return nil
}

// PeekBatch возвращает до n самых старых действий
func (s *Storage) PeekBatch(ctx context.Context, n int) ([]*models.OfflineAction, error) {
	var result []*models.OfflineAction

	err := s.view(func(tx *bbolt.Tx) error {
		actions, err := bucket(tx, bucketActions)
		if err != nil {
			return err
		}
		c := actions.Cursor()
		for k, v := c.First(); k != nil && (n <= 0 || len(result) < n); k, v = c.Next() {
			action := &models.OfflineAction{}
			if err := json.Unmarshal(v, action); err != nil {
				return fmt.Errorf("failed to unmarshal action: %w", err)
			}
			result = append(result, action)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to peek actions: %w", err)
	}

	return result, nil
}

// Get возвращает действие из очереди по ID
func (s *Storage) Get(ctx context.Context, id string) (*models.OfflineAction, error) {
	var action *models.OfflineAction
	err := s.view(func(tx *bbolt.Tx) error {
		var err error
		action, _, err = getAction(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

// getAction читает действие и его ключ в bucket actions
func getAction(tx *bbolt.Tx, id string) (*models.OfflineAction, []byte, error) {
	index, err := bucket(tx, bucketActionIndex)
	if err != nil {
		return nil, nil, err
	}
	key := index.Get([]byte(id))
	if key == nil {
		return nil, nil, storage.ErrActionNotFound
	}
	actions, err := bucket(tx, bucketActions)
	if err != nil {
		return nil, nil, err
	}
	data := actions.Get(key)
	if data == nil {
		return nil, nil, storage.ErrActionNotFound
	}

	action := &models.OfflineAction{}
	if err := json.Unmarshal(data, action); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal action: %w", err)
	}
	// ключ живет только внутри транзакции
	return action, append([]byte(nil), key...), nil
}

// modify читает действие, применяет fn и сохраняет на прежнем месте
func (s *Storage) modify(id string, fn func(action *models.OfflineAction)) (*models.OfflineAction, error) {
	var result *models.OfflineAction
	err := s.update(func(tx *bbolt.Tx) error {
		action, key, err := getAction(tx, id)
		if err != nil {
			return err
		}
		fn(action)

		data, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("failed to marshal action: %w", err)
		}
		if err := tx.Bucket(bucketActions).Put(key, data); err != nil {
			return fmt.Errorf("failed to save action: %w", err)
		}
		result = action
		return nil
	})
	return result, err
}

// Update перезаписывает действие, сохраняя его позицию в очереди
func (s *Storage) Update(ctx context.Context, action *models.OfflineAction) error {
	_, err := s.modify(action.ID, func(stored *models.OfflineAction) {
		seq := stored.Seq
		*stored = *action.Clone()
		stored.Seq = seq
	})
	return err
}

// Ack удаляет подтвержденное сервером действие
func (s *Storage) Ack(ctx context.Context, id string) error {
	return s.update(func(tx *bbolt.Tx) error {
		_, key, err := getAction(tx, id)
		if err != nil {
			return err
		}
		return removeAction(tx, id, key)
	})
}

func removeAction(tx *bbolt.Tx, id string, key []byte) error {
	if err := tx.Bucket(bucketActions).Delete(key); err != nil {
		return fmt.Errorf("failed to delete action: %w", err)
	}
	if err := tx.Bucket(bucketActionIndex).Delete([]byte(id)); err != nil {
		return fmt.Errorf("failed to delete action index: %w", err)
	}
	return nil
}

// IncrementRetry увеличивает счетчик попыток и откладывает следующую
func (s *Storage) IncrementRetry(ctx context.Context, id string, nextAttempt time.Time) (int, error) {
	action, err := s.modify(id, func(action *models.OfflineAction) {
		action.Retries++
		action.NextAttemptAt = nextAttempt
	})
	if err != nil {
		return 0, err
	}
	return action.Retries, nil
}

// Reschedule откладывает следующую попытку, не расходуя попытки
func (s *Storage) Reschedule(ctx context.Context, id string, at time.Time) error {
	_, err := s.modify(id, func(action *models.OfflineAction) {
		action.NextAttemptAt = at
	})
	return err
}

// Drop переносит действие из очереди в список неудавшихся
func (s *Storage) Drop(ctx context.Context, id string, reason string) error {
	return s.update(func(tx *bbolt.Tx) error {
		action, key, err := getAction(tx, id)
		if err != nil {
			return err
		}
		action.LastError = reason

		data, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("failed to marshal action: %w", err)
		}
		if err := tx.Bucket(bucketFailed).Put([]byte(id), data); err != nil {
			return fmt.Errorf("failed to save failed action: %w", err)
		}
		return removeAction(tx, id, key)
	})
}

// Pending возвращает количество действий в очереди
func (s *Storage) Pending(ctx context.Context) (int, error) {
	var n int
	err := s.view(func(tx *bbolt.Tx) error {
		actions, err := bucket(tx, bucketActions)
		if err != nil {
			return err
		}
		n = actions.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}
	return n, nil
}

// Failed возвращает неудавшиеся действия в порядке создания
func (s *Storage) Failed(ctx context.Context) ([]*models.OfflineAction, error) {
	var result []*models.OfflineAction
	err := s.view(func(tx *bbolt.Tx) error {
		failed, err := bucket(tx, bucketFailed)
		if err != nil {
			return err
		}
		return failed.ForEach(func(k, v []byte) error {
			action := &models.OfflineAction{}
			if err := json.Unmarshal(v, action); err != nil {
				return fmt.Errorf("failed to unmarshal action: %w", err)
			}
			result = append(result, action)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list failed actions: %w", err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result, nil
}

// Requeue возвращает неудавшееся действие в конец очереди.
// ID не меняется, поэтому повторная отправка использует тот же ключ идемпотентности.
func (s *Storage) Requeue(ctx context.Context, id string) (*models.OfflineAction, error) {
	var action *models.OfflineAction
	err := s.update(func(tx *bbolt.Tx) error {
		failed, err := bucket(tx, bucketFailed)
		if err != nil {
			return err
		}
		data := failed.Get([]byte(id))
		if data == nil {
			return storage.ErrActionNotFound
		}

		action = &models.OfflineAction{}
		if err := json.Unmarshal(data, action); err != nil {
			return fmt.Errorf("failed to unmarshal action: %w", err)
		}
		action.Retries = 0
		action.LastError = ""
		action.NextAttemptAt = time.Time{}

		if err := enqueue(tx, action); err != nil {
			return err
		}
		return failed.Delete([]byte(id))
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}
