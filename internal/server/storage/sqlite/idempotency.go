package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/chatsync/internal/server/storage"
)

// checkIdempotency проверяет, выполнялась ли уже операция с этим ключом.
// Пустой ключ означает отсутствие защиты от повтора.
func (s *Storage) checkIdempotency(ctx context.Context, q querier, userID, key, operation, resourceID string) (bool, error) {
	if key == "" {
		return false, nil
	}

	var storedOp, storedResource string
	err := q.QueryRowContext(ctx,
		`SELECT operation, resource_id FROM idempotency_keys WHERE user_id = ? AND key = ?`,
		userID, key,
	).Scan(&storedOp, &storedResource)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	if storedOp != operation || storedResource != resourceID {
		return false, storage.ErrIdempotencyConflict
	}
	return true, nil
}

func (s *Storage) recordIdempotency(ctx context.Context, q querier, userID, key, operation, resourceID string, now time.Time) error {
	if key == "" {
		return nil
	}

	if _, err := q.ExecContext(ctx, `
		INSERT INTO idempotency_keys (user_id, key, operation, resource_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, key, operation, resourceID, timeToMillis(now)); err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

// DeleteIdempotencyKeysBefore удаляет старые ключи идемпотентности.
// Клиент повторяет действие не дольше нескольких попыток, поэтому ключи
// старше retention больше не нужны.
func (s *Storage) DeleteIdempotencyKeysBefore(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE created_at < ?`,
		timeToMillis(before),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idempotency keys: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}
