package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/internal/server/storage"
)

const messageColumns = `id, conversation_id, sender_id, client_id, body, deleted, created_at, updated_at`

// CreateMessage stores a new message; msg.ClientID is the idempotency key
func (s *Storage) CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	if msg.ClientID != "" {
		existing, err := s.findByClientID(ctx, s.db, msg.SenderID, msg.ClientID)
		if err == nil {
			return existing, true, nil
		}
		if !errors.Is(err, storage.ErrMessageNotFound) {
			return nil, false, err
		}
	}

	stored := msg.Clone()
	if stored.ID == "" || models.IsLocalID(stored.ID) {
		// ksuid сортируется по времени создания
		stored.ID = ksuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.CreatedAt = millisToTime(timeToMillis(stored.CreatedAt))
	stored.UpdatedAt = stored.CreatedAt
	stored.Status = ""
	stored.Reactions = nil
	stored.Deleted = false

	clientID := sql.NullString{String: stored.ClientID, Valid: stored.ClientID != ""}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`,
		stored.ID,
		stored.ConversationID,
		stored.SenderID,
		clientID,
		stored.Body,
		timeToMillis(stored.CreatedAt),
		timeToMillis(stored.UpdatedAt),
	)
	if err != nil {
		// Параллельный повтор с тем же ключом мог успеть вставить сообщение
		if clientID.Valid {
			if existing, findErr := s.findByClientID(ctx, s.db, stored.SenderID, stored.ClientID); findErr == nil {
				return existing, true, nil
			}
		}
		return nil, false, fmt.Errorf("failed to insert message: %w", err)
	}

	return stored, false, nil
}

// GetMessage retrieves a message with reactions
func (s *Storage) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	return s.getMessage(ctx, s.db, id)
}

func (s *Storage) getMessage(ctx context.Context, q querier, id string) (*models.Message, error) {
	row := q.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if err != nil {
		return nil, err
	}

	reactions, err := s.loadReactions(ctx, q, msg.ID)
	if err != nil {
		return nil, err
	}
	msg.Reactions = reactions

	return msg, nil
}

func (s *Storage) findByClientID(ctx context.Context, q querier, senderID, clientID string) (*models.Message, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM messages WHERE sender_id = ? AND client_id = ?`,
		senderID, clientID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message by client id: %w", err)
	}
	return s.getMessage(ctx, q, id)
}

// ListMessages returns messages of a conversation ordered by (updated_at, id).
// Without afterID messages changed at or after since are returned,
// with afterID only those strictly after the (since, afterID) cursor.
func (s *Storage) ListMessages(ctx context.Context, conversationID string, since time.Time, afterID string, limit int) ([]*models.Message, error) {
	var sinceMs int64
	if !since.IsZero() {
		sinceMs = timeToMillis(since)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ? AND (updated_at > ? OR (updated_at = ? AND id > ?))
		ORDER BY updated_at ASC, id ASC
		LIMIT ?
	`, conversationID, sinceMs, sinceMs, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	rows.Close()

	for _, msg := range messages {
		reactions, err := s.loadReactions(ctx, s.db, msg.ID)
		if err != nil {
			return nil, err
		}
		msg.Reactions = reactions
	}

	return messages, nil
}

// UpdateMessage replaces message body
func (s *Storage) UpdateMessage(ctx context.Context, id, userID, body, idempotencyKey string, now time.Time) (*models.Message, bool, error) {
	var result *models.Message
	var replayed bool

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		done, err := s.checkIdempotency(ctx, tx, userID, idempotencyKey, "update", id)
		if err != nil {
			return err
		}
		if done {
			replayed = true
			result, err = s.getMessage(ctx, tx, id)
			return err
		}

		msg, err := s.getMessage(ctx, tx, id)
		if err != nil {
			return err
		}
		if msg.SenderID != userID {
			return storage.ErrForbidden
		}
		if msg.Deleted {
			return storage.ErrMessageDeleted
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET body = ?, updated_at = ? WHERE id = ?`,
			body, timeToMillis(now), id,
		); err != nil {
			return fmt.Errorf("failed to update message: %w", err)
		}

		if err := s.recordIdempotency(ctx, tx, userID, idempotencyKey, "update", id, now); err != nil {
			return err
		}

		msg.Body = body
		msg.UpdatedAt = millisToTime(timeToMillis(now))
		result = msg
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return result, replayed, nil
}

// DeleteMessage marks message as deleted (soft delete, body is cleared)
func (s *Storage) DeleteMessage(ctx context.Context, id, userID, idempotencyKey string, now time.Time) (*models.Message, bool, error) {
	var result *models.Message
	var replayed bool

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		done, err := s.checkIdempotency(ctx, tx, userID, idempotencyKey, "delete", id)
		if err != nil {
			return err
		}

		msg, err := s.getMessage(ctx, tx, id)
		if err != nil {
			return err
		}
		if msg.SenderID != userID {
			return storage.ErrForbidden
		}
		if done || msg.Deleted {
			// Повторное удаление ничего не меняет
			replayed = true
			result = msg
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET deleted = ?, body = '', updated_at = ? WHERE id = ?`,
			boolToInt(true), timeToMillis(now), id,
		); err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}

		if err := s.recordIdempotency(ctx, tx, userID, idempotencyKey, "delete", id, now); err != nil {
			return err
		}

		msg.Deleted = true
		msg.Body = ""
		msg.UpdatedAt = millisToTime(timeToMillis(now))
		result = msg
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return result, replayed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var clientID sql.NullString
	var deleted int
	var createdAt, updatedAt int64

	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&clientID,
		&msg.Body,
		&deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	msg.ClientID = clientID.String
	msg.Deleted = deleted != 0
	msg.CreatedAt = millisToTime(createdAt)
	msg.UpdatedAt = millisToTime(updatedAt)

	return msg, nil
}
