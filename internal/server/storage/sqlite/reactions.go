package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/internal/server/storage"
)

// AddReaction adds (user, emoji) reaction to a message
func (s *Storage) AddReaction(ctx context.Context, reaction models.Reaction) (bool, error) {
	now := reaction.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}

	var added bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		msg, err := s.getMessage(ctx, tx, reaction.MessageID)
		if err != nil {
			return err
		}
		if msg.Deleted {
			return storage.ErrMessageDeleted
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO reactions (message_id, user_id, emoji, created_at)
			VALUES (?, ?, ?, ?)
		`, reaction.MessageID, reaction.UserID, reaction.Emoji, timeToMillis(now))
		if err != nil {
			return fmt.Errorf("failed to insert reaction: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		added = affected > 0

		if added {
			return touchMessage(ctx, tx, reaction.MessageID, now)
		}
		return nil
	})

	return added, err
}

// RemoveReaction removes (user, emoji) reaction from a message
func (s *Storage) RemoveReaction(ctx context.Context, messageID, userID, emoji string, now time.Time) (bool, error) {
	var removed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getMessage(ctx, tx, messageID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`,
			messageID, userID, emoji,
		)
		if err != nil {
			return fmt.Errorf("failed to delete reaction: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		removed = affected > 0

		if removed {
			return touchMessage(ctx, tx, messageID, now)
		}
		return nil
	})

	return removed, err
}

// touchMessage обновляет updated_at, чтобы изменение реакций попало в догрузку после переподключения
func touchMessage(ctx context.Context, tx *sql.Tx, messageID string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET updated_at = MAX(updated_at, ?) WHERE id = ?`,
		timeToMillis(now), messageID,
	); err != nil {
		return fmt.Errorf("failed to touch message: %w", err)
	}
	return nil
}

func (s *Storage) loadReactions(ctx context.Context, q querier, messageID string) ([]models.Reaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id, emoji, created_at
		FROM reactions
		WHERE message_id = ?
		ORDER BY created_at ASC, user_id ASC, emoji ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reactions: %w", err)
	}
	defer rows.Close()

	var reactions []models.Reaction
	for rows.Next() {
		r := models.Reaction{MessageID: messageID}
		var createdAt int64
		if err := rows.Scan(&r.UserID, &r.Emoji, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		r.CreatedAt = millisToTime(createdAt)
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reactions: %w", err)
	}

	return reactions, nil
}
