package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	clientsync "github.com/iudanet/chatsync/internal/client/sync"
	"github.com/iudanet/chatsync/internal/models"
)

// syncTimeout ограничивает попытку отправки сразу после изменения
const syncTimeout = 10 * time.Second

func (c *Cli) runSend(ctx context.Context, conversationID, body string, offline bool) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	msg, err := c.dataService.SendMessage(ctx, conversationID, body)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.io.Printf("Message queued: %s\n", msg.ID)

	c.trySync(ctx, offline)
	return nil
}

func (c *Cli) runEdit(ctx context.Context, messageID, body string, offline bool) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	msg, err := c.dataService.EditMessage(ctx, messageID, body)
	if err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	c.io.Printf("Edit queued: %s\n", msg.ID)

	c.trySync(ctx, offline)
	return nil
}

func (c *Cli) runDelete(ctx context.Context, messageID string, offline bool) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	msg, err := c.dataService.DeleteMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	c.io.Printf("Delete queued: %s\n", msg.ID)

	c.trySync(ctx, offline)
	return nil
}

func (c *Cli) runReact(ctx context.Context, messageID, emoji string, remove, offline bool) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	msg, err := c.dataService.React(ctx, messageID, emoji, remove)
	if err != nil {
		return fmt.Errorf("failed to change reaction: %w", err)
	}
	c.io.Println(formatMessage(msg))

	c.trySync(ctx, offline)
	return nil
}

func (c *Cli) runList(ctx context.Context, conversationID string, fetch bool) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	if fetch && c.syncer != nil {
		if _, err := c.syncer.FetchConversation(ctx, conversationID); err != nil {
			c.io.Printf("Warning: showing cached messages, fetch failed: %v\n", err)
		}
	}

	msgs, err := c.dataService.ListMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		c.io.Println("No messages.")
		return nil
	}
	for _, msg := range msgs {
		c.io.Println(formatMessage(msg))
	}
	return nil
}

// trySync отправляет очередь сразу после изменения.
// Без сети изменение остается в очереди и уйдет при следующей синхронизации.
func (c *Cli) trySync(ctx context.Context, offline bool) {
	if offline || c.syncer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	result, err := c.syncer.DrainOnce(ctx)
	switch {
	case errors.Is(err, clientsync.ErrDrainInProgress):
		c.io.Println("Sync already running, change will be sent by it.")
	case err != nil:
		c.io.Printf("Offline: change kept in queue (%v)\n", err)
	case result.Sent > 0 && result.Waiting+result.Retried+result.Rescheduled == 0:
		c.io.Println("✓ Synced")
	case result.Waiting+result.Retried+result.Rescheduled > 0:
		c.io.Println("Server unavailable: change kept in queue, run 'chatsync sync' later.")
	}
}

// formatMessage строка сообщения для вывода
func formatMessage(msg *models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s] %s:", statusMark(msg.Status), msg.CreatedAt.Local().Format("2006-01-02 15:04"), msg.ID, msg.SenderID)
	if msg.Deleted {
		b.WriteString(" (deleted)")
	} else {
		b.WriteString(" " + msg.Body)
	}

	if len(msg.Reactions) > 0 {
		counts := make(map[string]int)
		var order []string
		for _, r := range msg.Reactions {
			if counts[r.Emoji] == 0 {
				order = append(order, r.Emoji)
			}
			counts[r.Emoji]++
		}
		slices.Sort(order)
		parts := make([]string, 0, len(order))
		for _, emoji := range order {
			parts = append(parts, fmt.Sprintf("%s%d", emoji, counts[emoji]))
		}
		b.WriteString("  " + strings.Join(parts, " "))
	}
	return b.String()
}

// statusMark индикатор доставки
func statusMark(status models.MessageStatus) string {
	switch status {
	case models.MessageStatusPending:
		return "…"
	case models.MessageStatusFailed:
		return "✗"
	default:
		return "✓"
	}
}
