package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/chatsync/internal/client/stream"
	"github.com/iudanet/chatsync/pkg/api"
)

func (c *Cli) runSync(ctx context.Context, conversations []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}
	if c.syncer == nil {
		return errors.New("sync is not configured")
	}

	c.io.Println("Synchronizing...")
	result, err := c.syncer.DrainOnce(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	for _, id := range conversations {
		n, err := c.syncer.FetchConversation(ctx, id)
		if err != nil {
			c.io.Printf("Warning: failed to fetch %s: %v\n", id, err)
			continue
		}
		c.io.Printf("Fetched %d message(s) from %s\n", n, id)
	}

	c.io.Println()
	c.io.Println("=== Sync Report ===")
	c.io.Printf("Sent:         %d\n", result.Sent)
	c.io.Printf("Retrying:     %d\n", result.Retried)
	c.io.Printf("Rate limited: %d\n", result.Rescheduled)
	c.io.Printf("Waiting:      %d\n", result.Waiting)
	c.io.Printf("Failed:       %d\n", result.Dropped)
	return nil
}

func (c *Cli) runRetry(ctx context.Context, ids []string, all bool) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	if all {
		status, err := c.dataService.Status(ctx)
		if err != nil {
			return err
		}
		for _, action := range status.Failed {
			ids = append(ids, action.ID)
		}
	}
	if len(ids) == 0 {
		c.io.Println("Nothing to retry.")
		return nil
	}

	var errs []error
	for _, id := range ids {
		if _, err := c.dataService.Retry(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		c.io.Printf("Requeued: %s\n", id)
	}

	c.trySync(ctx, false)
	return errors.Join(errs...)
}

// runListen держит realtime соединение и фоновую отправку очереди до Ctrl+C
func (c *Cli) runListen(ctx context.Context, conversations, tasks []string) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}
	if c.newStreamer == nil || c.syncer == nil {
		return errors.New("listen is not configured")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	streamer := c.newStreamer(stream.Options{
		Conversations: conversations,
		Tasks:         tasks,
		OnEvent:       c.printEvent,
	})

	c.io.Println("Listening, press Ctrl+C to stop...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return streamer.Run(ctx) })
	g.Go(func() error { return c.syncer.Run(ctx, c.syncInterval) })
	return g.Wait()
}

// printEvent выводит принятое событие
func (c *Cli) printEvent(env *api.Envelope) {
	payload, err := env.Payload()
	if err != nil {
		return
	}

	switch data := payload.(type) {
	case *api.MessageData:
		m := data.Message
		if data.Action == api.ActionDeleted {
			c.io.Printf("[%s] %s deleted message %s\n", env.Topic, env.UserID, m.ID)
			return
		}
		c.io.Printf("[%s] %s: %s\n", env.Topic, m.SenderID, m.Body)
	case *api.ReactionData:
		c.io.Printf("[%s] %s %s %s on %s\n", env.Topic, env.UserID, data.Action, data.Emoji, data.MessageID)
	case *api.TypingData:
		if data.Typing {
			c.io.Printf("[%s] %s is typing...\n", env.Topic, env.UserID)
		}
	case *api.PresenceData:
		c.io.Printf("%s is %s\n", env.UserID, data.Status)
	case *api.ReadData:
		c.io.Printf("[%s] %s read up to %s\n", env.Topic, env.UserID, data.MessageID)
	case *api.TaskData:
		c.io.Printf("[%s] task %s updated by %s\n", env.Topic, data.DocumentID, env.UserID)
	}
}
