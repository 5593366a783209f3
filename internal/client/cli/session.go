package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/chatsync/internal/client/auth"
)

func (c *Cli) runLogin(ctx context.Context, serverURL string, tokens Tokens) error {
	if serverURL == "" {
		serverURL = c.serverURL
	}

	token, err := c.getToken(tokens)
	if err != nil {
		return err
	}

	session, err := c.authService.Login(ctx, serverURL, token)
	if err != nil {
		return err
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("User: %s (%s)\n", session.Username, session.UserID)
	c.io.Printf("Server: %s\n", session.ServerURL)
	if !session.ExpiresAt.IsZero() {
		c.io.Printf("Token expires: %s\n", session.ExpiresAt.Local().Format(time.RFC3339))
	}

	// Вход работает и без сети: сервер проверит токен при первой синхронизации
	if c.health != nil {
		health, err := c.health(ctx, serverURL)
		switch {
		case err != nil:
			c.io.Printf("Warning: server is unreachable (%v), changes will be queued\n", err)
		case health.Status != "ok":
			c.io.Printf("Warning: server status is %s\n", health.Status)
		}
	}
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.authService.Logout(ctx); err != nil {
		return err
	}
	c.io.Println("✓ Logged out")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Session ===")

	err := c.requireSession(ctx)
	switch {
	case errors.Is(err, auth.ErrNotLoggedIn):
		c.io.Println("Status: Not logged in")
		c.io.Println("Run 'chatsync login' to authenticate.")
		return nil
	case errors.Is(err, auth.ErrSessionExpired):
		c.io.Println("Status: Token expired, run 'chatsync login' again.")
		return nil
	case err != nil:
		return err
	}

	c.io.Printf("User: %s (%s)\n", c.session.Username, c.session.UserID)
	c.io.Printf("Server: %s\n", c.session.ServerURL)
	if !c.session.ExpiresAt.IsZero() {
		c.io.Printf("Token expires: %s\n", c.session.ExpiresAt.Local().Format(time.RFC3339))
	}

	status, err := c.dataService.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue status: %w", err)
	}

	c.io.Println()
	c.io.Println("=== Sync ===")
	if status.Pending > 0 {
		c.io.Printf("Syncing: %d change(s) waiting to be sent\n", status.Pending)
	} else {
		c.io.Println("✓ All changes synchronized")
	}

	if len(status.Failed) > 0 {
		c.io.Println()
		c.io.Printf("Failed: %d change(s)\n", len(status.Failed))
		for _, action := range status.Failed {
			c.io.Printf("  %s  %s %s  %s\n", action.ID, action.Type, action.Action, action.LastError)
		}
		c.io.Println("Run 'chatsync retry <id>' or 'chatsync retry --all' to send them again.")
	}
	for _, msg := range status.FailedMessages {
		c.io.Println(formatMessage(msg))
	}
	return nil
}
