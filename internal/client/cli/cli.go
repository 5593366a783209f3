// Package cli реализует команды консольного клиента chatsync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iudanet/chatsync/internal/client/auth"
	"github.com/iudanet/chatsync/internal/client/data"
	"github.com/iudanet/chatsync/internal/client/iocli"
	"github.com/iudanet/chatsync/internal/client/stream"
	clientsync "github.com/iudanet/chatsync/internal/client/sync"
	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/pkg/api"
)

// TokenEnv переменная окружения с токеном доступа
const TokenEnv = "CHATSYNC_TOKEN"

// Syncer отправляет очередь действий и догружает беседы
type Syncer interface {
	DrainOnce(ctx context.Context) (*clientsync.DrainResult, error)
	FetchConversation(ctx context.Context, conversationID string) (int, error)
	Run(ctx context.Context, interval time.Duration) error
}

// Streamer держит realtime соединение до отмены контекста
type Streamer interface {
	Run(ctx context.Context) error
}

// Cli команды клиента и их зависимости
type Cli struct {
	io          iocli.IO
	authService auth.Service
	dataService data.Service
	syncer      Syncer
	session     *models.Session

	// connect собирает dataService и syncer для сессии, если они не заданы
	connect func(ctx context.Context, session *models.Session) error
	// newStreamer создает realtime слушателя
	newStreamer func(opts stream.Options) Streamer
	// health проверяет доступность сервера
	health func(ctx context.Context, serverURL string) (*api.HealthResponse, error)

	closers      []func() error
	serverURL    string
	syncInterval time.Duration
}

// Close освобождает локальное хранилище
func (c *Cli) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

// requireSession загружает сессию и зависимости, которым нужен пользователь
func (c *Cli) requireSession(ctx context.Context) error {
	if c.session != nil && c.dataService != nil {
		return nil
	}

	session, err := c.authService.Current(ctx)
	if err != nil {
		return err
	}
	c.session = session

	if c.dataService == nil && c.connect != nil {
		if err := c.connect(ctx, session); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	if c.dataService == nil {
		return errors.New("client is not configured")
	}
	return nil
}

// Tokens источники токена доступа
type Tokens struct {
	FromFile string
	FromArgs string
}

// getToken возвращает токен из источников по приоритету:
// 1. Переменная окружения CHATSYNC_TOKEN
// 2. Файл --token-file
// 3. Параметр --token
// 4. Интерактивный ввод
func (c *Cli) getToken(tokens Tokens) (string, error) {
	if envToken := os.Getenv(TokenEnv); envToken != "" {
		return envToken, nil
	}

	if tokens.FromFile != "" {
		content, err := os.ReadFile(tokens.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
		token := strings.TrimSpace(string(content))
		if token == "" {
			return "", fmt.Errorf("token file is empty")
		}
		return token, nil
	}

	if tokens.FromArgs != "" {
		return tokens.FromArgs, nil
	}

	token, err := c.io.ReadPassword("Access token: ")
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return token, nil
}
