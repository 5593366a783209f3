package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	httpClient "github.com/iudanet/chatsync/internal/client/api"
	"github.com/iudanet/chatsync/internal/client/auth"
	"github.com/iudanet/chatsync/internal/client/data"
	"github.com/iudanet/chatsync/internal/client/iocli"
	"github.com/iudanet/chatsync/internal/client/storage/boltdb"
	"github.com/iudanet/chatsync/internal/client/stream"
	clientsync "github.com/iudanet/chatsync/internal/client/sync"
	"github.com/iudanet/chatsync/internal/config"
	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/pkg/api"
)

// GlobalFlags общие флаги всех команд
type GlobalFlags struct {
	ConfigPath string
	ServerURL  string
	DBPath     string
	LogLevel   string
}

// Opener собирает Cli перед выполнением команды
type Opener func(ctx context.Context, flags GlobalFlags) (*Cli, error)

// StdOpener открывает клиент по конфигурации; логи пишутся в logOut
func StdOpener(console iocli.IO, logOut io.Writer) Opener {
	return func(ctx context.Context, flags GlobalFlags) (*Cli, error) {
		cfg, err := config.Load(flags.ConfigPath)
		if err != nil {
			return nil, err
		}
		if flags.ServerURL != "" {
			cfg.Client.ServerURL = flags.ServerURL
		}
		if flags.DBPath != "" {
			cfg.Client.DBPath = flags.DBPath
		}
		if flags.LogLevel != "" {
			cfg.Log.Level = flags.LogLevel
		}
		return Open(ctx, cfg.Client, console, config.NewLogger(cfg.Log, logOut))
	}
}

// Open открывает локальное хранилище и собирает зависимости команд
func Open(ctx context.Context, cfg config.ClientConfig, console iocli.IO, logger *slog.Logger) (*Cli, error) {
	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	timeout := cfg.RequestTimeout.Duration
	c := &Cli{
		io:           console,
		authService:  auth.NewService(store),
		closers:      []func() error{store.Close},
		serverURL:    cfg.ServerURL,
		syncInterval: cfg.SyncInterval.Duration,
		health: func(ctx context.Context, serverURL string) (*api.HealthResponse, error) {
			return httpClient.NewClient(serverURL, timeout).Health(ctx)
		},
	}

	c.connect = func(ctx context.Context, session *models.Session) error {
		apiClient := httpClient.NewClient(session.ServerURL, timeout)
		apiClient.SetToken(session.Token)

		clock, err := data.LoadClock(ctx, store)
		if err != nil {
			return err
		}

		stores := clientsync.Stores{
			Queue:     store,
			Messages:  store,
			IDs:       store,
			Documents: store,
			Metadata:  store,
		}

		opts := clientsync.DefaultOptions()
		if cfg.MaxRetries > 0 {
			opts.MaxRetries = cfg.MaxRetries
		}
		if cfg.BatchSize > 0 {
			opts.BatchSize = cfg.BatchSize
		}
		opts.Notifier = clientsync.NotifierFunc(func(action *models.OfflineAction, err error) {
			console.Printf("✗ %s %s failed: %v (run 'chatsync retry %s')\n", action.Type, action.Action, err, action.ID)
		})

		coordinator := clientsync.NewCoordinator(apiClient, stores, clock, opts, logger)
		c.syncer = coordinator
		c.dataService = data.NewService(stores, clock, session.UserID)
		c.newStreamer = func(streamOpts stream.Options) Streamer {
			return stream.NewListener(session.ServerURL, session.Token, coordinator, store, store, apiClient, streamOpts, logger)
		}
		return nil
	}

	if c.syncInterval <= 0 {
		c.syncInterval = 10 * time.Second
	}
	return c, nil
}
