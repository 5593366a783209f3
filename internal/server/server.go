// Package server собирает HTTP сервер: хранилище, реестр соединений,
// рассылку, ограничитель частоты и фоновые задачи обслуживания.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/chatsync/internal/config"
	"github.com/iudanet/chatsync/internal/ratelimit"
	"github.com/iudanet/chatsync/internal/realtime"
	"github.com/iudanet/chatsync/internal/server/handlers"
	"github.com/iudanet/chatsync/internal/server/storage/sqlite"
	"github.com/iudanet/chatsync/internal/transport/ws"
)

const (
	// idempotencyRetention сколько хранятся ключи идемпотентности правок и удалений
	idempotencyRetention = 48 * time.Hour
	idempotencyCleanup   = time.Hour
)

// Server HTTP сервер chatsync
type Server struct {
	storage    *sqlite.Storage
	registry   *realtime.Registry
	dispatcher *realtime.Dispatcher
	limiter    *ratelimit.Limiter
	httpServer *http.Server
	logger     *slog.Logger
	closers    []func() error
	cfg        config.Config
}

// New открывает хранилище и собирает сервер по конфигурации.
func New(ctx context.Context, cfg config.Config, version string, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt secret is required (jwt.secret or CHATSYNC_JWT_SECRET)")
	}

	store, err := sqlite.New(ctx, cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	s := &Server{
		storage: store,
		logger:  logger,
		cfg:     cfg,
	}
	s.closers = append(s.closers, store.Close)

	limitStore, err := s.newLimitStore(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.limiter, err = ratelimit.New(limitStore, cfg.Limits(), logger)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	s.registry = realtime.NewRegistry(logger)
	s.dispatcher = realtime.NewDispatcher(s.registry, logger)

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(cfg.JWT.Secret),
		AccessTokenTTL: cfg.JWT.TTL.Duration,
	}

	routes := Routes{
		Messages:  handlers.NewMessageHandler(store, s.dispatcher, logger),
		Documents: handlers.NewDocumentHandler(store, s.dispatcher, logger),
		Health:    handlers.NewHealthHandler(store, s.registry, version, logger),
		WebSocket: ws.NewHandler(s.registry, s.dispatcher, ws.Options{
			SendBuffer:   cfg.Realtime.SendBuffer,
			PingInterval: cfg.Realtime.PingInterval.Duration,
			WriteTimeout: cfg.Realtime.WriteTimeout.Duration,
		}, logger),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewRouter(routes, jwtConfig, s.limiter, logger),
		ReadHeaderTimeout: cfg.Server.ReadTimeout.Duration,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
		// WriteTimeout не выставляется: он оборвал бы долгоживущие websocket соединения,
		// запись в них ограничивается realtime.write_timeout
	}

	return s, nil
}

// newLimitStore выбирает хранилище окон лимитов: память процесса или Redis.
func (s *Server) newLimitStore(ctx context.Context) (ratelimit.Store, error) {
	switch s.cfg.RateLimit.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		})
		s.closers = append(s.closers, client.Close)

		// Недоступный Redis не мешает старту: лимитер работает в режиме fail-open
		if err := client.Ping(ctx).Err(); err != nil {
			s.logger.Warn("Redis is unavailable, rate limiting fails open until it recovers",
				"addr", s.cfg.Redis.Addr, "error", err)
		}
		return ratelimit.NewRedisStore(client, s.cfg.Redis.Prefix), nil

	case "", "memory":
		store := ratelimit.NewMemoryStore(s.cfg.RateLimit.Idle.Duration)
		s.closers = append(s.closers, func() error {
			store.Stop()
			return nil
		})
		return store, nil

	default:
		return nil, fmt.Errorf("unknown rate limit store %q", s.cfg.RateLimit.Store)
	}
}

// Handler возвращает корневой HTTP обработчик.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливается:
// закрывает websocket соединения и ждет завершения текущих запросов.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.registry.RunJanitor(ctx, s.cfg.Realtime.JanitorInterval.Duration, s.cfg.Realtime.IdleTimeout.Duration)
		return nil
	})

	g.Go(func() error {
		s.runIdempotencyCleanup(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server")

		// Сначала закрываем websocket: Shutdown не ждет hijacked соединения
		s.registry.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) runIdempotencyCleanup(ctx context.Context) {
	ticker := time.NewTicker(idempotencyCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := s.storage.DeleteIdempotencyKeysBefore(ctx, now.Add(-idempotencyRetention))
			if err != nil {
				s.logger.Error("Failed to clean up idempotency keys", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Info("Idempotency keys cleaned up", "removed", removed)
			}
		}
	}
}

// Close освобождает ресурсы в обратном порядке создания.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
