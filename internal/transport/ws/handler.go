// Package ws обслуживает websocket соединения клиентов: регистрирует их в
// реестре, принимает подписки и сигналы, пишет разосланные события.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"github.com/iudanet/chatsync/internal/realtime"
	"github.com/iudanet/chatsync/internal/server/handlers"
	"github.com/iudanet/chatsync/internal/validation"
	"github.com/iudanet/chatsync/pkg/api"
)

// errSinkClosed соединение удалено из реестра (медленный клиент, простой или остановка)
var errSinkClosed = errors.New("connection removed from registry")

// Options параметры websocket соединений
type Options struct {
	OriginPatterns []string
	SendBuffer     int
	ReadLimit      int64
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// DefaultOptions значения по умолчанию
func DefaultOptions() Options {
	return Options{
		SendBuffer:   64,
		ReadLimit:    64 << 10,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Handler обрабатывает GET /ws.
// Ожидает, что AuthMiddleware уже положил user_id в контекст.
type Handler struct {
	registry  *realtime.Registry
	publisher handlers.Publisher
	logger    *slog.Logger
	now       func() time.Time
	opts      Options
}

// NewHandler создает websocket handler
func NewHandler(registry *realtime.Registry, publisher handlers.Publisher, opts Options, logger *slog.Logger) *Handler {
	def := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = def.ReadLimit
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = def.PingInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}

	return &Handler{
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		opts:      opts,
	}
}

// ServeHTTP выполняет upgrade и обслуживает соединение до его закрытия.
// Идентификатор соединения возвращается в заголовке X-Connection-ID ответа
// на handshake: клиент передает его в REST запросах, чтобы не получать эхо
// собственных изменений.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := handlers.GetUserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	connID := uuid.NewString()
	w.Header().Set(api.HeaderConnectionID, connID)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.logger.Warn("Websocket handshake failed", "user_id", userID, "error", err)
		return
	}
	conn.SetReadLimit(h.opts.ReadLimit)

	sink := realtime.NewBufferedSink(h.opts.SendBuffer)
	if err := h.registry.Register(connID, userID, sink); err != nil {
		h.logger.Warn("Failed to register connection", "user_id", userID, "error", err)
		_ = conn.Close(websocket.StatusTryAgainLater, "server is shutting down")
		return
	}
	defer h.registry.Unregister(connID)

	log := h.logger.With("connection_id", connID, "user_id", userID)
	log.Info("Websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return h.readLoop(ctx, conn, connID, userID, log)
	})
	g.Go(func() error {
		defer cancel()
		return h.writeLoop(ctx, conn, sink, connID)
	})

	err = g.Wait()
	switch {
	case errors.Is(err, errSinkClosed):
		log.Info("Websocket closed by server")
	case err != nil && !errors.Is(err, context.Canceled):
		_ = conn.CloseNow()
		log.Info("Websocket closed", "error", err)
	default:
		_ = conn.Close(websocket.StatusNormalClosure, "")
		log.Info("Websocket disconnected")
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, connID, userID string, log *slog.Logger) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		_ = h.registry.Touch(connID, h.now())

		if typ != websocket.MessageText {
			log.Debug("Binary frame ignored")
			continue
		}
		h.handleFrame(ctx, connID, userID, data, log)
	}
}

// writeLoop пишет кадры из очереди соединения и отправляет ping.
// Успешный ping продлевает активность соединения для janitor.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, sink *realtime.BufferedSink, connID string) error {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case frame, ok := <-sink.Frames():
			if !ok {
				// Close дожидается ответного close кадра, его читает readLoop
				_ = conn.Close(websocket.StatusGoingAway, "disconnected by server")
				return errSinkClosed
			}
			wctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			_ = h.registry.Touch(connID, h.now())
		}
	}
}

// handleFrame обрабатывает один входящий кадр.
// Некорректные кадры и неизвестные типы событий игнорируются, соединение не рвется.
func (h *Handler) handleFrame(ctx context.Context, connID, userID string, frame []byte, log *slog.Logger) {
	env, err := api.DecodeEnvelope(frame)
	if err != nil {
		if errors.Is(err, api.ErrUnknownEventType) {
			log.Debug("Unknown event type ignored", "error", err)
		} else {
			log.Warn("Malformed frame ignored", "error", err)
		}
		return
	}

	if err := validation.ValidateID("topic", env.Topic); err != nil {
		log.Warn("Frame with invalid topic ignored", "error", err)
		return
	}

	switch env.Type {
	case api.TypeJoin:
		if err := h.registry.Join(connID, env.Topic); err != nil {
			log.Warn("Failed to join topic", "topic", env.Topic, "error", err)
			return
		}
		log.Debug("Joined topic", "topic", env.Topic)

	case api.TypeLeave:
		if err := h.registry.Leave(connID, env.Topic); err != nil {
			log.Warn("Failed to leave topic", "topic", env.Topic, "error", err)
		}

	case api.TypeTyping, api.TypePresence, api.TypeRead:
		h.relay(ctx, connID, userID, env, log)

	default:
		// message, reaction, task, file рассылает только сервер после сохранения
		log.Debug("Client frame type not accepted over websocket", "type", string(env.Type))
	}
}

// relay пересылает сигнал клиента остальным подписчикам темы.
// Отправитель должен быть подписан на тему; userId и timestamp проставляет сервер.
func (h *Handler) relay(ctx context.Context, connID, userID string, env *api.Envelope, log *slog.Logger) {
	info, ok := h.registry.Lookup(connID)
	if !ok || !slices.Contains(info.Topics, env.Topic) {
		log.Debug("Signal for topic without subscription ignored", "topic", env.Topic)
		return
	}
	if _, err := env.Payload(); err != nil {
		log.Warn("Signal with invalid data ignored", "type", string(env.Type), "error", err)
		return
	}

	now := h.now()
	env.UserID = userID
	env.Timestamp = now.UTC()
	frame, err := env.Encode()
	if err != nil {
		log.Error("Failed to encode signal", "error", err)
		return
	}

	kind := realtime.KindSignal
	if env.Type == api.TypeRead {
		kind = realtime.KindRead
	}

	h.publisher.Publish(ctx, realtime.Event{
		Kind:         kind,
		Topic:        env.Topic,
		OriginatorID: userID,
		Payload:      frame,
		Timestamp:    now,
	}, realtime.PublishOptions{ExcludeConnection: connID})
}
