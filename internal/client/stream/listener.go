// Package stream держит websocket соединение клиента с сервером:
// подписывается на беседы и задачи, применяет входящие события к локальному
// кэшу и после каждого переподключения догружает пропущенные изменения.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"nhooyr.io/websocket"

	httpClient "github.com/iudanet/chatsync/internal/client/api"
	"github.com/iudanet/chatsync/internal/client/storage"
	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/pkg/api"
)

//go:generate moq -out applier_mock.go . Applier

// Applier применяет к локальной реплике то, что пришло с сервера.
// Реализуется sync.Coordinator.
type Applier interface {
	ApplyRemoteDocument(ctx context.Context, remote *crdt.Document) (*crdt.Document, error)
	FetchConversation(ctx context.Context, conversationID string) (int, error)
	Trigger()
}

// ConnectionIDSetter получает идентификатор соединения, выданный сервером
// при handshake. REST клиент передает его, чтобы не получать эхо своих изменений.
type ConnectionIDSetter interface {
	SetConnectionID(id string)
}

// Options параметры слушателя
type Options struct {
	// OnEvent вызывается для каждого принятого события после его применения
	OnEvent        func(env *api.Envelope)
	Conversations  []string
	Tasks          []string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	ReadLimit      int64
}

// Listener слушает события сервера и применяет их к локальному хранилищу
type Listener struct {
	applier  Applier
	messages storage.MessageStorage
	meta     storage.MetadataStorage
	conn     ConnectionIDSetter
	logger   *slog.Logger
	baseURL  string
	token    string
	opts     Options
}

// NewListener создает слушателя для сервера baseURL (http или https)
func NewListener(baseURL, token string, applier Applier, messages storage.MessageStorage,
	meta storage.MetadataStorage, conn ConnectionIDSetter, opts Options, logger *slog.Logger,
) *Listener {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}

	return &Listener{
		applier:  applier,
		messages: messages,
		meta:     meta,
		conn:     conn,
		logger:   logger,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		token:    token,
		opts:     opts,
	}
}

// Run подключается и переподключается с экспоненциальной задержкой до отмены ctx.
// Отказ в авторизации при handshake завершает работу с ошибкой.
func (l *Listener) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.opts.InitialBackoff
	b.MaxInterval = l.opts.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		connected, err := l.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, errUnauthorized) {
			return err
		}
		if connected {
			b.Reset()
		}

		delay := b.NextBackOff()
		l.logger.Info("Stream disconnected, reconnecting", "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

var errUnauthorized = errors.New("stream handshake unauthorized")

// wsURL переводит адрес сервера в адрес websocket эндпоинта
func (l *Listener) wsURL() string {
	switch {
	case strings.HasPrefix(l.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(l.baseURL, "https://") + "/ws"
	case strings.HasPrefix(l.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(l.baseURL, "http://") + "/ws"
	default:
		return l.baseURL + "/ws"
	}
}

// session обслуживает одно соединение. connected=true, если handshake прошел.
func (l *Listener) session(ctx context.Context) (connected bool, err error) {
	conn, resp, err := websocket.Dial(ctx, l.wsURL(), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + l.token}},
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return false, errUnauthorized
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(l.opts.ReadLimit)

	if l.conn != nil {
		l.conn.SetConnectionID(resp.Header.Get(api.HeaderConnectionID))
		defer l.conn.SetConnectionID("")
	}
	l.logger.Info("Stream connected", "connection_id", resp.Header.Get(api.HeaderConnectionID))

	if err := l.join(ctx, conn); err != nil {
		return true, err
	}

	// Подписка уже действует: все, что изменится дальше, придет событием,
	// а пропущенное за время отключения догружаем запросом
	l.catchUp(ctx)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return true, nil
			}
			return true, fmt.Errorf("read: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}

		env, err := api.DecodeEnvelope(data)
		if err != nil {
			l.logger.Debug("Frame ignored", "error", err)
			continue
		}
		if err := l.Handle(ctx, env); err != nil {
			l.logger.Warn("Failed to apply event", "type", string(env.Type), "topic", env.Topic, "error", err)
			continue
		}
		if l.opts.OnEvent != nil {
			l.opts.OnEvent(env)
		}
	}
}

func (l *Listener) join(ctx context.Context, conn *websocket.Conn) error {
	topics := slices.Clone(l.opts.Conversations)
	for _, id := range l.opts.Tasks {
		topics = append(topics, api.TaskTopic(id))
	}

	for _, topic := range topics {
		env, err := api.NewEnvelope(api.TypeJoin, topic, "", api.JoinData{}, time.Now())
		if err != nil {
			return err
		}
		frame, err := env.Encode()
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return fmt.Errorf("join %s: %w", topic, err)
		}
	}
	return nil
}

// catchUp догружает беседы и будит отправку очереди
func (l *Listener) catchUp(ctx context.Context) {
	for _, id := range l.opts.Conversations {
		n, err := l.applier.FetchConversation(ctx, id)
		if err != nil {
			l.logger.Warn("Failed to fetch conversation", "conversation_id", id, "error", err)
			continue
		}
		l.logger.Debug("Conversation caught up", "conversation_id", id, "messages", n)
	}
	l.applier.Trigger()
}

// Handle применяет одно событие к локальному хранилищу.
// События повторяются и приходят не по порядку, поэтому применение идемпотентно.
func (l *Listener) Handle(ctx context.Context, env *api.Envelope) error {
	payload, err := env.Payload()
	if err != nil {
		return err
	}

	switch data := payload.(type) {
	case *api.MessageData:
		return l.applyMessage(ctx, data)
	case *api.ReactionData:
		return l.applyReaction(ctx, env.UserID, data)
	case *api.TaskData:
		doc := crdt.NewDocument(data.DocumentID)
		if err := json.Unmarshal(data.Document, doc); err != nil {
			return fmt.Errorf("failed to decode document: %w", err)
		}
		_, err := l.applier.ApplyRemoteDocument(ctx, doc)
		return err
	default:
		// typing, presence, read только показываются
		return nil
	}
}

func (l *Listener) applyMessage(ctx context.Context, data *api.MessageData) error {
	incoming := httpClient.ToModel(data.Message)

	cached, err := l.messages.GetMessage(ctx, incoming.ID)
	switch {
	case errors.Is(err, storage.ErrMessageNotFound):
	case err != nil:
		return err
	case cached.Status == models.MessageStatusPending:
		// Локальная правка еще в очереди, серверная версия придет после ее отправки
		return nil
	case cached.UpdatedAt.After(incoming.UpdatedAt):
		return nil
	}

	if err := l.messages.SaveMessage(ctx, incoming); err != nil {
		return fmt.Errorf("failed to cache message: %w", err)
	}

	last, err := l.meta.GetLastSeen(ctx, incoming.ConversationID)
	if err != nil {
		return err
	}
	if incoming.UpdatedAt.After(last) {
		return l.meta.SaveLastSeen(ctx, incoming.ConversationID, incoming.UpdatedAt)
	}
	return nil
}

func (l *Listener) applyReaction(ctx context.Context, userID string, data *api.ReactionData) error {
	msg, err := l.messages.GetMessage(ctx, data.MessageID)
	if errors.Is(err, storage.ErrMessageNotFound) {
		// Сообщение догрузится вместе с реакциями
		return nil
	}
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(msg.Reactions, func(r models.Reaction) bool {
		return r.UserID == userID && r.Emoji == data.Emoji
	})
	switch {
	case data.Action == api.ActionRemoved && idx >= 0:
		msg.Reactions = slices.Delete(msg.Reactions, idx, idx+1)
	case data.Action == api.ActionAdded && idx < 0:
		msg.Reactions = append(msg.Reactions, models.Reaction{
			MessageID: msg.ID,
			UserID:    userID,
			Emoji:     data.Emoji,
			CreatedAt: time.Now(),
		})
	default:
		return nil
	}
	return l.messages.SaveMessage(ctx, msg)
}
