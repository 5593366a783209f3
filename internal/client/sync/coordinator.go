// Package sync отправляет офлайн-действия из локальной очереди на сервер
// и применяет ответы сервера к локальному кэшу.
//
// Доставка at-least-once: действие удаляется из очереди только после
// подтверждения сервером, а повтор безопасен, так как ID действия служит
// ключом идемпотентности.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	httpClient "github.com/iudanet/chatsync/internal/client/api"
	"github.com/iudanet/chatsync/internal/client/storage"
	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/pkg/api"
)

// ErrDrainInProgress возвращается, если отправка очереди уже выполняется
var ErrDrainInProgress = errors.New("drain already in progress")

// errUnresolvedID действие ссылается на сообщение, создание которого не подтверждено
var errUnresolvedID = errors.New("message was never confirmed by server")

// localError сбой локального хранилища при обработке действия.
// Действие с таким сбоем не отбрасывается: проход прерывается, а действие
// остается в очереди и повторяется с тем же ключом идемпотентности.
type localError struct {
	err error
}

func (e *localError) Error() string { return e.err.Error() }

func (e *localError) Unwrap() error { return e.err }

func asLocal(err error) error {
	if err == nil {
		return nil
	}
	return &localError{err: err}
}

//go:generate moq -out api_mock.go . APIClient

// APIClient методы сервера, которые использует координатор
type APIClient interface {
	SendMessage(ctx context.Context, conversationID, idempotencyKey, body string) (*api.Message, error)
	EditMessage(ctx context.Context, messageID, idempotencyKey, body string) (*api.Message, error)
	DeleteMessage(ctx context.Context, messageID, idempotencyKey string) (*api.Message, error)
	AddReaction(ctx context.Context, messageID, emoji string) (*api.Message, error)
	RemoveReaction(ctx context.Context, messageID, emoji string) (*api.Message, error)
	ListMessages(ctx context.Context, conversationID string, since time.Time, afterID string, limit int) ([]api.Message, error)
	PutDocument(ctx context.Context, doc *crdt.Document) (*crdt.Document, error)
}

// Notifier получает действия, которые не удалось доставить
type Notifier interface {
	ActionFailed(action *models.OfflineAction, err error)
}

// NotifierFunc адаптер функции к Notifier
type NotifierFunc func(action *models.OfflineAction, err error)

// ActionFailed вызывает f
func (f NotifierFunc) ActionFailed(action *models.OfflineAction, err error) {
	f(action, err)
}

// Stores локальные хранилища, с которыми работает координатор
type Stores struct {
	Queue     storage.ActionQueue
	Messages  storage.MessageStorage
	IDs       storage.IDMapStorage
	Documents storage.DocumentStorage
	Metadata  storage.MetadataStorage
}

// Options параметры отправки
type Options struct {
	Notifier       Notifier
	MaxRetries     int           // после стольких временных сбоев действие отбрасывается
	BatchSize      int           // сколько действий читать из очереди за проход
	InitialBackoff time.Duration // первая задержка повтора
	MaxBackoff     time.Duration
	FetchLimit     int // размер страницы догрузки сообщений
}

// DefaultOptions значения по умолчанию
func DefaultOptions() Options {
	return Options{
		MaxRetries:     3,
		BatchSize:      100,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
		FetchLimit:     500,
	}
}

// DrainResult итог одного прохода по очереди
type DrainResult struct {
	Sent        int // подтверждены сервером
	Retried     int // временный сбой, будет повтор
	Rescheduled int // 429, отложены без расхода попыток
	Dropped     int // отброшены окончательно
	Waiting     int // еще не наступило время следующей попытки
}

func (r *DrainResult) add(other DrainResult) {
	r.Sent += other.Sent
	r.Retried += other.Retried
	r.Rescheduled += other.Rescheduled
	r.Dropped += other.Dropped
	r.Waiting += other.Waiting
}

// Coordinator отправляет действия из очереди.
// Внутри потока (беседы или документа) действия отправляются строго по порядку,
// разные потоки отправляются параллельно.
type Coordinator struct {
	api      APIClient
	stores   Stores
	clock    *crdt.LamportClock
	logger   *slog.Logger
	now      func() time.Time
	trigger  chan struct{}
	opts     Options
	draining atomic.Bool
}

// NewCoordinator создает координатор.
// clock может быть nil, тогда часы реплики не продвигаются при слиянии документов.
func NewCoordinator(apiClient APIClient, stores Stores, clock *crdt.LamportClock, opts Options, logger *slog.Logger) *Coordinator {
	def := DefaultOptions()
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = def.InitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = def.MaxBackoff
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = def.FetchLimit
	}

	return &Coordinator{
		api:     apiClient,
		stores:  stores,
		clock:   clock,
		logger:  logger,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
		opts:    opts,
	}
}

// Trigger просит Run выполнить проход, не дожидаясь таймера
func (c *Coordinator) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run периодически отправляет очередь до отмены ctx
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.DrainOnce(ctx); err != nil && !errors.Is(err, ErrDrainInProgress) {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to drain action queue", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-c.trigger:
		}
	}
}

// DrainOnce выполняет один проход по очереди.
// Ошибка возвращается только при сбое локального хранилища или отмене ctx;
// сбои отправки отражаются в DrainResult.
func (c *Coordinator) DrainOnce(ctx context.Context) (*DrainResult, error) {
	if !c.draining.CompareAndSwap(false, true) {
		return nil, ErrDrainInProgress
	}
	defer c.draining.Store(false)

	actions, err := c.stores.Queue.PeekBatch(ctx, c.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read action queue: %w", err)
	}
	if len(actions) == 0 {
		return &DrainResult{}, nil
	}

	// Группируем по потокам, сохраняя порядок создания внутри каждого
	var order []string
	streams := make(map[string][]*models.OfflineAction)
	for _, action := range actions {
		if _, ok := streams[action.Stream]; !ok {
			order = append(order, action.Stream)
		}
		streams[action.Stream] = append(streams[action.Stream], action)
	}

	results := make([]DrainResult, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range order {
		g.Go(func() error {
			return c.drainStream(gctx, streams[name], &results[i])
		})
	}
	err = g.Wait()

	total := &DrainResult{}
	for _, r := range results {
		total.add(r)
	}

	c.logger.Info("Action queue drained",
		"sent", total.Sent,
		"retried", total.Retried,
		"rescheduled", total.Rescheduled,
		"dropped", total.Dropped,
		"waiting", total.Waiting,
	)

	return total, err
}

// drainStream отправляет действия одного потока по порядку.
// Действие, которое нельзя отправить сейчас, блокирует все следующие за ним.
func (c *Coordinator) drainStream(ctx context.Context, actions []*models.OfflineAction, result *DrainResult) error {
	for i, queued := range actions {
		// Предыдущее действие потока могло переписать ID в этом
		action, err := c.stores.Queue.Get(ctx, queued.ID)
		if errors.Is(err, storage.ErrActionNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to reload action %s: %w", queued.ID, err)
		}

		now := c.now()
		if !action.Ready(now) {
			result.Waiting += len(actions) - i
			return nil
		}

		sendErr := c.send(ctx, action)
		if sendErr == nil {
			if err := c.stores.Queue.Ack(ctx, action.ID); err != nil {
				return fmt.Errorf("failed to ack action %s: %w", action.ID, err)
			}
			result.Sent++
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log := c.logger.With("action_id", action.ID, "stream", action.Stream, "type", string(action.Type))

		var (
			local     *localError
			limited   *httpClient.RateLimitedError
			transient *httpClient.TransientError
		)
		switch {
		case errors.As(sendErr, &local):
			result.Waiting += len(actions) - i
			return fmt.Errorf("failed to apply action %s locally: %w", action.ID, local.err)

		case errors.As(sendErr, &limited):
			at := now.Add(limited.RetryAfter)
			if err := c.stores.Queue.Reschedule(ctx, action.ID, at); err != nil {
				return fmt.Errorf("failed to reschedule action %s: %w", action.ID, err)
			}
			log.Info("Action rate limited, rescheduled", "retry_after", limited.RetryAfter)
			result.Rescheduled++
			result.Waiting += len(actions) - i - 1
			return nil

		case errors.As(sendErr, &transient):
			if action.Retries+1 >= c.opts.MaxRetries {
				if err := c.fail(ctx, action, sendErr); err != nil {
					return err
				}
				result.Dropped++
				continue
			}
			delay := c.retryDelay(action.Retries + 1)
			retries, err := c.stores.Queue.IncrementRetry(ctx, action.ID, now.Add(delay))
			if err != nil {
				return fmt.Errorf("failed to record retry of action %s: %w", action.ID, err)
			}
			log.Warn("Action failed, will retry", "retries", retries, "delay", delay, "error", sendErr)
			result.Retried++
			result.Waiting += len(actions) - i - 1
			return nil

		default:
			if err := c.fail(ctx, action, sendErr); err != nil {
				return err
			}
			result.Dropped++
		}
	}
	return nil
}

// retryDelay экспоненциальная задержка перед попыткой attempt (с 1)
func (c *Coordinator) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialBackoff
	b.MaxInterval = c.opts.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// fail отбрасывает действие и сообщает об этом пользователю
func (c *Coordinator) fail(ctx context.Context, action *models.OfflineAction, cause error) error {
	if err := c.stores.Queue.Drop(ctx, action.ID, cause.Error()); err != nil {
		return fmt.Errorf("failed to drop action %s: %w", action.ID, err)
	}
	c.logger.Warn("Action dropped",
		"action_id", action.ID,
		"stream", action.Stream,
		"type", string(action.Type),
		"action", string(action.Action),
		"retries", action.Retries,
		"error", cause,
	)

	if action.Type == models.ActionTypeMessage && action.Action == models.ActionCreate {
		var p models.MessagePayload
		if err := json.Unmarshal(action.Payload, &p); err == nil {
			if err := c.stores.Messages.SetMessageStatus(ctx, p.MessageID, models.MessageStatusFailed); err != nil &&
				!errors.Is(err, storage.ErrMessageNotFound) {
				c.logger.Error("Failed to mark message as failed", "message_id", p.MessageID, "error", err)
			}
		}
	}

	if c.opts.Notifier != nil {
		c.opts.Notifier.ActionFailed(action, cause)
	}
	return nil
}

// send выполняет запрос, соответствующий действию, и применяет ответ к локальному кэшу
func (c *Coordinator) send(ctx context.Context, action *models.OfflineAction) error {
	switch action.Type {
	case models.ActionTypeMessage:
		return c.sendMessage(ctx, action)
	case models.ActionTypeReaction:
		return c.sendReaction(ctx, action)
	case models.ActionTypeDocument:
		return c.sendDocument(ctx, action)
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

func (c *Coordinator) sendMessage(ctx context.Context, action *models.OfflineAction) error {
	var p models.MessagePayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		return fmt.Errorf("invalid message payload: %w", err)
	}

	if action.Action == models.ActionCreate {
		msg, err := c.api.SendMessage(ctx, p.ConversationID, action.ID, p.Body)
		if err != nil {
			return err
		}
		return asLocal(c.confirmCreate(ctx, p.MessageID, msg))
	}

	id, err := c.resolve(ctx, p.MessageID)
	if err != nil {
		return err
	}

	var msg *api.Message
	switch action.Action {
	case models.ActionUpdate:
		msg, err = c.api.EditMessage(ctx, id, action.ID, p.Body)
	case models.ActionDelete:
		msg, err = c.api.DeleteMessage(ctx, id, action.ID)
	default:
		return fmt.Errorf("unknown message action %q", action.Action)
	}
	if err != nil {
		return err
	}
	return asLocal(c.saveConfirmed(ctx, msg))
}

func (c *Coordinator) sendReaction(ctx context.Context, action *models.OfflineAction) error {
	var p models.ReactionPayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		return fmt.Errorf("invalid reaction payload: %w", err)
	}
	id, err := c.resolve(ctx, p.MessageID)
	if err != nil {
		return err
	}

	var msg *api.Message
	switch action.Action {
	case models.ActionCreate:
		msg, err = c.api.AddReaction(ctx, id, p.Emoji)
	case models.ActionDelete:
		msg, err = c.api.RemoveReaction(ctx, id, p.Emoji)
	default:
		return fmt.Errorf("unknown reaction action %q", action.Action)
	}
	if err != nil {
		return err
	}
	return asLocal(c.saveConfirmed(ctx, msg))
}

func (c *Coordinator) sendDocument(ctx context.Context, action *models.OfflineAction) error {
	var p models.DocumentPayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		return fmt.Errorf("invalid document payload: %w", err)
	}

	// Отправляется актуальная локальная версия, а не снимок на момент постановки в очередь
	doc, err := c.stores.Documents.GetDocument(ctx, p.DocumentID)
	if errors.Is(err, storage.ErrDocumentNotFound) {
		return fmt.Errorf("failed to load document %s: %w", p.DocumentID, err)
	}
	if err != nil {
		return asLocal(fmt.Errorf("failed to load document %s: %w", p.DocumentID, err))
	}

	merged, err := c.api.PutDocument(ctx, doc)
	if err != nil {
		return err
	}

	_, err = c.ApplyRemoteDocument(ctx, merged)
	return asLocal(err)
}

// resolve заменяет временный ID серверным.
// Временный ID без отображения означает, что создание сообщения не удалось.
func (c *Coordinator) resolve(ctx context.Context, id string) (string, error) {
	resolved, err := c.stores.IDs.ResolveID(ctx, id)
	if err != nil {
		return "", asLocal(err)
	}
	if models.IsLocalID(resolved) {
		return "", fmt.Errorf("%w: %s", errUnresolvedID, id)
	}
	return resolved, nil
}

// confirmCreate сохраняет отображение временного ID на серверный,
// заменяет локальную копию сообщения и переписывает ID в оставшихся действиях очереди.
func (c *Coordinator) confirmCreate(ctx context.Context, localID string, msg *api.Message) error {
	if err := c.stores.IDs.SaveIDMapping(ctx, localID, msg.ID); err != nil {
		return fmt.Errorf("failed to save id mapping: %w", err)
	}
	if err := c.stores.Messages.ReplaceMessageID(ctx, localID, httpClient.ToModel(*msg)); err != nil {
		return fmt.Errorf("failed to replace local message: %w", err)
	}

	rewritten, err := c.rewriteQueued(ctx, localID, msg.ID)
	if err != nil {
		return err
	}
	c.logger.Debug("Message confirmed", "local_id", localID, "message_id", msg.ID, "rewritten", rewritten)
	return nil
}

// rewriteQueued подставляет серверный ID в действия, поставленные до подтверждения
func (c *Coordinator) rewriteQueued(ctx context.Context, localID, serverID string) (int, error) {
	queued, err := c.stores.Queue.PeekBatch(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to read action queue: %w", err)
	}

	rewritten := 0
	for _, action := range queued {
		payload, ok, err := rewritePayload(action, localID, serverID)
		if err != nil {
			c.logger.Warn("Skipping action with invalid payload", "action_id", action.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		action.Payload = payload
		if err := c.stores.Queue.Update(ctx, action); err != nil {
			return rewritten, fmt.Errorf("failed to rewrite action %s: %w", action.ID, err)
		}
		rewritten++
	}
	return rewritten, nil
}

func rewritePayload(action *models.OfflineAction, localID, serverID string) (json.RawMessage, bool, error) {
	switch action.Type {
	case models.ActionTypeMessage:
		var p models.MessagePayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return nil, false, err
		}
		// create хранит свой временный ID, он нужен для замены локальной копии
		if p.MessageID != localID || action.Action == models.ActionCreate {
			return nil, false, nil
		}
		p.MessageID = serverID
		data, err := json.Marshal(p)
		return data, true, err

	case models.ActionTypeReaction:
		var p models.ReactionPayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return nil, false, err
		}
		if p.MessageID != localID {
			return nil, false, nil
		}
		p.MessageID = serverID
		data, err := json.Marshal(p)
		return data, true, err
	}
	return nil, false, nil
}

// saveConfirmed сохраняет подтвержденное сервером сообщение в кэш
func (c *Coordinator) saveConfirmed(ctx context.Context, msg *api.Message) error {
	if err := c.stores.Messages.SaveMessage(ctx, httpClient.ToModel(*msg)); err != nil {
		return fmt.Errorf("failed to cache message: %w", err)
	}
	return nil
}

// ApplyRemoteDocument сливает удаленную версию документа с локальной репликой.
// Если в локальной реплике есть операции, которых нет у удаленной версии,
// в очередь ставится отправка документа.
func (c *Coordinator) ApplyRemoteDocument(ctx context.Context, remote *crdt.Document) (*crdt.Document, error) {
	merged, err := c.stores.Documents.MergeDocument(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to merge document %s: %w", remote.ID, err)
	}

	if c.clock != nil {
		c.clock.Observe(merged.MaxCounter())
		if err := c.stores.Metadata.SaveClock(ctx, c.clock.GetTimestamp()); err != nil {
			c.logger.Warn("Failed to persist clock", "error", err)
		}
	}

	if !remote.Covers(merged) {
		if err := EnqueueDocumentSync(ctx, c.stores.Queue, remote.ID); err != nil {
			return nil, err
		}
		c.logger.Debug("Local document changes queued for sync", "document_id", remote.ID)
	}

	return merged, nil
}

// EnqueueDocumentSync ставит в очередь отправку документа
func EnqueueDocumentSync(ctx context.Context, queue storage.ActionQueue, documentID string) error {
	payload, err := json.Marshal(models.DocumentPayload{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("failed to marshal document payload: %w", err)
	}
	action := &models.OfflineAction{
		ID:      uuid.NewString(),
		Stream:  models.DocumentStream(documentID),
		Type:    models.ActionTypeDocument,
		Action:  models.ActionUpdate,
		Payload: payload,
	}
	if err := queue.Enqueue(ctx, action); err != nil {
		return fmt.Errorf("failed to enqueue document sync: %w", err)
	}
	return nil
}

// FetchConversation догружает изменения беседы после переподключения.
// Сообщения, еще не подтвержденные сервером, не перезаписываются.
func (c *Coordinator) FetchConversation(ctx context.Context, conversationID string) (int, error) {
	since, err := c.stores.Metadata.GetLastSeen(ctx, conversationID)
	if err != nil {
		return 0, err
	}

	fetched := 0
	newest := since
	afterID := ""
	for {
		msgs, err := c.api.ListMessages(ctx, conversationID, since, afterID, c.opts.FetchLimit)
		if err != nil {
			return fetched, fmt.Errorf("failed to fetch conversation %s: %w", conversationID, err)
		}

		for _, m := range msgs {
			if m.UpdatedAt.After(newest) {
				newest = m.UpdatedAt
			}
			if cached, err := c.stores.Messages.GetMessage(ctx, m.ID); err == nil && cached.Status == models.MessageStatusPending {
				continue
			}
			if err := c.stores.Messages.SaveMessage(ctx, httpClient.ToModel(m)); err != nil {
				return fetched, fmt.Errorf("failed to cache message: %w", err)
			}
		}
		fetched += len(msgs)

		if len(msgs) > 0 {
			if err := c.stores.Metadata.SaveLastSeen(ctx, conversationID, newest); err != nil {
				return fetched, err
			}
		}
		if len(msgs) < c.opts.FetchLimit {
			break
		}
		// Страницы упорядочены по (updated_at, id): последний элемент служит курсором,
		// поэтому сообщения с одинаковым updated_at не теряются между страницами
		last := msgs[len(msgs)-1]
		since, afterID = last.UpdatedAt, last.ID
	}

	c.logger.Debug("Conversation fetched", "conversation_id", conversationID, "messages", fetched)
	return fetched, nil
}
