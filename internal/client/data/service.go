package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/chatsync/internal/client/storage"
	clientsync "github.com/iudanet/chatsync/internal/client/sync"
	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/internal/validation"
)

// ErrMessageDeleted возвращается при попытке изменить удаленное сообщение
var ErrMessageDeleted = errors.New("message is deleted")

//go:generate moq -out service_mock.go . Service

// Service определяет интерфейс клиентского data сервиса.
// Каждое изменение сначала записывается в очередь действий, затем
// применяется к локальному кэшу, чтобы пользователь сразу видел результат.
type Service interface {
	SendMessage(ctx context.Context, conversationID, body string) (*models.Message, error)
	EditMessage(ctx context.Context, messageID, body string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) (*models.Message, error)
	React(ctx context.Context, messageID, emoji string, remove bool) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)

	UpdateTask(ctx context.Context, taskID string, mutations ...crdt.Mutation) (*models.Task, error)
	GetTask(ctx context.Context, taskID string) (*models.Task, error)

	Retry(ctx context.Context, actionID string) (*models.OfflineAction, error)
	Status(ctx context.Context) (*Status, error)
}

// Status состояние локальной очереди
type Status struct {
	Failed         []*models.OfflineAction
	FailedMessages []*models.Message
	Pending        int
}

// service handles client-side data operations
type service struct {
	stores clientsync.Stores
	editor *crdt.Editor
	now    func() time.Time
	userID string
}

// NewService creates a new data service for the logged in user
func NewService(stores clientsync.Stores, clock *crdt.LamportClock, userID string) Service {
	return &service{
		stores: stores,
		editor: crdt.NewEditor(clock),
		now:    time.Now,
		userID: userID,
	}
}

// LoadClock восстанавливает часы реплики из метаданных
func LoadClock(ctx context.Context, meta storage.MetadataStorage) (*crdt.LamportClock, error) {
	nodeID, err := meta.GetOrCreateNodeID(ctx)
	if err != nil {
		return nil, err
	}
	counter, err := meta.GetClock(ctx)
	if err != nil {
		return nil, err
	}
	clock := crdt.NewLamportClockWithNodeID(nodeID)
	clock.SetTimestamp(counter)
	return clock, nil
}

// SendMessage ставит сообщение в очередь и сохраняет его локально с временным ID
func (s *service) SendMessage(ctx context.Context, conversationID, body string) (*models.Message, error) {
	if err := validation.ValidateID("conversation id", conversationID); err != nil {
		return nil, err
	}
	if err := validation.ValidateMessageBody(body); err != nil {
		return nil, err
	}

	actionID := uuid.NewString()
	now := s.now()
	msg := &models.Message{
		ID:             models.LocalIDPrefix + uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       s.userID,
		ClientID:       actionID,
		Body:           body,
		Status:         models.MessageStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.enqueue(ctx, actionID, models.ConversationStream(conversationID), models.ActionTypeMessage,
		models.ActionCreate, models.MessagePayload{ConversationID: conversationID, MessageID: msg.ID, Body: body})
	if err != nil {
		return nil, err
	}

	if err := s.stores.Messages.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// EditMessage ставит в очередь изменение текста сообщения
func (s *service) EditMessage(ctx context.Context, messageID, body string) (*models.Message, error) {
	if err := validation.ValidateMessageBody(body); err != nil {
		return nil, err
	}

	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	err = s.enqueue(ctx, uuid.NewString(), models.ConversationStream(msg.ConversationID), models.ActionTypeMessage,
		models.ActionUpdate, models.MessagePayload{ConversationID: msg.ConversationID, MessageID: msg.ID, Body: body})
	if err != nil {
		return nil, err
	}

	msg.Body = body
	msg.UpdatedAt = s.now()
	msg.Status = models.MessageStatusPending
	if err := s.stores.Messages.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// DeleteMessage ставит в очередь удаление сообщения
func (s *service) DeleteMessage(ctx context.Context, messageID string) (*models.Message, error) {
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	err = s.enqueue(ctx, uuid.NewString(), models.ConversationStream(msg.ConversationID), models.ActionTypeMessage,
		models.ActionDelete, models.MessagePayload{ConversationID: msg.ConversationID, MessageID: msg.ID})
	if err != nil {
		return nil, err
	}

	msg.Deleted = true
	msg.Body = ""
	msg.UpdatedAt = s.now()
	msg.Status = models.MessageStatusPending
	if err := s.stores.Messages.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// React добавляет или снимает реакцию пользователя
func (s *service) React(ctx context.Context, messageID, emoji string, remove bool) (*models.Message, error) {
	if err := validation.ValidateEmoji(emoji); err != nil {
		return nil, err
	}

	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	verb := models.ActionCreate
	if remove {
		verb = models.ActionDelete
	}
	err = s.enqueue(ctx, uuid.NewString(), models.ConversationStream(msg.ConversationID), models.ActionTypeReaction,
		verb, models.ReactionPayload{ConversationID: msg.ConversationID, MessageID: msg.ID, Emoji: emoji})
	if err != nil {
		return nil, err
	}

	// Реакции пользователя - множество: повторное добавление ничего не меняет
	idx := slices.IndexFunc(msg.Reactions, func(r models.Reaction) bool {
		return r.UserID == s.userID && r.Emoji == emoji
	})
	switch {
	case remove && idx >= 0:
		msg.Reactions = slices.Delete(msg.Reactions, idx, idx+1)
	case !remove && idx < 0:
		msg.Reactions = append(msg.Reactions, models.Reaction{
			MessageID: msg.ID,
			UserID:    s.userID,
			Emoji:     emoji,
			CreatedAt: s.now(),
		})
	}
	if err := s.stores.Messages.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// ListMessages возвращает локальные сообщения беседы
func (s *service) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	msgs, err := s.stores.Messages.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// loadMessage находит сообщение в кэше, подставляя серверный ID вместо временного
func (s *service) loadMessage(ctx context.Context, messageID string) (*models.Message, error) {
	id, err := s.stores.IDs.ResolveID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	msg, err := s.stores.Messages.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	if msg.Deleted {
		return nil, ErrMessageDeleted
	}
	return msg, nil
}

// UpdateTask применяет изменения к локальной реплике задачи и ставит ее отправку в очередь
func (s *service) UpdateTask(ctx context.Context, taskID string, mutations ...crdt.Mutation) (*models.Task, error) {
	if err := validation.ValidateID("task id", taskID); err != nil {
		return nil, err
	}

	doc, err := s.stores.Documents.GetDocument(ctx, taskID)
	if errors.Is(err, storage.ErrDocumentNotFound) {
		doc = crdt.NewDocument(taskID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	updated, ops, err := s.editor.ApplyLocalChanges(doc, mutations...)
	if err != nil {
		return nil, fmt.Errorf("failed to apply changes: %w", err)
	}
	if len(ops) == 0 {
		return models.TaskFromDocument(updated)
	}

	// Очередь первой: после сбоя на следующих шагах изменение все равно будет отправлено
	if err := clientsync.EnqueueDocumentSync(ctx, s.stores.Queue, taskID); err != nil {
		return nil, err
	}
	// Слияние, а не перезапись: реплику мог изменить документ, пришедший с сервера
	merged, err := s.stores.Documents.MergeDocument(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	if err := s.stores.Metadata.SaveClock(ctx, s.editor.Clock().GetTimestamp()); err != nil {
		return nil, fmt.Errorf("failed to save clock: %w", err)
	}

	return models.TaskFromDocument(merged)
}

// GetTask возвращает задачу из локальной реплики
func (s *service) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	doc, err := s.stores.Documents.GetDocument(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return models.TaskFromDocument(doc)
}

// Retry возвращает неудавшееся действие в очередь с тем же ключом идемпотентности
func (s *service) Retry(ctx context.Context, actionID string) (*models.OfflineAction, error) {
	action, err := s.stores.Queue.Requeue(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue action %s: %w", actionID, err)
	}

	if action.Type == models.ActionTypeMessage && action.Action == models.ActionCreate {
		var p models.MessagePayload
		if err := json.Unmarshal(action.Payload, &p); err == nil {
			if err := s.stores.Messages.SetMessageStatus(ctx, p.MessageID, models.MessageStatusPending); err != nil &&
				!errors.Is(err, storage.ErrMessageNotFound) {
				return nil, fmt.Errorf("failed to update message status: %w", err)
			}
		}
	}
	return action, nil
}

// Status возвращает размер очереди и неудавшиеся действия
func (s *service) Status(ctx context.Context) (*Status, error) {
	pending, err := s.stores.Queue.Pending(ctx)
	if err != nil {
		return nil, err
	}
	failed, err := s.stores.Queue.Failed(ctx)
	if err != nil {
		return nil, err
	}
	failedMessages, err := s.stores.Messages.MessagesByStatus(ctx, models.MessageStatusFailed)
	if err != nil {
		return nil, err
	}
	return &Status{Pending: pending, Failed: failed, FailedMessages: failedMessages}, nil
}

func (s *service) enqueue(ctx context.Context, id, stream string, typ models.ActionType, verb models.ActionVerb, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	action := &models.OfflineAction{
		ID:        id,
		Stream:    stream,
		Type:      typ,
		Action:    verb,
		Payload:   data,
		CreatedAt: s.now(),
	}
	if err := s.stores.Queue.Enqueue(ctx, action); err != nil {
		return fmt.Errorf("failed to enqueue action: %w", err)
	}
	return nil
}
