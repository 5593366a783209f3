package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/internal/realtime"
	"github.com/iudanet/chatsync/internal/server/storage"
	"github.com/iudanet/chatsync/internal/validation"
	"github.com/iudanet/chatsync/pkg/api"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// MessageHandler обрабатывает запросы к сообщениям и реакциям
type MessageHandler struct {
	storage   storage.MessageStorage
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewMessageHandler создает новый handler сообщений
func NewMessageHandler(s storage.MessageStorage, publisher Publisher, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		storage:   s,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create обрабатывает POST /api/v1/conversations/{id}/messages.
// Повторный запрос с тем же idempotency_key возвращает 200 и уже сохраненное сообщение.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}
	conversationID := mux.Vars(r)["id"]
	if err := validation.ValidateID("conversation id", conversationID); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	var req api.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode send request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(api.HeaderIdempotencyKey)
	}
	if err := validation.ValidateMessageBody(req.Body); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if req.IdempotencyKey == "" {
		writeError(w, h.logger, http.StatusBadRequest, "idempotency_key is required")
		return
	}

	stored, replayed, err := h.storage.CreateMessage(r.Context(), &models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		ClientID:       req.IdempotencyKey,
		Body:           req.Body,
		CreatedAt:      h.now(),
	})
	if err != nil {
		h.fail(w, err, "Failed to create message", userID)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	} else {
		publish(r.Context(), h.publisher, h.logger, r, realtime.KindCreated, api.TypeMessage,
			conversationID, userID, api.MessageData{Action: api.ActionCreated, Message: toAPIMessage(stored)})
	}

	h.logger.Debug("Message stored", "user_id", userID, "message_id", stored.ID, "replayed", replayed)
	writeJSON(w, h.logger, status, toAPIMessage(stored))
}

// List обрабатывает GET /api/v1/conversations/{id}/messages?since=&limit=.
// Клиент вызывает его после переподключения, чтобы догрузить пропущенные изменения.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetUserID(r.Context()); !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}
	conversationID := mux.Vars(r)["id"]
	if err := validation.ValidateID("conversation id", conversationID); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()

	var since time.Time
	if raw := q.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed
	}

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	afterID := q.Get("after")
	if afterID != "" {
		if since.IsZero() {
			writeError(w, h.logger, http.StatusBadRequest, "after requires since")
			return
		}
		if err := validation.ValidateID("message id", afterID); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
	}

	msgs, err := h.storage.ListMessages(r.Context(), conversationID, since, afterID, limit)
	if err != nil {
		h.fail(w, err, "Failed to list messages", "")
		return
	}

	resp := api.MessagesResponse{Messages: make([]api.Message, 0, len(msgs))}
	for _, msg := range msgs {
		resp.Messages = append(resp.Messages, toAPIMessage(msg))
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// Update обрабатывает PATCH /api/v1/messages/{id}
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req api.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateMessageBody(req.Body); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	msg, replayed, err := h.storage.UpdateMessage(r.Context(), mux.Vars(r)["id"], userID, req.Body,
		r.Header.Get(api.HeaderIdempotencyKey), h.now())
	if err != nil {
		h.fail(w, err, "Failed to update message", userID)
		return
	}

	if !replayed {
		publish(r.Context(), h.publisher, h.logger, r, realtime.KindUpdated, api.TypeMessage,
			msg.ConversationID, userID, api.MessageData{Action: api.ActionUpdated, Message: toAPIMessage(msg)})
	}
	writeJSON(w, h.logger, http.StatusOK, toAPIMessage(msg))
}

// Delete обрабатывает DELETE /api/v1/messages/{id}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	msg, replayed, err := h.storage.DeleteMessage(r.Context(), mux.Vars(r)["id"], userID,
		r.Header.Get(api.HeaderIdempotencyKey), h.now())
	if err != nil {
		h.fail(w, err, "Failed to delete message", userID)
		return
	}

	if !replayed {
		publish(r.Context(), h.publisher, h.logger, r, realtime.KindDeleted, api.TypeMessage,
			msg.ConversationID, userID, api.MessageData{Action: api.ActionDeleted, Message: toAPIMessage(msg)})
	}
	writeJSON(w, h.logger, http.StatusOK, toAPIMessage(msg))
}

// AddReaction обрабатывает POST /api/v1/messages/{id}/reactions
func (h *MessageHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req api.ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	h.changeReaction(w, r, userID, mux.Vars(r)["id"], req.Emoji, api.ActionAdded)
}

// RemoveReaction обрабатывает DELETE /api/v1/messages/{id}/reactions/{emoji}
func (h *MessageHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}
	vars := mux.Vars(r)
	h.changeReaction(w, r, userID, vars["id"], vars["emoji"], api.ActionRemoved)
}

func (h *MessageHandler) changeReaction(w http.ResponseWriter, r *http.Request, userID, messageID, emoji, action string) {
	if err := validation.ValidateEmoji(emoji); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	now := h.now()

	var (
		changed bool
		err     error
	)
	if action == api.ActionAdded {
		changed, err = h.storage.AddReaction(ctx, models.Reaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
			CreatedAt: now,
		})
	} else {
		changed, err = h.storage.RemoveReaction(ctx, messageID, userID, emoji, now)
	}
	if err != nil {
		h.fail(w, err, "Failed to change reaction", userID)
		return
	}

	msg, err := h.storage.GetMessage(ctx, messageID)
	if err != nil {
		h.fail(w, err, "Failed to load message", userID)
		return
	}

	if changed {
		publish(ctx, h.publisher, h.logger, r, realtime.KindReaction, api.TypeReaction,
			msg.ConversationID, userID, api.ReactionData{Action: action, MessageID: messageID, Emoji: emoji})
	}
	writeJSON(w, h.logger, http.StatusOK, toAPIMessage(msg))
}

// fail пишет ответ об ошибке хранилища и логирует внутренние ошибки
func (h *MessageHandler) fail(w http.ResponseWriter, err error, logMsg, userID string) {
	status, message := storageErrorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, "user_id", userID, "error", err)
	}
	writeError(w, h.logger, status, message)
}
