package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/chatsync/internal/models"
	"github.com/iudanet/chatsync/internal/realtime"
	"github.com/iudanet/chatsync/internal/server/storage"
	"github.com/iudanet/chatsync/pkg/api"
)

// Publisher рассылает события подписчикам темы
type Publisher interface {
	Publish(ctx context.Context, ev realtime.Event, opts realtime.PublishOptions) realtime.DeliveryReport
}

// writeJSON пишет ответ в формате JSON
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError пишет api.ErrorResponse
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, api.ErrorResponse{Error: message})
}

// storageErrorStatus сопоставляет ошибки хранилища HTTP статусам
func storageErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrMessageNotFound):
		return http.StatusNotFound, "message not found"
	case errors.Is(err, storage.ErrDocumentNotFound):
		return http.StatusNotFound, "document not found"
	case errors.Is(err, storage.ErrForbidden):
		return http.StatusForbidden, "operation not permitted"
	case errors.Is(err, storage.ErrMessageDeleted):
		return http.StatusConflict, "message deleted"
	case errors.Is(err, storage.ErrIdempotencyConflict):
		return http.StatusConflict, "idempotency key already used"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// toAPIMessage конвертирует модель в API формат
func toAPIMessage(msg *models.Message) api.Message {
	out := api.Message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ClientID:       msg.ClientID,
		Body:           msg.Body,
		Deleted:        msg.Deleted,
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      msg.UpdatedAt,
	}
	for _, r := range msg.Reactions {
		out.Reactions = append(out.Reactions, api.Reaction{
			UserID:    r.UserID,
			Emoji:     r.Emoji,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// publish упаковывает событие в конверт и рассылает подписчикам темы.
// Ошибка упаковки только логируется: изменение уже сохранено, а клиенты
// получат его при догрузке.
func publish(ctx context.Context, pub Publisher, logger *slog.Logger, r *http.Request,
	kind realtime.Kind, typ api.EventType, topic, userID string, data any,
) {
	now := time.Now()
	env, err := api.NewEnvelope(typ, topic, userID, data, now)
	if err != nil {
		logger.Error("Failed to build envelope", "topic", topic, "error", err)
		return
	}
	frame, err := env.Encode()
	if err != nil {
		logger.Error("Failed to encode envelope", "topic", topic, "error", err)
		return
	}

	report := pub.Publish(ctx, realtime.Event{
		Kind:         kind,
		Topic:        topic,
		OriginatorID: userID,
		Payload:      frame,
		Timestamp:    now,
	}, realtime.PublishOptions{
		ExcludeConnection: r.Header.Get(api.HeaderConnectionID),
	})

	if len(report.Dropped) > 0 {
		logger.Info("Slow subscribers disconnected", "topic", topic, "dropped", len(report.Dropped))
	}
}
