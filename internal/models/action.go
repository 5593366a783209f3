package models

import (
	"encoding/json"
	"time"
)

// ActionType тип сущности, к которой относится офлайн-действие
type ActionType string

const (
	ActionTypeMessage  ActionType = "message"
	ActionTypeReaction ActionType = "reaction"
	ActionTypeDocument ActionType = "document"
)

// ActionVerb операция над сущностью
type ActionVerb string

const (
	ActionCreate ActionVerb = "create"
	ActionUpdate ActionVerb = "update"
	ActionDelete ActionVerb = "delete"
)

// OfflineAction представляет действие пользователя, сохраненное в локальной очереди
// до подтверждения сервером. ID одновременно служит ключом идемпотентности:
// повторная отправка того же действия не создает дубликат на сервере.
type OfflineAction struct {
	CreatedAt     time.Time       `json:"created_at"`      // CreatedAt время создания действия
	NextAttemptAt time.Time       `json:"next_attempt_at"` // NextAttemptAt не отправлять раньше этого времени
	ID            string          `json:"id"`              // ID UUID, ключ идемпотентности
	Stream        string          `json:"stream"`          // Stream порядок соблюдается внутри потока (беседа или документ)
	Type          ActionType      `json:"type"`
	Action        ActionVerb      `json:"action"`
	LastError     string          `json:"last_error,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Seq           uint64          `json:"seq"`     // Seq порядковый номер в очереди (порядок создания)
	Retries       int             `json:"retries"` // Retries количество неудачных попыток
}

// Ready проверяет, можно ли отправлять действие в момент now.
func (a *OfflineAction) Ready(now time.Time) bool {
	return a.NextAttemptAt.IsZero() || !now.Before(a.NextAttemptAt)
}

// Clone создает глубокую копию действия
func (a *OfflineAction) Clone() *OfflineAction {
	clone := *a
	if a.Payload != nil {
		clone.Payload = append(json.RawMessage(nil), a.Payload...)
	}
	return &clone
}

// ConversationStream возвращает имя потока для действий над сообщениями беседы.
func ConversationStream(conversationID string) string {
	return "conv:" + conversationID
}

// DocumentStream возвращает имя потока для действий над документом.
func DocumentStream(documentID string) string {
	return "doc:" + documentID
}

// MessagePayload полезная нагрузка действий над сообщением.
// Для create MessageID содержит временный local-идентификатор,
// который заменяется серверным после подтверждения.
type MessagePayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Body           string `json:"body,omitempty"`
}

// ReactionPayload полезная нагрузка действий над реакцией.
type ReactionPayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Emoji          string `json:"emoji"`
}

// DocumentPayload полезная нагрузка синхронизации документа.
// Сам документ не копируется в очередь: отправляется актуальная локальная версия.
type DocumentPayload struct {
	DocumentID string `json:"document_id"`
}
