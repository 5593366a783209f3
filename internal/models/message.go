package models

import "time"

// MessageStatus статус доставки сообщения с точки зрения клиента
type MessageStatus string

const (
	// MessageStatusPending сообщение создано локально и ждет отправки
	MessageStatusPending MessageStatus = "pending"
	// MessageStatusSent сервер подтвердил сообщение
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusFailed отправка окончательно не удалась
	MessageStatusFailed MessageStatus = "failed"
)

// LocalIDPrefix префикс временных идентификаторов, выданных клиентом до подтверждения сервером.
const LocalIDPrefix = "local-"

// IsLocalID проверяет, является ли идентификатор временным.
func IsLocalID(id string) bool {
	return len(id) > len(LocalIDPrefix) && id[:len(LocalIDPrefix)] == LocalIDPrefix
}

// Message представляет сообщение в беседе.
type Message struct {
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	ID             string        `json:"id"`                  // ID серверный ksuid или временный local-<uuid>
	ConversationID string        `json:"conversation_id"`     // ConversationID беседа (topic)
	SenderID       string        `json:"sender_id"`           // SenderID автор сообщения
	ClientID       string        `json:"client_id,omitempty"` // ClientID ключ идемпотентности создания
	Body           string        `json:"body"`
	Status         MessageStatus `json:"status,omitempty"` // Status заполняется только на клиенте
	Reactions      []Reaction    `json:"reactions,omitempty"`
	Deleted        bool          `json:"deleted"`
}

// Clone создает глубокую копию сообщения
func (m *Message) Clone() *Message {
	clone := *m
	if m.Reactions != nil {
		clone.Reactions = append([]Reaction(nil), m.Reactions...)
	}
	return &clone
}

// Reaction представляет реакцию пользователя на сообщение.
// Пара (UserID, Emoji) уникальна для сообщения: повторное добавление ничего не меняет.
type Reaction struct {
	CreatedAt time.Time `json:"created_at"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
}
