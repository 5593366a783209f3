package api

import "time"

// Message представление сообщения в REST и realtime протоколе
type Message struct {
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	ClientID       string     `json:"client_id,omitempty"`
	Body           string     `json:"body"`
	Reactions      []Reaction `json:"reactions,omitempty"`
	Deleted        bool       `json:"deleted"`
}

// Reaction реакция пользователя на сообщение
type Reaction struct {
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
}

// SendMessageRequest запрос на создание сообщения.
// Повтор с тем же IdempotencyKey возвращает уже созданное сообщение.
type SendMessageRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Body           string `json:"body"`
}

// EditMessageRequest запрос на изменение текста сообщения
type EditMessageRequest struct {
	Body string `json:"body"`
}

// ReactionRequest запрос на добавление реакции
type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

// MessagesResponse список сообщений беседы (догрузка после переподключения)
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}
