package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownEventType тип события не входит в протокол; такие кадры игнорируются
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrMalformedEnvelope кадр не является корректным конвертом
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// EventType тип события realtime протокола
type EventType string

const (
	TypeMessage  EventType = "message"
	TypeTyping   EventType = "typing"
	TypePresence EventType = "presence"
	TypeReaction EventType = "reaction"
	TypeRead     EventType = "read"
	TypeJoin     EventType = "join"
	TypeLeave    EventType = "leave"
	TypeFile     EventType = "file"
	TypeTask     EventType = "task"
)

// Действия в MessageData и ReactionData
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// Envelope конверт realtime события: {type, topic, userId, data, timestamp}.
// Каждому типу соответствует фиксированная структура data.
type Envelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      EventType       `json:"type"`
	Topic     string          `json:"topic"`
	UserID    string          `json:"userId"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MessageData событие жизненного цикла сообщения
type MessageData struct {
	Action  string  `json:"action"` // created|updated|deleted
	Message Message `json:"message"`
}

// TypingData индикатор набора текста
type TypingData struct {
	Typing bool `json:"typing"`
}

// PresenceData статус присутствия пользователя
type PresenceData struct {
	Status string `json:"status"` // online|away|offline
}

// ReactionData изменение реакции на сообщение
type ReactionData struct {
	Action    string `json:"action"` // added|removed
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// ReadData отметка о прочтении до сообщения включительно
type ReadData struct {
	MessageID string `json:"messageId"`
}

// JoinData подписка на тему (topic в конверте)
type JoinData struct{}

// LeaveData отписка от темы (topic в конверте)
type LeaveData struct{}

// FileData уведомление о загруженном файле
type FileData struct {
	FileID   string `json:"fileId"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size"`
}

// TaskData актуальная версия документа задачи
type TaskData struct {
	DocumentID string          `json:"documentId"`
	Document   json.RawMessage `json:"document"`
}

// newPayload возвращает пустую структуру data для типа.
func newPayload(t EventType) (any, error) {
	switch t {
	case TypeMessage:
		return &MessageData{}, nil
	case TypeTyping:
		return &TypingData{}, nil
	case TypePresence:
		return &PresenceData{}, nil
	case TypeReaction:
		return &ReactionData{}, nil
	case TypeRead:
		return &ReadData{}, nil
	case TypeJoin:
		return &JoinData{}, nil
	case TypeLeave:
		return &LeaveData{}, nil
	case TypeFile:
		return &FileData{}, nil
	case TypeTask:
		return &TaskData{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
}

// NewEnvelope создает конверт, сериализуя data.
func NewEnvelope(t EventType, topic, userID string, data any, now time.Time) (*Envelope, error) {
	if _, err := newPayload(t); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s data: %w", t, err)
	}

	return &Envelope{
		Type:      t,
		Topic:     topic,
		UserID:    userID,
		Data:      raw,
		Timestamp: now.UTC(),
	}, nil
}

// Encode сериализует конверт в кадр.
func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope разбирает кадр и проверяет, что тип события известен.
func DecodeEnvelope(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	if _, err := newPayload(env.Type); err != nil {
		return nil, err
	}
	return &env, nil
}

// Payload декодирует data в структуру, соответствующую типу конверта
// (*MessageData, *TypingData и т.д.).
func (e *Envelope) Payload() (any, error) {
	payload, err := newPayload(e.Type)
	if err != nil {
		return nil, err
	}
	if len(e.Data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(e.Data, payload); err != nil {
		return nil, fmt.Errorf("%w: bad %s data: %v", ErrMalformedEnvelope, e.Type, err)
	}
	return payload, nil
}
