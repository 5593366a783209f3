// Package realtime содержит реестр живых соединений и рассылку событий
// подписчикам тем (бесед и документов).
package realtime

import "time"

// Kind тип события рассылки
type Kind string

const (
	KindCreated  Kind = "created"
	KindUpdated  Kind = "updated"
	KindDeleted  Kind = "deleted"
	KindReaction Kind = "reaction"
	KindRead     Kind = "read"
	// KindSignal эфемерные сигналы клиентов (typing, presence), не сохраняются
	KindSignal Kind = "signal"
)

// Event событие для рассылки подписчикам темы.
// Payload - готовый кадр для отправки по транспорту; рассылка его не разбирает.
type Event struct {
	Timestamp    time.Time
	Kind         Kind
	Topic        string
	OriginatorID string // пользователь, вызвавший событие
	Payload      []byte
}

// PublishOptions параметры рассылки
type PublishOptions struct {
	// ExcludeConnection соединение-инициатор, которому событие не отправляется
	ExcludeConnection string
}

// DeliveryReport итог рассылки одного события.
// Ошибки доставки отдельным подписчикам не являются ошибкой рассылки.
type DeliveryReport struct {
	Attempted []string
	Succeeded []string
	Dropped   []string
}
