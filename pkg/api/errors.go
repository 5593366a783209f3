package api

// Заголовки протокола
const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
	// HeaderConnectionID websocket соединение клиента, инициировавшего изменение;
	// событие об изменении этому соединению не отправляется
	HeaderConnectionID = "X-Connection-ID"
)

// TaskTopic тема рассылки изменений документа задачи
func TaskTopic(documentID string) string {
	return "task:" + documentID
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	Storage     string `json:"storage"`
	Connections int    `json:"connections"`
}
