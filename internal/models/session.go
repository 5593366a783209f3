package models

import "time"

// Session представляет сохраненную на клиенте сессию пользователя
type Session struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения токена (zero - неизвестно)
	UserID    string    `json:"user_id"`    // идентификатор пользователя (subject токена)
	Username  string    `json:"username"`
	ServerURL string    `json:"server_url"`
	Token     string    `json:"token"` // bearer токен доступа
}

// Expired проверяет, истек ли токен сессии.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
