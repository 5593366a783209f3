package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransientError временный сбой: сеть недоступна или сервер ответил 5xx.
// Запрос стоит повторить позже.
type TransientError struct {
	Err        error
	StatusCode int // 0 для сетевых ошибок
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("server error (%d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError сервер отклонил запрос (4xx кроме 429), повтор не поможет
type PermanentError struct {
	Message    string
	StatusCode int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("request rejected (%d): %s", e.StatusCode, e.Message)
}

// RateLimitedError сервер ответил 429
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// IsUnauthorized проверяет, что сервер отклонил токен
func IsUnauthorized(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm) && perm.StatusCode == http.StatusUnauthorized
}

// IsNotFound проверяет, что запрошенная сущность не найдена на сервере
func IsNotFound(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm) && perm.StatusCode == http.StatusNotFound
}
