package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/chatsync/internal/ratelimit"
	"github.com/iudanet/chatsync/internal/server/handlers"
	"github.com/iudanet/chatsync/pkg/api"
)

// RateLimitMiddleware ограничивает частоту запросов класса class.
// Идентичность: user_id из контекста (middleware ставится после AuthMiddleware),
// для анонимных запросов IP адрес клиента.
// Заголовки X-RateLimit-* выставляются и на разрешенных запросах.
func RateLimitMiddleware(limiter *ratelimit.Limiter, class ratelimit.Class, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := clientIdentity(r)
			now := time.Now()

			decision := limiter.Admit(r.Context(), identity, class, now)
			setRateLimitHeaders(w.Header(), decision)

			if !decision.Allowed {
				retryAfter := retryAfterSeconds(decision.RetryAfter)
				logger.Warn("Rate limit exceeded",
					"identity", identity,
					"class", string(class),
					"method", r.Method,
					"path", r.URL.Path,
					"retry_after_s", retryAfter,
				)

				w.Header().Set(api.HeaderRetryAfter, strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{
					Error:   "rate limit exceeded",
					Message: "retry after " + strconv.Itoa(retryAfter) + "s",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(h http.Header, d ratelimit.Decision) {
	h.Set(api.HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(api.HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		h.Set(api.HeaderRateLimitReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}

// retryAfterSeconds округляет вверх, минимум 1 секунда
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func clientIdentity(r *http.Request) string {
	if userID, ok := handlers.GetUserID(r.Context()); ok {
		return "user:" + userID
	}
	return "ip:" + getClientIP(r)
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	// Первый адрес X-Forwarded-For - реальный клиент
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
