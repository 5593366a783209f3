package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/chatsync/internal/ratelimit"
	"github.com/iudanet/chatsync/internal/server/handlers"
	"github.com/iudanet/chatsync/internal/server/middleware"
)

const healthPath = "/api/v1/health"

// Routes обработчики, из которых собирается роутер
type Routes struct {
	Messages  *handlers.MessageHandler
	Documents *handlers.DocumentHandler
	Health    *handlers.HealthHandler
	WebSocket http.Handler
}

// NewRouter собирает роутер API.
// Порядок middleware: recovery, access log, аутентификация, лимит класса маршрута.
func NewRouter(routes Routes, jwtConfig handlers.JWTConfig, limiter *ratelimit.Limiter, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingWithSkip(logger, []string{healthPath}))

	r.HandleFunc(healthPath, routes.Health.Health).Methods(http.MethodGet)

	auth := middleware.AuthMiddleware(logger, jwtConfig)
	limit := func(class ratelimit.Class) mux.MiddlewareFunc {
		return middleware.RateLimitMiddleware(limiter, class, logger)
	}

	// Установка websocket соединения лимитируется как аутентификация
	ws := r.Path("/ws").Subrouter()
	ws.Use(auth, limit(ratelimit.ClassAuth))
	ws.Methods(http.MethodGet).Handler(routes.WebSocket)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(auth)

	send := api.NewRoute().Subrouter()
	send.Use(limit(ratelimit.ClassMessage))
	send.HandleFunc("/conversations/{id}/messages", routes.Messages.Create).Methods(http.MethodPost)
	send.HandleFunc("/messages/{id}", routes.Messages.Update).Methods(http.MethodPatch)
	send.HandleFunc("/messages/{id}", routes.Messages.Delete).Methods(http.MethodDelete)
	send.HandleFunc("/messages/{id}/reactions", routes.Messages.AddReaction).Methods(http.MethodPost)
	send.HandleFunc("/messages/{id}/reactions/{emoji}", routes.Messages.RemoveReaction).Methods(http.MethodDelete)

	// Догрузка после переподключения
	fetch := api.NewRoute().Subrouter()
	fetch.Use(limit(ratelimit.ClassSearch))
	fetch.HandleFunc("/conversations/{id}/messages", routes.Messages.List).Methods(http.MethodGet)

	docs := api.NewRoute().Subrouter()
	docs.Use(limit(ratelimit.ClassGeneric))
	docs.HandleFunc("/documents/{id}", routes.Documents.Get).Methods(http.MethodGet)
	docs.HandleFunc("/documents/{id}", routes.Documents.Put).Methods(http.MethodPut)

	return r
}
