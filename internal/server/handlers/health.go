package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/chatsync/pkg/api"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionCounter сообщает число живых соединений
type ConnectionCounter interface {
	Len() int
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	pinger      Pinger
	connections ConnectionCounter
	logger      *slog.Logger
	version     string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(pinger Pinger, connections ConnectionCounter, version string, logger *slog.Logger) *HealthHandler {
	if version == "" {
		version = "dev"
	}
	return &HealthHandler{
		pinger:      pinger,
		connections: connections,
		logger:      logger,
		version:     version,
	}
}

// Health обрабатывает GET /api/v1/health
// Health check endpoint для мониторинга
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Storage: "ok",
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		h.logger.Error("Storage health check failed", slog.Any("error", err))
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if h.connections != nil {
		resp.Connections = h.connections.Len()
	}

	writeJSON(w, h.logger, status, resp)
}
