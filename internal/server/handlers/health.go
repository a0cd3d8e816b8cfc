package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger *slog.Logger
	db     Pinger
	resp   *Responder
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger, resp *Responder) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		db:     db,
		resp:   resp,
	}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", slog.Any("error", err))
		h.resp.SendJSON(w, api.HealthResponse{Status: "unavailable"}, http.StatusServiceUnavailable)
		return
	}

	h.resp.SendJSON(w, api.HealthResponse{Status: "ok"}, http.StatusOK)
}

// NotFound answers unknown routes.
func (h *HealthHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.resp.WriteStatus(w, http.StatusNotFound, "not_found", "Can't find "+r.URL.Path+" on this server")
}
