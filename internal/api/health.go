package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/devgenie/internal/config"
	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo   store.Repository
	client llm.Client
	cfg    *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, client llm.Client, cfg *config.Config) *HealthHandler {
	return &HealthHandler{repo: repo, client: client, cfg: cfg}
}

// Health returns the health status of the API and its dependencies.
// An unconfigured provider degrades the report but not the status code.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	healthCheckTimeout := 5 * time.Second
	if h.cfg != nil && h.cfg.Timeout.HealthCheck > 0 {
		healthCheckTimeout = h.cfg.Timeout.HealthCheck
	}
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "database": "ok", "provider": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		checks["database"] = "unreachable"
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}
	if !llm.IsConfigured(h.client) {
		checks["provider"] = "not_configured"
		status = "degraded"
	}

	JSON(w, statusCode, map[string]interface{}{
		"status":   status,
		"checks":   checks,
		"provider": h.client.Name(),
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
