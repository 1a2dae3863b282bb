// Package handler contains the HTTP handlers for the API server. Each
// handler declares the narrow service interface it needs and maps domain
// errors onto HTTP status codes.
package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the liveness endpoint. The payload names the service
// and reports how long this process has been up, which is what the scrape
// operators' dashboards poll for.
type HealthHandler struct {
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates a HealthHandler anchored at the current time.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		started: time.Now(),
	}
}

// HealthCheck reports liveness.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"service":       "pricelens",
		"uptimeSeconds": int64(now.Sub(h.started).Seconds()),
		"timestamp":     now.UTC().Format(time.RFC3339),
	})
}
