package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pricelens/pricelens/internal/domain"
)

// SnapshotService computes the anomaly and health report.
type SnapshotService interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// InsightHandler serves the snapshot endpoint.
type InsightHandler struct {
	insights SnapshotService
	logger   *slog.Logger
}

// NewInsightHandler creates an InsightHandler.
func NewInsightHandler(insights SnapshotService, logger *slog.Logger) *InsightHandler {
	return &InsightHandler{
		insights: insights,
		logger:   logHandler(logger, "insight"),
	}
}

// GetSnapshot recomputes and returns the full snapshot.
// GET /api/insights/snapshot
func (h *InsightHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.insights.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
