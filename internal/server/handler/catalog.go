package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pricelens/pricelens/internal/domain"
)

// CatalogReader serves raw catalog reads.
type CatalogReader interface {
	ListProducts(ctx context.Context, sourceSlug string) ([]domain.ProductLatest, error)
	PriceHistory(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error)
	ListCanonicals(ctx context.Context, limit int, query string) ([]domain.CanonicalSummary, error)
	CanonicalLinks(ctx context.Context, canonicalID int64) ([]domain.LinkedListing, error)
	ListSources(ctx context.Context) ([]domain.Source, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// CatalogHandler serves products, price history, canonicals, sources, runs
// and the dashboard stats.
type CatalogHandler struct {
	catalog CatalogReader
	logger  *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog CatalogReader, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logHandler(logger, "catalog"),
	}
}

// ListProducts returns the latest state of every tracked listing, optionally
// restricted to one source.
// GET /api/products?source={slug}
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetPriceHistory returns the observation history for one listing, most
// recent first.
// GET /api/products/{source}/{item_id}/history?limit={n}
func (h *CatalogHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	source := pathParam(r, "source")
	itemID := pathParam(r, "item_id")
	limit := queryInt(r, "limit", 50, 500)

	points, err := h.catalog.PriceHistory(r.Context(), source, itemID, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// ListCanonicals returns canonical products with link aggregates, optionally
// filtered by a name substring.
// GET /api/canonicals?limit={n}&q={query}
func (h *CatalogHandler) ListCanonicals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0, 0)
	query := r.URL.Query().Get("q")

	summaries, err := h.catalog.ListCanonicals(r.Context(), limit, query)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetCanonicalLinks returns the listings linked to one canonical product.
// GET /api/canonicals/{id}/links
func (h *CatalogHandler) GetCanonicalLinks(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid canonical id")
		return
	}

	listings, err := h.catalog.CanonicalLinks(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// ListSources returns all configured sources.
// GET /api/sources
func (h *CatalogHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.catalog.ListSources(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

// ListRuns returns scrape runs matching the query filters.
// GET /api/runs?source={slug}&status={status}&since={rfc3339}&limit={n}
func (h *CatalogHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.RunFilter{
		SourceSlug: q.Get("source"),
		Status:     domain.RunStatus(q.Get("status")),
		Limit:      queryInt(r, "limit", 50, 500),
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp, want RFC3339")
			return
		}
		filter.Since = since
	}

	runs, err := h.catalog.ListRuns(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetStats returns the dashboard counters.
// GET /api/stats
func (h *CatalogHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
