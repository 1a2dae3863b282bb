package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pricelens/pricelens/internal/domain"
)

// SuggestionService ranks canonical-link candidates.
type SuggestionService interface {
	SuggestForProduct(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.Suggestion, error)
	SmartSuggestions(ctx context.Context, sourceSlugs []string, limit int) ([]domain.SuggestionGroup, error)
}

// SuggestHandler serves the link-suggestion endpoints.
type SuggestHandler struct {
	suggestions SuggestionService
	logger      *slog.Logger
}

// NewSuggestHandler creates a SuggestHandler.
func NewSuggestHandler(suggestions SuggestionService, logger *slog.Logger) *SuggestHandler {
	return &SuggestHandler{
		suggestions: suggestions,
		logger:      logHandler(logger, "suggest"),
	}
}

// SuggestForProduct ranks canonical candidates for a single listing.
// GET /api/suggestions/product?source={slug}&item_id={id}&limit={n}
func (h *SuggestHandler) SuggestForProduct(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	itemID := r.URL.Query().Get("item_id")
	limit := queryInt(r, "limit", 0, 20)

	suggestions, err := h.suggestions.SuggestForProduct(r.Context(), source, itemID, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// SmartSuggestions scans unlinked listings for likely canonical matches,
// grouped per canonical with aggregate scores. limit caps the groups.
// GET /api/suggestions/smart?sources={a,b}&limit={n}
func (h *SuggestHandler) SmartSuggestions(w http.ResponseWriter, r *http.Request) {
	sources := queryList(r, "sources")
	limit := queryInt(r, "limit", 10, 50)

	groups, err := h.suggestions.SmartSuggestions(r.Context(), sources, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}
