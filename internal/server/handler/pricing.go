package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pricelens/pricelens/internal/domain"
	"github.com/pricelens/pricelens/internal/pricing"
)

// PricingService computes repricing opportunities against the reference
// retailer.
type PricingService interface {
	PricingDefaults() pricing.Params
	Opportunities(ctx context.Context, params pricing.Params) (domain.OpportunityReport, error)
}

// PricingHandler serves the repricing-opportunity endpoint.
type PricingHandler struct {
	pricing PricingService
	logger  *slog.Logger
}

// NewPricingHandler creates a PricingHandler.
func NewPricingHandler(svc PricingService, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{
		pricing: svc,
		logger:  logHandler(logger, "pricing"),
	}
}

// GetOpportunities classifies canonical products against the reference
// retailer. Query parameters override the configured defaults per request.
// GET /api/pricing/opportunities?prefix={p}&undercut_by={f}&tolerance={f}&only_with_ref={bool}&limit={n}
func (h *PricingHandler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	params := h.pricing.PricingDefaults()

	if prefix := r.URL.Query().Get("prefix"); prefix != "" {
		params.ReferencePrefix = prefix
	}
	params.UndercutBy = queryFloat(r, "undercut_by", params.UndercutBy)
	params.Tolerance = queryFloat(r, "tolerance", params.Tolerance)
	params.OnlyWithReference = queryBool(r, "only_with_ref", params.OnlyWithReference)
	params.CanonicalLimit = queryInt(r, "limit", params.CanonicalLimit, 0)

	report, err := h.pricing.Opportunities(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
