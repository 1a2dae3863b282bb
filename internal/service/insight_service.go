package service

import (
	"context"
	"log/slog"

	"github.com/pricelens/pricelens/internal/domain"
	"github.com/pricelens/pricelens/internal/insight"
	"github.com/pricelens/pricelens/internal/match"
	"github.com/pricelens/pricelens/internal/pricing"
)

// InsightService fronts the three analysis engines for the API and the
// watcher. Every call recomputes from the store; nothing is cached.
type InsightService struct {
	analyzer      *insight.Analyzer
	scorer        *match.Scorer
	pricer        *pricing.Engine
	pricingParams pricing.Params
	logger        *slog.Logger
}

// NewInsightService wires the engines together. pricingParams supplies the
// defaults that per-request overrides start from.
func NewInsightService(
	analyzer *insight.Analyzer,
	scorer *match.Scorer,
	pricer *pricing.Engine,
	pricingParams pricing.Params,
	logger *slog.Logger,
) *InsightService {
	return &InsightService{
		analyzer:      analyzer,
		scorer:        scorer,
		pricer:        pricer,
		pricingParams: pricingParams,
		logger:        logger.With(slog.String("component", "insight_service")),
	}
}

// Snapshot recomputes the full anomaly and health report.
func (s *InsightService) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	snap, err := s.analyzer.Snapshot(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.logger.InfoContext(ctx, "snapshot served",
		slog.Int("drops", snap.Summary.RecentDrops),
		slog.Int("spikes", snap.Summary.RecentSpikes),
		slog.Int("outliers", snap.Summary.Outliers),
	)
	return snap, nil
}

// SuggestForProduct ranks canonical candidates for one listing.
func (s *InsightService) SuggestForProduct(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.Suggestion, error) {
	return s.scorer.SuggestForProduct(ctx, sourceSlug, itemID, limit)
}

// SmartSuggestions scans unlinked listings across sources and groups them by
// their strongest canonical candidate.
func (s *InsightService) SmartSuggestions(ctx context.Context, sourceSlugs []string, limit int) ([]domain.SuggestionGroup, error) {
	return s.scorer.SmartSuggestions(ctx, sourceSlugs, limit)
}

// PricingDefaults returns the configured pricing parameters, for callers
// that layer per-request overrides on top.
func (s *InsightService) PricingDefaults() pricing.Params {
	return s.pricingParams
}

// Opportunities classifies canonical products against the reference retailer.
func (s *InsightService) Opportunities(ctx context.Context, params pricing.Params) (domain.OpportunityReport, error) {
	report, err := s.pricer.Opportunities(ctx, params)
	if err != nil {
		return domain.OpportunityReport{}, err
	}
	s.logger.InfoContext(ctx, "opportunities served",
		slog.Int("total", len(report.Opportunities)),
		slog.Int("undercut", report.Summary.Actions[domain.ActionUndercut]),
		slog.Int("raise", report.Summary.Actions[domain.ActionRaise]),
	)
	return report, nil
}
