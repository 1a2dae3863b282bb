// Package service orchestrates the analysis engines over the catalog store
// and exposes the read operations the API serves.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pricelens/pricelens/internal/domain"
)

// CatalogService serves raw catalog reads: products, price history,
// canonicals, sources and runs.
type CatalogService struct {
	store  domain.CatalogStore
	logger *slog.Logger
}

// NewCatalogService creates a CatalogService over the given store.
func NewCatalogService(store domain.CatalogStore, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger.With(slog.String("component", "catalog_service")),
	}
}

// ListProducts returns the latest state of every item, optionally restricted
// to one source.
func (s *CatalogService) ListProducts(ctx context.Context, sourceSlug string) ([]domain.ProductLatest, error) {
	products, err := s.store.ListProductsLatest(ctx, sourceSlug)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: list products: %w", err)
	}
	return products, nil
}

// PriceHistory returns up to limit observations for one item, most recent
// first.
func (s *CatalogService) PriceHistory(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error) {
	if sourceSlug == "" || itemID == "" {
		return nil, fmt.Errorf("%w: source slug and item id must not be empty", domain.ErrInvalidArgument)
	}
	points, err := s.store.ListPricePoints(ctx, sourceSlug, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: price history %s/%s: %w", sourceSlug, itemID, err)
	}
	return points, nil
}

// ListCanonicals returns canonical products with link aggregates.
func (s *CatalogService) ListCanonicals(ctx context.Context, limit int, query string) ([]domain.CanonicalSummary, error) {
	summaries, err := s.store.ListCanonicalsWithLinks(ctx, limit, query)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: list canonicals: %w", err)
	}
	return summaries, nil
}

// CanonicalLinks returns the listings linked to one canonical.
func (s *CatalogService) CanonicalLinks(ctx context.Context, canonicalID int64) ([]domain.LinkedListing, error) {
	listings, err := s.store.GetLinksForCanonical(ctx, canonicalID)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: links for canonical %d: %w", canonicalID, err)
	}
	return listings, nil
}

// ListSources returns all configured sources.
func (s *CatalogService) ListSources(ctx context.Context) ([]domain.Source, error) {
	sources, err := s.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: list sources: %w", err)
	}
	return sources, nil
}

// ListRuns returns scrape runs matching the filter.
func (s *CatalogService) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	runs, err := s.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: list runs: %w", err)
	}
	return runs, nil
}

// Stats computes the dashboard counters from the same reads the analyzers
// use, fetched in parallel.
func (s *CatalogService) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		products   []domain.ProductLatest
		sources    []domain.Source
		canonicals []domain.CanonicalSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.store.ListProductsLatest(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		sources, err = s.store.ListSources(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		canonicals, err = s.store.ListCanonicalsWithLinks(gctx, 0, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, fmt.Errorf("catalog_service: stats: %w", err)
	}

	linked := 0
	for _, cs := range canonicals {
		linked += cs.LinkCount
	}
	unlinked := len(products) - linked
	if unlinked < 0 {
		unlinked = 0
	}

	return domain.Stats{
		CanonicalProducts: len(canonicals),
		LinkedProducts:    linked,
		UnlinkedProducts:  unlinked,
		Sources:           len(sources),
	}, nil
}
