// Package memory provides an in-memory CatalogStore. It backs the demo mode
// and the engine test fixtures, so the whole API can run without postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pricelens/pricelens/internal/domain"
)

type itemKey struct {
	sourceSlug string
	itemID     string
}

// Store is a mutex-guarded snapshot of catalog data. Readers always receive
// copies, so callers can't corrupt the fixture.
type Store struct {
	mu         sync.RWMutex
	sources    []domain.Source
	runs       []domain.Run
	products   []domain.ProductLatest
	points     map[itemKey][]domain.PricePoint
	canonicals []domain.CanonicalProduct
	links      []domain.ProductLink
}

// New creates an empty Store.
func New() *Store {
	return &Store{points: make(map[itemKey][]domain.PricePoint)}
}

// SetSources replaces the source list.
func (s *Store) SetSources(sources []domain.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append([]domain.Source(nil), sources...)
}

// SetRuns replaces the run list.
func (s *Store) SetRuns(runs []domain.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append([]domain.Run(nil), runs...)
}

// SetProducts replaces the latest-product rows.
func (s *Store) SetProducts(products []domain.ProductLatest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append([]domain.ProductLatest(nil), products...)
}

// AddPricePoints appends observations for one item, kept newest first.
func (s *Store) AddPricePoints(points ...domain.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		k := itemKey{p.SourceSlug, p.ItemID}
		s.points[k] = append(s.points[k], p)
	}
	for k := range s.points {
		pts := s.points[k]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Ts.After(pts[j].Ts) })
		s.points[k] = pts
	}
}

// SetCanonicals replaces the canonical products.
func (s *Store) SetCanonicals(canonicals []domain.CanonicalProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canonicals = append([]domain.CanonicalProduct(nil), canonicals...)
}

// SetLinks replaces the product links.
func (s *Store) SetLinks(links []domain.ProductLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append([]domain.ProductLink(nil), links...)
}

// ListSources implements domain.CatalogStore.
func (s *Store) ListSources(ctx context.Context) ([]domain.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Source, len(s.sources))
	copy(out, s.sources)
	return out, nil
}

// ListRuns implements domain.CatalogStore.
func (s *Store) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Run{}
	for _, r := range s.runs {
		if filter.SourceSlug != "" && r.SourceSlug != filter.SourceSlug {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && r.StartedAt.Before(filter.Since) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListProductsLatest implements domain.CatalogStore.
func (s *Store) ListProductsLatest(ctx context.Context, sourceSlug string) ([]domain.ProductLatest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ProductLatest{}
	for _, p := range s.products {
		if sourceSlug != "" && p.SourceSlug != sourceSlug {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ListPricePoints implements domain.CatalogStore.
func (s *Store) ListPricePoints(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	pts, ok := s.points[itemKey{sourceSlug, itemID}]
	if !ok {
		if !s.hasProduct(sourceSlug, itemID) {
			return nil, fmt.Errorf("memory: product %s/%s: %w", sourceSlug, itemID, domain.ErrNotFound)
		}
		return []domain.PricePoint{}, nil
	}
	out := make([]domain.PricePoint, len(pts))
	copy(out, pts)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) hasProduct(sourceSlug, itemID string) bool {
	for _, p := range s.products {
		if p.SourceSlug == sourceSlug && p.ItemID == itemID {
			return true
		}
	}
	return false
}

// ListCanonicalsWithLinks implements domain.CatalogStore.
func (s *Store) ListCanonicalsWithLinks(ctx context.Context, limit int, query string) ([]domain.CanonicalSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := []domain.CanonicalSummary{}
	for _, c := range s.canonicals {
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) {
			continue
		}
		summary := domain.CanonicalSummary{Canonical: c, SourcesPreview: []string{}}
		seen := map[string]bool{}
		for _, l := range s.links {
			if l.CanonicalID != c.ID {
				continue
			}
			summary.LinkCount++
			if !seen[l.SourceSlug] {
				seen[l.SourceSlug] = true
				summary.SourcesPreview = append(summary.SourcesPreview, l.SourceSlug)
			}
			linkedAt := l.CreatedAt
			if summary.FirstLinkedAt == nil || linkedAt.Before(*summary.FirstLinkedAt) {
				t := linkedAt
				summary.FirstLinkedAt = &t
			}
			if summary.LastLinkedAt == nil || linkedAt.After(*summary.LastLinkedAt) {
				t := linkedAt
				summary.LastLinkedAt = &t
			}
		}
		sort.Strings(summary.SourcesPreview)
		out = append(out, summary)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Canonical.ID < out[j].Canonical.ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetLinksForCanonical implements domain.CatalogStore.
func (s *Store) GetLinksForCanonical(ctx context.Context, canonicalID int64) ([]domain.LinkedListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	for _, c := range s.canonicals {
		if c.ID == canonicalID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("memory: canonical %d: %w", canonicalID, domain.ErrNotFound)
	}

	out := []domain.LinkedListing{}
	for _, l := range s.links {
		if l.CanonicalID != canonicalID {
			continue
		}
		listing := domain.LinkedListing{
			CanonicalID: l.CanonicalID,
			SourceSlug:  l.SourceSlug,
			ItemID:      l.ItemID,
			LinkedAt:    l.CreatedAt,
		}
		for _, p := range s.products {
			if p.SourceSlug == l.SourceSlug && p.ItemID == l.ItemID {
				listing.Name = p.Name
				listing.URL = p.URL
				listing.Currency = p.Currency
				listing.Price = p.LastPrice
				t := p.LastSeenAt
				listing.LastSeenAt = &t
				break
			}
		}
		out = append(out, listing)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceSlug != out[j].SourceSlug {
			return out[i].SourceSlug < out[j].SourceSlug
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

// Compile-time interface check.
var _ domain.CatalogStore = (*Store)(nil)
