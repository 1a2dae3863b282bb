package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pricelens/pricelens/internal/domain"
)

// Scoring model constants. A candidate starts from weighted name similarity
// and gains a bonus when item identifiers line up.
const (
	nameWeight      = 0.55
	exactSKUBonus   = 0.30
	similarSKUBonus = 0.15
	similarSKUFloor = 0.70
	scoreCap        = 0.99
)

// Config holds the suggestion scorer tunables.
type Config struct {
	// MinScore is the floor below which candidates are discarded.
	MinScore float64

	// MaxSuggestions caps candidates per listing when the caller passes no
	// explicit limit.
	MaxSuggestions int

	// FetchConcurrency bounds the parallel per-canonical link fetches.
	FetchConcurrency int
}

// DefaultConfig returns the scorer defaults.
func DefaultConfig() Config {
	return Config{
		MinScore:         0.35,
		MaxSuggestions:   5,
		FetchConcurrency: 8,
	}
}

// Validate wraps every problem in domain.ErrInvalidArgument.
func (c Config) Validate() error {
	var errs []string
	if c.MinScore < 0 || c.MinScore >= 1 {
		errs = append(errs, fmt.Sprintf("min score must be in [0, 1), got %g", c.MinScore))
	}
	if c.MaxSuggestions < 1 {
		errs = append(errs, fmt.Sprintf("max suggestions must be >= 1, got %d", c.MaxSuggestions))
	}
	if c.FetchConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("fetch concurrency must be >= 1, got %d", c.FetchConcurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: match config: %s", domain.ErrInvalidArgument, strings.Join(errs, "; "))
	}
	return nil
}

// Scorer produces canonical-link suggestions for source listings. It is
// stateless and safe for concurrent use.
type Scorer struct {
	store  domain.CatalogStore
	cfg    Config
	logger *slog.Logger
}

// NewScorer creates a Scorer over the given catalog store.
func NewScorer(store domain.CatalogStore, cfg Config, logger *slog.Logger) *Scorer {
	return &Scorer{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "match")),
	}
}

// candidate is a canonical product with its comparable text prefetched: the
// canonical name and description plus the names and normalized item ids of
// every listing already linked to it.
type candidate struct {
	summary     domain.CanonicalSummary
	names       []string
	skus        []string
	linkedItems map[listingKey]bool
}

type listingKey struct {
	sourceSlug string
	itemID     string
}

// SuggestForProduct ranks canonical candidates for one listing. limit <= 0
// falls back to the configured maximum. Returns domain.ErrNotFound when the
// listing does not exist, an empty slice when nothing scores above the
// floor.
func (s *Scorer) SuggestForProduct(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.Suggestion, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if sourceSlug == "" || itemID == "" {
		return nil, fmt.Errorf("%w: source slug and item id must not be empty", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = s.cfg.MaxSuggestions
	}

	products, err := s.store.ListProductsLatest(ctx, sourceSlug)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	var product *domain.ProductLatest
	for i := range products {
		if products[i].ItemID == itemID {
			product = &products[i]
			break
		}
	}
	if product == nil {
		return nil, fmt.Errorf("match: product %s/%s: %w", sourceSlug, itemID, domain.ErrNotFound)
	}

	cands, err := s.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := s.rank(*product, cands, limit)
	return suggestions, nil
}

// SmartSuggestions scans the unlinked listings of the given sources (all
// sources when empty) and groups them by their strongest canonical
// candidate, so a whole group can be linked in one action. Groups come back
// strongest first (by total score); limit caps the number of groups.
func (s *Scorer) SmartSuggestions(ctx context.Context, sourceSlugs []string, limit int) ([]domain.SuggestionGroup, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.MaxSuggestions
	}

	cands, err := s.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}

	linked := make(map[listingKey]bool)
	for _, c := range cands {
		for k := range c.linkedItems {
			linked[k] = true
		}
	}

	slugs := sourceSlugs
	if len(slugs) == 0 {
		sources, err := s.store.ListSources(ctx)
		if err != nil {
			return nil, storeErr("list sources", err)
		}
		for _, src := range sources {
			slugs = append(slugs, src.Slug)
		}
	}

	byCanonical := make(map[int64]*domain.SuggestionGroup)
	for _, slug := range slugs {
		products, err := s.store.ListProductsLatest(ctx, slug)
		if err != nil {
			return nil, storeErr("list products", err)
		}

		for _, p := range products {
			if linked[listingKey{p.SourceSlug, p.ItemID}] {
				continue
			}
			suggestions := s.rank(p, cands, 1)
			if len(suggestions) == 0 {
				continue
			}

			best := suggestions[0]
			g := byCanonical[best.CanonicalID]
			if g == nil {
				g = &domain.SuggestionGroup{
					CanonicalID:   best.CanonicalID,
					CanonicalName: best.CanonicalName,
					LinkCount:     best.LinkCount,
					Items:         []domain.SuggestionItem{},
				}
				byCanonical[best.CanonicalID] = g
			}
			g.Items = append(g.Items, domain.SuggestionItem{
				SourceSlug: p.SourceSlug,
				ItemID:     p.ItemID,
				Name:       p.Name,
				URL:        p.URL,
				Currency:   p.Currency,
				Price:      p.LastPrice,
				LastSeenAt: p.LastSeenAt,
				Score:      best.Score,
				Reason:     best.Reason,
			})
			g.TotalScore += best.Score
			g.Count++
		}
	}

	groups := []domain.SuggestionGroup{}
	for _, g := range byCanonical {
		sort.SliceStable(g.Items, func(i, j int) bool {
			if g.Items[i].Score != g.Items[j].Score {
				return g.Items[i].Score > g.Items[j].Score
			}
			if g.Items[i].SourceSlug != g.Items[j].SourceSlug {
				return g.Items[i].SourceSlug < g.Items[j].SourceSlug
			}
			return g.Items[i].ItemID < g.Items[j].ItemID
		})
		groups = append(groups, *g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].TotalScore != groups[j].TotalScore {
			return groups[i].TotalScore > groups[j].TotalScore
		}
		return groups[i].CanonicalID < groups[j].CanonicalID
	})
	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

// loadCandidates prefetches every canonical with the text it can be matched
// against, bounding the per-canonical link fetches.
func (s *Scorer) loadCandidates(ctx context.Context) ([]candidate, error) {
	summaries, err := s.store.ListCanonicalsWithLinks(ctx, 0, "")
	if err != nil {
		return nil, storeErr("list canonicals", err)
	}

	cands := make([]candidate, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, cs := range summaries {
		g.Go(func() error {
			c := candidate{
				summary:     cs,
				linkedItems: make(map[listingKey]bool),
			}
			c.names = append(c.names, cs.Canonical.Name)
			if cs.Canonical.Description != "" {
				c.names = append(c.names, cs.Canonical.Description)
			}

			listings, err := s.store.GetLinksForCanonical(gctx, cs.Canonical.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return storeErr(fmt.Sprintf("links for canonical %d", cs.Canonical.ID), err)
			}
			for _, l := range listings {
				c.linkedItems[listingKey{l.SourceSlug, l.ItemID}] = true
				if l.Name != "" {
					c.names = append(c.names, l.Name)
				}
				if sku := normalizeSKU(l.ItemID); sku != "" {
					c.skus = append(c.skus, sku)
				}
			}
			cands[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cands, nil
}

// rank scores one listing against every candidate and returns the top
// suggestions above the floor, never nil.
func (s *Scorer) rank(p domain.ProductLatest, cands []candidate, limit int) []domain.Suggestion {
	suggestions := []domain.Suggestion{}
	for _, c := range cands {
		// Already linked to this canonical; nothing to suggest.
		if c.linkedItems[listingKey{p.SourceSlug, p.ItemID}] {
			continue
		}
		score, reason := s.score(p, c)
		if score < s.cfg.MinScore {
			continue
		}
		suggestions = append(suggestions, domain.Suggestion{
			CanonicalID:   c.summary.Canonical.ID,
			CanonicalName: c.summary.Canonical.Name,
			Score:         score,
			Reason:        reason,
			LinkCount:     c.summary.LinkCount,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].CanonicalID < suggestions[j].CanonicalID
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// score combines the best name similarity with identifier evidence.
func (s *Scorer) score(p domain.ProductLatest, c candidate) (float64, string) {
	bestName := 0.0
	bestAgainst := ""
	for _, name := range c.names {
		if sim := textSimilarity(p.Name, name); sim > bestName {
			bestName = sim
			bestAgainst = name
		}
	}

	score := nameWeight * bestName
	var reasons []string
	if bestName > 0 {
		reasons = append(reasons, fmt.Sprintf("name similarity %.0f%% vs %q", bestName*100, bestAgainst))
	}

	if sku := normalizeSKU(p.ItemID); sku != "" && len(c.skus) > 0 {
		exact := false
		bestRatio := 0.0
		for _, linked := range c.skus {
			if linked == sku {
				exact = true
				break
			}
			if r := sequenceRatio(sku, linked); r > bestRatio {
				bestRatio = r
			}
		}
		switch {
		case exact:
			score += exactSKUBonus
			reasons = append(reasons, "exact item id match")
		case bestRatio > similarSKUFloor:
			score += similarSKUBonus
			reasons = append(reasons, fmt.Sprintf("similar item id (%.0f%%)", bestRatio*100))
		}
	}

	if score > scoreCap {
		score = scoreCap
	}
	return score, strings.Join(reasons, "; ")
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, op, err)
}
