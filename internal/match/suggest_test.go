package match

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/pricelens/internal/domain"
	"github.com/pricelens/pricelens/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

// widgetStore seeds a catalog where the shop listing "abc123" is an obvious
// match for the canonical widget linked under item id "ABC-123".
func widgetStore() *memory.Store {
	s := memory.New()
	s.SetSources([]domain.Source{
		{Slug: "amazon-us", Enabled: true},
		{Slug: "shop", Enabled: true},
	})
	s.SetProducts([]domain.ProductLatest{
		{SourceSlug: "amazon-us", ItemID: "ABC-123", Name: "Acme Widget", Currency: "USD", LastPrice: ptr(19.99)},
		{SourceSlug: "shop", ItemID: "abc123", Name: "Acme Widget", Currency: "USD", LastPrice: ptr(21.50)},
	})
	s.SetCanonicals([]domain.CanonicalProduct{
		{ID: 1, Name: "Acme Widget"},
		{ID: 2, Name: "Acme Widget Pro"},
	})
	s.SetLinks([]domain.ProductLink{
		{CanonicalID: 1, SourceSlug: "amazon-us", ItemID: "ABC-123"},
	})
	return s
}

func TestSuggestForProduct_ExactSKUMatch(t *testing.T) {
	scorer := NewScorer(widgetStore(), DefaultConfig(), testLogger())

	got, err := scorer.SuggestForProduct(context.Background(), "shop", "abc123", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Identical name (0.55) plus the normalized id bonus (0.30).
	assert.Equal(t, int64(1), got[0].CanonicalID)
	assert.InDelta(t, 0.85, got[0].Score, 0.0001)
	assert.Contains(t, got[0].Reason, "exact item id match")
	assert.Equal(t, 1, got[0].LinkCount)

	// The Pro variant scores on name alone and ranks second.
	assert.Equal(t, int64(2), got[1].CanonicalID)
	assert.Less(t, got[1].Score, got[0].Score)
	assert.NotContains(t, got[1].Reason, "item id")
}

func TestSuggestForProduct_SimilarSKUBonus(t *testing.T) {
	s := widgetStore()
	s.SetProducts([]domain.ProductLatest{
		{SourceSlug: "amazon-us", ItemID: "ABC-123", Name: "Acme Widget", Currency: "USD"},
		{SourceSlug: "shop", ItemID: "abc124", Name: "Acme Widget", Currency: "USD"},
	})
	scorer := NewScorer(s, DefaultConfig(), testLogger())

	got, err := scorer.SuggestForProduct(context.Background(), "shop", "abc124", 0)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	// One digit off: name score plus the smaller similarity bonus.
	assert.Equal(t, int64(1), got[0].CanonicalID)
	assert.InDelta(t, 0.70, got[0].Score, 0.0001)
	assert.Contains(t, got[0].Reason, "similar item id")
}

func TestSuggestForProduct_Limit(t *testing.T) {
	scorer := NewScorer(widgetStore(), DefaultConfig(), testLogger())

	got, err := scorer.SuggestForProduct(context.Background(), "shop", "abc123", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].CanonicalID)
}

func TestSuggestForProduct_AlreadyLinked(t *testing.T) {
	scorer := NewScorer(widgetStore(), DefaultConfig(), testLogger())

	// The amazon listing is linked to canonical 1 already; only the Pro
	// variant remains a candidate.
	got, err := scorer.SuggestForProduct(context.Background(), "amazon-us", "ABC-123", 0)
	require.NoError(t, err)
	for _, sug := range got {
		assert.NotEqual(t, int64(1), sug.CanonicalID)
	}
}

func TestSuggestForProduct_Errors(t *testing.T) {
	scorer := NewScorer(widgetStore(), DefaultConfig(), testLogger())
	ctx := context.Background()

	_, err := scorer.SuggestForProduct(ctx, "shop", "no-such-item", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = scorer.SuggestForProduct(ctx, "", "abc123", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	bad := DefaultConfig()
	bad.MinScore = -0.5
	_, err = NewScorer(widgetStore(), bad, testLogger()).SuggestForProduct(ctx, "shop", "abc123", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// brokenStore fails every read.
type brokenStore struct{ err error }

func (b *brokenStore) ListSources(ctx context.Context) ([]domain.Source, error) {
	return nil, b.err
}
func (b *brokenStore) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	return nil, b.err
}
func (b *brokenStore) ListProductsLatest(ctx context.Context, sourceSlug string) ([]domain.ProductLatest, error) {
	return nil, b.err
}
func (b *brokenStore) ListPricePoints(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error) {
	return nil, b.err
}
func (b *brokenStore) ListCanonicalsWithLinks(ctx context.Context, limit int, query string) ([]domain.CanonicalSummary, error) {
	return nil, b.err
}
func (b *brokenStore) GetLinksForCanonical(ctx context.Context, canonicalID int64) ([]domain.LinkedListing, error) {
	return nil, b.err
}

func TestSuggestForProduct_StoreFailure(t *testing.T) {
	scorer := NewScorer(&brokenStore{err: errors.New("connection refused")}, DefaultConfig(), testLogger())

	_, err := scorer.SuggestForProduct(context.Background(), "shop", "abc123", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestSmartSuggestions_GroupsByCanonical(t *testing.T) {
	s := memory.New()
	s.SetSources([]domain.Source{
		{Slug: "alpha", Enabled: true},
		{Slug: "beta", Enabled: true},
	})
	s.SetProducts([]domain.ProductLatest{
		{SourceSlug: "alpha", ItemID: "itm-1", Name: "Acme Widget"},
		{SourceSlug: "alpha", ItemID: "itm-2", Name: "Acme Widget"},
		{SourceSlug: "beta", ItemID: "itm-3", Name: "Acme Widget Steel"},
	})
	s.SetCanonicals([]domain.CanonicalProduct{{ID: 1, Name: "Acme Widget"}})
	scorer := NewScorer(s, DefaultConfig(), testLogger())

	groups, err := scorer.SmartSuggestions(context.Background(), nil, 10)
	require.NoError(t, err)

	// Three unlinked listings across two sources all point at the same
	// canonical: one group, not one per source.
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, int64(1), g.CanonicalID)
	assert.Equal(t, "Acme Widget", g.CanonicalName)
	assert.Equal(t, 3, g.Count)
	require.Len(t, g.Items, 3)

	// Total score sums the members; the weaker steel variant sorts last.
	var sum float64
	for _, item := range g.Items {
		sum += item.Score
	}
	assert.InDelta(t, sum, g.TotalScore, 0.0001)
	assert.InDelta(t, 1.5060, g.TotalScore, 0.001)
	assert.Equal(t, "itm-3", g.Items[2].ItemID)
	assert.NotEmpty(t, g.Items[0].Reason)
}

func TestSmartSuggestions_DemoCatalog(t *testing.T) {
	scorer := NewScorer(memory.NewDemo(), DefaultConfig(), testLogger())

	groups, err := scorer.SmartSuggestions(context.Background(), nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, groups)

	// Strongest canonical first, and every group carries its aggregates.
	for i, g := range groups {
		assert.Equal(t, len(g.Items), g.Count)
		if i > 0 {
			assert.GreaterOrEqual(t, groups[i-1].TotalScore, g.TotalScore)
		}
	}

	var kettle *domain.SuggestionGroup
	for i := range groups {
		if groups[i].CanonicalID == 2 {
			kettle = &groups[i]
		}
	}
	require.NotNil(t, kettle, "the unlinked bestbuy kettle should surface")
	assert.Equal(t, "Fellow Stagg EKG Kettle", kettle.CanonicalName)

	var found bool
	for _, item := range kettle.Items {
		if item.SourceSlug == "bestbuy" && item.ItemID == "6220134" {
			found = true
			assert.GreaterOrEqual(t, item.Score, DefaultConfig().MinScore)
			assert.NotEmpty(t, item.Reason)
		}
	}
	assert.True(t, found, "bestbuy 6220134 should group under the kettle canonical")
}

func TestSmartSuggestions_FiltersSources(t *testing.T) {
	scorer := NewScorer(memory.NewDemo(), DefaultConfig(), testLogger())

	groups, err := scorer.SmartSuggestions(context.Background(), []string{"bestbuy"}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, groups)
	for _, g := range groups {
		for _, item := range g.Items {
			assert.Equal(t, "bestbuy", item.SourceSlug)
		}
	}
}

func TestSmartSuggestions_EmptyCatalog(t *testing.T) {
	scorer := NewScorer(memory.New(), DefaultConfig(), testLogger())

	groups, err := scorer.SmartSuggestions(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}
