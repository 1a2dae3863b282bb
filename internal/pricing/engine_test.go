package pricing

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

func priced(slug, item string, price float64) domain.ProductLatest {
	return domain.ProductLatest{SourceSlug: slug, ItemID: item, Name: item, Currency: "USD", LastPrice: ptr(price)}
}

// opportunityStore covers one canonical per classification, plus a
// mixed-currency group that must vanish from the report.
func opportunityStore() *memory.Store {
	s := memory.New()
	s.SetSources([]domain.Source{
		{Slug: "amazon-us", Enabled: true},
		{Slug: "walmart", Enabled: true},
		{Slug: "bestbuy", Enabled: true},
	})

	unpriced := domain.ProductLatest{SourceSlug: "amazon-us", ItemID: "A5", Name: "A5", Currency: "USD"}
	euro := domain.ProductLatest{SourceSlug: "walmart", ItemID: "W7", Name: "W7", Currency: "EUR", LastPrice: ptr(90.0)}

	s.SetProducts([]domain.ProductLatest{
		priced("amazon-us", "A1", 110), priced("walmart", "W1", 100), priced("bestbuy", "B1", 120),
		priced("amazon-us", "A2", 100), priced("walmart", "W2", 130),
		priced("amazon-us", "A3", 100), priced("walmart", "W3", 100),
		priced("walmart", "W4", 50),
		unpriced, priced("walmart", "W5", 80),
		priced("amazon-us", "A6", 60),
		priced("amazon-us", "A7", 100), euro,
	})

	s.SetCanonicals([]domain.CanonicalProduct{
		{ID: 1, Name: "Overpriced Widget"},
		{ID: 2, Name: "Underpriced Widget"},
		{ID: 3, Name: "Matched Widget"},
		{ID: 4, Name: "Unreferenced Widget"},
		{ID: 5, Name: "Unpriced Widget"},
		{ID: 6, Name: "Lonely Widget"},
		{ID: 7, Name: "Imported Widget"},
	})

	s.SetLinks([]domain.ProductLink{
		{CanonicalID: 1, SourceSlug: "amazon-us", ItemID: "A1"},
		{CanonicalID: 1, SourceSlug: "walmart", ItemID: "W1"},
		{CanonicalID: 1, SourceSlug: "bestbuy", ItemID: "B1"},
		{CanonicalID: 2, SourceSlug: "amazon-us", ItemID: "A2"},
		{CanonicalID: 2, SourceSlug: "walmart", ItemID: "W2"},
		{CanonicalID: 3, SourceSlug: "amazon-us", ItemID: "A3"},
		{CanonicalID: 3, SourceSlug: "walmart", ItemID: "W3"},
		{CanonicalID: 4, SourceSlug: "walmart", ItemID: "W4"},
		{CanonicalID: 5, SourceSlug: "amazon-us", ItemID: "A5"},
		{CanonicalID: 5, SourceSlug: "walmart", ItemID: "W5"},
		{CanonicalID: 6, SourceSlug: "amazon-us", ItemID: "A6"},
		{CanonicalID: 7, SourceSlug: "amazon-us", ItemID: "A7"},
		{CanonicalID: 7, SourceSlug: "walmart", ItemID: "W7"},
	})
	return s
}

func TestOpportunities_Classification(t *testing.T) {
	e := NewEngine(opportunityStore(), testLogger())

	report, err := e.Opportunities(context.Background(), DefaultParams())
	require.NoError(t, err)

	// Seven canonicals, one dropped for mixed currencies.
	require.Len(t, report.Opportunities, 6)

	actions := make([]domain.PricingAction, len(report.Opportunities))
	ids := make([]int64, len(report.Opportunities))
	for i, o := range report.Opportunities {
		actions[i] = o.Action
		ids[i] = o.CanonicalID
	}
	assert.Equal(t, []domain.PricingAction{
		domain.ActionUndercut,
		domain.ActionRaise,
		domain.ActionWatch,
		domain.ActionMissingOwnPrice,
		domain.ActionMissingCompetitors,
		domain.ActionMissingReference,
	}, actions)
	assert.Equal(t, []int64{1, 2, 3, 5, 6, 4}, ids)

	undercut := report.Opportunities[0]
	require.NotNil(t, undercut.OwnPrice)
	assert.Equal(t, 110.0, *undercut.OwnPrice)
	require.NotNil(t, undercut.DeltaAbs)
	assert.InDelta(t, 10.0, *undercut.DeltaAbs, 0.0001)
	require.NotNil(t, undercut.DeltaPct)
	assert.InDelta(t, 10.0, *undercut.DeltaPct, 0.0001)
	require.NotNil(t, undercut.SuggestedPrice)
	assert.InDelta(t, 99.99, *undercut.SuggestedPrice, 0.0001)
	assert.Equal(t, "undercut walmart by 0.01", undercut.SuggestedReason)
	assert.Equal(t, 1, undercut.ReferenceListingCount)
	assert.Equal(t, 2, undercut.CompetitorCount)

	// Competitors come back cheapest first.
	require.Len(t, undercut.Competitors, 2)
	assert.Equal(t, "walmart", undercut.Competitors[0].SourceSlug)
	assert.Equal(t, 100.0, undercut.Competitors[0].Price)
	require.NotNil(t, undercut.CompetitorMin)
	assert.Equal(t, 100.0, *undercut.CompetitorMin)
	require.NotNil(t, undercut.CompetitorMax)
	assert.Equal(t, 120.0, *undercut.CompetitorMax)

	// Data-gap rows carry no price fields or reason, but the competitor
	// tallies survive.
	missing := report.Opportunities[5]
	assert.Equal(t, int64(4), missing.CanonicalID)
	assert.Nil(t, missing.OwnPrice)
	assert.Nil(t, missing.DeltaAbs)
	assert.Empty(t, missing.SuggestedReason)
	assert.NotNil(t, missing.Competitors)
	assert.Equal(t, 0, missing.ReferenceListingCount)
	assert.Equal(t, 1, missing.CompetitorCount)

	raise := report.Opportunities[1]
	assert.Equal(t, "raise toward walmart's low", raise.SuggestedReason)

	assert.Equal(t, 1, report.Summary.Actions[domain.ActionUndercut])
	assert.Equal(t, 1, report.Summary.Actions[domain.ActionRaise])
	assert.Equal(t, 1, report.Summary.Actions[domain.ActionWatch])
	assert.InDelta(t, 10.0, report.Summary.TotalOverprice, 0.0001)
	assert.InDelta(t, 29.99, report.Summary.TotalPotentialGain, 0.0001)

	// The mixed-currency canonical is dropped from the rows but counted.
	assert.Equal(t, 1, report.Summary.SkippedMixedCurrency)
	for _, o := range report.Opportunities {
		assert.NotEqual(t, int64(7), o.CanonicalID)
	}
}

func TestOpportunities_RaiseWithCustomUndercut(t *testing.T) {
	s := memory.New()
	s.SetProducts([]domain.ProductLatest{
		priced("amazon-us", "A1", 100),
		priced("walmart", "W1", 130),
	})
	s.SetCanonicals([]domain.CanonicalProduct{{ID: 1, Name: "Widget"}})
	s.SetLinks([]domain.ProductLink{
		{CanonicalID: 1, SourceSlug: "amazon-us", ItemID: "A1"},
		{CanonicalID: 1, SourceSlug: "walmart", ItemID: "W1"},
	})

	params := DefaultParams()
	params.UndercutBy = 5

	report, err := NewEngine(s, testLogger()).Opportunities(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)

	opp := report.Opportunities[0]
	assert.Equal(t, domain.ActionRaise, opp.Action)
	require.NotNil(t, opp.SuggestedPrice)
	assert.InDelta(t, 125.0, *opp.SuggestedPrice, 0.0001)
	assert.InDelta(t, 25.0, report.Summary.TotalPotentialGain, 0.0001)
}

func TestOpportunities_SuggestedPriceNeverNegative(t *testing.T) {
	s := memory.New()
	s.SetProducts([]domain.ProductLatest{
		priced("amazon-us", "A1", 10),
		priced("walmart", "W1", 2),
	})
	s.SetCanonicals([]domain.CanonicalProduct{{ID: 1, Name: "Widget"}})
	s.SetLinks([]domain.ProductLink{
		{CanonicalID: 1, SourceSlug: "amazon-us", ItemID: "A1"},
		{CanonicalID: 1, SourceSlug: "walmart", ItemID: "W1"},
	})

	params := DefaultParams()
	params.UndercutBy = 5

	report, err := NewEngine(s, testLogger()).Opportunities(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)
	require.NotNil(t, report.Opportunities[0].SuggestedPrice)
	assert.Equal(t, 0.0, *report.Opportunities[0].SuggestedPrice)
}

func TestOpportunities_OnlyWithReference(t *testing.T) {
	params := DefaultParams()
	params.OnlyWithReference = true

	report, err := NewEngine(opportunityStore(), testLogger()).Opportunities(context.Background(), params)
	require.NoError(t, err)

	for _, o := range report.Opportunities {
		assert.NotEqual(t, domain.ActionMissingReference, o.Action)
	}
	assert.Len(t, report.Opportunities, 5)
}

func TestOpportunities_CanonicalLimit(t *testing.T) {
	params := DefaultParams()
	params.CanonicalLimit = 1

	report, err := NewEngine(opportunityStore(), testLogger()).Opportunities(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)
	assert.Equal(t, int64(1), report.Opportunities[0].CanonicalID)
}

func TestOpportunities_EmptyCatalog(t *testing.T) {
	report, err := NewEngine(memory.New(), testLogger()).Opportunities(context.Background(), DefaultParams())
	require.NoError(t, err)
	assert.NotNil(t, report.Opportunities)
	assert.Empty(t, report.Opportunities)
	assert.NotNil(t, report.Summary.Actions)
}

func TestOpportunities_InvalidParams(t *testing.T) {
	params := DefaultParams()
	params.ReferencePrefix = "  "

	_, err := NewEngine(opportunityStore(), testLogger()).Opportunities(context.Background(), params)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// downStore fails every read.
type downStore struct{ err error }

func (d *downStore) ListSources(ctx context.Context) ([]domain.Source, error) { return nil, d.err }
func (d *downStore) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	return nil, d.err
}
func (d *downStore) ListProductsLatest(ctx context.Context, sourceSlug string) ([]domain.ProductLatest, error) {
	return nil, d.err
}
func (d *downStore) ListPricePoints(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error) {
	return nil, d.err
}
func (d *downStore) ListCanonicalsWithLinks(ctx context.Context, limit int, query string) ([]domain.CanonicalSummary, error) {
	return nil, d.err
}
func (d *downStore) GetLinksForCanonical(ctx context.Context, canonicalID int64) ([]domain.LinkedListing, error) {
	return nil, d.err
}

func TestOpportunities_StoreFailure(t *testing.T) {
	e := NewEngine(&downStore{err: errors.New("connection refused")}, testLogger())

	_, err := e.Opportunities(context.Background(), DefaultParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestOpportunities_ContextCancelled(t *testing.T) {
	e := NewEngine(opportunityStore(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Opportunities(ctx, DefaultParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrDataUnavailable)
}
