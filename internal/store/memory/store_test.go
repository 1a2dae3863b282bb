package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/pricelens/internal/domain"
)

func TestListRuns_Filters(t *testing.T) {
	now := time.Now().UTC()
	s := New()
	s.SetRuns([]domain.Run{
		{ID: 1, SourceSlug: "amazon-us", Status: domain.RunStatusCompleted, StartedAt: now.Add(-3 * time.Hour)},
		{ID: 2, SourceSlug: "walmart", Status: domain.RunStatusFailed, StartedAt: now.Add(-2 * time.Hour)},
		{ID: 3, SourceSlug: "amazon-us", Status: domain.RunStatusCompleted, StartedAt: now.Add(-1 * time.Hour)},
	})
	ctx := context.Background()

	all, err := s.ListRuns(ctx, domain.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, int64(3), all[0].ID)
	assert.Equal(t, int64(1), all[2].ID)

	bySource, err := s.ListRuns(ctx, domain.RunFilter{SourceSlug: "amazon-us"})
	require.NoError(t, err)
	require.Len(t, bySource, 2)

	byStatus, err := s.ListRuns(ctx, domain.RunFilter{Status: domain.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, int64(2), byStatus[0].ID)

	since, err := s.ListRuns(ctx, domain.RunFilter{Since: now.Add(-90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, int64(3), since[0].ID)

	limited, err := s.ListRuns(ctx, domain.RunFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, int64(3), limited[0].ID)
}

func TestListProductsLatest_SourceFilter(t *testing.T) {
	s := New()
	s.SetProducts([]domain.ProductLatest{
		{SourceSlug: "amazon-us", ItemID: "A1"},
		{SourceSlug: "walmart", ItemID: "W1"},
	})

	all, err := s.ListProductsLatest(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	walmart, err := s.ListProductsLatest(context.Background(), "walmart")
	require.NoError(t, err)
	require.Len(t, walmart, 1)
	assert.Equal(t, "W1", walmart[0].ItemID)
}

func TestListPricePoints(t *testing.T) {
	now := time.Now().UTC()
	s := New()
	s.SetProducts([]domain.ProductLatest{
		{SourceSlug: "amazon-us", ItemID: "A1"},
		{SourceSlug: "amazon-us", ItemID: "A2"},
	})
	// Added out of order; reads must come back newest first.
	s.AddPricePoints(
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "A1", Ts: now.Add(-48 * time.Hour), Price: 105},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "A1", Ts: now.Add(-2 * time.Hour), Price: 95},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "A1", Ts: now.Add(-24 * time.Hour), Price: 100},
	)
	ctx := context.Background()

	pts, err := s.ListPricePoints(ctx, "amazon-us", "A1", 0)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, 95.0, pts[0].Price)
	assert.Equal(t, 105.0, pts[2].Price)

	limited, err := s.ListPricePoints(ctx, "amazon-us", "A1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// Known product without observations: empty, not an error.
	empty, err := s.ListPricePoints(ctx, "amazon-us", "A2", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.ListPricePoints(ctx, "amazon-us", "nope", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCanonicalsWithLinks_Aggregates(t *testing.T) {
	now := time.Now().UTC()
	s := New()
	s.SetCanonicals([]domain.CanonicalProduct{
		{ID: 1, Name: "Gamma Monitor"},
		{ID: 2, Name: "Stagg Kettle"},
	})
	s.SetLinks([]domain.ProductLink{
		{CanonicalID: 1, SourceSlug: "walmart", ItemID: "W1", CreatedAt: now.Add(-48 * time.Hour)},
		{CanonicalID: 1, SourceSlug: "amazon-us", ItemID: "A1", CreatedAt: now.Add(-24 * time.Hour)},
		{CanonicalID: 1, SourceSlug: "amazon-us", ItemID: "A2", CreatedAt: now.Add(-1 * time.Hour)},
	})
	ctx := context.Background()

	all, err := s.ListCanonicalsWithLinks(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	monitor := all[0]
	assert.Equal(t, int64(1), monitor.Canonical.ID)
	assert.Equal(t, 3, monitor.LinkCount)
	assert.Equal(t, []string{"amazon-us", "walmart"}, monitor.SourcesPreview)
	require.NotNil(t, monitor.FirstLinkedAt)
	assert.True(t, monitor.FirstLinkedAt.Equal(now.Add(-48*time.Hour)))
	require.NotNil(t, monitor.LastLinkedAt)
	assert.True(t, monitor.LastLinkedAt.Equal(now.Add(-1*time.Hour)))

	kettle := all[1]
	assert.Equal(t, 0, kettle.LinkCount)
	assert.NotNil(t, kettle.SourcesPreview)
	assert.Nil(t, kettle.FirstLinkedAt)

	// Query matches case-insensitively on the canonical name.
	matched, err := s.ListCanonicalsWithLinks(ctx, 0, "kettle")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, int64(2), matched[0].Canonical.ID)

	limited, err := s.ListCanonicalsWithLinks(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, int64(1), limited[0].Canonical.ID)
}

func TestGetLinksForCanonical_JoinsProducts(t *testing.T) {
	s := New()
	s.SetProducts([]domain.ProductLatest{
		{SourceSlug: "amazon-us", ItemID: "A1", Name: "Gamma Monitor", Currency: "USD", LastPrice: ptr(219.99)},
	})
	s.SetCanonicals([]domain.CanonicalProduct{{ID: 1, Name: "Gamma Monitor"}})
	s.SetLinks([]domain.ProductLink{
		{CanonicalID: 1, SourceSlug: "amazon-us", ItemID: "A1"},
		{CanonicalID: 1, SourceSlug: "walmart", ItemID: "gone"},
	})
	ctx := context.Background()

	links, err := s.GetLinksForCanonical(ctx, 1)
	require.NoError(t, err)
	require.Len(t, links, 2)

	// Sorted by source then item; the amazon row joins its product.
	assert.Equal(t, "amazon-us", links[0].SourceSlug)
	assert.Equal(t, "Gamma Monitor", links[0].Name)
	require.NotNil(t, links[0].Price)
	assert.Equal(t, 219.99, *links[0].Price)

	// A link whose product vanished keeps its key but no joined fields.
	assert.Equal(t, "gone", links[1].ItemID)
	assert.Empty(t, links[1].Name)
	assert.Nil(t, links[1].Price)

	_, err = s.GetLinksForCanonical(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ContextCancelled(t *testing.T) {
	s := NewDemo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListSources(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.ListCanonicalsWithLinks(ctx, 0, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	s := NewDemo()
	ctx := context.Background()

	first, err := s.ListSources(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	first[0].Slug = "mutated"

	second, err := s.ListSources(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", second[0].Slug)
}
