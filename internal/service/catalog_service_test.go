package service

import (
	"context"
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

func TestCatalogService_Stats(t *testing.T) {
	svc := NewCatalogService(memory.NewDemo(), testLogger())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Stats{
		CanonicalProducts: 2,
		LinkedProducts:    4,
		UnlinkedProducts:  3,
		Sources:           4,
	}, stats)
}

func TestCatalogService_StatsEmpty(t *testing.T) {
	svc := NewCatalogService(memory.New(), testLogger())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, stats)
}

func TestCatalogService_PriceHistory(t *testing.T) {
	svc := NewCatalogService(memory.NewDemo(), testLogger())
	ctx := context.Background()

	points, err := svc.PriceHistory(ctx, "amazon-us", "B0KETTLE1", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 95.0, points[0].Price)

	_, err = svc.PriceHistory(ctx, "", "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.PriceHistory(ctx, "amazon-us", "no-such-item", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogService_ListRuns(t *testing.T) {
	svc := NewCatalogService(memory.NewDemo(), testLogger())

	failed, err := svc.ListRuns(context.Background(), domain.RunFilter{Status: domain.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, int64(102), failed[0].ID)
}

func TestCatalogService_CanonicalLinks(t *testing.T) {
	svc := NewCatalogService(memory.NewDemo(), testLogger())

	links, err := svc.CanonicalLinks(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, links, 3)

	_, err = svc.CanonicalLinks(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
