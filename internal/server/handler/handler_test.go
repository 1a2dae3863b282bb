package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/pricelens/internal/domain"
	"github.com/pricelens/pricelens/internal/pricing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "pricelens", body["service"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Contains(t, body, "uptimeSeconds")
}

// stubCatalog lets each test inject one behavior.
type stubCatalog struct {
	products func(ctx context.Context, sourceSlug string) ([]domain.ProductLatest, error)
	history  func(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error)
	runs     func(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error)
	stats    func(ctx context.Context) (domain.Stats, error)
}

func (s *stubCatalog) ListProducts(ctx context.Context, sourceSlug string) ([]domain.ProductLatest, error) {
	return s.products(ctx, sourceSlug)
}
func (s *stubCatalog) PriceHistory(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error) {
	return s.history(ctx, sourceSlug, itemID, limit)
}
func (s *stubCatalog) ListCanonicals(ctx context.Context, limit int, query string) ([]domain.CanonicalSummary, error) {
	return []domain.CanonicalSummary{}, nil
}
func (s *stubCatalog) CanonicalLinks(ctx context.Context, canonicalID int64) ([]domain.LinkedListing, error) {
	return []domain.LinkedListing{}, nil
}
func (s *stubCatalog) ListSources(ctx context.Context) ([]domain.Source, error) {
	return []domain.Source{}, nil
}
func (s *stubCatalog) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	return s.runs(ctx, filter)
}
func (s *stubCatalog) Stats(ctx context.Context) (domain.Stats, error) {
	return s.stats(ctx)
}

func TestGetStats_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"invalid argument", domain.ErrInvalidArgument, http.StatusBadRequest, "invalid argument"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "not found"},
		{"store down", domain.ErrDataUnavailable, http.StatusServiceUnavailable, "data temporarily unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCatalogHandler(&stubCatalog{
				stats: func(ctx context.Context) (domain.Stats, error) { return domain.Stats{}, tt.err },
			}, testLogger())

			rec := httptest.NewRecorder()
			h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestGetStats_ClientGoneWritesNothing(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{
		stats: func(ctx context.Context) (domain.Stats, error) { return domain.Stats{}, context.Canceled },
	}, testLogger())

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Empty(t, rec.Body.String())
}

func TestGetPriceHistory_PathAndLimit(t *testing.T) {
	var gotSource, gotItem string
	var gotLimit int
	h := NewCatalogHandler(&stubCatalog{
		history: func(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error) {
			gotSource, gotItem, gotLimit = sourceSlug, itemID, limit
			return []domain.PricePoint{}, nil
		},
	}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/{source}/{item_id}/history", h.GetPriceHistory)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/amazon-us/B0KETTLE1/history?limit=9999", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "amazon-us", gotSource)
	assert.Equal(t, "B0KETTLE1", gotItem)
	assert.Equal(t, 500, gotLimit, "limit must be clamped")
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListRuns_SinceParam(t *testing.T) {
	var gotFilter domain.RunFilter
	h := NewCatalogHandler(&stubCatalog{
		runs: func(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
			gotFilter = filter
			return []domain.Run{}, nil
		},
	}, testLogger())

	rec := httptest.NewRecorder()
	h.ListRuns(rec, httptest.NewRequest(http.MethodGet,
		"/api/runs?source=walmart&status=failed&since=2026-08-20T00:00:00Z&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "walmart", gotFilter.SourceSlug)
	assert.Equal(t, domain.RunStatusFailed, gotFilter.Status)
	assert.Equal(t, 5, gotFilter.Limit)
	want, _ := time.Parse(time.RFC3339, "2026-08-20T00:00:00Z")
	assert.True(t, gotFilter.Since.Equal(want))

	rec = httptest.NewRecorder()
	h.ListRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs?since=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "RFC3339")
}

func TestGetCanonicalLinks_BadID(t *testing.T) {
	h := NewCatalogHandler(&stubCatalog{}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/canonicals/{id}/links", h.GetCanonicalLinks)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/canonicals/abc/links", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid canonical id")
}

// stubPricing records the params the handler resolved from the query.
type stubPricing struct {
	defaults pricing.Params
	got      pricing.Params
}

func (s *stubPricing) PricingDefaults() pricing.Params { return s.defaults }
func (s *stubPricing) Opportunities(ctx context.Context, params pricing.Params) (domain.OpportunityReport, error) {
	s.got = params
	return domain.OpportunityReport{Opportunities: []domain.Opportunity{}}, nil
}

func TestGetOpportunities_QueryOverrides(t *testing.T) {
	stub := &stubPricing{defaults: pricing.DefaultParams()}
	h := NewPricingHandler(stub, testLogger())

	rec := httptest.NewRecorder()
	h.GetOpportunities(rec, httptest.NewRequest(http.MethodGet,
		"/api/pricing/opportunities?prefix=bestbuy&undercut_by=0.5&only_with_ref=true&limit=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bestbuy", stub.got.ReferencePrefix)
	assert.Equal(t, 0.5, stub.got.UndercutBy)
	assert.True(t, stub.got.OnlyWithReference)
	assert.Equal(t, 3, stub.got.CanonicalLimit)
	// Untouched knobs keep their configured defaults.
	assert.Equal(t, pricing.DefaultParams().Tolerance, stub.got.Tolerance)
	assert.Equal(t, pricing.DefaultParams().FetchConcurrency, stub.got.FetchConcurrency)
}

func TestGetOpportunities_DefaultsWhenNoQuery(t *testing.T) {
	stub := &stubPricing{defaults: pricing.DefaultParams()}
	h := NewPricingHandler(stub, testLogger())

	rec := httptest.NewRecorder()
	h.GetOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/pricing/opportunities", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pricing.DefaultParams(), stub.got)
}

// stubSuggest records the parsed source list and limit.
type stubSuggest struct {
	gotSources []string
	gotLimit   int
}

func (s *stubSuggest) SuggestForProduct(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.Suggestion, error) {
	s.gotLimit = limit
	return []domain.Suggestion{}, nil
}

func (s *stubSuggest) SmartSuggestions(ctx context.Context, sourceSlugs []string, limit int) ([]domain.SuggestionGroup, error) {
	s.gotSources = sourceSlugs
	s.gotLimit = limit
	return []domain.SuggestionGroup{}, nil
}

func TestSmartSuggestions_QueryParsing(t *testing.T) {
	stub := &stubSuggest{}
	h := NewSuggestHandler(stub, testLogger())

	rec := httptest.NewRecorder()
	h.SmartSuggestions(rec, httptest.NewRequest(http.MethodGet,
		"/api/suggestions/smart?sources=walmart,%20bestbuy,&limit=999", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"walmart", "bestbuy"}, stub.gotSources)
	assert.Equal(t, 50, stub.gotLimit, "limit must be clamped")
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSmartSuggestions_DefaultLimit(t *testing.T) {
	stub := &stubSuggest{}
	h := NewSuggestHandler(stub, testLogger())

	rec := httptest.NewRecorder()
	h.SmartSuggestions(rec, httptest.NewRequest(http.MethodGet, "/api/suggestions/smart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, stub.gotSources)
	assert.Equal(t, 10, stub.gotLimit)
}

// stubSnapshot serves a fixed snapshot.
type stubSnapshot struct {
	snap domain.Snapshot
	err  error
}

func (s *stubSnapshot) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	return s.snap, s.err
}

func TestGetSnapshot(t *testing.T) {
	stub := &stubSnapshot{snap: domain.Snapshot{
		Summary: domain.SnapshotSummary{RecentDrops: 2},
	}}
	h := NewInsightHandler(stub, testLogger())

	rec := httptest.NewRecorder()
	h.GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/insights/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Summary.RecentDrops)
}

func TestGetSnapshot_StoreDown(t *testing.T) {
	stub := &stubSnapshot{err: domain.ErrDataUnavailable}
	h := NewInsightHandler(stub, testLogger())

	rec := httptest.NewRecorder()
	h.GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/insights/snapshot", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
