package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/pricelens/internal/domain"
	"github.com/pricelens/pricelens/internal/insight"
	"github.com/pricelens/pricelens/internal/match"
	"github.com/pricelens/pricelens/internal/pricing"
	"github.com/pricelens/pricelens/internal/server/handler"
	"github.com/pricelens/pricelens/internal/service"
	"github.com/pricelens/pricelens/internal/store/memory"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewDemo()

	insights := service.NewInsightService(
		insight.NewAnalyzer(store, insight.DefaultConfig(), logger),
		match.NewScorer(store, match.DefaultConfig(), logger),
		pricing.NewEngine(store, logger),
		pricing.DefaultParams(),
		logger,
	)
	catalog := service.NewCatalogService(store, logger)

	handlers := Handlers{
		Health:  handler.NewHealthHandler(logger),
		Catalog: handler.NewCatalogHandler(catalog, logger),
		Insight: handler.NewInsightHandler(insights, logger),
		Suggest: handler.NewSuggestHandler(insights, logger),
		Pricing: handler.NewPricingHandler(insights, logger),
	}
	return NewServer(cfg, handlers, nil, logger)
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, Config{Port: 8000})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/insights/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Summary.RecentDrops)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/products?source=bestbuy", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var products []domain.ProductLatest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.Len(t, products, 2)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/pricing/opportunities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.OpportunityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.Opportunities)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// No hub registered: the websocket route does not exist.
	rec = do(s, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_AuthApplies(t *testing.T) {
	s := newTestServer(t, Config{Port: 8000, APIKey: "sekrit"})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("X-API-Key", "sekrit")
	rec = do(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t, Config{Port: 8000, CORSOrigins: []string{"http://allowed.example"}})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://allowed.example")
	rec := do(s, req)
	assert.Equal(t, "http://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = do(s, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight short-circuits before routing.
	req = httptest.NewRequest(http.MethodOptions, "/api/anything", nil)
	req.Header.Set("Origin", "http://allowed.example")
	rec = do(s, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
