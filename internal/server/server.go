// Package server assembles the HTTP + WebSocket API: routes, middleware
// chain, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pricelens/pricelens/internal/domain"
	"github.com/pricelens/pricelens/internal/server/handler"
	"github.com/pricelens/pricelens/internal/server/middleware"
	"github.com/pricelens/pricelens/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimiter enables per-client request limiting when non-nil.
	RateLimiter     domain.RateLimiter
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Catalog *handler.CatalogHandler
	Insight *handler.InsightHandler
	Suggest *handler.SuggestHandler
	Pricing *handler.PricingHandler
}

// Server is the headless HTTP + WebSocket API server for the price
// intelligence engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (rate limiting, auth, request IDs, logging, CORS)
// and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required for the route itself; auth middleware
	// still applies when configured).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Dashboard stats.
	mux.HandleFunc("GET /api/stats", handlers.Catalog.GetStats)

	// Catalog endpoints.
	mux.HandleFunc("GET /api/products", handlers.Catalog.ListProducts)
	mux.HandleFunc("GET /api/products/{source}/{item_id}/history", handlers.Catalog.GetPriceHistory)
	mux.HandleFunc("GET /api/canonicals", handlers.Catalog.ListCanonicals)
	mux.HandleFunc("GET /api/canonicals/{id}/links", handlers.Catalog.GetCanonicalLinks)
	mux.HandleFunc("GET /api/sources", handlers.Catalog.ListSources)
	mux.HandleFunc("GET /api/runs", handlers.Catalog.ListRuns)

	// Insight endpoints.
	mux.HandleFunc("GET /api/insights/snapshot", handlers.Insight.GetSnapshot)

	// Link-suggestion endpoints.
	mux.HandleFunc("GET /api/suggestions/product", handlers.Suggest.SuggestForProduct)
	mux.HandleFunc("GET /api/suggestions/smart", handlers.Suggest.SmartSuggestions)

	// Pricing endpoint.
	mux.HandleFunc("GET /api/pricing/opportunities", handlers.Pricing.GetOpportunities)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply rate limiting when a limiter is configured.
	if cfg.RateLimiter != nil {
		h = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	}

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Tag every request with an ID before anything logs it.
	h = middleware.RequestID()(h)

	// Apply CORS middleware.
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
