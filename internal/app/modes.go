package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pricelens/pricelens/internal/server"
	"github.com/pricelens/pricelens/internal/server/handler"
	"github.com/pricelens/pricelens/internal/server/ws"
	"github.com/pricelens/pricelens/internal/service"
)

// ServerMode runs the HTTP + WebSocket API without the background watcher.
// Clients pull snapshots, suggestions and opportunities on demand.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := a.startHub(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, hub)

	return g.Wait()
}

// SnapshotMode computes one snapshot, prints it as JSON on stdout, and exits.
// Useful for cron jobs and quick checks against a live catalog.
func (a *App) SnapshotMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting snapshot mode")

	snap, err := deps.Insights.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot mode: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("snapshot mode: encode: %w", err)
	}
	return nil
}

// WatchMode runs the background watcher without the HTTP server. Events go to
// the signal bus (when Redis is enabled) and to the configured alert sinks.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	g, ctx := errgroup.WithContext(ctx)

	watcher := a.newWatcher(deps, nil)
	g.Go(func() error {
		return watcher.Run(ctx)
	})

	return g.Wait()
}

// FullMode runs everything: the watcher, the WebSocket hub fed by it, and the
// HTTP API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := a.startHub(ctx, g, deps)

	watcher := a.newWatcher(deps, hub)
	g.Go(func() error {
		return watcher.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, hub)

	return g.Wait()
}

// startHub creates the WebSocket hub and runs its loop on the errgroup. In
// the same process the watcher broadcasts into the hub directly, so the bus
// bridge is only wired when Redis is enabled and another process may be
// publishing.
func (a *App) startHub(ctx context.Context, g *errgroup.Group, deps *Dependencies) *ws.Hub {
	channel := ""
	if deps.SignalBus != nil {
		channel = a.cfg.Watch.Channel
	}
	hub := ws.NewHub(deps.SignalBus, channel, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	return hub
}

// newWatcher builds the snapshot poller. hub may be nil in watch mode.
func (a *App) newWatcher(deps *Dependencies, hub service.Broadcaster) *service.Watcher {
	// A nil *ws.Hub must not reach the watcher as a non-nil interface.
	var broadcaster service.Broadcaster
	if hub != nil {
		broadcaster = hub
	}

	var alerts service.AlertSink
	if deps.Notifier != nil {
		alerts = deps.Notifier
	}

	return service.NewWatcher(
		deps.Insights,
		deps.SignalBus,
		broadcaster,
		alerts,
		service.WatcherConfig{
			Interval: a.cfg.Watch.Interval.Duration,
			Channel:  a.cfg.Watch.Channel,
			Stream:   a.cfg.Watch.Stream,
		},
		a.logger,
	)
}

// startHTTPServer registers all handlers and adds the server's serve and
// shutdown goroutines to the errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled by config")
		return
	}

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Catalog: handler.NewCatalogHandler(deps.Catalog, a.logger),
		Insight: handler.NewInsightHandler(deps.Insights, a.logger),
		Suggest: handler.NewSuggestHandler(deps.Insights, a.logger),
		Pricing: handler.NewPricingHandler(deps.Insights, a.logger),
	}

	srvCfg := server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}
	if a.cfg.Server.RateLimitPerMin > 0 && deps.RateLimiter != nil {
		srvCfg.RateLimiter = deps.RateLimiter
		srvCfg.RateLimit = a.cfg.Server.RateLimitPerMin
		srvCfg.RateLimitWindow = time.Minute
	}

	srv := server.NewServer(srvCfg, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
