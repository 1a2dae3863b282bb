package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pricelens/pricelens/internal/cache/redis"
	"github.com/pricelens/pricelens/internal/config"
	"github.com/pricelens/pricelens/internal/domain"
	"github.com/pricelens/pricelens/internal/insight"
	"github.com/pricelens/pricelens/internal/match"
	"github.com/pricelens/pricelens/internal/notify"
	"github.com/pricelens/pricelens/internal/pricing"
	"github.com/pricelens/pricelens/internal/service"
	"github.com/pricelens/pricelens/internal/store/memory"
	"github.com/pricelens/pricelens/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store domain.CatalogStore

	// Redis-backed; nil when redis is disabled.
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	Catalog  *service.CatalogService
	Insights *service.InsightService

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Catalog store ---
	switch strings.ToLower(cfg.Database.Driver) {
	case "memory":
		// Seeded demo store: every endpoint and detector has data to chew on
		// without a database.
		deps.Store = memory.NewDemo()
		logger.InfoContext(ctx, "using in-memory demo store")

	default:
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Store = postgres.NewCatalogStore(pgClient.Pool())
	}

	// --- Redis (signal bus + rate limiter) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.Connect(ctx, redis.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLS:        cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBusWithMaxLen(redisClient, cfg.Watch.StreamMaxLen)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Engines and services ---
	analyzer := insight.NewAnalyzer(deps.Store, insightConfig(cfg), logger)
	scorer := match.NewScorer(deps.Store, matchConfig(cfg), logger)
	pricer := pricing.NewEngine(deps.Store, logger)

	deps.Catalog = service.NewCatalogService(deps.Store, logger)
	deps.Insights = service.NewInsightService(analyzer, scorer, pricer, pricingParams(cfg), logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// insightConfig maps the file configuration onto the snapshot engine config.
func insightConfig(cfg *config.Config) insight.Config {
	return insight.Config{
		DropThresholdPct:    cfg.Insight.DropThresholdPct,
		SpikeThresholdPct:   cfg.Insight.SpikeThresholdPct,
		StreakMinPoints:     cfg.Insight.StreakMinPoints,
		StreakTrendPct:      cfg.Insight.StreakTrendPct,
		OutlierDeviationPct: cfg.Insight.OutlierDeviationPct,
		OutlierMinSources:   cfg.Insight.OutlierMinSources,
		StaleAfter:          cfg.Insight.StaleAfter.Duration,
		FailureWindow:       cfg.Insight.FailureWindow.Duration,
		MaxPerList:          cfg.Insight.MaxPerList,
		FetchConcurrency:    cfg.Insight.FetchConcurrency,
	}
}

// matchConfig maps the file configuration onto the scorer config. The scorer
// shares the insight engine's fetch concurrency.
func matchConfig(cfg *config.Config) match.Config {
	return match.Config{
		MinScore:         cfg.Match.MinScore,
		MaxSuggestions:   cfg.Match.MaxSuggestions,
		FetchConcurrency: cfg.Insight.FetchConcurrency,
	}
}

// pricingParams maps the file configuration onto the opportunity engine
// defaults that per-request overrides start from.
func pricingParams(cfg *config.Config) pricing.Params {
	params := pricing.DefaultParams()
	params.ReferencePrefix = cfg.Pricing.ReferencePrefix
	params.UndercutBy = cfg.Pricing.UndercutBy
	params.Tolerance = cfg.Pricing.Tolerance
	params.OnlyWithReference = cfg.Pricing.OnlyWithReference
	params.CanonicalLimit = cfg.Pricing.CanonicalLimit
	return params
}
