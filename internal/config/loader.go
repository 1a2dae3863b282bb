package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PRICELENS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PRICELENS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.Driver, "PRICELENS_DATABASE_DRIVER")
	setStr(&cfg.Database.DSN, "PRICELENS_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "PRICELENS_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "PRICELENS_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PRICELENS_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PRICELENS_DATABASE_NAME")
	setStr(&cfg.Database.User, "PRICELENS_DATABASE_USER")
	setStr(&cfg.Database.Password, "PRICELENS_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PRICELENS_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "PRICELENS_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PRICELENS_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "PRICELENS_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PRICELENS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PRICELENS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PRICELENS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PRICELENS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PRICELENS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PRICELENS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PRICELENS_REDIS_TLS_ENABLED")

	// ── Insight ──
	setFloat64(&cfg.Insight.DropThresholdPct, "PRICELENS_INSIGHT_DROP_THRESHOLD_PCT")
	setFloat64(&cfg.Insight.SpikeThresholdPct, "PRICELENS_INSIGHT_SPIKE_THRESHOLD_PCT")
	setInt(&cfg.Insight.StreakMinPoints, "PRICELENS_INSIGHT_STREAK_MIN_POINTS")
	setFloat64(&cfg.Insight.StreakTrendPct, "PRICELENS_INSIGHT_STREAK_TREND_PCT")
	setFloat64(&cfg.Insight.OutlierDeviationPct, "PRICELENS_INSIGHT_OUTLIER_DEVIATION_PCT")
	setInt(&cfg.Insight.OutlierMinSources, "PRICELENS_INSIGHT_OUTLIER_MIN_SOURCES")
	setDuration(&cfg.Insight.StaleAfter, "PRICELENS_INSIGHT_STALE_AFTER")
	setDuration(&cfg.Insight.FailureWindow, "PRICELENS_INSIGHT_FAILURE_WINDOW")
	setInt(&cfg.Insight.MaxPerList, "PRICELENS_INSIGHT_MAX_PER_LIST")
	setInt(&cfg.Insight.FetchConcurrency, "PRICELENS_INSIGHT_FETCH_CONCURRENCY")

	// ── Match ──
	setFloat64(&cfg.Match.MinScore, "PRICELENS_MATCH_MIN_SCORE")
	setInt(&cfg.Match.MaxSuggestions, "PRICELENS_MATCH_MAX_SUGGESTIONS")

	// ── Pricing ──
	setStr(&cfg.Pricing.ReferencePrefix, "PRICELENS_PRICING_REFERENCE_PREFIX")
	setFloat64(&cfg.Pricing.UndercutBy, "PRICELENS_PRICING_UNDERCUT_BY")
	setFloat64(&cfg.Pricing.Tolerance, "PRICELENS_PRICING_TOLERANCE")
	setBool(&cfg.Pricing.OnlyWithReference, "PRICELENS_PRICING_ONLY_WITH_REFERENCE")
	setInt(&cfg.Pricing.CanonicalLimit, "PRICELENS_PRICING_CANONICAL_LIMIT")

	// ── Watch ──
	setDuration(&cfg.Watch.Interval, "PRICELENS_WATCH_INTERVAL")
	setStr(&cfg.Watch.Channel, "PRICELENS_WATCH_CHANNEL")
	setStr(&cfg.Watch.Stream, "PRICELENS_WATCH_STREAM")
	setInt64(&cfg.Watch.StreamMaxLen, "PRICELENS_WATCH_STREAM_MAX_LEN")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PRICELENS_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PRICELENS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PRICELENS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PRICELENS_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "PRICELENS_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PRICELENS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PRICELENS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PRICELENS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PRICELENS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PRICELENS_MODE")
	setStr(&cfg.LogLevel, "PRICELENS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
