// Package config defines the top-level configuration for the price
// intelligence engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PRICELENS_* environment variables.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Insight  InsightConfig  `toml:"insight"`
	Match    MatchConfig    `toml:"match"`
	Pricing  PricingConfig  `toml:"pricing"`
	Watch    WatchConfig    `toml:"watch"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds catalog store connection parameters. Driver "memory"
// swaps in the seeded in-memory store and ignores the connection fields.
type DatabaseConfig struct {
	Driver        string `toml:"driver"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis backs the signal bus
// and the API rate limiter; it is optional.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// InsightConfig holds the snapshot engine thresholds.
type InsightConfig struct {
	DropThresholdPct    float64  `toml:"drop_threshold_pct"`
	SpikeThresholdPct   float64  `toml:"spike_threshold_pct"`
	StreakMinPoints     int      `toml:"streak_min_points"`
	StreakTrendPct      float64  `toml:"streak_trend_pct"`
	OutlierDeviationPct float64  `toml:"outlier_deviation_pct"`
	OutlierMinSources   int      `toml:"outlier_min_sources"`
	StaleAfter          duration `toml:"stale_after"`
	FailureWindow       duration `toml:"failure_window"`
	MaxPerList          int      `toml:"max_per_list"`
	FetchConcurrency    int      `toml:"fetch_concurrency"`
}

// MatchConfig holds the link-suggestion scorer parameters.
type MatchConfig struct {
	MinScore       float64 `toml:"min_score"`
	MaxSuggestions int     `toml:"max_suggestions"`
}

// PricingConfig holds the opportunity engine defaults. Per-request query
// parameters override these.
type PricingConfig struct {
	ReferencePrefix   string  `toml:"reference_prefix"`
	UndercutBy        float64 `toml:"undercut_by"`
	Tolerance         float64 `toml:"tolerance"`
	OnlyWithReference bool    `toml:"only_with_reference"`
	CanonicalLimit    int     `toml:"canonical_limit"`
}

// WatchConfig holds the poller parameters for watch mode.
type WatchConfig struct {
	Interval     duration `toml:"interval"`
	Channel      string   `toml:"channel"`
	Stream       string   `toml:"stream"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters. An empty APIKey disables auth;
// RateLimitPerMin 0 disables rate limiting.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials and the event types
// that should be forwarded.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:        "postgres",
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "pricelens",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Insight: InsightConfig{
			DropThresholdPct:    -8.0,
			SpikeThresholdPct:   12.0,
			StreakMinPoints:     3,
			StreakTrendPct:      5.0,
			OutlierDeviationPct: 25.0,
			OutlierMinSources:   3,
			StaleAfter:          duration{12 * time.Hour},
			FailureWindow:       duration{36 * time.Hour},
			MaxPerList:          8,
			FetchConcurrency:    8,
		},
		Match: MatchConfig{
			MinScore:       0.35,
			MaxSuggestions: 5,
		},
		Pricing: PricingConfig{
			ReferencePrefix:   "amazon",
			UndercutBy:        0.01,
			Tolerance:         0.01,
			OnlyWithReference: false,
			CanonicalLimit:    0,
		},
		Watch: WatchConfig{
			Interval:     duration{15 * time.Minute},
			Channel:      "insights",
			Stream:       "insights:events",
			StreamMaxLen: 1024,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMin: 0,
		},
		Notify: NotifyConfig{
			Events: []string{"price_drop", "price_spike", "new_low", "stale_source", "scrape_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":   true,
	"snapshot": true,
	"watch":    true,
	"full":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validDrivers enumerates the accepted values for DatabaseConfig.Driver.
var validDrivers = map[string]bool{
	"postgres": true,
	"memory":   true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, snapshot, watch, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if !validDrivers[strings.ToLower(c.Database.Driver)] {
		errs = append(errs, fmt.Sprintf("database: unknown driver %q (valid: postgres, memory)", c.Database.Driver))
	}
	if strings.ToLower(c.Database.Driver) == "postgres" && strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Insight thresholds
	if c.Insight.DropThresholdPct >= 0 {
		errs = append(errs, fmt.Sprintf("insight: drop_threshold_pct must be negative, got %g", c.Insight.DropThresholdPct))
	}
	if c.Insight.SpikeThresholdPct <= 0 {
		errs = append(errs, fmt.Sprintf("insight: spike_threshold_pct must be positive, got %g", c.Insight.SpikeThresholdPct))
	}
	if c.Insight.StreakMinPoints < 2 {
		errs = append(errs, "insight: streak_min_points must be >= 2")
	}
	if c.Insight.StreakTrendPct <= 0 {
		errs = append(errs, "insight: streak_trend_pct must be positive")
	}
	if c.Insight.OutlierDeviationPct <= 0 {
		errs = append(errs, "insight: outlier_deviation_pct must be positive")
	}
	if c.Insight.OutlierMinSources < 3 {
		errs = append(errs, "insight: outlier_min_sources must be >= 3")
	}
	if c.Insight.StaleAfter.Duration <= 0 {
		errs = append(errs, "insight: stale_after must be positive")
	}
	if c.Insight.FailureWindow.Duration <= 0 {
		errs = append(errs, "insight: failure_window must be positive")
	}
	if c.Insight.MaxPerList < 1 {
		errs = append(errs, "insight: max_per_list must be >= 1")
	}
	if c.Insight.FetchConcurrency < 1 {
		errs = append(errs, "insight: fetch_concurrency must be >= 1")
	}

	// Match
	if c.Match.MinScore < 0 || c.Match.MinScore >= 1 {
		errs = append(errs, fmt.Sprintf("match: min_score must be in [0, 1), got %g", c.Match.MinScore))
	}
	if c.Match.MaxSuggestions < 1 {
		errs = append(errs, "match: max_suggestions must be >= 1")
	}

	// Pricing
	if c.Pricing.ReferencePrefix == "" {
		errs = append(errs, "pricing: reference_prefix must not be empty")
	}
	if c.Pricing.UndercutBy < 0 {
		errs = append(errs, "pricing: undercut_by must be >= 0")
	}
	if c.Pricing.Tolerance < 0 {
		errs = append(errs, "pricing: tolerance must be >= 0")
	}

	// Watch
	if c.Mode == "watch" || c.Mode == "full" {
		if c.Watch.Interval.Duration <= 0 {
			errs = append(errs, "watch: interval must be positive for mode "+c.Mode)
		}
	}
	if c.Watch.StreamMaxLen < 0 {
		errs = append(errs, "watch: stream_max_len must be >= 0")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}
	if c.Server.RateLimitPerMin > 0 && !c.Redis.Enabled {
		errs = append(errs, "server: rate_limit_per_min requires redis to be enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
