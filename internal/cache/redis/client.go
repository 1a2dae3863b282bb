// Package redis carries the shared connection behind the insight signal bus
// and the API rate limiter. Nothing in here caches engine results; snapshots
// are recomputed on every request.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// connectTimeout bounds the verification ping during Connect.
const connectTimeout = 5 * time.Second

// Options holds the connection parameters, mapped from the [redis] section
// of the configuration file.
type Options struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLS        bool
}

// Client is the shared connection handle. The signal bus and rate limiter
// are built on top of it and share its pool.
type Client struct {
	rdb *redis.Client
}

// Connect opens a connection with the given options and verifies it with a
// bounded ping, so a misconfigured address fails at startup instead of on
// the first published alert.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	cfg := &redis.Options{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		PoolSize:   opts.PoolSize,
		MaxRetries: opts.MaxRetries,
	}
	if opts.TLS {
		cfg.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", opts.Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
