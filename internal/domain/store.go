package domain

import (
	"context"
	"time"
)

// RunFilter narrows ListRuns. Zero values mean "no constraint".
type RunFilter struct {
	SourceSlug string
	Status     RunStatus
	Since      time.Time
	Limit      int
}

// CatalogStore is the read-only contract over the scraped catalog. All
// methods honour context cancellation and return empty slices, never nil,
// when nothing matches. Implementations wrap transport failures; the
// service layer maps them to ErrDataUnavailable.
type CatalogStore interface {
	// ListSources returns all configured sources, enabled or not.
	ListSources(ctx context.Context) ([]Source, error)

	// ListRuns returns scrape runs matching the filter, most recent first.
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// ListProductsLatest returns the latest state of every item, optionally
	// restricted to one source slug ("" means all sources).
	ListProductsLatest(ctx context.Context, sourceSlug string) ([]ProductLatest, error)

	// ListPricePoints returns up to limit observations for one item, most
	// recent first. Returns ErrNotFound when the item has never been seen.
	ListPricePoints(ctx context.Context, sourceSlug, itemID string, limit int) ([]PricePoint, error)

	// ListCanonicalsWithLinks returns canonical products with link
	// aggregates, optionally filtered by a name substring query. limit <= 0
	// means no limit.
	ListCanonicalsWithLinks(ctx context.Context, limit int, query string) ([]CanonicalSummary, error)

	// GetLinksForCanonical returns the listings linked to one canonical,
	// joined with their latest prices. Returns ErrNotFound for an unknown
	// canonical id.
	GetLinksForCanonical(ctx context.Context, canonicalID int64) ([]LinkedListing, error)
}

// StreamMessage is a single entry read back from an append-only stream.
type StreamMessage struct {
	ID     string
	Values map[string]any
}

// SignalBus publishes insight events to out-of-band consumers (websocket
// bridges, alerting). The analysis engines never read from it.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, values map[string]any) (string, error)
	StreamRead(ctx context.Context, stream, lastID string, count int64) ([]StreamMessage, error)
}

// RateLimiter gates requests per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}
