// Package domain defines the catalog records the engine reads, the result
// shapes it produces, the read-only store contract, and the sentinel errors
// shared across the application.
package domain

import "time"

// Source is an external catalog origin being scraped (e.g. a retailer site).
// Sources are created and edited by operators; this system only reads them.
type Source struct {
	Slug                string     `json:"slug"`
	DisplayName         string     `json:"displayName"`
	Enabled             bool       `json:"enabled"`
	Type                string     `json:"type"`
	LastSuccessfulRunID *int64     `json:"lastSuccessfulRunId,omitempty"`
	LastSuccessfulAt    *time.Time `json:"lastSuccessfulAt,omitempty"`
}

// RunStatus represents the lifecycle state of a scrape run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Run is one scrape attempt for a source. The engine uses runs only for
// failure and staleness signals.
type Run struct {
	ID            int64      `json:"id"`
	SourceSlug    string     `json:"sourceSlug"`
	Status        RunStatus  `json:"status"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	ProductsFound *int       `json:"productsFound,omitempty"`
	Error         *string    `json:"error,omitempty"`
}

// ProductLatest is the denormalized current state of one item from one
// source, unique per (sourceSlug, itemID). The ingestion pipeline maintains
// it on every successful scrape; this system never mutates it.
//
// Nil pointer fields mean "not observed yet" — freshly seen items routinely
// lack prevPrice, prior extremes, and price-change fields.
type ProductLatest struct {
	SourceSlug     string     `json:"sourceSlug"`
	ItemID         string     `json:"itemId"`
	Name           string     `json:"name"`
	URL            string     `json:"url"`
	Currency       string     `json:"currency,omitempty"`
	LastPrice      *float64   `json:"lastPrice,omitempty"`
	PrevPrice      *float64   `json:"prevPrice,omitempty"`
	PrevPriceAt    *time.Time `json:"prevPriceAt,omitempty"`
	PriceChange    *float64   `json:"priceChange,omitempty"`
	PriceChangePct *float64   `json:"priceChangePct,omitempty"`
	// StreakPrices holds up to the four most recent observed prices,
	// newest first.
	StreakPrices  []float64 `json:"streakPrices,omitempty"`
	FirstSeenAt   time.Time `json:"firstSeenAt"`
	MinPrice      *float64  `json:"minPrice,omitempty"`
	MaxPrice      *float64  `json:"maxPrice,omitempty"`
	MinPrevPrice  *float64  `json:"minPrevPrice,omitempty"`
	MaxPrevPrice  *float64  `json:"maxPrevPrice,omitempty"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
	LastSeenRunID int64     `json:"lastSeenRunId,omitempty"`
}

// PricePoint is one immutable price observation for a (sourceSlug, itemID)
// pair. Points are append-only, ordered by timestamp.
type PricePoint struct {
	SourceSlug string    `json:"sourceSlug"`
	ItemID     string    `json:"itemId"`
	Ts         time.Time `json:"ts"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	RunID      int64     `json:"runId"`
}

// CanonicalProduct is a deduplicated logical product that one or more source
// listings are linked to. It has no source affinity of its own.
type CanonicalProduct struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductLink associates one source item with one canonical product. A
// source item belongs to at most one canonical.
type ProductLink struct {
	CanonicalID int64     `json:"canonicalId"`
	SourceSlug  string    `json:"sourceSlug"`
	ItemID      string    `json:"itemId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CanonicalSummary is a canonical product together with link aggregates, as
// returned by CatalogStore.ListCanonicalsWithLinks.
type CanonicalSummary struct {
	Canonical      CanonicalProduct `json:"canonical"`
	LinkCount      int              `json:"linkCount"`
	SourcesPreview []string         `json:"sourcesPreview"`
	FirstLinkedAt  *time.Time       `json:"firstLinkedAt,omitempty"`
	LastLinkedAt   *time.Time       `json:"lastLinkedAt,omitempty"`
}

// LinkedListing is a product link joined with the latest state of the linked
// item, as returned by CatalogStore.GetLinksForCanonical.
type LinkedListing struct {
	CanonicalID int64      `json:"canonicalId"`
	SourceSlug  string     `json:"sourceSlug"`
	ItemID      string     `json:"itemId"`
	LinkedAt    time.Time  `json:"linkedAt"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Currency    string     `json:"currency,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
}

// Stats holds the dashboard counters.
type Stats struct {
	CanonicalProducts int `json:"canonicalProducts"`
	LinkedProducts    int `json:"linkedProducts"`
	UnlinkedProducts  int `json:"unlinkedProducts"`
	Sources           int `json:"sources"`
}
