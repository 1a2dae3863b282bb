package domain

import "time"

// Mover is a product whose price moved past a threshold between its two most
// recent observations.
type Mover struct {
	SourceSlug string    `json:"sourceSlug"`
	ItemID     string    `json:"itemId"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Currency   string    `json:"currency,omitempty"`
	OldPrice   float64   `json:"oldPrice"`
	NewPrice   float64   `json:"newPrice"`
	ChangePct  float64   `json:"changePct"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// StreakTrend is a product with a sustained monotonic price movement over
// its recent observation window.
type StreakTrend struct {
	SourceSlug string    `json:"sourceSlug"`
	ItemID     string    `json:"itemId"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Currency   string    `json:"currency,omitempty"`
	Prices     []float64 `json:"prices"`
	TrendPct   float64   `json:"trendPct"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Extreme is a product whose latest price set a new all-time low or high
// relative to its previously recorded extremes.
type Extreme struct {
	SourceSlug string    `json:"sourceSlug"`
	ItemID     string    `json:"itemId"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Currency   string    `json:"currency,omitempty"`
	Price      float64   `json:"price"`
	PrevBound  float64   `json:"prevBound"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Outlier is a listing whose price deviates from the median of its canonical
// group by more than a threshold.
type Outlier struct {
	CanonicalID   int64   `json:"canonicalId"`
	CanonicalName string  `json:"canonicalName"`
	SourceSlug    string  `json:"sourceSlug"`
	ItemID        string  `json:"itemId"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	Currency      string  `json:"currency,omitempty"`
	Price         float64 `json:"price"`
	MedianPrice   float64 `json:"medianPrice"`
	DeviationPct  float64 `json:"deviationPct"`
	GroupSize     int     `json:"groupSize"`
}

// SourceCoverage reports linkage and data completeness for one source.
// CoveragePct is the share of the source's products that carry a canonical
// link, 0 for a source with no products; LastSeenAt is the most recent
// observation across them.
type SourceCoverage struct {
	SourceSlug    string     `json:"sourceSlug"`
	Products      int        `json:"products"`
	Linked        int        `json:"linked"`
	Unlinked      int        `json:"unlinked"`
	MissingPrices int        `json:"missingPrices"`
	CoveragePct   float64    `json:"coveragePct"`
	LastSeenAt    *time.Time `json:"lastSeenAt,omitempty"`
}

// CanonicalGap is a canonical product linked to fewer sources than expected.
// The link timestamps are nil when the canonical has no links at all.
type CanonicalGap struct {
	CanonicalID   int64      `json:"canonicalId"`
	Name          string     `json:"name"`
	LinkCount     int        `json:"linkCount"`
	Sources       []string   `json:"sources"`
	FirstLinkedAt *time.Time `json:"firstLinkedAt,omitempty"`
	LastLinkedAt  *time.Time `json:"lastLinkedAt,omitempty"`
}

// CoverageTotals aggregates coverage problems across all sources.
type CoverageTotals struct {
	UnlinkedProducts int `json:"unlinkedProducts"`
	MissingPrices    int `json:"missingPrices"`
}

// Coverage groups the catalog-completeness section of a snapshot.
type Coverage struct {
	Sources       []SourceCoverage `json:"sources"`
	CanonicalGaps []CanonicalGap   `json:"canonicalGaps"`
	Totals        CoverageTotals   `json:"totals"`
}

// StaleSource is an enabled source whose last successful run is older than
// the staleness window, or that has never succeeded.
type StaleSource struct {
	SourceSlug       string     `json:"sourceSlug"`
	DisplayName      string     `json:"displayName"`
	LastSuccessfulAt *time.Time `json:"lastSuccessfulAt,omitempty"`
	AgeHours         *float64   `json:"ageHours,omitempty"`
}

// FailedRun is a recent scrape failure surfaced in the snapshot. CompletedAt
// is nil when the run died without recording an end time.
type FailedRun struct {
	RunID       int64      `json:"runId"`
	SourceSlug  string     `json:"sourceSlug"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// SnapshotSummary carries the pre-trim cardinality of every section, so the
// headline counts stay accurate even when the detail lists are capped.
type SnapshotSummary struct {
	RecentDrops    int `json:"recentDrops"`
	RecentSpikes   int `json:"recentSpikes"`
	NewExtremes    int `json:"newExtremes"`
	Outliers       int `json:"outliers"`
	StaleSources   int `json:"staleSources"`
	RecentFailures int `json:"recentFailures"`
}

// SnapshotMovers splits movers by direction.
type SnapshotMovers struct {
	Drops  []Mover `json:"drops"`
	Spikes []Mover `json:"spikes"`
}

// SnapshotStreaks splits streak trends by direction.
type SnapshotStreaks struct {
	SustainedDrops []StreakTrend `json:"sustainedDrops"`
	SustainedRises []StreakTrend `json:"sustainedRises"`
}

// SnapshotExtremes splits extremes by bound.
type SnapshotExtremes struct {
	NewLows  []Extreme `json:"newLows"`
	NewHighs []Extreme `json:"newHighs"`
}

// Snapshot is the complete anomaly and health report over the catalog at one
// moment. Every list is present and non-nil, capped at the configured
// per-list maximum; Summary counts the pre-trim totals.
type Snapshot struct {
	GeneratedAt    time.Time        `json:"generatedAt"`
	Summary        SnapshotSummary  `json:"summary"`
	Movers         SnapshotMovers   `json:"movers"`
	StreakTrends   SnapshotStreaks  `json:"streakTrends"`
	Extremes       SnapshotExtremes `json:"extremes"`
	Outliers       []Outlier        `json:"outliers"`
	Coverage       Coverage         `json:"coverage"`
	StaleSources   []StaleSource    `json:"staleSources"`
	RecentFailures []FailedRun      `json:"recentFailures"`
}
