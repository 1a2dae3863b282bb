// Package insight computes the anomaly and health snapshot over the scraped
// catalog: recent price movers, sustained streak trends, new all-time
// extremes, cross-source outliers, coverage gaps, stale sources and recent
// scrape failures. The engine is pull-based and stateless: every Snapshot
// call re-reads the catalog store and recomputes from scratch.
package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/pricelens/pricelens/internal/domain"
)

// Config holds every tunable of the snapshot engine. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// DropThresholdPct flags a mover as a drop when its percent change is at
	// or below this value. Must be negative.
	DropThresholdPct float64

	// SpikeThresholdPct flags a mover as a spike when its percent change is
	// at or above this value. Must be positive.
	SpikeThresholdPct float64

	// StreakMinPoints is the minimum number of recorded streak prices a
	// product needs before trend detection applies.
	StreakMinPoints int

	// StreakTrendPct is the minimum absolute net change, in percent, across
	// the streak window for a monotonic run to count as a sustained trend.
	StreakTrendPct float64

	// OutlierDeviationPct is the minimum absolute deviation from the group
	// median, in percent, for a listing to be flagged as an outlier.
	OutlierDeviationPct float64

	// OutlierMinSources is the minimum number of distinct priced sources a
	// canonical group needs before outlier detection applies. Must be >= 3
	// so a median exists to deviate from.
	OutlierMinSources int

	// StaleAfter is how old a source's last successful run may be before the
	// source is reported stale.
	StaleAfter time.Duration

	// FailureWindow bounds how far back failed runs are reported.
	FailureWindow time.Duration

	// MaxPerList caps every detail list in the snapshot. Summary counts are
	// taken before trimming.
	MaxPerList int

	// FetchConcurrency bounds the parallel per-canonical link fetches.
	FetchConcurrency int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DropThresholdPct:    -8.0,
		SpikeThresholdPct:   12.0,
		StreakMinPoints:     3,
		StreakTrendPct:      5.0,
		OutlierDeviationPct: 25.0,
		OutlierMinSources:   3,
		StaleAfter:          12 * time.Hour,
		FailureWindow:       36 * time.Hour,
		MaxPerList:          8,
		FetchConcurrency:    8,
	}
}

// Validate reports every invalid field at once, wrapped in
// domain.ErrInvalidArgument.
func (c Config) Validate() error {
	var errs []string

	if c.DropThresholdPct >= 0 {
		errs = append(errs, fmt.Sprintf("drop threshold must be negative, got %g", c.DropThresholdPct))
	}
	if c.SpikeThresholdPct <= 0 {
		errs = append(errs, fmt.Sprintf("spike threshold must be positive, got %g", c.SpikeThresholdPct))
	}
	if c.StreakMinPoints < 2 {
		errs = append(errs, fmt.Sprintf("streak min points must be >= 2, got %d", c.StreakMinPoints))
	}
	if c.StreakTrendPct <= 0 {
		errs = append(errs, fmt.Sprintf("streak trend threshold must be positive, got %g", c.StreakTrendPct))
	}
	if c.OutlierDeviationPct <= 0 {
		errs = append(errs, fmt.Sprintf("outlier deviation must be positive, got %g", c.OutlierDeviationPct))
	}
	if c.OutlierMinSources < 3 {
		errs = append(errs, fmt.Sprintf("outlier min sources must be >= 3, got %d", c.OutlierMinSources))
	}
	if c.StaleAfter <= 0 {
		errs = append(errs, "stale-after window must be positive")
	}
	if c.FailureWindow <= 0 {
		errs = append(errs, "failure window must be positive")
	}
	if c.MaxPerList < 1 {
		errs = append(errs, fmt.Sprintf("max per list must be >= 1, got %d", c.MaxPerList))
	}
	if c.FetchConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("fetch concurrency must be >= 1, got %d", c.FetchConcurrency))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: insight config: %s", domain.ErrInvalidArgument, strings.Join(errs, "; "))
	}
	return nil
}
