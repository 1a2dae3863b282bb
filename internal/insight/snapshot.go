package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pricelens/pricelens/internal/domain"
)

// Analyzer computes snapshots over a catalog store. It holds no mutable
// state and is safe for concurrent use.
type Analyzer struct {
	store  domain.CatalogStore
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewAnalyzer creates an Analyzer. The configuration is validated on every
// Snapshot call, so a bad config surfaces as ErrInvalidArgument rather than
// at construction.
func NewAnalyzer(store domain.CatalogStore, cfg Config, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "insight")),
		now:    time.Now,
	}
}

// inputs bundles the catalog reads every detector works from.
type inputs struct {
	products   []domain.ProductLatest
	sources    []domain.Source
	canonicals []domain.CanonicalSummary
	failedRuns []domain.Run

	// links holds the listings of each canonical, indexed like canonicals.
	links [][]domain.LinkedListing

	// linked marks every (sourceSlug, itemID) that belongs to a canonical.
	linked map[listingKey]bool
}

type listingKey struct {
	sourceSlug string
	itemID     string
}

// Snapshot recomputes the full anomaly and health report. On any store
// failure the whole call fails with domain.ErrDataUnavailable; a cancelled
// context surfaces as the context's own error. Partial snapshots are never
// returned.
func (a *Analyzer) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	if err := a.cfg.Validate(); err != nil {
		return domain.Snapshot{}, err
	}

	start := a.now()

	in, err := a.fetch(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	var (
		drops, spikes  []domain.Mover
		sDrops, sRises []domain.StreakTrend
		lows, highs    []domain.Extreme
		outliers       []domain.Outlier
		coverage       domain.Coverage
		stale          []domain.StaleSource
		failures       []domain.FailedRun
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		drops, spikes = a.detectMovers(in.products)
		return ctx.Err()
	})
	g.Go(func() error {
		sDrops, sRises = a.detectStreaks(in.products)
		return ctx.Err()
	})
	g.Go(func() error {
		lows, highs = a.detectExtremes(in.products)
		return ctx.Err()
	})
	g.Go(func() error {
		outliers = a.detectOutliers(in.canonicals, in.links)
		return ctx.Err()
	})
	g.Go(func() error {
		coverage = a.assessCoverage(in.products, in.sources, in.canonicals, in.linked)
		return ctx.Err()
	})
	g.Go(func() error {
		stale = a.detectStaleSources(in.sources, start)
		failures = a.collectFailures(in.failedRuns)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		GeneratedAt: start,
		Summary: domain.SnapshotSummary{
			RecentDrops:    len(drops),
			RecentSpikes:   len(spikes),
			NewExtremes:    len(lows) + len(highs),
			Outliers:       len(outliers),
			StaleSources:   len(stale),
			RecentFailures: len(failures),
		},
		Movers: domain.SnapshotMovers{
			Drops:  trim(drops, a.cfg.MaxPerList),
			Spikes: trim(spikes, a.cfg.MaxPerList),
		},
		StreakTrends: domain.SnapshotStreaks{
			SustainedDrops: trim(sDrops, a.cfg.MaxPerList),
			SustainedRises: trim(sRises, a.cfg.MaxPerList),
		},
		Extremes: domain.SnapshotExtremes{
			NewLows:  trim(lows, a.cfg.MaxPerList),
			NewHighs: trim(highs, a.cfg.MaxPerList),
		},
		Outliers:       trim(outliers, a.cfg.MaxPerList),
		Coverage:       coverage,
		StaleSources:   trim(stale, a.cfg.MaxPerList),
		RecentFailures: trim(failures, a.cfg.MaxPerList),
	}

	a.logger.Debug("snapshot computed",
		slog.Int("products", len(in.products)),
		slog.Int("canonicals", len(in.canonicals)),
		slog.Duration("elapsed", a.now().Sub(start)),
	)

	return snap, nil
}

// fetch reads everything the detectors need, in parallel. Link lists are
// fetched per canonical under a bounded group.
func (a *Analyzer) fetch(ctx context.Context) (*inputs, error) {
	in := &inputs{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := a.store.ListProductsLatest(gctx, "")
		if err != nil {
			return storeErr("list products", err)
		}
		in.products = products
		return nil
	})
	g.Go(func() error {
		sources, err := a.store.ListSources(gctx)
		if err != nil {
			return storeErr("list sources", err)
		}
		in.sources = sources
		return nil
	})
	g.Go(func() error {
		canonicals, err := a.store.ListCanonicalsWithLinks(gctx, 0, "")
		if err != nil {
			return storeErr("list canonicals", err)
		}
		in.canonicals = canonicals
		return nil
	})
	g.Go(func() error {
		runs, err := a.store.ListRuns(gctx, domain.RunFilter{
			Status: domain.RunStatusFailed,
			Since:  a.now().Add(-a.cfg.FailureWindow),
		})
		if err != nil {
			return storeErr("list runs", err)
		}
		in.failedRuns = runs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in.links = make([][]domain.LinkedListing, len(in.canonicals))
	lg, lctx := errgroup.WithContext(ctx)
	lg.SetLimit(a.cfg.FetchConcurrency)
	for i, cs := range in.canonicals {
		lg.Go(func() error {
			listings, err := a.store.GetLinksForCanonical(lctx, cs.Canonical.ID)
			if err != nil {
				// A canonical deleted between the two reads is not a failure.
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return storeErr(fmt.Sprintf("links for canonical %d", cs.Canonical.ID), err)
			}
			in.links[i] = listings
			return nil
		})
	}
	if err := lg.Wait(); err != nil {
		return nil, err
	}

	in.linked = make(map[listingKey]bool)
	for _, listings := range in.links {
		for _, l := range listings {
			in.linked[listingKey{l.SourceSlug, l.ItemID}] = true
		}
	}

	return in, nil
}

// storeErr maps a catalog store failure to ErrDataUnavailable, letting
// context errors through untouched so callers can tell cancellation apart
// from a broken store.
func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, op, err)
}

// trim caps a slice at n, always returning a non-nil slice.
func trim[T any](s []T, n int) []T {
	if s == nil {
		return []T{}
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
