package insight

import (
	"sort"
	"time"

	"github.com/pricelens/pricelens/internal/domain"
)

// assessCoverage reports linkage and data completeness per source, canonical
// products linked to too few sources, and catalog-wide totals.
func (a *Analyzer) assessCoverage(
	products []domain.ProductLatest,
	sources []domain.Source,
	canonicals []domain.CanonicalSummary,
	linked map[listingKey]bool,
) domain.Coverage {
	bySource := make(map[string]*domain.SourceCoverage)
	for _, s := range sources {
		bySource[s.Slug] = &domain.SourceCoverage{SourceSlug: s.Slug}
	}

	var totals domain.CoverageTotals
	for _, p := range products {
		sc := bySource[p.SourceSlug]
		if sc == nil {
			// Products can outlive a deleted source row.
			sc = &domain.SourceCoverage{SourceSlug: p.SourceSlug}
			bySource[p.SourceSlug] = sc
		}
		sc.Products++
		if linked[listingKey{p.SourceSlug, p.ItemID}] {
			sc.Linked++
		} else {
			sc.Unlinked++
			totals.UnlinkedProducts++
		}
		if p.LastPrice == nil {
			sc.MissingPrices++
			totals.MissingPrices++
		}
		if sc.LastSeenAt == nil || p.LastSeenAt.After(*sc.LastSeenAt) {
			seen := p.LastSeenAt
			sc.LastSeenAt = &seen
		}
	}

	srcCov := make([]domain.SourceCoverage, 0, len(bySource))
	for _, sc := range bySource {
		if sc.Products > 0 {
			sc.CoveragePct = float64(sc.Linked) / float64(sc.Products) * 100
		}
		srcCov = append(srcCov, *sc)
	}
	sort.SliceStable(srcCov, func(i, j int) bool {
		if srcCov[i].Unlinked != srcCov[j].Unlinked {
			return srcCov[i].Unlinked > srcCov[j].Unlinked
		}
		if srcCov[i].MissingPrices != srcCov[j].MissingPrices {
			return srcCov[i].MissingPrices > srcCov[j].MissingPrices
		}
		return srcCov[i].SourceSlug < srcCov[j].SourceSlug
	})

	gaps := canonicalGaps(canonicals)

	return domain.Coverage{
		Sources:       srcCov,
		CanonicalGaps: gaps,
		Totals:        totals,
	}
}

// canonicalGaps lists canonicals linked to fewer than two sources, thinnest
// first, most recently linked first within a tier. Canonicals with no links
// carry nil link timestamps.
func canonicalGaps(canonicals []domain.CanonicalSummary) []domain.CanonicalGap {
	gaps := []domain.CanonicalGap{}
	for _, cs := range canonicals {
		if cs.LinkCount >= 2 {
			continue
		}
		srcs := cs.SourcesPreview
		if srcs == nil {
			srcs = []string{}
		}
		gaps = append(gaps, domain.CanonicalGap{
			CanonicalID:   cs.Canonical.ID,
			Name:          cs.Canonical.Name,
			LinkCount:     cs.LinkCount,
			Sources:       srcs,
			FirstLinkedAt: cs.FirstLinkedAt,
			LastLinkedAt:  cs.LastLinkedAt,
		})
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].LinkCount != gaps[j].LinkCount {
			return gaps[i].LinkCount < gaps[j].LinkCount
		}
		li, lj := gaps[i].LastLinkedAt, gaps[j].LastLinkedAt
		if (li == nil) != (lj == nil) {
			return lj == nil
		}
		if li != nil && !li.Equal(*lj) {
			return li.After(*lj)
		}
		return gaps[i].CanonicalID < gaps[j].CanonicalID
	})
	return gaps
}

// detectStaleSources reports enabled sources whose last successful run is
// older than the staleness window. Sources that never succeeded sort first.
func (a *Analyzer) detectStaleSources(sources []domain.Source, now time.Time) []domain.StaleSource {
	var stale []domain.StaleSource
	for _, s := range sources {
		if !s.Enabled {
			continue
		}
		if s.LastSuccessfulAt == nil {
			stale = append(stale, domain.StaleSource{
				SourceSlug:  s.Slug,
				DisplayName: s.DisplayName,
			})
			continue
		}
		age := now.Sub(*s.LastSuccessfulAt)
		if age <= a.cfg.StaleAfter {
			continue
		}
		hours := age.Hours()
		stale = append(stale, domain.StaleSource{
			SourceSlug:       s.Slug,
			DisplayName:      s.DisplayName,
			LastSuccessfulAt: s.LastSuccessfulAt,
			AgeHours:         &hours,
		})
	}
	sort.SliceStable(stale, func(i, j int) bool {
		// Never-succeeded sources first, then oldest success first.
		if (stale[i].AgeHours == nil) != (stale[j].AgeHours == nil) {
			return stale[i].AgeHours == nil
		}
		if stale[i].AgeHours != nil && *stale[i].AgeHours != *stale[j].AgeHours {
			return *stale[i].AgeHours > *stale[j].AgeHours
		}
		return stale[i].SourceSlug < stale[j].SourceSlug
	})
	return stale
}

// collectFailures maps the pre-filtered failed runs into snapshot shape,
// most recent first.
func (a *Analyzer) collectFailures(runs []domain.Run) []domain.FailedRun {
	failures := make([]domain.FailedRun, 0, len(runs))
	for _, r := range runs {
		f := domain.FailedRun{
			RunID:       r.ID,
			SourceSlug:  r.SourceSlug,
			StartedAt:   r.StartedAt,
			CompletedAt: r.CompletedAt,
		}
		if r.Error != nil {
			f.Error = *r.Error
		}
		failures = append(failures, f)
	}
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].StartedAt.After(failures[j].StartedAt)
	})
	return failures
}
