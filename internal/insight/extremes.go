package insight

import (
	"math"
	"sort"

	"github.com/pricelens/pricelens/internal/domain"
)

// detectExtremes finds products whose latest price broke below the lowest or
// above the highest previously recorded price. Products without a prior
// bound (typically first observations) are skipped rather than flagged.
func (a *Analyzer) detectExtremes(products []domain.ProductLatest) (lows, highs []domain.Extreme) {
	for _, p := range products {
		if p.LastPrice == nil {
			continue
		}
		price := *p.LastPrice

		if p.MinPrevPrice != nil && price < *p.MinPrevPrice {
			lows = append(lows, domain.Extreme{
				SourceSlug: p.SourceSlug,
				ItemID:     p.ItemID,
				Name:       p.Name,
				URL:        p.URL,
				Currency:   p.Currency,
				Price:      price,
				PrevBound:  *p.MinPrevPrice,
				LastSeenAt: p.LastSeenAt,
			})
		}
		if p.MaxPrevPrice != nil && price > *p.MaxPrevPrice {
			highs = append(highs, domain.Extreme{
				SourceSlug: p.SourceSlug,
				ItemID:     p.ItemID,
				Name:       p.Name,
				URL:        p.URL,
				Currency:   p.Currency,
				Price:      price,
				PrevBound:  *p.MaxPrevPrice,
				LastSeenAt: p.LastSeenAt,
			})
		}
	}

	sortExtremes(lows)
	sortExtremes(highs)
	return lows, highs
}

// sortExtremes orders by how far past the old bound the price moved,
// relative to that bound, largest break first.
func sortExtremes(es []domain.Extreme) {
	sort.SliceStable(es, func(i, j int) bool {
		bi, bj := breakPct(es[i]), breakPct(es[j])
		if bi != bj {
			return bi > bj
		}
		return es[i].LastSeenAt.After(es[j].LastSeenAt)
	})
}

func breakPct(e domain.Extreme) float64 {
	if e.PrevBound == 0 {
		return 0
	}
	return math.Abs(e.Price-e.PrevBound) / math.Abs(e.PrevBound) * 100
}
