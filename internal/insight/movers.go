package insight

import (
	"math"
	"sort"

	"github.com/pricelens/pricelens/internal/domain"
)

// detectMovers splits products whose most recent price change crosses the
// drop or spike threshold. Products missing either of the two latest prices
// are skipped.
func (a *Analyzer) detectMovers(products []domain.ProductLatest) (drops, spikes []domain.Mover) {
	for _, p := range products {
		if p.LastPrice == nil || p.PrevPrice == nil || *p.PrevPrice <= 0 {
			continue
		}

		pct := changePct(p)
		if pct > a.cfg.DropThresholdPct && pct < a.cfg.SpikeThresholdPct {
			continue
		}

		m := domain.Mover{
			SourceSlug: p.SourceSlug,
			ItemID:     p.ItemID,
			Name:       p.Name,
			URL:        p.URL,
			Currency:   p.Currency,
			OldPrice:   *p.PrevPrice,
			NewPrice:   *p.LastPrice,
			ChangePct:  pct,
			LastSeenAt: p.LastSeenAt,
		}
		if pct <= a.cfg.DropThresholdPct {
			drops = append(drops, m)
		} else {
			spikes = append(spikes, m)
		}
	}

	sortMovers(drops)
	sortMovers(spikes)
	return drops, spikes
}

// changePct prefers the denormalized percent when present, deriving it from
// the raw prices otherwise.
func changePct(p domain.ProductLatest) float64 {
	if p.PriceChangePct != nil {
		return *p.PriceChangePct
	}
	return (*p.LastPrice - *p.PrevPrice) / *p.PrevPrice * 100
}

// sortMovers orders by magnitude descending, breaking ties by the most
// recently seen product so repeated snapshots stay deterministic.
func sortMovers(ms []domain.Mover) {
	sort.SliceStable(ms, func(i, j int) bool {
		ai, aj := math.Abs(ms[i].ChangePct), math.Abs(ms[j].ChangePct)
		if ai != aj {
			return ai > aj
		}
		return ms[i].LastSeenAt.After(ms[j].LastSeenAt)
	})
}
