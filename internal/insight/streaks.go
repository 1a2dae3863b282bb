package insight

import (
	"math"
	"sort"

	"github.com/pricelens/pricelens/internal/domain"
)

// detectStreaks finds products whose recorded streak prices move
// monotonically (non-strict) in one direction with a net change past the
// trend threshold. Streak prices are stored newest first.
func (a *Analyzer) detectStreaks(products []domain.ProductLatest) (drops, rises []domain.StreakTrend) {
	for _, p := range products {
		prices := p.StreakPrices
		if len(prices) < a.cfg.StreakMinPoints {
			continue
		}

		oldest := prices[len(prices)-1]
		if oldest <= 0 {
			continue
		}

		trend := (prices[0] - oldest) / oldest * 100
		if math.Abs(trend) < a.cfg.StreakTrendPct {
			continue
		}

		st := domain.StreakTrend{
			SourceSlug: p.SourceSlug,
			ItemID:     p.ItemID,
			Name:       p.Name,
			URL:        p.URL,
			Currency:   p.Currency,
			Prices:     prices,
			TrendPct:   trend,
			LastSeenAt: p.LastSeenAt,
		}
		switch {
		case trend < 0 && monotonic(prices, false):
			drops = append(drops, st)
		case trend > 0 && monotonic(prices, true):
			rises = append(rises, st)
		}
	}

	sort.SliceStable(drops, func(i, j int) bool {
		if drops[i].TrendPct != drops[j].TrendPct {
			return drops[i].TrendPct < drops[j].TrendPct
		}
		return drops[i].LastSeenAt.After(drops[j].LastSeenAt)
	})
	sort.SliceStable(rises, func(i, j int) bool {
		if rises[i].TrendPct != rises[j].TrendPct {
			return rises[i].TrendPct > rises[j].TrendPct
		}
		return rises[i].LastSeenAt.After(rises[j].LastSeenAt)
	})
	return drops, rises
}

// monotonic reports whether the newest-first price series never reverses.
// rising=true checks that every price is >= the next-older one.
func monotonic(newestFirst []float64, rising bool) bool {
	for i := 0; i+1 < len(newestFirst); i++ {
		newer, older := newestFirst[i], newestFirst[i+1]
		if rising && newer < older {
			return false
		}
		if !rising && newer > older {
			return false
		}
	}
	return true
}
