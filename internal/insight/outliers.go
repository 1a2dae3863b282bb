package insight

import (
	"math"
	"sort"

	"github.com/pricelens/pricelens/internal/domain"
)

// detectOutliers flags listings that deviate from their canonical group's
// median price by more than the configured percentage. Groups with fewer
// priced sources than the minimum, and groups quoting mixed currencies, are
// skipped entirely.
func (a *Analyzer) detectOutliers(canonicals []domain.CanonicalSummary, links [][]domain.LinkedListing) []domain.Outlier {
	var out []domain.Outlier

	for i, cs := range canonicals {
		priced := pricedListings(links[i])
		if len(priced) == 0 {
			continue
		}
		if distinctSources(priced) < a.cfg.OutlierMinSources {
			continue
		}
		if mixedCurrencies(priced) {
			continue
		}

		prices := make([]float64, len(priced))
		for j, l := range priced {
			prices[j] = *l.Price
		}
		med := median(prices)
		if med <= 0 {
			continue
		}

		for _, l := range priced {
			dev := (*l.Price - med) / med * 100
			if math.Abs(dev) < a.cfg.OutlierDeviationPct {
				continue
			}
			out = append(out, domain.Outlier{
				CanonicalID:   cs.Canonical.ID,
				CanonicalName: cs.Canonical.Name,
				SourceSlug:    l.SourceSlug,
				ItemID:        l.ItemID,
				Name:          l.Name,
				URL:           l.URL,
				Currency:      l.Currency,
				Price:         *l.Price,
				MedianPrice:   med,
				DeviationPct:  dev,
				GroupSize:     len(priced),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := math.Abs(out[i].DeviationPct), math.Abs(out[j].DeviationPct)
		if di != dj {
			return di > dj
		}
		if out[i].CanonicalID != out[j].CanonicalID {
			return out[i].CanonicalID < out[j].CanonicalID
		}
		return out[i].SourceSlug < out[j].SourceSlug
	})
	return out
}

func pricedListings(listings []domain.LinkedListing) []domain.LinkedListing {
	priced := make([]domain.LinkedListing, 0, len(listings))
	for _, l := range listings {
		if l.Price != nil && *l.Price > 0 {
			priced = append(priced, l)
		}
	}
	return priced
}

func distinctSources(listings []domain.LinkedListing) int {
	seen := make(map[string]bool, len(listings))
	for _, l := range listings {
		seen[l.SourceSlug] = true
	}
	return len(seen)
}

// mixedCurrencies reports whether the priced listings quote more than one
// distinct non-empty currency. Unknown currencies don't conflict.
func mixedCurrencies(listings []domain.LinkedListing) bool {
	cur := ""
	for _, l := range listings {
		if l.Currency == "" {
			continue
		}
		if cur == "" {
			cur = l.Currency
			continue
		}
		if l.Currency != cur {
			return true
		}
	}
	return false
}

// median over a non-empty slice; does not mutate its argument.
func median(vals []float64) float64 {
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
