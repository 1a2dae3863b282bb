package memory

import (
	"time"

	"github.com/pricelens/pricelens/internal/domain"
)

func ptr[T any](v T) *T { return &v }

// NewDemo returns a Store seeded with a small catalog that exercises every
// analyzer: a drop, a spike, a sustained trend, a new low, a cross-source
// outlier group, an unlinked listing, a stale source and a failed run.
func NewDemo() *Store {
	now := time.Now().UTC()
	s := New()

	s.SetSources([]domain.Source{
		{Slug: "amazon-us", DisplayName: "Amazon US", Enabled: true, Type: "marketplace", LastSuccessfulRunID: ptr(int64(104)), LastSuccessfulAt: ptr(now.Add(-2 * time.Hour))},
		{Slug: "bestbuy", DisplayName: "Best Buy", Enabled: true, Type: "retailer", LastSuccessfulRunID: ptr(int64(103)), LastSuccessfulAt: ptr(now.Add(-3 * time.Hour))},
		{Slug: "walmart", DisplayName: "Walmart", Enabled: true, Type: "retailer", LastSuccessfulRunID: ptr(int64(101)), LastSuccessfulAt: ptr(now.Add(-30 * time.Hour))},
		{Slug: "target", DisplayName: "Target", Enabled: true, Type: "retailer"},
	})

	s.SetRuns([]domain.Run{
		{ID: 104, SourceSlug: "amazon-us", Status: domain.RunStatusCompleted, StartedAt: now.Add(-2 * time.Hour), CompletedAt: ptr(now.Add(-2*time.Hour + 4*time.Minute)), ProductsFound: ptr(4)},
		{ID: 103, SourceSlug: "bestbuy", Status: domain.RunStatusCompleted, StartedAt: now.Add(-3 * time.Hour), CompletedAt: ptr(now.Add(-3*time.Hour + 2*time.Minute)), ProductsFound: ptr(3)},
		{ID: 102, SourceSlug: "target", Status: domain.RunStatusFailed, StartedAt: now.Add(-5 * time.Hour), Error: ptr("listing page returned 503")},
		{ID: 101, SourceSlug: "walmart", Status: domain.RunStatusCompleted, StartedAt: now.Add(-30 * time.Hour), CompletedAt: ptr(now.Add(-30*time.Hour + 3*time.Minute)), ProductsFound: ptr(3)},
	})

	s.SetProducts([]domain.ProductLatest{
		// Sharp drop plus a new all-time low.
		{
			SourceSlug: "amazon-us", ItemID: "B0GAMMA27", Name: "Gamma 27in QHD Monitor", URL: "https://amazon.example/B0GAMMA27", Currency: "USD",
			LastPrice: ptr(219.99), PrevPrice: ptr(259.99), PrevPriceAt: ptr(now.Add(-26 * time.Hour)),
			PriceChange: ptr(-40.0), PriceChangePct: ptr(-15.39),
			StreakPrices: []float64{219.99, 259.99, 259.99, 264.99},
			MinPrice:     ptr(219.99), MaxPrice: ptr(289.99), MinPrevPrice: ptr(239.99), MaxPrevPrice: ptr(289.99),
			FirstSeenAt: now.Add(-40 * 24 * time.Hour), LastSeenAt: now.Add(-2 * time.Hour), LastSeenRunID: 104,
		},
		// Sustained downward streak.
		{
			SourceSlug: "amazon-us", ItemID: "B0KETTLE1", Name: "Stagg EKG Electric Kettle", URL: "https://amazon.example/B0KETTLE1", Currency: "USD",
			LastPrice: ptr(95.00), PrevPrice: ptr(105.00), PrevPriceAt: ptr(now.Add(-26 * time.Hour)),
			PriceChange: ptr(-10.0), PriceChangePct: ptr(-9.52),
			StreakPrices: []float64{95.00, 105.00, 110.00, 120.00},
			MinPrice:     ptr(95.00), MaxPrice: ptr(120.00), MinPrevPrice: ptr(105.00), MaxPrevPrice: ptr(120.00),
			FirstSeenAt: now.Add(-20 * 24 * time.Hour), LastSeenAt: now.Add(-2 * time.Hour), LastSeenRunID: 104,
		},
		// Spike.
		{
			SourceSlug: "bestbuy", ItemID: "6401728", Name: "Gamma 27\" QHD Monitor", URL: "https://bestbuy.example/6401728", Currency: "USD",
			LastPrice: ptr(329.99), PrevPrice: ptr(279.99), PrevPriceAt: ptr(now.Add(-27 * time.Hour)),
			PriceChange: ptr(50.0), PriceChangePct: ptr(17.86),
			StreakPrices: []float64{329.99, 279.99, 279.99},
			MinPrice:     ptr(259.99), MaxPrice: ptr(329.99), MinPrevPrice: ptr(259.99), MaxPrevPrice: ptr(299.99),
			FirstSeenAt: now.Add(-35 * 24 * time.Hour), LastSeenAt: now.Add(-3 * time.Hour), LastSeenRunID: 103,
		},
		// Outlier group member (priced far above group median).
		{
			SourceSlug: "walmart", ItemID: "WM-GAMMA-27", Name: "Gamma 27 inch QHD Gaming Monitor", URL: "https://walmart.example/WM-GAMMA-27", Currency: "USD",
			LastPrice: ptr(402.00), PrevPrice: ptr(399.00), PrevPriceAt: ptr(now.Add(-54 * time.Hour)),
			PriceChange: ptr(3.0), PriceChangePct: ptr(0.75),
			StreakPrices: []float64{402.00, 399.00, 399.00, 398.00},
			MinPrice:     ptr(380.00), MaxPrice: ptr(402.00), MinPrevPrice: ptr(380.00), MaxPrevPrice: ptr(399.00),
			FirstSeenAt: now.Add(-60 * 24 * time.Hour), LastSeenAt: now.Add(-30 * time.Hour), LastSeenRunID: 101,
		},
		// Listing without a price.
		{
			SourceSlug: "walmart", ItemID: "WM-KETTLE", Name: "Stagg EKG Kettle Matte Black", URL: "https://walmart.example/WM-KETTLE", Currency: "USD",
			FirstSeenAt: now.Add(-10 * 24 * time.Hour), LastSeenAt: now.Add(-30 * time.Hour), LastSeenRunID: 101,
		},
		// Unlinked listing that should suggest the kettle canonical.
		{
			SourceSlug: "bestbuy", ItemID: "6220134", Name: "Fellow Stagg EKG Electric Pour-Over Kettle", URL: "https://bestbuy.example/6220134", Currency: "USD",
			LastPrice: ptr(99.99), PrevPrice: ptr(99.99), PrevPriceAt: ptr(now.Add(-27 * time.Hour)),
			PriceChange: ptr(0.0), PriceChangePct: ptr(0.0),
			StreakPrices: []float64{99.99, 99.99, 99.99},
			MinPrice:     ptr(94.99), MaxPrice: ptr(104.99), MinPrevPrice: ptr(94.99), MaxPrevPrice: ptr(104.99),
			FirstSeenAt: now.Add(-15 * 24 * time.Hour), LastSeenAt: now.Add(-3 * time.Hour), LastSeenRunID: 103,
		},
		// Competitor quote for the monitor group.
		{
			SourceSlug: "walmart", ItemID: "WM-GAMMA-24", Name: "Gamma 24 inch FHD Monitor", URL: "https://walmart.example/WM-GAMMA-24", Currency: "USD",
			LastPrice: ptr(189.00), PrevPrice: ptr(189.00), PrevPriceAt: ptr(now.Add(-54 * time.Hour)),
			PriceChange: ptr(0.0), PriceChangePct: ptr(0.0),
			StreakPrices: []float64{189.00, 189.00},
			MinPrice:     ptr(179.00), MaxPrice: ptr(199.00), MinPrevPrice: ptr(179.00), MaxPrevPrice: ptr(199.00),
			FirstSeenAt: now.Add(-45 * 24 * time.Hour), LastSeenAt: now.Add(-30 * time.Hour), LastSeenRunID: 101,
		},
	})

	s.SetCanonicals([]domain.CanonicalProduct{
		{ID: 1, Name: "Gamma 27 QHD Monitor", Description: "27-inch 1440p 165Hz display", CreatedAt: now.Add(-50 * 24 * time.Hour), UpdatedAt: now.Add(-2 * 24 * time.Hour)},
		{ID: 2, Name: "Fellow Stagg EKG Kettle", Description: "Electric pour-over kettle, 0.9L", CreatedAt: now.Add(-18 * 24 * time.Hour), UpdatedAt: now.Add(-18 * 24 * time.Hour)},
	})

	s.SetLinks([]domain.ProductLink{
		{CanonicalID: 1, SourceSlug: "amazon-us", ItemID: "B0GAMMA27", CreatedAt: now.Add(-49 * 24 * time.Hour)},
		{CanonicalID: 1, SourceSlug: "bestbuy", ItemID: "6401728", CreatedAt: now.Add(-48 * 24 * time.Hour)},
		{CanonicalID: 1, SourceSlug: "walmart", ItemID: "WM-GAMMA-27", CreatedAt: now.Add(-47 * 24 * time.Hour)},
		{CanonicalID: 2, SourceSlug: "amazon-us", ItemID: "B0KETTLE1", CreatedAt: now.Add(-17 * 24 * time.Hour)},
	})

	s.AddPricePoints(
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "B0GAMMA27", Ts: now.Add(-2 * time.Hour), Price: 219.99, Currency: "USD", RunID: 104},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "B0GAMMA27", Ts: now.Add(-26 * time.Hour), Price: 259.99, Currency: "USD", RunID: 100},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "B0GAMMA27", Ts: now.Add(-50 * time.Hour), Price: 259.99, Currency: "USD", RunID: 96},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "B0GAMMA27", Ts: now.Add(-74 * time.Hour), Price: 264.99, Currency: "USD", RunID: 92},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "B0KETTLE1", Ts: now.Add(-2 * time.Hour), Price: 95.00, Currency: "USD", RunID: 104},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "B0KETTLE1", Ts: now.Add(-26 * time.Hour), Price: 105.00, Currency: "USD", RunID: 100},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "B0KETTLE1", Ts: now.Add(-50 * time.Hour), Price: 110.00, Currency: "USD", RunID: 96},
		domain.PricePoint{SourceSlug: "amazon-us", ItemID: "B0KETTLE1", Ts: now.Add(-74 * time.Hour), Price: 120.00, Currency: "USD", RunID: 92},
		domain.PricePoint{SourceSlug: "bestbuy", ItemID: "6401728", Ts: now.Add(-3 * time.Hour), Price: 329.99, Currency: "USD", RunID: 103},
		domain.PricePoint{SourceSlug: "bestbuy", ItemID: "6401728", Ts: now.Add(-27 * time.Hour), Price: 279.99, Currency: "USD", RunID: 99},
	)

	return s
}
