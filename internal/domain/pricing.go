package domain

// PricingAction classifies what, if anything, should be done with the
// reference retailer's price for one canonical product.
type PricingAction string

const (
	ActionMissingReference   PricingAction = "missing_amazon"
	ActionMissingOwnPrice    PricingAction = "missing_own_price"
	ActionMissingCompetitors PricingAction = "missing_competitors"
	ActionUndercut           PricingAction = "undercut"
	ActionRaise              PricingAction = "raise"
	ActionWatch              PricingAction = "watch"
)

// CompetitorQuote is one non-reference listing with a price, as surfaced in
// an opportunity.
type CompetitorQuote struct {
	SourceSlug string  `json:"sourceSlug"`
	ItemID     string  `json:"itemId"`
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	Price      float64 `json:"price"`
}

// Opportunity is the pricing classification for one canonical product.
// Pointer fields are nil whenever the action makes them meaningless (no
// reference listing, no own price, no competitors). ReferenceListingCount is
// the number of reference-retailer links; CompetitorCount counts the priced
// competitor listings.
type Opportunity struct {
	CanonicalID           int64             `json:"canonicalId"`
	CanonicalName         string            `json:"canonicalName"`
	Action                PricingAction     `json:"action"`
	Currency              string            `json:"currency,omitempty"`
	OwnPrice              *float64          `json:"ownPrice,omitempty"`
	OwnURL                string            `json:"ownUrl,omitempty"`
	ReferenceListingCount int               `json:"amazonListingCount"`
	CompetitorCount       int               `json:"competitorCount"`
	CompetitorMin         *float64          `json:"competitorMin,omitempty"`
	CompetitorMax         *float64          `json:"competitorMax,omitempty"`
	DeltaAbs              *float64          `json:"deltaAbs,omitempty"`
	DeltaPct              *float64          `json:"deltaPct,omitempty"`
	SuggestedPrice        *float64          `json:"suggestedPrice,omitempty"`
	SuggestedReason       string            `json:"suggestedReason,omitempty"`
	Competitors           []CompetitorQuote `json:"competitors"`
}

// OpportunitySummary aggregates an opportunity report.
// SkippedMixedCurrency counts canonicals left out because their listings
// quote more than one currency.
type OpportunitySummary struct {
	Actions              map[PricingAction]int `json:"actions"`
	TotalOverprice       float64               `json:"totalOverprice"`
	TotalPotentialGain   float64               `json:"totalPotentialGain"`
	SkippedMixedCurrency int                   `json:"skippedMixedCurrency"`
}

// OpportunityReport is the full output of the pricing engine, ordered by
// urgency.
type OpportunityReport struct {
	Opportunities []Opportunity      `json:"opportunities"`
	Summary       OpportunitySummary `json:"summary"`
}
