package domain

import "time"

// Suggestion is one candidate canonical product for an unlinked listing,
// with a bounded confidence score and a human-readable reason.
type Suggestion struct {
	CanonicalID   int64   `json:"canonicalId"`
	CanonicalName string  `json:"canonicalName"`
	Score         float64 `json:"score"`
	Reason        string  `json:"reason"`
	LinkCount     int     `json:"linkCount"`
}

// SuggestionItem is one unlinked listing inside a suggestion group, carrying
// its own score and reason against the group's canonical.
type SuggestionItem struct {
	SourceSlug string    `json:"sourceSlug"`
	ItemID     string    `json:"itemId"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Currency   string    `json:"currency,omitempty"`
	Price      *float64  `json:"price,omitempty"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	Score      float64   `json:"score"`
	Reason     string    `json:"reason"`
}

// SuggestionGroup aggregates the unlinked listings whose strongest candidate
// is the same canonical product, so all of them can be linked in one action.
// TotalScore sums the member scores and Count is the number of members.
type SuggestionGroup struct {
	CanonicalID   int64            `json:"canonicalId"`
	CanonicalName string           `json:"canonicalName"`
	LinkCount     int              `json:"linkCount"`
	TotalScore    float64          `json:"totalScore"`
	Count         int              `json:"count"`
	Items         []SuggestionItem `json:"items"`
}
