// Package pricing classifies canonical products into pricing actions against
// a reference retailer: undercut when the reference listing is overpriced
// versus competitors, raise when it leaves margin on the table, watch when
// it sits inside the tolerance band.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pricelens/pricelens/internal/domain"
)

// Params holds the per-call knobs of the opportunity engine.
type Params struct {
	// ReferencePrefix selects the reference retailer: any source whose slug
	// starts with this prefix (case-insensitive) counts as "own".
	ReferencePrefix string

	// UndercutBy is subtracted from the competitor minimum when suggesting a
	// price.
	UndercutBy float64

	// Tolerance is the dead band around the competitor minimum inside which
	// no action is suggested.
	Tolerance float64

	// OnlyWithReference drops canonicals that have no reference listing
	// instead of reporting them.
	OnlyWithReference bool

	// CanonicalLimit caps how many canonicals are examined; <= 0 means all.
	CanonicalLimit int

	// FetchConcurrency bounds the parallel per-canonical link fetches.
	FetchConcurrency int
}

// DefaultParams returns the engine defaults.
func DefaultParams() Params {
	return Params{
		ReferencePrefix:  "amazon",
		UndercutBy:       0.01,
		Tolerance:        0.01,
		FetchConcurrency: 8,
	}
}

// Validate wraps every problem in domain.ErrInvalidArgument.
func (p Params) Validate() error {
	var errs []string
	if strings.TrimSpace(p.ReferencePrefix) == "" {
		errs = append(errs, "reference prefix must not be empty")
	}
	if p.UndercutBy < 0 {
		errs = append(errs, fmt.Sprintf("undercut amount must be >= 0, got %g", p.UndercutBy))
	}
	if p.Tolerance < 0 {
		errs = append(errs, fmt.Sprintf("tolerance must be >= 0, got %g", p.Tolerance))
	}
	if p.FetchConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("fetch concurrency must be >= 1, got %d", p.FetchConcurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: pricing params: %s", domain.ErrInvalidArgument, strings.Join(errs, "; "))
	}
	return nil
}

// Engine computes opportunity reports over a catalog store.
type Engine struct {
	store  domain.CatalogStore
	logger *slog.Logger
}

// NewEngine creates an Engine over the given catalog store.
func NewEngine(store domain.CatalogStore, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger.With(slog.String("component", "pricing")),
	}
}

// actionRank orders opportunities by urgency: actionable classifications
// first, data gaps last.
var actionRank = map[domain.PricingAction]int{
	domain.ActionUndercut:           0,
	domain.ActionRaise:              1,
	domain.ActionWatch:              2,
	domain.ActionMissingOwnPrice:    3,
	domain.ActionMissingCompetitors: 4,
	domain.ActionMissingReference:   5,
}

// Opportunities classifies every canonical product and returns the report
// ordered by urgency. Canonicals whose listings quote mixed currencies are
// skipped entirely and tallied in the summary.
func (e *Engine) Opportunities(ctx context.Context, params Params) (domain.OpportunityReport, error) {
	if err := params.Validate(); err != nil {
		return domain.OpportunityReport{}, err
	}

	canonicals, err := e.store.ListCanonicalsWithLinks(ctx, params.CanonicalLimit, "")
	if err != nil {
		return domain.OpportunityReport{}, storeErr("list canonicals", err)
	}

	links := make([][]domain.LinkedListing, len(canonicals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.FetchConcurrency)
	for i, cs := range canonicals {
		g.Go(func() error {
			listings, err := e.store.GetLinksForCanonical(gctx, cs.Canonical.ID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return storeErr(fmt.Sprintf("links for canonical %d", cs.Canonical.ID), err)
			}
			links[i] = listings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.OpportunityReport{}, err
	}

	report := domain.OpportunityReport{
		Opportunities: []domain.Opportunity{},
		Summary: domain.OpportunitySummary{
			Actions: make(map[domain.PricingAction]int),
		},
	}

	prefix := strings.ToLower(params.ReferencePrefix)
	for i, cs := range canonicals {
		opp, ok := classify(cs, links[i], prefix, params)
		if !ok {
			report.Summary.SkippedMixedCurrency++
			e.logger.Debug("skipping mixed-currency canonical",
				slog.Int64("canonical_id", cs.Canonical.ID),
			)
			continue
		}
		if params.OnlyWithReference && opp.Action == domain.ActionMissingReference {
			continue
		}

		report.Opportunities = append(report.Opportunities, opp)
		report.Summary.Actions[opp.Action]++
		switch opp.Action {
		case domain.ActionUndercut:
			if opp.DeltaAbs != nil && *opp.DeltaAbs > 0 {
				report.Summary.TotalOverprice += *opp.DeltaAbs
			}
		case domain.ActionRaise:
			if opp.SuggestedPrice != nil && opp.OwnPrice != nil {
				if gain := *opp.SuggestedPrice - *opp.OwnPrice; gain > 0 {
					report.Summary.TotalPotentialGain += gain
				}
			}
		}
	}

	sort.SliceStable(report.Opportunities, func(i, j int) bool {
		oi, oj := report.Opportunities[i], report.Opportunities[j]
		if actionRank[oi.Action] != actionRank[oj.Action] {
			return actionRank[oi.Action] < actionRank[oj.Action]
		}
		di, dj := absDelta(oi), absDelta(oj)
		if di != dj {
			return di > dj
		}
		return oi.CanonicalID < oj.CanonicalID
	})

	return report, nil
}

// classify computes the opportunity for one canonical. ok is false when the
// group must be skipped (mixed currencies).
func classify(cs domain.CanonicalSummary, listings []domain.LinkedListing, prefix string, params Params) (domain.Opportunity, bool) {
	opp := domain.Opportunity{
		CanonicalID:   cs.Canonical.ID,
		CanonicalName: cs.Canonical.Name,
		Competitors:   []domain.CompetitorQuote{},
	}

	var refs, others []domain.LinkedListing
	for _, l := range listings {
		if strings.HasPrefix(strings.ToLower(l.SourceSlug), prefix) {
			refs = append(refs, l)
		} else {
			others = append(others, l)
		}
	}
	opp.ReferenceListingCount = len(refs)

	if len(refs) == 0 {
		opp.Action = domain.ActionMissingReference
		for _, l := range others {
			if l.Price != nil && *l.Price > 0 {
				opp.CompetitorCount++
			}
		}
		return opp, true
	}

	primary := primaryReference(refs)
	opp.OwnURL = primary.URL
	opp.Currency = primary.Currency

	competitors := []domain.CompetitorQuote{}
	for _, l := range others {
		if l.Price == nil || *l.Price <= 0 {
			continue
		}
		if l.Currency != "" && primary.Currency != "" && l.Currency != primary.Currency {
			// Cross-currency comparison is meaningless; skip the group.
			return domain.Opportunity{}, false
		}
		competitors = append(competitors, domain.CompetitorQuote{
			SourceSlug: l.SourceSlug,
			ItemID:     l.ItemID,
			Name:       l.Name,
			URL:        l.URL,
			Price:      *l.Price,
		})
	}
	sort.SliceStable(competitors, func(i, j int) bool {
		return competitors[i].Price < competitors[j].Price
	})
	opp.Competitors = competitors
	opp.CompetitorCount = len(competitors)

	if primary.Price == nil || *primary.Price <= 0 {
		opp.Action = domain.ActionMissingOwnPrice
		return opp, true
	}
	own := *primary.Price
	opp.OwnPrice = &own

	if len(competitors) == 0 {
		opp.Action = domain.ActionMissingCompetitors
		return opp, true
	}

	compMin := competitors[0].Price
	compMax := competitors[len(competitors)-1].Price
	opp.CompetitorMin = &compMin
	opp.CompetitorMax = &compMax

	deltaAbs := own - compMin
	deltaPct := deltaAbs / compMin * 100
	opp.DeltaAbs = &deltaAbs
	opp.DeltaPct = &deltaPct

	switch {
	case deltaAbs > params.Tolerance:
		opp.Action = domain.ActionUndercut
		suggested := math.Max(compMin-params.UndercutBy, 0)
		opp.SuggestedPrice = &suggested
		opp.SuggestedReason = fmt.Sprintf("undercut %s by %.2f", competitors[0].SourceSlug, params.UndercutBy)
	case deltaAbs < -params.Tolerance:
		opp.Action = domain.ActionRaise
		suggested := math.Max(compMin-params.UndercutBy, 0)
		opp.SuggestedPrice = &suggested
		opp.SuggestedReason = fmt.Sprintf("raise toward %s's low", competitors[0].SourceSlug)
	default:
		opp.Action = domain.ActionWatch
	}
	return opp, true
}

// primaryReference picks the lowest-priced reference listing that carries a
// price, falling back to the first link.
func primaryReference(refs []domain.LinkedListing) domain.LinkedListing {
	primary := refs[0]
	best := math.Inf(1)
	for _, l := range refs {
		if l.Price != nil && *l.Price > 0 && *l.Price < best {
			best = *l.Price
			primary = l
		}
	}
	return primary
}

func absDelta(o domain.Opportunity) float64 {
	if o.DeltaAbs == nil {
		return 0
	}
	return math.Abs(*o.DeltaAbs)
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, op, err)
}
