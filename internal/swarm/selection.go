package swarm

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/oddsflow/swarm/internal/domain"
)

// DeriveBetSelection picks the single bet the ensemble stands behind: the
// selection recommended most often across valid analyses, with ties broken
// by the earliest recommending agent in registry order (the analyses slice
// is already in registry order). The attached price is the mean of the
// quoted prices from the agents that recommended that selection, or nil
// when none of them quoted one.
//
// Returns nil when no valid analysis carried a recommendation.
func DeriveBetSelection(analyses []domain.AgentAnalysis) *domain.BetRecommendation {
	type tally struct {
		count      int
		firstIndex int
		first      *domain.BetRecommendation
		prices     []decimal.Decimal
	}

	tallies := make(map[string]*tally)

	for i, a := range analyses {
		if !a.IsValid() || a.Bet == nil || strings.TrimSpace(a.Bet.Selection) == "" {
			continue
		}

		key := normalizeSelection(a.Bet.Selection)
		t, ok := tallies[key]
		if !ok {
			t = &tally{firstIndex: i, first: a.Bet}
			tallies[key] = t
		}
		t.count++
		if a.Bet.Price != nil {
			t.prices = append(t.prices, *a.Bet.Price)
		}
	}

	var winner *tally
	for _, t := range tallies {
		if winner == nil ||
			t.count > winner.count ||
			(t.count == winner.count && t.firstIndex < winner.firstIndex) {
			winner = t
		}
	}
	if winner == nil {
		return nil
	}

	rec := &domain.BetRecommendation{
		Type:      winner.first.Type,
		Selection: winner.first.Selection,
	}
	if len(winner.prices) > 0 {
		mean := decimal.Avg(winner.prices[0], winner.prices[1:]...)
		rec.Price = &mean
	}
	return rec
}

// normalizeSelection folds casing and whitespace so "Lakers -3.5" and
// "lakers  -3.5" tally as the same selection.
func normalizeSelection(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
