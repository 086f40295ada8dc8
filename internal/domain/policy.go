package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Phase names the allocation policy phase a candidate came from.
type Phase string

const (
	PhaseBootstrap Phase = "bootstrap"
	PhaseRebalance Phase = "rebalance"
)

// Candidate is the asset chosen for this run's buy.
type Candidate struct {
	Allocation AssetAllocation
	Price      decimal.Decimal
	Phase      Phase
	// Underrepresentation is zero for bootstrap candidates.
	Underrepresentation decimal.Decimal
}

// Weight current vs. target share of one asset.
type Weight struct {
	Allocation          AssetAllocation
	Value               decimal.Decimal
	Current             decimal.Decimal
	Underrepresentation decimal.Decimal
}

// PortfolioValue returns the total value of balances at the given prices.
func PortfolioValue(allocations []AssetAllocation, balances Balances, prices map[Market]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(balances[a.Symbol].Mul(prices[a.Market]))
	}
	return total
}

// Weights computes the current share and underrepresentation of every asset,
// in declaration order. Current share is zero when the portfolio is empty.
func Weights(allocations []AssetAllocation, balances Balances, prices map[Market]decimal.Decimal) []Weight {
	total := PortfolioValue(allocations, balances, prices)
	weights := make([]Weight, 0, len(allocations))
	for _, a := range allocations {
		value := balances[a.Symbol].Mul(prices[a.Market])
		current := decimal.Zero
		if total.IsPositive() {
			current = value.Div(total)
		}
		weights = append(weights, Weight{
			Allocation:          a,
			Value:               value,
			Current:             current,
			Underrepresentation: a.Fraction.Sub(current),
		})
	}
	return weights
}

// SelectBootstrap returns the first asset in declaration order that has no
// balance yet, provided the allowance covers the global minimum order.
func SelectBootstrap(allocations []AssetAllocation, balances Balances, prices map[Market]decimal.Decimal,
	allowance, globalMinUSD decimal.Decimal) (Candidate, bool) {
	if allowance.LessThan(globalMinUSD) {
		return Candidate{}, false
	}
	for _, a := range allocations {
		if balances[a.Symbol].IsZero() {
			return Candidate{Allocation: a, Price: prices[a.Market], Phase: PhaseBootstrap}, true
		}
	}
	return Candidate{}, false
}

// SelectRebalance returns the asset with the largest positive
// underrepresentation. Exact ties keep declaration order.
func SelectRebalance(allocations []AssetAllocation, balances Balances, prices map[Market]decimal.Decimal,
	allowance, globalMinUSD decimal.Decimal) (Candidate, bool) {
	if allowance.LessThan(globalMinUSD) {
		return Candidate{}, false
	}

	under := make([]Weight, 0, len(allocations))
	for _, w := range Weights(allocations, balances, prices) {
		if w.Underrepresentation.IsPositive() {
			under = append(under, w)
		}
	}
	if len(under) == 0 {
		return Candidate{}, false
	}

	sort.SliceStable(under, func(i, j int) bool {
		return under[i].Underrepresentation.GreaterThan(under[j].Underrepresentation)
	})

	best := under[0]
	return Candidate{
		Allocation:          best.Allocation,
		Price:               prices[best.Allocation.Market],
		Phase:               PhaseRebalance,
		Underrepresentation: best.Underrepresentation,
	}, true
}
