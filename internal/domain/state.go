package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// hoursPerBudgetMonth is the number of hourly runs a monthly budget is spread over.
const hoursPerBudgetMonth = 30 * 24

// Balances quantity held per asset symbol.
type Balances map[string]decimal.Decimal

// Clone returns an independent copy.
func (b Balances) Clone() Balances {
	clone := make(Balances, len(b))
	for symbol, qty := range b {
		clone[symbol] = qty
	}
	return clone
}

// State is everything persisted between runs.
type State struct {
	Balances  Balances
	Allowance decimal.Decimal
}

// Clone returns an independent copy.
func (s State) Clone() State {
	return State{Balances: s.Balances.Clone(), Allowance: s.Allowance}
}

// HourlyIncrement returns the allowance added on every run.
func HourlyIncrement(monthlyBudget decimal.Decimal) decimal.Decimal {
	return monthlyBudget.Div(decimal.NewFromInt(hoursPerBudgetMonth))
}

// NewInitialState returns the first-run baseline: zero balance for every
// configured asset and one hourly increment of allowance.
func NewInitialState(allocations []AssetAllocation, hourlyIncrement decimal.Decimal) State {
	balances := make(Balances, len(allocations))
	for _, a := range allocations {
		balances[a.Symbol] = decimal.Zero
	}
	return State{Balances: balances, Allowance: hourlyIncrement}
}

// ValidateState checks that state holds exactly one non-negative balance per
// symbol and a non-negative allowance. Any mismatch wraps ErrCorruptState.
func ValidateState(state State, symbols []string) error {
	if len(state.Balances) != len(symbols) {
		return errors.Wrapf(ErrCorruptState, "expected %d balances, got %d", len(symbols), len(state.Balances))
	}
	for _, symbol := range symbols {
		qty, ok := state.Balances[symbol]
		if !ok {
			return errors.Wrapf(ErrCorruptState, "missing balance for %s", symbol)
		}
		if qty.IsNegative() {
			return errors.Wrapf(ErrCorruptState, "negative balance %s for %s", qty.String(), symbol)
		}
	}
	if state.Allowance.IsNegative() {
		return errors.Wrapf(ErrCorruptState, "negative allowance %s", state.Allowance.String())
	}
	return nil
}
