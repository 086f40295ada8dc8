package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetAllocation is one entry of the target portfolio.
type AssetAllocation struct {
	// Symbol asset symbol, e.g. BTC.
	Symbol string
	// Market exchange market the asset is bought on.
	Market Market
	// Fraction target share of the portfolio value, in (0, 1].
	Fraction decimal.Decimal
}

// NewAssetAllocation creates a validated AssetAllocation.
func NewAssetAllocation(symbol string, market Market, fraction decimal.Decimal) (AssetAllocation, error) {
	if symbol == "" {
		return AssetAllocation{}, fmt.Errorf("symbol is required")
	}
	if market == "" {
		return AssetAllocation{}, fmt.Errorf("market is required for %s", symbol)
	}
	if fraction.LessThanOrEqual(decimal.Zero) || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return AssetAllocation{}, fmt.Errorf("fraction for %s must be in (0, 1], got %s", symbol, fraction.String())
	}

	return AssetAllocation{Symbol: symbol, Market: market, Fraction: fraction}, nil
}

// Symbols returns allocation symbols in declaration order.
func Symbols(allocations []AssetAllocation) []string {
	symbols := make([]string, 0, len(allocations))
	for _, a := range allocations {
		symbols = append(symbols, a.Symbol)
	}
	return symbols
}

// TotalFraction sums the target fractions. Callers may warn when it exceeds 1.
func TotalFraction(allocations []AssetAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Fraction)
	}
	return total
}
