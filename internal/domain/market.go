// Package domain defines the rebalancer's data model and the pure decision logic
// (allocation policy and order sizing) built on top of it.
package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Market exchange market identifier, e.g. BTCUSDT.
type Market string

// String returns the string representation.
func (m Market) String() string {
	return string(m)
}

// LotSize is the exchange quantity filter of a market. Step is zero when the
// exchange does not constrain the volume increment.
type LotSize struct {
	MinVolume decimal.Decimal
	Step      decimal.Decimal
}

// MarketData is the oracle snapshot for one run: last price, minimum tradable
// base volume and volume step per market. It is never persisted.
type MarketData struct {
	Prices   map[Market]decimal.Decimal
	MinSizes map[Market]decimal.Decimal
	Steps    map[Market]decimal.Decimal
}

// NewMarketData creates an empty MarketData.
func NewMarketData() MarketData {
	return MarketData{
		Prices:   make(map[Market]decimal.Decimal),
		MinSizes: make(map[Market]decimal.Decimal),
		Steps:    make(map[Market]decimal.Decimal),
	}
}

// Set records one oracle answer for market.
func (d MarketData) Set(market Market, price decimal.Decimal, lot LotSize) {
	d.Prices[market] = price
	d.MinSizes[market] = lot.MinVolume
	d.Steps[market] = lot.Step
}

// Price returns the price for market or an error wrapping ErrPriceUnavailable.
func (d MarketData) Price(market Market) (decimal.Decimal, error) {
	price, ok := d.Prices[market]
	if !ok || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Wrap(ErrPriceUnavailable, market.String())
	}
	return price, nil
}

// MinSize returns the minimum volume for market or an error wrapping ErrMinSizeUnavailable.
func (d MarketData) MinSize(market Market) (decimal.Decimal, error) {
	size, ok := d.MinSizes[market]
	if !ok || size.IsNegative() {
		return decimal.Zero, errors.Wrap(ErrMinSizeUnavailable, market.String())
	}
	return size, nil
}

// Lot returns the lot size filter for market. A missing or negative step is
// treated as unconstrained.
func (d MarketData) Lot(market Market) (LotSize, error) {
	minSize, err := d.MinSize(market)
	if err != nil {
		return LotSize{}, err
	}
	step := d.Steps[market]
	if step.IsNegative() {
		step = decimal.Zero
	}
	return LotSize{MinVolume: minSize, Step: step}, nil
}

// GlobalMinOrderUSD returns the largest exchange-enforced minimum order value
// across the configured markets.
func (d MarketData) GlobalMinOrderUSD(allocations []AssetAllocation) (decimal.Decimal, error) {
	globalMin := decimal.Zero
	for _, a := range allocations {
		price, err := d.Price(a.Market)
		if err != nil {
			return decimal.Zero, err
		}
		minSize, err := d.MinSize(a.Market)
		if err != nil {
			return decimal.Zero, err
		}
		globalMin = decimal.Max(globalMin, minSize.Mul(price))
	}
	return globalMin, nil
}
