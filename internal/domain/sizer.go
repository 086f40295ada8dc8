package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Order is a sized market buy.
type Order struct {
	Volume decimal.Decimal
	Cost   decimal.Decimal
	// Floored is set when the volume was raised to the market minimum.
	Floored bool
}

// SizeOrder converts the global minimum order value into a volume for the given
// price. The volume is rounded down to the lot step and then raised to the
// lot minimum when it falls short, so the resulting cost may exceed globalMinUSD.
// Cost is always computed from the final volume.
func SizeOrder(globalMinUSD, price decimal.Decimal, lot LotSize) (Order, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return Order{}, errors.Wrapf(ErrPriceUnavailable, "non-positive price %s", price.String())
	}

	order := Order{Volume: floorToStep(globalMinUSD.Div(price), lot.Step)}
	if order.Volume.LessThan(lot.MinVolume) {
		order.Volume = ceilToStep(lot.MinVolume, lot.Step)
		order.Floored = true
	}
	order.Cost = order.Volume.Mul(price)

	return order, nil
}

func floorToStep(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

func ceilToStep(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Ceil().Mul(step)
}
