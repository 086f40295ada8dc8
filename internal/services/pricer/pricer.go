// Package pricer supplies last prices and lot size filters from exchanges.
package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

// Pricer is implemented by every exchange adapter in this package.
type Pricer interface {
	GetPrice(ctx context.Context, market domain.Market) (decimal.Decimal, error)
	GetLotSize(ctx context.Context, market domain.Market) (domain.LotSize, error)
}

func parseLotSize(minQty, step string) (domain.LotSize, error) {
	minVolume, err := decimal.NewFromString(minQty)
	if err != nil {
		return domain.LotSize{}, errors.Wrapf(err, "parse min quantity %q", minQty)
	}
	lot := domain.LotSize{MinVolume: minVolume}
	if step == "" {
		return lot, nil
	}
	if lot.Step, err = decimal.NewFromString(step); err != nil {
		return domain.LotSize{}, errors.Wrapf(err, "parse step %q", step)
	}

	return lot, nil
}
