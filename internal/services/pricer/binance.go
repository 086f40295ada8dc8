package pricer

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

type BinancePricer struct {
	client *binance.Client
}

func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

func (p *BinancePricer) GetPrice(ctx context.Context, market domain.Market) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(market.String()).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "binance ticker price for %s", market)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("binance API returned empty prices for %s", market)
	}

	return decimal.NewFromString(prices[0].Price)
}

// GetLotSize returns the LOT_SIZE filter of the symbol.
func (p *BinancePricer) GetLotSize(ctx context.Context, market domain.Market) (domain.LotSize, error) {
	info, err := p.client.NewExchangeInfoService().Symbol(market.String()).Do(ctx)
	if err != nil {
		return domain.LotSize{}, errors.Wrapf(err, "binance exchange info for %s", market)
	}

	for i := range info.Symbols {
		symbol := &info.Symbols[i]
		if symbol.Symbol != market.String() {
			continue
		}
		filter := symbol.LotSizeFilter()
		if filter == nil {
			return domain.LotSize{}, fmt.Errorf("binance symbol %s has no LOT_SIZE filter", market)
		}
		return parseLotSize(filter.MinQuantity, filter.StepSize)
	}

	return domain.LotSize{}, fmt.Errorf("binance exchange info has no symbol %s", market)
}
