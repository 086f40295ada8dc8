package pricer

import (
	"context"
	"fmt"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

type BybitPricer struct {
	client *bybit.Client
}

func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

func (p *BybitPricer) GetPrice(ctx context.Context, market domain.Market) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(market.String())
	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: "spot",
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "bybit tickers for %s", market)
	}
	if result.Result.Spot == nil || len(result.Result.Spot.List) == 0 {
		return decimal.Zero, fmt.Errorf("bybit API returned empty prices for %s", market)
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}

// GetLotSize returns the spot lot size filter. Bybit spot instruments publish
// the base volume increment as basePrecision.
func (p *BybitPricer) GetLotSize(ctx context.Context, market domain.Market) (domain.LotSize, error) {
	symbol := bybit.SymbolV5(market.String())
	result, err := p.client.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: "spot",
		Symbol:   &symbol,
	})
	if err != nil {
		return domain.LotSize{}, errors.Wrapf(err, "bybit instruments info for %s", market)
	}
	if result.Result.Spot == nil || len(result.Result.Spot.List) == 0 {
		return domain.LotSize{}, fmt.Errorf("bybit API returned no instrument for %s", market)
	}
	filter := result.Result.Spot.List[0].LotSizeFilter

	return parseLotSize(filter.MinOrderQty, filter.BasePrecision)
}
