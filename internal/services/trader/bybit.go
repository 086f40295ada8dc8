package trader

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

type BybitTrader struct {
	client *bybit.Client
}

func NewBybitTrader(client *bybit.Client) *BybitTrader {
	return &BybitTrader{client: client}
}

// Buy places a spot market buy of order.Volume base coin. Bybit defaults spot
// market buys to quote coin units, so the unit is set explicitly.
func (t *BybitTrader) Buy(ctx context.Context, market domain.Market, order domain.Order, clientOrderID string) error {
	unit := bybit.MarketUnitBaseCoin
	param := bybit.V5CreateOrderParam{
		Category:   "spot",
		Symbol:     bybit.SymbolV5(market.String()),
		Side:       bybit.SideBuy,
		OrderType:  bybit.OrderTypeMarket,
		Qty:        order.Volume.String(),
		MarketUnit: &unit,
	}
	if clientOrderID != "" {
		param.OrderLinkID = &clientOrderID
	}

	if _, err := t.client.V5().Order().CreateOrder(param); err != nil {
		return errors.Wrapf(err, "bybit market buy %s %s", order.Volume.String(), market)
	}

	return nil
}
