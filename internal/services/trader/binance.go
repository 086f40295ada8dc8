package trader

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

type BinanceTrader struct {
	client *binance.Client
}

func NewBinanceTrader(client *binance.Client) *BinanceTrader {
	return &BinanceTrader{client: client}
}

func (t *BinanceTrader) Buy(ctx context.Context, market domain.Market, order domain.Order, clientOrderID string) error {
	res, err := t.client.NewCreateOrderService().Symbol(market.String()).
		Side(binance.SideTypeBuy).Type(binance.OrderTypeMarket).
		Quantity(order.Volume.String()).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "binance market buy %s %s", order.Volume.String(), market)
	}

	switch res.Status {
	case binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired, binance.OrderStatusTypeCanceled:
		return fmt.Errorf("binance order %s for %s ended with status %s", clientOrderID, market, res.Status)
	}

	return nil
}
