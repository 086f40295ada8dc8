// Package trader submits market buy orders to exchanges.
package trader

import (
	"context"

	"github.com/vadiminshakov/rebalancer/internal/domain"
)

// Trader is implemented by every exchange adapter in this package.
type Trader interface {
	// Buy places a market buy for order.Volume of the market's base asset.
	Buy(ctx context.Context, market domain.Market, order domain.Order, clientOrderID string) error
}
