package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeEvent executed market buy.
type TradeEvent struct {
	// Symbol asset bought.
	Symbol string
	// Market market the order was placed on.
	Market Market
	// Phase allocation phase that selected the asset.
	Phase Phase
	// Volume quantity of the asset bought.
	Volume decimal.Decimal
	// Price price used for sizing.
	Price decimal.Decimal
	// Cost volume * price, deducted from the allowance.
	Cost decimal.Decimal
	// OrderID client order id sent to the exchange.
	OrderID string
}

// String returns a human-readable string representation.
func (t *TradeEvent) String() string {
	return fmt.Sprintf("Bought %s of %s for a total of %s USD", t.Volume.String(), t.Symbol, t.Cost.String())
}

// Subject returns the notification subject.
func (t *TradeEvent) Subject() string {
	return fmt.Sprintf("Trade Executed for %s", t.Symbol)
}

// Body returns the notification body.
func (t *TradeEvent) Body() string {
	return fmt.Sprintf("Bought %s of %s at %s USD for a total of %s USD",
		t.Volume.String(), t.Symbol, t.Price.String(), t.Cost.String())
}
