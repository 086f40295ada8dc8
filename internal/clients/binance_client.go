// Package clients builds exchange API clients from credentials.
package clients

import (
	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient returns a Binance REST client. Empty credentials give a
// client usable for public market data only.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}
