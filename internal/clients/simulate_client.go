package clients

import (
	"github.com/adshao/go-binance/v2"
)

// SimulateClient backs paper trading with real Binance market data.
type SimulateClient struct {
	binanceClient *binance.Client
}

// NewSimulateClient creates a client without API keys.
func NewSimulateClient() *SimulateClient {
	return &SimulateClient{
		binanceClient: binance.NewClient("", ""),
	}
}

// GetBinanceClient returns the underlying Binance client.
func (c *SimulateClient) GetBinanceClient() *binance.Client {
	return c.binanceClient
}
