package internal

import (
	"context"
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/rebalancer/internal/clients"
	"github.com/vadiminshakov/rebalancer/internal/domain"
	"github.com/vadiminshakov/rebalancer/internal/services/pricer"
	"github.com/vadiminshakov/rebalancer/internal/services/trader"
	"github.com/vadiminshakov/rebalancer/internal/storage/simstate"
)

type traderService interface {
	Buy(ctx context.Context, market domain.Market, order domain.Order, clientOrderID string) error
}

type priceService interface {
	GetPrice(ctx context.Context, market domain.Market) (decimal.Decimal, error)
	GetLotSize(ctx context.Context, market domain.Market) (domain.LotSize, error)
}

// serviceProvider creates platform-specific services.
type serviceProvider interface {
	Trader() traderService
	Pricer() priceService
}

// newServiceProvider dispatches on the client type returned by NewClient.
// stateDir holds the paper wallet of the simulate platform.
func newServiceProvider(client any, logger *zap.Logger, stateDir string) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.SimulateClient:
		store, err := simstate.NewStore(stateDir)
		if err != nil {
			return nil, err
		}
		t, err := trader.NewPersistentSimulateTrader(logger, store)
		if err != nil {
			return nil, err
		}
		return &simulateProvider{client: c, trader: t}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
}

func (p *binanceProvider) Trader() traderService {
	return trader.NewBinanceTrader(p.client)
}
func (p *binanceProvider) Pricer() priceService {
	return pricer.NewBinancePricer(p.client)
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) Trader() traderService {
	return trader.NewBybitTrader(p.client)
}
func (p *bybitProvider) Pricer() priceService {
	return pricer.NewBybitPricer(p.client)
}

// simulateProvider prices against live Binance data and fills orders on paper.
type simulateProvider struct {
	client *clients.SimulateClient
	trader *trader.SimulateTrader
}

func (p *simulateProvider) Trader() traderService {
	return p.trader
}
func (p *simulateProvider) Pricer() priceService {
	return pricer.NewBinancePricer(p.client.GetBinanceClient())
}
