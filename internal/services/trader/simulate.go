package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
	"github.com/vadiminshakov/rebalancer/internal/storage/simstate"
	"go.uber.org/zap"
)

type walletStore interface {
	Load() (*simstate.Wallet, error)
	Save(w simstate.Wallet) error
}

// Fill paper-traded order.
type Fill struct {
	Market domain.Market
	Volume decimal.Decimal
	Cost   decimal.Decimal
}

// SimulateTrader fills every valid order immediately without touching an exchange.
type SimulateTrader struct {
	mu     sync.RWMutex
	logger *zap.Logger
	fills  map[string]Fill
	// held base volume per market
	held   map[domain.Market]decimal.Decimal
	spent  decimal.Decimal
	orders int
	store  walletStore
}

// NewSimulateTrader creates a new SimulateTrader.
func NewSimulateTrader(logger *zap.Logger) *SimulateTrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulateTrader{
		logger: logger,
		fills:  make(map[string]Fill),
		held:   make(map[domain.Market]decimal.Decimal),
		spent:  decimal.Zero,
	}
}

// NewPersistentSimulateTrader creates a SimulateTrader whose paper wallet is
// restored from and saved to store.
func NewPersistentSimulateTrader(logger *zap.Logger, store walletStore) (*SimulateTrader, error) {
	t := NewSimulateTrader(logger)
	t.store = store

	w, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to restore paper wallet")
	}
	if w == nil {
		return t, nil
	}

	held, spent, err := w.Holdings()
	if err != nil {
		return nil, errors.Wrap(err, "failed to restore paper wallet")
	}
	t.held = held
	t.spent = spent
	t.orders = w.Orders

	return t, nil
}

func (t *SimulateTrader) Buy(_ context.Context, market domain.Market, order domain.Order, clientOrderID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if order.Volume.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("buy volume must be positive, got %s", order.Volume.String())
	}
	if _, dup := t.fills[clientOrderID]; dup {
		return fmt.Errorf("duplicate client order id %s", clientOrderID)
	}

	prevHeld, prevSpent := t.held[market], t.spent
	t.held[market] = prevHeld.Add(order.Volume)
	t.spent = prevSpent.Add(order.Cost)
	t.orders++

	if t.store != nil {
		if err := t.store.Save(simstate.NewWallet(t.held, t.spent, t.orders, time.Now())); err != nil {
			t.held[market] = prevHeld
			t.spent = prevSpent
			t.orders--
			return errors.Wrap(err, "failed to save paper wallet")
		}
	}
	t.fills[clientOrderID] = Fill{Market: market, Volume: order.Volume, Cost: order.Cost}

	t.logger.Info("simulated market buy",
		zap.String("market", market.String()),
		zap.String("volume", order.Volume.String()),
		zap.String("cost", order.Cost.String()),
		zap.String("order_id", clientOrderID),
		zap.String("total_spent", t.spent.String()))

	return nil
}

func (t *SimulateTrader) fillFor(clientOrderID string) (Fill, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.fills[clientOrderID]
	return f, ok
}

func (t *SimulateTrader) heldOn(market domain.Market) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.held[market]
}

func (t *SimulateTrader) totalSpent() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spent
}
