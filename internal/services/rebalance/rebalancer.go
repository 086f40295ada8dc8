// Package rebalance runs one DCA decision per invocation: load state, accrue the
// hourly allowance, pick at most one asset to buy, trade, persist.
package rebalance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
	"github.com/vadiminshakov/rebalancer/internal/storage/intents"
	"go.uber.org/zap"
)

const (
	skipBelowMinimum       = "allowance below global minimum order"
	skipNoUnderrepresented = "no underrepresented asset"
	skipInsufficient       = "insufficient allowance"
	skipZeroVolume         = "sized order volume is zero"
)

type stateStore interface {
	Lock(ctx context.Context) (func() error, error)
	Load() (domain.State, error)
	Save(state domain.State) error
}

type pricer interface {
	GetPrice(ctx context.Context, market domain.Market) (decimal.Decimal, error)
	GetLotSize(ctx context.Context, market domain.Market) (domain.LotSize, error)
}

type trader interface {
	Buy(ctx context.Context, market domain.Market, order domain.Order, clientOrderID string) error
}

type notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

type journal interface {
	Prepare(symbol string, market domain.Market, order domain.Order, price decimal.Decimal, at time.Time) (*intents.Intent, error)
	MarkDone(intent *intents.Intent) error
	MarkFailed(intent *intents.Intent, cause error) error
	MarkAbandoned(intent *intents.Intent) error
	Pending() []*intents.Intent
}

// Config is the portfolio the rebalancer works towards.
type Config struct {
	MonthlyBudget decimal.Decimal
	Allocations   []domain.AssetAllocation
	// LockTimeout bounds the wait for the state lock. Zero waits as long as ctx allows.
	LockTimeout time.Duration
}

// Outcome describes what one run did.
type Outcome struct {
	// Initialized is set when no prior state existed and a baseline was written.
	Initialized bool
	// Phase of the selected candidate, empty when nothing was selected.
	Phase domain.Phase
	// Trade is the executed buy, nil when no trade went through.
	Trade *domain.TradeEvent
	// TradeErr wraps domain.ErrTradeRejected when the exchange refused the order.
	TradeErr error
	// SkipReason explains a run without a trade attempt.
	SkipReason string
	// State is what was persisted.
	State domain.State
}

type step int

const (
	stepStart step = iota
	stepBootstrapCheck
	stepRebalanceCheck
	stepTrade
	stepNoTrade
	stepPersist
	stepEnd
)

func (s step) String() string {
	switch s {
	case stepStart:
		return "start"
	case stepBootstrapCheck:
		return "bootstrap_check"
	case stepRebalanceCheck:
		return "rebalance_check"
	case stepTrade:
		return "trade"
	case stepNoTrade:
		return "no_trade"
	case stepPersist:
		return "persist"
	case stepEnd:
		return "end"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// run carries the working data of a single invocation between steps.
type run struct {
	state     domain.State
	market    domain.MarketData
	globalMin decimal.Decimal
	candidate domain.Candidate
	intent    *intents.Intent
	outcome   Outcome
}

// Rebalancer drives the load, decide, trade, persist cycle.
type Rebalancer struct {
	cfg       Config
	increment decimal.Decimal
	symbols   []string
	store     stateStore
	pricer    pricer
	trader    trader
	journal   journal
	notifier  notifier
	l         *zap.Logger
	tradeLog  *zap.Logger
	now       func() time.Time
}

// NewRebalancer creates a Rebalancer. tradeLog receives one entry per trade attempt.
func NewRebalancer(l, tradeLog *zap.Logger, cfg Config, store stateStore, pricer pricer, trader trader,
	journal journal, notifier notifier) (*Rebalancer, error) {
	if !cfg.MonthlyBudget.IsPositive() {
		return nil, errors.Errorf("monthly budget must be positive, got %s", cfg.MonthlyBudget)
	}
	if len(cfg.Allocations) == 0 {
		return nil, errors.New("at least one allocation is required")
	}

	return &Rebalancer{
		cfg:       cfg,
		increment: domain.HourlyIncrement(cfg.MonthlyBudget),
		symbols:   domain.Symbols(cfg.Allocations),
		store:     store,
		pricer:    pricer,
		trader:    trader,
		journal:   journal,
		notifier:  notifier,
		l:         l,
		tradeLog:  tradeLog,
		now:       time.Now,
	}, nil
}

// Run performs one invocation. Fatal failures (corrupt state, missing market
// data, persistence) are returned as errors; a rejected trade is not fatal and
// is reported in Outcome.TradeErr.
func (r *Rebalancer) Run(ctx context.Context) (*Outcome, error) {
	rn, err := r.runLocked(ctx)
	if err != nil {
		return nil, err
	}

	r.notify(ctx, rn)

	return &rn.outcome, nil
}

// runLocked executes the step machine while holding the state lock. The lock is
// released before any notification is sent.
func (r *Rebalancer) runLocked(ctx context.Context) (*run, error) {
	lockCtx := ctx
	if r.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, r.cfg.LockTimeout)
		defer cancel()
	}

	unlock, err := r.store.Lock(lockCtx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			r.l.Warn("failed to release state lock", zap.Error(err))
		}
	}()

	r.flagUncommitted()

	rn := &run{}
	for current := stepStart; current != stepEnd; {
		next, err := r.advance(ctx, current, rn)
		if err != nil {
			return nil, errors.Wrapf(err, "rebalance %s", current)
		}
		r.l.Debug("step done", zap.Stringer("step", current), zap.Stringer("next", next))
		current = next
	}

	r.markCommitted(rn)

	return rn, nil
}

func (r *Rebalancer) advance(ctx context.Context, current step, rn *run) (step, error) {
	switch current {
	case stepStart:
		return r.start(ctx, rn)
	case stepBootstrapCheck:
		return r.bootstrapCheck(rn), nil
	case stepRebalanceCheck:
		return r.rebalanceCheck(rn), nil
	case stepTrade:
		return r.trade(ctx, rn)
	case stepNoTrade:
		r.l.Info("no trade this run",
			zap.String("reason", rn.outcome.SkipReason),
			zap.String("allowance", rn.state.Allowance.String()),
			zap.String("global_min_usd", rn.globalMin.String()))
		return stepPersist, nil
	case stepPersist:
		return r.persist(rn)
	}
	return stepEnd, errors.Errorf("unknown step %s", current)
}

// start loads state (creating the baseline on first run), accrues the hourly
// increment and fetches market data for every configured market.
func (r *Rebalancer) start(ctx context.Context, rn *run) (step, error) {
	state, err := r.store.Load()
	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		// the baseline allowance is this run's increment
		state = domain.NewInitialState(r.cfg.Allocations, r.increment)
		if err := r.store.Save(state); err != nil {
			return stepEnd, persistenceError(err)
		}
		rn.outcome.Initialized = true
		r.l.Info("initialized state", zap.String("allowance", state.Allowance.String()))
	case err != nil:
		return stepEnd, err
	default:
		state.Allowance = state.Allowance.Add(r.increment)
	}
	rn.state = state

	market, err := r.fetchMarketData(ctx)
	if err != nil {
		return stepEnd, err
	}
	rn.market = market

	globalMin, err := market.GlobalMinOrderUSD(r.cfg.Allocations)
	if err != nil {
		return stepEnd, err
	}
	rn.globalMin = globalMin

	return stepBootstrapCheck, nil
}

func (r *Rebalancer) fetchMarketData(ctx context.Context) (domain.MarketData, error) {
	data := domain.NewMarketData()
	for _, a := range r.cfg.Allocations {
		if _, ok := data.Prices[a.Market]; ok {
			continue
		}

		price, err := r.pricer.GetPrice(ctx, a.Market)
		if err != nil {
			return data, errors.Wrapf(domain.ErrPriceUnavailable, "%s: %v", a.Market, err)
		}
		lot, err := r.pricer.GetLotSize(ctx, a.Market)
		if err != nil {
			return data, errors.Wrapf(domain.ErrMinSizeUnavailable, "%s: %v", a.Market, err)
		}

		data.Set(a.Market, price, lot)
	}

	return data, nil
}

func (r *Rebalancer) bootstrapCheck(rn *run) step {
	candidate, ok := domain.SelectBootstrap(r.cfg.Allocations, rn.state.Balances, rn.market.Prices,
		rn.state.Allowance, rn.globalMin)
	if !ok {
		return stepRebalanceCheck
	}

	rn.candidate = candidate
	rn.outcome.Phase = candidate.Phase
	return stepTrade
}

func (r *Rebalancer) rebalanceCheck(rn *run) step {
	if rn.state.Allowance.LessThan(rn.globalMin) {
		rn.outcome.SkipReason = skipBelowMinimum
		return stepNoTrade
	}

	candidate, ok := domain.SelectRebalance(r.cfg.Allocations, rn.state.Balances, rn.market.Prices,
		rn.state.Allowance, rn.globalMin)
	if !ok {
		rn.outcome.SkipReason = skipNoUnderrepresented
		return stepNoTrade
	}

	rn.candidate = candidate
	rn.outcome.Phase = candidate.Phase
	return stepTrade
}

// trade sizes and submits the order. Only journal failures are fatal here.
func (r *Rebalancer) trade(ctx context.Context, rn *run) (step, error) {
	alloc := rn.candidate.Allocation

	lot, err := rn.market.Lot(alloc.Market)
	if err != nil {
		return stepEnd, err
	}
	order, err := domain.SizeOrder(rn.globalMin, rn.candidate.Price, lot)
	if err != nil {
		return stepEnd, err
	}
	if !order.Volume.IsPositive() {
		rn.outcome.SkipReason = skipZeroVolume
		return stepNoTrade, nil
	}
	if order.Floored {
		r.l.Info("order volume raised to market minimum",
			zap.String("symbol", alloc.Symbol), zap.String("volume", order.Volume.String()))
	}
	if order.Cost.GreaterThan(rn.state.Allowance) {
		rn.outcome.SkipReason = skipInsufficient
		r.l.Warn("sized order exceeds allowance",
			zap.String("symbol", alloc.Symbol),
			zap.String("cost", order.Cost.String()),
			zap.String("allowance", rn.state.Allowance.String()))
		return stepNoTrade, nil
	}

	intent, err := r.journal.Prepare(alloc.Symbol, alloc.Market, order, rn.candidate.Price, r.now())
	if err != nil {
		return stepEnd, persistenceError(errors.Wrap(err, "journal trade intent"))
	}
	rn.intent = intent

	r.l.Info("placing market buy",
		zap.String("symbol", alloc.Symbol),
		zap.String("market", alloc.Market.String()),
		zap.String("phase", string(rn.candidate.Phase)),
		zap.String("volume", order.Volume.String()),
		zap.String("price", rn.candidate.Price.String()))

	if err := r.trader.Buy(ctx, alloc.Market, order, intent.ID); err != nil {
		rn.outcome.TradeErr = errors.Wrapf(domain.ErrTradeRejected, "%s: %v", alloc.Market, err)
		r.tradeLog.Info(fmt.Sprintf("Trade error for %s: %v", alloc.Symbol, err))
		r.l.Error("trade rejected", zap.String("symbol", alloc.Symbol), zap.Error(err))
		if err := r.journal.MarkFailed(intent, err); err != nil {
			r.l.Warn("failed to journal rejected trade", zap.String("intent", intent.ID), zap.Error(err))
		}
		return stepPersist, nil
	}

	rn.state.Allowance = rn.state.Allowance.Sub(order.Cost)
	rn.state.Balances[alloc.Symbol] = rn.state.Balances[alloc.Symbol].Add(order.Volume)

	event := &domain.TradeEvent{
		Symbol:  alloc.Symbol,
		Market:  alloc.Market,
		Phase:   rn.candidate.Phase,
		Volume:  order.Volume,
		Price:   rn.candidate.Price,
		Cost:    order.Cost,
		OrderID: intent.ID,
	}
	rn.outcome.Trade = event
	r.tradeLog.Info(event.String())

	return stepPersist, nil
}

func (r *Rebalancer) persist(rn *run) (step, error) {
	if err := r.store.Save(rn.state); err != nil {
		if rn.outcome.Trade != nil {
			r.l.Error("trade executed but state was not saved",
				zap.String("symbol", rn.outcome.Trade.Symbol),
				zap.String("volume", rn.outcome.Trade.Volume.String()),
				zap.String("cost", rn.outcome.Trade.Cost.String()))
		}
		return stepEnd, persistenceError(err)
	}
	rn.outcome.State = rn.state.Clone()

	return stepEnd, nil
}

// markCommitted journals the executed trade as done once state is on disk.
func (r *Rebalancer) markCommitted(rn *run) {
	if rn.outcome.Trade == nil {
		return
	}
	if err := r.journal.MarkDone(rn.intent); err != nil {
		r.l.Warn("failed to journal committed trade", zap.String("intent", rn.intent.ID), zap.Error(err))
	}
}

func (r *Rebalancer) notify(ctx context.Context, rn *run) {
	event := rn.outcome.Trade
	if event == nil || r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, event.Subject(), event.Body()); err != nil {
		r.l.Warn("failed to send trade notification", zap.String("symbol", event.Symbol), zap.Error(err))
	}
}

// flagUncommitted reports intents an earlier run left pending. Such an order may
// have executed without its cost and volume being recorded; balances are not
// adjusted automatically.
func (r *Rebalancer) flagUncommitted() {
	for _, intent := range r.journal.Pending() {
		r.l.Warn("found trade intent from an earlier run that was never committed",
			zap.String("intent", intent.ID),
			zap.String("symbol", intent.Symbol),
			zap.String("volume", intent.Volume.String()),
			zap.String("cost", intent.Cost.String()),
			zap.Time("time", intent.Time))
		r.tradeLog.Info(fmt.Sprintf("Unconfirmed trade for %s: %s for a total of %s USD may have executed without being recorded (intent %s)",
			intent.Symbol, intent.Volume.String(), intent.Cost.String(), intent.ID))

		if err := r.journal.MarkAbandoned(intent); err != nil {
			r.l.Warn("failed to mark intent abandoned", zap.String("intent", intent.ID), zap.Error(err))
		}
	}
}

func persistenceError(err error) error {
	if errors.Is(err, domain.ErrPersistenceFailure) {
		return err
	}
	return errors.Wrapf(domain.ErrPersistenceFailure, "%v", err)
}
