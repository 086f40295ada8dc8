package internal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vadiminshakov/rebalancer/config"
	"github.com/vadiminshakov/rebalancer/internal/domain"
	"github.com/vadiminshakov/rebalancer/internal/services/rebalance"
	"github.com/vadiminshakov/rebalancer/internal/storage/intents"
	"github.com/vadiminshakov/rebalancer/internal/storage/statestore"
	"github.com/vadiminshakov/rebalancer/internal/tradelog"
)

// TradingBot runs the rebalancer once or on a cron schedule.
type TradingBot struct {
	Config     config.Config
	rebalancer *rebalance.Rebalancer
	journal    *intents.WALStore
	tradeLog   *zap.Logger
	l          *zap.Logger
}

// NewTradingBot wires storage, exchange services and the notifier into a rebalancer.
func NewTradingBot(logger *zap.Logger, conf config.Config, client any, n Notifier) (*TradingBot, error) {
	provider, err := newServiceProvider(client, logger, conf.StateDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service provider")
	}

	store, err := statestore.NewFileStore(conf.StateDir, domain.Symbols(conf.Allocations))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open state store")
	}

	journal, err := intents.NewWALStore(conf.WALDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open trade intent journal")
	}

	tradeLog, err := tradelog.New(conf.TradeLog)
	if err != nil {
		journal.Close()
		return nil, errors.Wrap(err, "failed to open trade log")
	}

	r, err := rebalance.NewRebalancer(logger, tradeLog, rebalance.Config{
		MonthlyBudget: conf.MonthlyBudget,
		Allocations:   conf.Allocations,
		LockTimeout:   conf.LockTimeout,
	}, store, provider.Pricer(), provider.Trader(), journal, n)
	if err != nil {
		journal.Close()
		return nil, errors.Wrap(err, "failed to create rebalancer")
	}

	return &TradingBot{
		Config:     conf,
		rebalancer: r,
		journal:    journal,
		tradeLog:   tradeLog,
		l:          logger,
	}, nil
}

// RunOnce performs a single rebalancing decision.
func (b *TradingBot) RunOnce(ctx context.Context) error {
	outcome, err := b.rebalancer.Run(ctx)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Bool("initialized", outcome.Initialized),
		zap.String("allowance", outcome.State.Allowance.String()),
	}
	switch {
	case outcome.Trade != nil:
		fields = append(fields,
			zap.String("symbol", outcome.Trade.Symbol),
			zap.String("phase", string(outcome.Phase)),
			zap.String("volume", outcome.Trade.Volume.String()),
			zap.String("cost", outcome.Trade.Cost.String()))
		b.l.Info("run finished with trade", fields...)
	case outcome.TradeErr != nil:
		b.l.Warn("run finished with rejected trade", append(fields, zap.Error(outcome.TradeErr))...)
	default:
		b.l.Info("run finished without trade", append(fields, zap.String("reason", outcome.SkipReason))...)
	}

	return nil
}

// RunScheduled runs on Config.Schedule until ctx is done. A tick is skipped
// while the previous run is still in progress. Failed runs are logged and the
// next tick proceeds.
func (b *TradingBot) RunScheduled(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(b.l.Named("cron")))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := c.AddFunc(b.Config.Schedule, func() { b.tick(ctx) }); err != nil {
		return errors.Wrapf(err, "register schedule %q", b.Config.Schedule)
	}

	c.Start()
	b.l.Info("scheduler started", zap.String("schedule", b.Config.Schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	b.l.Info("scheduler stopped")

	return ctx.Err()
}

func (b *TradingBot) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := b.RunOnce(ctx); err != nil {
		b.l.Error("rebalance run failed", zap.Error(err))
	}
}

// Close releases the journal and flushes the trade log.
func (b *TradingBot) Close() error {
	_ = b.tradeLog.Sync()
	return b.journal.Close()
}
