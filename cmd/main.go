// Command rebalancer spends a monthly USD budget in hourly increments, buying
// one asset per run so the portfolio drifts towards its target allocation.
//
// Usage:
//
//	rebalancer --config config.yaml          run once (cron/systemd timer friendly)
//	rebalancer --config config.yaml          with `schedule:` set, runs in-process on that cron
//	rebalancer --setup --config config.yaml  interactive wizard
//
// Required environment variables (a .env file is read when present):
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
//	For email notifications: EMAIL_SENDER, EMAIL_PASSWORD, EMAIL_RECIPIENT
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/rebalancer/config"
	"github.com/vadiminshakov/rebalancer/internal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
	"github.com/vadiminshakov/rebalancer/internal/setup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	envFile := flag.String("env", ".env", "path to .env file with credentials")
	runSetup := flag.Bool("setup", false, "run the interactive configuration wizard")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *runSetup {
		if err := setup.RunTUI(*configPath); err != nil {
			log.Fatal(err)
		}
	}

	logger, err := newLogger(*debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	conf, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if total := domain.TotalFraction(conf.Allocations); total.GreaterThan(decimal.NewFromInt(1)) {
		logger.Warn("target fractions add up to more than 1", zap.String("total", total.String()))
	}

	secrets, err := config.LoadSecrets(*envFile, conf)
	if err != nil {
		logger.Fatal("failed to load credentials", zap.Error(err))
	}

	client, err := internal.NewClient(conf.Platform, secrets)
	if err != nil {
		logger.Fatal("failed to create exchange client", zap.Error(err))
	}

	n, err := internal.NewNotifier(logger.Named("notifier"), conf.Notify, secrets)
	if err != nil {
		logger.Fatal("failed to create notifier", zap.Error(err))
	}

	bot, err := internal.NewTradingBot(logger, conf, client, n)
	if err != nil {
		logger.Fatal("failed to create trading bot", zap.Error(err))
	}
	defer bot.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		zap.String("platform", conf.Platform),
		zap.String("monthly_budget", conf.MonthlyBudget.String()),
		zap.Strings("assets", domain.Symbols(conf.Allocations)))

	if conf.Schedule == "" {
		if err := bot.RunOnce(ctx); err != nil {
			bot.Close()
			logger.Fatal("rebalance run failed", zap.Error(err))
		}
		return
	}

	if err := bot.RunScheduled(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler stopped with error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
