package internal

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/rebalancer/config"
	"github.com/vadiminshakov/rebalancer/internal/clients"
	"github.com/vadiminshakov/rebalancer/internal/notifier"
)

// Notifier delivers trade notifications.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// NewClient builds the exchange client for the configured platform.
func NewClient(platform string, secrets config.Secrets) (any, error) {
	switch platform {
	case config.PlatformBinance:
		return clients.NewBinanceClient(secrets.BinanceAPIKey, secrets.BinanceAPISecret), nil
	case config.PlatformBybit:
		return clients.NewBybitClient(secrets.BybitAPIKey, secrets.BybitAPISecret), nil
	case config.PlatformSimulate:
		return clients.NewSimulateClient(), nil
	default:
		return nil, errors.Errorf("unsupported platform: %s", platform)
	}
}

// NewNotifier returns the email notifier when enabled, otherwise a no-op.
func NewNotifier(logger *zap.Logger, conf config.NotifyConfig, secrets config.Secrets) (Notifier, error) {
	if !conf.Enabled {
		return notifier.Nop{}, nil
	}

	n, err := notifier.NewEmailNotifier(logger, notifier.EmailConfig{
		Host:      conf.SMTPHost,
		Port:      conf.SMTPPort,
		Sender:    secrets.EmailSender,
		Password:  secrets.EmailPassword,
		Recipient: secrets.EmailRecipient,
		Retries:   conf.Retries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create email notifier")
	}
	return n, nil
}
