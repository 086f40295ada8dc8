package notifier

import (
	"context"
	"net/textproto"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/rebalancer/pkg/retrier"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const defaultSMTPTimeout = 30 * time.Second

// EmailConfig SMTP settings for EmailNotifier.
type EmailConfig struct {
	Host      string
	Port      int
	Sender    string
	Password  string
	Recipient string
	Retries   int
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailNotifier sends HTML mail over SMTP with mandatory STARTTLS.
type EmailNotifier struct {
	cfg     EmailConfig
	client  sender
	retrier *retrier.Retrier
	l       *zap.Logger
}

// NewEmailNotifier creates a notifier authenticating as cfg.Sender.
func NewEmailNotifier(l *zap.Logger, cfg EmailConfig) (*EmailNotifier, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(defaultSMTPTimeout),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create SMTP client")
	}

	return newEmailNotifier(l, cfg, client), nil
}

func newEmailNotifier(l *zap.Logger, cfg EmailConfig, client sender) *EmailNotifier {
	return &EmailNotifier{
		cfg:     cfg,
		client:  client,
		retrier: retrier.New(retrier.WithMaxRetries(cfg.Retries)),
		l:       l,
	}
}

// Notify sends one message, retrying transient SMTP failures when retries are
// configured.
func (n *EmailNotifier) Notify(ctx context.Context, subject, body string) error {
	msg, err := n.buildMessage(subject, body)
	if err != nil {
		return err
	}

	return n.retrier.Do(ctx, func(ctx context.Context) error {
		if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
			n.l.Warn("email delivery attempt failed", zap.String("subject", subject), zap.Error(err))
			err = errors.Wrap(err, "send email")
			if isPermanentSMTPError(err) {
				return retrier.Permanent(err)
			}
			return err
		}
		return nil
	})
}

func (n *EmailNotifier) buildMessage(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.Sender); err != nil {
		return nil, errors.Wrapf(err, "invalid sender %q", n.cfg.Sender)
	}
	if err := msg.To(n.cfg.Recipient); err != nil {
		return nil, errors.Wrapf(err, "invalid recipient %q", n.cfg.Recipient)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	return msg, nil
}

// isPermanentSMTPError reports 5xx replies (bad credentials, rejected
// recipient) and delivery errors go-mail does not mark as temporary.
func isPermanentSMTPError(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 500
	}
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		return !sendErr.IsTemp()
	}
	return false
}
