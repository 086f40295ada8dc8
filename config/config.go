package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	PlatformBinance  = "binance"
	PlatformBybit    = "bybit"
	PlatformSimulate = "simulate"

	defaultStateDir    = "./state"
	defaultTradeLog    = "./logs/trades.log"
	defaultWALDir      = "./wal/intents"
	defaultLockTimeout = 30 * time.Second
	defaultSMTPHost    = "smtp.gmail.com"
	defaultSMTPPort    = 587
	defaultRetries     = 0
)

type Config struct {
	Platform      string
	MonthlyBudget decimal.Decimal
	Allocations   []domain.AssetAllocation
	StateDir      string
	TradeLog      string
	WALDir        string
	// Schedule is a standard cron expression. Empty means run once and exit.
	Schedule    string
	LockTimeout time.Duration
	Notify      NotifyConfig
}

type NotifyConfig struct {
	Enabled  bool
	SMTPHost string
	SMTPPort int
	Retries  int
}

// ConfigTmp is the YAML form of Config. Decimals are kept as strings.
type ConfigTmp struct {
	Platform      string          `yaml:"platform"`
	MonthlyBudget string          `yaml:"monthly_budget"`
	Allocations   []AllocationTmp `yaml:"allocations"`
	StateDir      string          `yaml:"state_dir,omitempty"`
	TradeLog      string          `yaml:"trade_log,omitempty"`
	WALDir        string          `yaml:"wal_dir,omitempty"`
	Schedule      string          `yaml:"schedule,omitempty"`
	LockTimeout   time.Duration   `yaml:"lock_timeout,omitempty"`
	Notify        NotifyTmp       `yaml:"notify,omitempty"`
}

type AllocationTmp struct {
	Symbol   string `yaml:"symbol"`
	Market   string `yaml:"market"`
	Fraction string `yaml:"fraction"`
}

type NotifyTmp struct {
	Enabled  bool   `yaml:"enabled"`
	SMTPHost string `yaml:"smtp_host,omitempty"`
	SMTPPort int    `yaml:"smtp_port,omitempty"`
	Retries  *int   `yaml:"retries,omitempty"`
}

// Load reads and validates the YAML config at path.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	return Parse(f)
}

// Parse decodes and validates a YAML config.
func Parse(raw []byte) (Config, error) {
	var tmp ConfigTmp
	if err := yaml.Unmarshal(raw, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "decode yaml config")
	}

	return FromTmp(tmp)
}

// FromTmp converts the YAML form into Config, applying defaults.
func FromTmp(c ConfigTmp) (Config, error) {
	platform := strings.ToLower(strings.TrimSpace(c.Platform))
	switch platform {
	case PlatformBinance, PlatformBybit, PlatformSimulate:
	default:
		return Config{}, errors.Errorf("unsupported platform: %q", c.Platform)
	}

	budget, err := decimal.NewFromString(c.MonthlyBudget)
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'monthly_budget' param in yaml config: %q", c.MonthlyBudget)
	}
	if !budget.IsPositive() {
		return Config{}, errors.Errorf("'monthly_budget' must be positive, got %s", budget)
	}

	allocations, err := parseAllocations(c.Allocations)
	if err != nil {
		return Config{}, err
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return Config{}, errors.Wrapf(err, "incorrect 'schedule' param in yaml config: %q", c.Schedule)
		}
	}
	if c.LockTimeout < 0 {
		return Config{}, errors.Errorf("'lock_timeout' must not be negative, got %s", c.LockTimeout)
	}

	cfg := Config{
		Platform:      platform,
		MonthlyBudget: budget,
		Allocations:   allocations,
		StateDir:      withDefault(c.StateDir, defaultStateDir),
		TradeLog:      withDefault(c.TradeLog, defaultTradeLog),
		WALDir:        withDefault(c.WALDir, defaultWALDir),
		Schedule:      c.Schedule,
		LockTimeout:   c.LockTimeout,
		Notify: NotifyConfig{
			Enabled:  c.Notify.Enabled,
			SMTPHost: withDefault(c.Notify.SMTPHost, defaultSMTPHost),
			SMTPPort: c.Notify.SMTPPort,
			Retries:  defaultRetries,
		},
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.Notify.SMTPPort == 0 {
		cfg.Notify.SMTPPort = defaultSMTPPort
	}
	if c.Notify.Retries != nil {
		if *c.Notify.Retries < 0 {
			return Config{}, errors.Errorf("'notify.retries' must not be negative, got %d", *c.Notify.Retries)
		}
		cfg.Notify.Retries = *c.Notify.Retries
	}

	return cfg, nil
}

func parseAllocations(raw []AllocationTmp) ([]domain.AssetAllocation, error) {
	if len(raw) == 0 {
		return nil, errors.New("at least one allocation is required")
	}

	seen := make(map[string]struct{}, len(raw))
	allocations := make([]domain.AssetAllocation, 0, len(raw))
	for i, a := range raw {
		fraction, err := decimal.NewFromString(a.Fraction)
		if err != nil {
			return nil, errors.Wrapf(err, "incorrect 'fraction' for allocation #%d (%s)", i+1, a.Symbol)
		}
		alloc, err := domain.NewAssetAllocation(strings.TrimSpace(a.Symbol), domain.Market(strings.TrimSpace(a.Market)), fraction)
		if err != nil {
			return nil, errors.Wrapf(err, "allocation #%d", i+1)
		}
		if _, ok := seen[alloc.Symbol]; ok {
			return nil, errors.Errorf("duplicate allocation symbol %s", alloc.Symbol)
		}
		seen[alloc.Symbol] = struct{}{}
		allocations = append(allocations, alloc)
	}

	return allocations, nil
}

// Marshal renders cfg in its YAML form.
func Marshal(c ConfigTmp) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode yaml config")
	}
	return out, nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Secrets are credentials taken from the environment.
type Secrets struct {
	BinanceAPIKey    string `envconfig:"BINANCE_API_KEY"`
	BinanceAPISecret string `envconfig:"BINANCE_API_SECRET"`
	BybitAPIKey      string `envconfig:"BYBIT_API_KEY"`
	BybitAPISecret   string `envconfig:"BYBIT_API_SECRET"`
	EmailSender      string `envconfig:"EMAIL_SENDER"`
	EmailPassword    string `envconfig:"EMAIL_PASSWORD"`
	EmailRecipient   string `envconfig:"EMAIL_RECIPIENT"`
}

// LoadSecrets loads envFile if it exists, reads the environment and checks
// that every credential cfg needs is set.
func LoadSecrets(envFile string, cfg Config) (Secrets, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Secrets{}, errors.Wrapf(err, "load %s", envFile)
		}
	}

	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return Secrets{}, errors.Wrap(err, "read environment")
	}

	if err := s.validate(cfg); err != nil {
		return Secrets{}, err
	}

	return s, nil
}

func (s Secrets) validate(cfg Config) error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch cfg.Platform {
	case PlatformBinance:
		require("BINANCE_API_KEY", s.BinanceAPIKey)
		require("BINANCE_API_SECRET", s.BinanceAPISecret)
	case PlatformBybit:
		require("BYBIT_API_KEY", s.BybitAPIKey)
		require("BYBIT_API_SECRET", s.BybitAPISecret)
	}
	if cfg.Notify.Enabled {
		require("EMAIL_SENDER", s.EmailSender)
		require("EMAIL_PASSWORD", s.EmailPassword)
		require("EMAIL_RECIPIENT", s.EmailRecipient)
	}

	if len(missing) > 0 {
		return errors.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
