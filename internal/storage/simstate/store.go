// Package simstate persists the paper wallet of the simulate platform so
// holdings survive between invocations.
package simstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

const fileName = "paper_wallet.json"

// Store keeps the paper wallet in a JSON file.
type Store struct {
	path string
}

// NewStore creates a paper wallet store under dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create simulate state dir")
	}

	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// Wallet is the persisted paper wallet. Decimals are stored as strings.
type Wallet struct {
	Held      map[string]string `json:"held"`
	Spent     string            `json:"spent"`
	Orders    int               `json:"orders"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewWallet converts in-memory holdings into their stored form.
func NewWallet(held map[domain.Market]decimal.Decimal, spent decimal.Decimal, orders int, at time.Time) Wallet {
	w := Wallet{
		Held:      make(map[string]string, len(held)),
		Spent:     spent.String(),
		Orders:    orders,
		UpdatedAt: at,
	}
	for market, volume := range held {
		w.Held[market.String()] = volume.String()
	}
	return w
}

// Holdings decodes the stored holdings.
func (w Wallet) Holdings() (map[domain.Market]decimal.Decimal, decimal.Decimal, error) {
	held := make(map[domain.Market]decimal.Decimal, len(w.Held))
	for market, raw := range w.Held {
		volume, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, decimal.Zero, errors.Wrapf(err, "decode held volume for %s", market)
		}
		held[domain.Market(market)] = volume
	}

	spent := decimal.Zero
	if w.Spent != "" {
		var err error
		spent, err = decimal.NewFromString(w.Spent)
		if err != nil {
			return nil, decimal.Zero, errors.Wrap(err, "decode spent total")
		}
	}

	return held, spent, nil
}

// Load reads the wallet. A missing or empty file yields nil.
func (s *Store) Load() (*Wallet, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "read paper wallet")
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var w Wallet
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, errors.Wrap(err, "decode paper wallet")
	}

	return &w, nil
}

// Save writes the wallet atomically via temp file.
func (s *Store) Save(w Wallet) error {
	payload, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode paper wallet")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write paper wallet temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist paper wallet")
	}

	return nil
}
