// Package intents journals every order around its submission so a run that
// dies between the exchange call and state persistence leaves a trace.
package intents

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

const (
	defaultIntentDir    = "./wal/intents"
	intentSegmentLimit  = 1000
	intentMaxSegments   = 100
	intentKeyPrefix     = "trade_intent_"
	intentDirPermission = 0o755
)

// Status lifecycle of an intent: pending -> done | failed | abandoned.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned"
)

// Intent is one order attempt.
type Intent struct {
	ID     string          `json:"id"`
	Status Status          `json:"status"`
	Symbol string          `json:"symbol"`
	Market domain.Market   `json:"market"`
	Volume decimal.Decimal `json:"volume"`
	Price  decimal.Decimal `json:"price"`
	Cost   decimal.Decimal `json:"cost"`
	Time   time.Time       `json:"time"`
	Error  string          `json:"error,omitempty"`
}

// WALStore keeps the latest record of every intent, replayed from the WAL on open.
type WALStore struct {
	mu      sync.Mutex
	wal     *gowal.Wal
	intents []*Intent
	index   map[string]*Intent
}

// NewWALStore opens (or creates) the journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultIntentDir
	}
	if err := os.MkdirAll(dir, intentDirPermission); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure WAL directory %s", dir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "intent_",
		SegmentThreshold: intentSegmentLimit,
		MaxSegments:      intentMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init trade intent WAL")
	}

	s := &WALStore{wal: wal, index: make(map[string]*Intent)}
	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, intentKeyPrefix) {
			continue
		}
		var intent Intent
		if err := json.Unmarshal(msg.Value, &intent); err != nil {
			wal.Close()
			return nil, errors.Wrapf(err, "decode trade intent %s", msg.Key)
		}
		if existing, ok := s.index[intent.ID]; ok {
			*existing = intent
			continue
		}
		stored := intent
		s.intents = append(s.intents, &stored)
		s.index[stored.ID] = &stored
	}

	return s, nil
}

// Prepare journals a pending intent for the order about to be placed.
func (s *WALStore) Prepare(symbol string, market domain.Market, order domain.Order, price decimal.Decimal, at time.Time) (*Intent, error) {
	intent := &Intent{
		ID:     uuid.New().String(),
		Status: StatusPending,
		Symbol: symbol,
		Market: market,
		Volume: order.Volume,
		Price:  price,
		Cost:   order.Cost,
		Time:   at,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(intent); err != nil {
		return nil, err
	}
	s.intents = append(s.intents, intent)
	s.index[intent.ID] = intent

	return intent, nil
}

// MarkDone records that the order executed and state was persisted.
func (s *WALStore) MarkDone(intent *Intent) error {
	return s.setStatus(intent, StatusDone, nil)
}

// MarkFailed records an order the exchange refused.
func (s *WALStore) MarkFailed(intent *Intent, cause error) error {
	return s.setStatus(intent, StatusFailed, cause)
}

// MarkAbandoned closes out a pending intent left behind by an earlier run.
func (s *WALStore) MarkAbandoned(intent *Intent) error {
	return s.setStatus(intent, StatusAbandoned, fmt.Errorf("run ended before the outcome was recorded"))
}

// Pending returns intents still in the pending state.
func (s *WALStore) Pending() []*Intent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*Intent
	for _, intent := range s.intents {
		if intent.Status == StatusPending {
			pending = append(pending, intent)
		}
	}
	return pending
}

// Get returns the latest record of an intent.
func (s *WALStore) Get(id string) (Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.index[id]
	if !ok {
		return Intent{}, false
	}
	return *intent, true
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

func (s *WALStore) setStatus(intent *Intent, status Status, cause error) error {
	if intent == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	intent.Status = status
	intent.Error = ""
	if cause != nil {
		intent.Error = cause.Error()
	}
	return s.persist(intent)
}

func (s *WALStore) persist(intent *Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return errors.Wrap(err, "failed to marshal trade intent")
	}
	key := fmt.Sprintf("%s%s", intentKeyPrefix, intent.ID)
	nextIndex := s.wal.CurrentIndex() + 1
	return errors.Wrap(s.wal.Write(nextIndex, key, data), "write trade intent")
}
