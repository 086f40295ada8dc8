// Package statestore persists balances and allowance between rebalance runs.
package statestore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/rebalancer/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	stateFileName  = "state.yaml"
	lockFileName   = "state.lock"
	lockRetryDelay = 200 * time.Millisecond
	dirPermissions = 0o755
	filePermission = 0o644
)

// FileStore keeps state in a single YAML file so balances and allowance are
// always replaced together.
type FileStore struct {
	path    string
	symbols []string
	lock    *flock.Flock
}

// stateDocument is the on-disk layout:
//
//	balances:
//	  BTC: 0.0021
//	  ETH: 0.05
//	allowance: 12.5
type stateDocument struct {
	Balances  yaml.Node  `yaml:"balances"`
	Allowance *yaml.Node `yaml:"allowance"`
}

// NewFileStore creates a store under dir for the given asset symbols.
func NewFileStore(dir string, symbols []string) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "create state dir %s", dir)
	}

	return &FileStore{
		path:    filepath.Join(dir, stateFileName),
		symbols: symbols,
		lock:    flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.path
}

// Lock takes the advisory lock guarding load-decide-persist. It waits until
// ctx is done.
func (s *FileStore) Lock(ctx context.Context) (func() error, error) {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrStateLocked, "acquire %s: %v", s.lock.Path(), err)
	}
	if !locked {
		return nil, errors.Wrap(domain.ErrStateLocked, s.lock.Path())
	}

	return s.lock.Unlock, nil
}

// Load reads state from disk. A missing file yields domain.ErrNotInitialized.
func (s *FileStore) Load() (domain.State, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.State{}, domain.ErrNotInitialized
		}
		return domain.State{}, errors.Wrap(err, "read state")
	}

	state, err := decodeState(payload)
	if err != nil {
		return domain.State{}, err
	}
	if err := domain.ValidateState(state, s.symbols); err != nil {
		return domain.State{}, err
	}

	return state, nil
}

// Save replaces the state file atomically via a synced temp file and rename.
func (s *FileStore) Save(state domain.State) error {
	if err := domain.ValidateState(state, s.symbols); err != nil {
		return errors.Wrapf(domain.ErrPersistenceFailure, "refusing to save invalid state: %v", err)
	}

	payload, err := encodeState(state, s.symbols)
	if err != nil {
		return errors.Wrapf(domain.ErrPersistenceFailure, "encode state: %v", err)
	}

	if err := writeFileAtomic(s.path, payload); err != nil {
		return errors.Wrapf(domain.ErrPersistenceFailure, "%v", err)
	}

	return nil
}

func writeFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, stateFileName+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp state file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp state file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp state file")
	}
	if err := os.Chmod(tmpPath, filePermission); err != nil {
		return errors.Wrap(err, "chmod temp state file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "replace state file")
	}

	// make the rename itself durable
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrap(err, "open state dir")
	}
	defer d.Close()

	return errors.Wrap(d.Sync(), "sync state dir")
}

func encodeState(state domain.State, symbols []string) ([]byte, error) {
	balances := &yaml.Node{Kind: yaml.MappingNode}
	for _, symbol := range symbols {
		balances.Content = append(balances.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: symbol},
			&yaml.Node{Kind: yaml.ScalarNode, Value: state.Balances[symbol].String()},
		)
	}

	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "balances"},
		balances,
		{Kind: yaml.ScalarNode, Value: "allowance"},
		{Kind: yaml.ScalarNode, Value: state.Allowance.String()},
	}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeState(payload []byte) (domain.State, error) {
	var doc stateDocument
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return domain.State{}, errors.Wrapf(domain.ErrCorruptState, "%v", err)
	}
	if doc.Balances.Kind != yaml.MappingNode {
		return domain.State{}, errors.Wrap(domain.ErrCorruptState, "balances section is missing")
	}
	if doc.Allowance == nil || doc.Allowance.Kind != yaml.ScalarNode {
		return domain.State{}, errors.Wrap(domain.ErrCorruptState, "allowance is missing")
	}

	balances := make(domain.Balances, len(doc.Balances.Content)/2)
	for i := 0; i+1 < len(doc.Balances.Content); i += 2 {
		key, value := doc.Balances.Content[i], doc.Balances.Content[i+1]
		if _, dup := balances[key.Value]; dup {
			return domain.State{}, errors.Wrapf(domain.ErrCorruptState, "duplicate balance for %s", key.Value)
		}
		qty, err := decimal.NewFromString(value.Value)
		if err != nil {
			return domain.State{}, errors.Wrapf(domain.ErrCorruptState, "balance for %s: %v", key.Value, err)
		}
		balances[key.Value] = qty
	}

	allowance, err := decimal.NewFromString(doc.Allowance.Value)
	if err != nil {
		return domain.State{}, errors.Wrapf(domain.ErrCorruptState, "allowance: %v", err)
	}

	return domain.State{Balances: balances, Allowance: allowance}, nil
}
