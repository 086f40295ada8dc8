package statestore

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

// MemoryStore is an in-process store with the same contract as FileStore.
type MemoryStore struct {
	lock    sync.Mutex
	mu      sync.RWMutex
	symbols []string
	state   *domain.State
}

// NewMemoryStore creates an empty store for the given symbols.
func NewMemoryStore(symbols []string) *MemoryStore {
	return &MemoryStore{symbols: symbols}
}

// NewMemoryStoreWithState creates a store that already holds state.
func NewMemoryStoreWithState(symbols []string, state domain.State) *MemoryStore {
	clone := state.Clone()
	return &MemoryStore{symbols: symbols, state: &clone}
}

// Lock serializes runs within the process.
func (s *MemoryStore) Lock(ctx context.Context) (func() error, error) {
	acquired := make(chan struct{})
	go func() {
		s.lock.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() error {
			s.lock.Unlock()
			return nil
		}, nil
	case <-ctx.Done():
		// release once the pending Lock goes through
		go func() {
			<-acquired
			s.lock.Unlock()
		}()
		return nil, domain.ErrStateLocked
	}
}

// Load returns a copy of the stored state.
func (s *MemoryStore) Load() (domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return domain.State{}, domain.ErrNotInitialized
	}
	if err := domain.ValidateState(*s.state, s.symbols); err != nil {
		return domain.State{}, err
	}

	return s.state.Clone(), nil
}

// Save replaces the stored state.
func (s *MemoryStore) Save(state domain.State) error {
	if err := domain.ValidateState(state, s.symbols); err != nil {
		return errors.Wrapf(domain.ErrPersistenceFailure, "refusing to save invalid state: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := state.Clone()
	s.state = &clone

	return nil
}
