package statestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/rebalancer/internal/domain"
)

var testSymbols = []string{"LINK", "BTC", "ETH"}

func newTestFileStore(t *testing.T) *FileStore {
	store, err := NewFileStore(t.TempDir(), testSymbols)
	require.NoError(t, err)
	return store
}

func testState() domain.State {
	return domain.State{
		Balances: domain.Balances{
			"LINK": decimal.RequireFromString("3.25"),
			"BTC":  decimal.RequireFromString("0.00012345"),
			"ETH":  decimal.Zero,
		},
		Allowance: decimal.NewFromInt(1000).Div(decimal.NewFromInt(720)),
	}
}

func TestFileStore_LoadNotInitialized(t *testing.T) {
	store := newTestFileStore(t)

	_, err := store.Load()
	require.True(t, errors.Is(err, domain.ErrNotInitialized))
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestFileStore(t)
	state := testState()

	require.NoError(t, store.Save(state))
	loaded, err := store.Load()
	require.NoError(t, err)

	require.Equal(t, state.Allowance.String(), loaded.Allowance.String())
	require.Len(t, loaded.Balances, len(testSymbols))
	for _, symbol := range testSymbols {
		require.Equal(t, state.Balances[symbol].String(), loaded.Balances[symbol].String(), symbol)
	}

	// saving what was loaded reproduces the file byte for byte
	first, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.NoError(t, store.Save(loaded))
	second, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestFileStore_FileLayout(t *testing.T) {
	store := newTestFileStore(t)
	require.NoError(t, store.Save(domain.State{
		Balances: domain.Balances{
			"LINK": decimal.RequireFromString("1.5"),
			"BTC":  decimal.Zero,
			"ETH":  decimal.RequireFromString("0.02"),
		},
		Allowance: decimal.RequireFromString("12.5"),
	}))

	payload, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.Equal(t, "balances:\n  LINK: 1.5\n  BTC: 0\n  ETH: 0.02\nallowance: 12.5\n", string(payload))
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, testSymbols)
	require.NoError(t, err)

	require.NoError(t, store.Save(testState()))
	require.NoError(t, store.Save(testState()))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestFileStore_SaveRejectsInvalidState(t *testing.T) {
	store := newTestFileStore(t)
	require.NoError(t, store.Save(testState()))

	bad := testState()
	bad.Allowance = decimal.NewFromInt(-1)
	err := store.Save(bad)
	require.True(t, errors.Is(err, domain.ErrPersistenceFailure))

	// previous state is untouched
	loaded, err := store.Load()
	require.NoError(t, err)
	require.True(t, loaded.Allowance.Equal(testState().Allowance))
}

func TestFileStore_CorruptState(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty file", payload: ""},
		{name: "not yaml", payload: "balances: [\n"},
		{name: "missing asset", payload: "balances:\n  LINK: 1\n  BTC: 0\nallowance: 1\n"},
		{name: "unknown asset", payload: "balances:\n  LINK: 1\n  BTC: 0\n  DOGE: 0\nallowance: 1\n"},
		{name: "extra asset", payload: "balances:\n  LINK: 1\n  BTC: 0\n  ETH: 0\n  DOGE: 0\nallowance: 1\n"},
		{name: "duplicate asset", payload: "balances:\n  LINK: 1\n  LINK: 2\n  BTC: 0\nallowance: 1\n"},
		{name: "unparsable balance", payload: "balances:\n  LINK: one\n  BTC: 0\n  ETH: 0\nallowance: 1\n"},
		{name: "missing allowance", payload: "balances:\n  LINK: 1\n  BTC: 0\n  ETH: 0\n"},
		{name: "unparsable allowance", payload: "balances:\n  LINK: 1\n  BTC: 0\n  ETH: 0\nallowance: lots\n"},
		{name: "negative allowance", payload: "balances:\n  LINK: 1\n  BTC: 0\n  ETH: 0\nallowance: -3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestFileStore(t)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.payload), 0o644))

			_, err := store.Load()
			require.Error(t, err)
			require.True(t, errors.Is(err, domain.ErrCorruptState), "got %v", err)
			require.Equal(t, domain.ErrCorruptState, errors.Cause(err))
		})
	}
}

func TestFileStore_LockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileStore(dir, testSymbols)
	require.NoError(t, err)
	second, err := NewFileStore(dir, testSymbols)
	require.NoError(t, err)

	unlock, err := first.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx)
	require.True(t, errors.Is(err, domain.ErrStateLocked), "got %v", err)

	require.NoError(t, unlock())

	unlock, err = second.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
}
