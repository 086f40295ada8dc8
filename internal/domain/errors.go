package domain

import "github.com/pkg/errors"

// Failure classes of a rebalance run. Everything except ErrNotInitialized and
// ErrTradeRejected aborts the run.
var (
	// ErrNotInitialized is returned by a state store that holds no prior state.
	ErrNotInitialized = errors.New("state is not initialized")
	// ErrCorruptState means persisted state does not match the configured assets or does not parse.
	ErrCorruptState = errors.New("state is corrupt")
	// ErrPriceUnavailable means the oracle returned no usable price for a configured market.
	ErrPriceUnavailable = errors.New("price is unavailable")
	// ErrMinSizeUnavailable means the oracle returned no minimum order size for a configured market.
	ErrMinSizeUnavailable = errors.New("minimum order size is unavailable")
	// ErrTradeRejected means the exchange refused the order.
	ErrTradeRejected = errors.New("trade rejected")
	// ErrPersistenceFailure means state could not be written.
	ErrPersistenceFailure = errors.New("state persistence failed")
	// ErrStateLocked means another run holds the state lock.
	ErrStateLocked = errors.New("state is locked by another run")
)
