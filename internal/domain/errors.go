package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for broker operations.
// Adapter-level transport errors are translated into these at the
// orchestrator boundary; raw network errors never cross the API.
var (
	// ErrUnsupportedBroker - no adapter registered for the broker id. Non-retryable.
	ErrUnsupportedBroker = errors.New("unsupported broker")

	// ErrInvalidCredentials - adapter validation returned false. Non-retryable
	// without new credentials.
	ErrInvalidCredentials = errors.New("invalid broker credentials")

	// ErrAccountNotFound - operation targets a missing account
	ErrAccountNotFound = errors.New("broker account not found")

	// ErrAccountInactive - operation targets a deactivated account
	ErrAccountInactive = errors.New("broker account is inactive")

	// ErrAdapterUnavailable - transport-level failure talking to a broker
	// backend. Retryable; existing persisted state is untouched.
	ErrAdapterUnavailable = errors.New("broker adapter unavailable")
)

// Order validation errors
var (
	ErrEmptySymbol       = errors.New("order symbol is required")
	ErrInvalidSide       = errors.New("order side must be BUY or SELL")
	ErrInvalidOrderType  = errors.New("unknown order type")
	ErrInvalidQuantity   = errors.New("order quantity must be positive")
	ErrInvalidLimitPrice = errors.New("limit orders require a positive limit price")
	ErrInvalidStopPrice  = errors.New("stop orders require a positive stop price")
)

// Sub-fetch names used by PartialSyncError
const (
	SyncFetchAccountInfo = "account_info"
	SyncFetchPositions   = "positions"
	SyncFetchTrades      = "trades"
)

// PartialSyncError reports that one or more of the three sync sub-fetches
// failed while others succeeded. The successfully fetched data has already
// been committed when this error is returned.
type PartialSyncError struct {
	AccountID string
	Failed    []string // sub-fetch names, see SyncFetch* constants
	Causes    []error  // one cause per failed sub-fetch, same order
}

// Error implements the error interface
func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("partial sync for account %s: failed sub-fetches [%s]",
		e.AccountID, strings.Join(e.Failed, ", "))
}

// Unwrap exposes the underlying sub-fetch errors for errors.Is matching
func (e *PartialSyncError) Unwrap() []error {
	return e.Causes
}

// FailedFetch reports whether the named sub-fetch is among the failures
func (e *PartialSyncError) FailedFetch(name string) bool {
	for _, f := range e.Failed {
		if f == name {
			return true
		}
	}
	return false
}
