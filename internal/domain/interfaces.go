package domain

import "context"

// BrokerAdapter defines broker-agnostic account and trading operations.
// One implementation exists per broker backend; all broker access goes
// through this interface. New brokers are added by registering a new
// implementation, never by extending an existing one.
type BrokerAdapter interface {
	// ValidateCredentials performs a side-effect-free check of the given
	// credentials against the broker backend. Invalid credentials return
	// (false, nil); an error is returned only for transport failure.
	ValidateCredentials(ctx context.Context, creds Credentials) (bool, error)

	// GetAccountInfo returns the current balance snapshot
	GetAccountInfo(ctx context.Context, creds Credentials) (AccountInfo, error)

	// GetPositions returns the full current position snapshot, not a delta
	GetPositions(ctx context.Context, creds Credentials) ([]BrokerPosition, error)

	// GetRecentTrades returns recently executed and pending trades
	GetRecentTrades(ctx context.Context, creds Credentials) ([]BrokerTrade, error)

	// ExecuteOrder submits an order. Business-level rejection is not an
	// error: the adapter returns a trade with status REJECTED and a reason.
	// An error is returned only for transport failure.
	ExecuteOrder(ctx context.Context, creds Credentials, order OrderRequest) (BrokerTrade, error)
}

// AccountStore persists broker account records, including secret material.
// Encryption-at-rest is a property of the store implementation.
type AccountStore interface {
	// Save persists a new account record
	Save(userID string, account BrokerAccount) error

	// Get retrieves an account by id. Returns (nil, nil) when absent.
	Get(userID, accountID string) (*BrokerAccount, error)

	// List returns all accounts for a user
	List(userID string) ([]BrokerAccount, error)

	// Update overwrites the mutable state of an existing account
	Update(userID string, account BrokerAccount) error
}

// LedgerStore persists synced positions and trade history per account
type LedgerStore interface {
	// ReplacePositions replaces the full position snapshot for one account
	ReplacePositions(userID, accountID string, positions []BrokerPosition) error

	// GetPositions returns the last committed snapshot for one account
	GetPositions(userID, accountID string) ([]BrokerPosition, error)

	// UpsertTrade inserts or updates a trade by trade id.
	// Terminal statuses are preserved: an update that would revert a
	// terminal status only refreshes non-status fields.
	UpsertTrade(userID, accountID string, trade BrokerTrade) error

	// GetTrades returns trade history for one account, newest first
	GetTrades(userID, accountID string, limit int) ([]BrokerTrade, error)
}
