// Package sync refreshes broker account state (balance, positions, trades)
// from the broker backends into the ledger store.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"brokerhub/internal/broker"
	"brokerhub/internal/domain"
)

// Service is the sync orchestrator. It refreshes one account at a time
// from its adapter and writes the results to the ledger store.
//
// The three sub-fetches (account info, positions, trades) are independent:
// a failure in one does not discard successfully fetched data from the
// others. Partial syncs are committed and reported via
// domain.PartialSyncError rather than aborted.
type Service struct {
	registry *broker.Registry
	accounts domain.AccountStore
	ledger   domain.LedgerStore
	log      zerolog.Logger

	// Per-account locks: concurrent syncs of the same account are
	// serialized to avoid interleaved partial writes. Different accounts
	// sync concurrently.
	mu       stdsync.Mutex
	locks    map[string]*stdsync.Mutex
	failures map[string]int // consecutive credential validation failures
}

// validationFailureLimit is the number of consecutive syncs confirmed as
// credential failures before an account is deactivated.
const validationFailureLimit = 3

// NewService creates a new sync orchestrator
func NewService(registry *broker.Registry, accounts domain.AccountStore, ledger domain.LedgerStore, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		accounts: accounts,
		ledger:   ledger,
		log:      log.With().Str("service", "sync").Logger(),
		locks:    make(map[string]*stdsync.Mutex),
		failures: make(map[string]int),
	}
}

// accountLock returns the mutex serializing syncs for one account
func (s *Service) accountLock(accountID string) *stdsync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[accountID]
	if !ok {
		lock = &stdsync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}

// Sync refreshes one account's balance, positions and trades.
//
// Returns nil on a full sync, *domain.PartialSyncError when some
// sub-fetches failed but others were committed, and a plain error when
// nothing could be fetched or the account/adapter could not be resolved.
func (s *Service) Sync(ctx context.Context, userID, accountID string) error {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	account, err := s.accounts.Get(userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
	}
	if !account.IsActive {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrAccountInactive)
	}

	adapter, err := s.registry.Resolve(account.BrokerID)
	if err != nil {
		// Adapter unregistered since account creation
		return err
	}

	var (
		failed []string
		causes []error
	)

	// Sub-fetch 1: account info
	info, err := adapter.GetAccountInfo(ctx, account.Credentials)
	infoOK := err == nil
	if err != nil {
		failed = append(failed, domain.SyncFetchAccountInfo)
		causes = append(causes, transportErr("fetch account info", err))
	}

	// Sub-fetch 2: positions (full snapshot replace)
	positions, err := adapter.GetPositions(ctx, account.Credentials)
	positionsOK := err == nil
	if err != nil {
		failed = append(failed, domain.SyncFetchPositions)
		causes = append(causes, transportErr("fetch positions", err))
	} else if err := s.ledger.ReplacePositions(userID, accountID, positions); err != nil {
		positionsOK = false
		failed = append(failed, domain.SyncFetchPositions)
		causes = append(causes, fmt.Errorf("persist positions: %w", err))
	}

	// Sub-fetch 3: trades (upsert by trade id)
	trades, err := adapter.GetRecentTrades(ctx, account.Credentials)
	tradesOK := err == nil
	if err != nil {
		failed = append(failed, domain.SyncFetchTrades)
		causes = append(causes, transportErr("fetch trades", err))
	} else {
		for _, trade := range trades {
			trade.AccountID = accountID
			if err := s.ledger.UpsertTrade(userID, accountID, trade); err != nil {
				tradesOK = false
				failed = append(failed, domain.SyncFetchTrades)
				causes = append(causes, fmt.Errorf("persist trade %s: %w", trade.TradeID, err))
				break
			}
		}
	}

	if !infoOK && !positionsOK && !tradesOK {
		// Nothing committed; existing persisted state is untouched
		s.log.Error().
			Str("account_id", accountID).
			Errs("causes", causes).
			Msg("Sync failed for all sub-fetches")
		s.recordTotalFailure(ctx, adapter, userID, account)
		return fmt.Errorf("sync account %s: %w", accountID, causes[0])
	}
	s.clearFailures(accountID)

	// Commit account-level state for the sub-fetches that succeeded
	now := time.Now().UTC()
	if infoOK {
		account.Balance = info.Balance
		account.BuyingPower = info.BuyingPower
	}
	account.LastSyncedAt = &now
	if err := s.accounts.Update(userID, *account); err != nil {
		return fmt.Errorf("failed to update account after sync: %w", err)
	}

	if len(failed) > 0 {
		s.log.Warn().
			Str("account_id", accountID).
			Strs("failed", failed).
			Msg("Partial sync committed")
		return &domain.PartialSyncError{
			AccountID: accountID,
			Failed:    failed,
			Causes:    causes,
		}
	}

	s.log.Info().
		Str("account_id", accountID).
		Int("positions", len(positions)).
		Int("trades", len(trades)).
		Msg("Account synced")

	return nil
}

// recordTotalFailure handles a sync where every sub-fetch failed. The
// credentials are re-validated to distinguish revoked keys from a broker
// outage: only confirmed validation failures count toward deactivation,
// and after validationFailureLimit consecutive ones the account is
// deactivated rather than deleted.
func (s *Service) recordTotalFailure(ctx context.Context, adapter domain.BrokerAdapter, userID string, account *domain.BrokerAccount) {
	ok, err := adapter.ValidateCredentials(ctx, account.Credentials)
	if err != nil || ok {
		// Broker unreachable or credentials still valid; treat as
		// transient and leave the account alone
		s.clearFailures(account.AccountID)
		return
	}

	s.mu.Lock()
	s.failures[account.AccountID]++
	count := s.failures[account.AccountID]
	s.mu.Unlock()

	if count < validationFailureLimit {
		s.log.Warn().
			Str("account_id", account.AccountID).
			Int("consecutive_failures", count).
			Msg("Credential validation failed during sync")
		return
	}

	account.IsActive = false
	if err := s.accounts.Update(userID, *account); err != nil {
		s.log.Error().Err(err).
			Str("account_id", account.AccountID).
			Msg("Failed to deactivate account after repeated validation failures")
		return
	}
	s.clearFailures(account.AccountID)
	s.log.Warn().
		Str("account_id", account.AccountID).
		Msg("Account deactivated after repeated credential validation failures")
}

// clearFailures resets the consecutive failure count for an account
func (s *Service) clearFailures(accountID string) {
	s.mu.Lock()
	delete(s.failures, accountID)
	s.mu.Unlock()
}

// transportErr translates an adapter failure into the error taxonomy,
// preserving the original message.
func transportErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrAdapterUnavailable)
}
