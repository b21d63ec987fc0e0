package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"brokerhub/internal/domain"
)

// syncTimeout bounds one account's refresh within the periodic cycle
const syncTimeout = 2 * time.Minute

// AccountLister enumerates the accounts the periodic sync covers
type AccountLister interface {
	ListAllActive() ([]domain.BrokerAccount, error)
}

// Syncer refreshes one account from its broker
type Syncer interface {
	Sync(ctx context.Context, userID, accountID string) error
}

// SyncAllJob refreshes every active account on a schedule. Accounts fail
// independently: one broker being down never blocks the others.
type SyncAllJob struct {
	accounts AccountLister
	syncer   Syncer
	log      zerolog.Logger
}

// NewSyncAllJob creates the periodic sync job
func NewSyncAllJob(accounts AccountLister, syncer Syncer, log zerolog.Logger) *SyncAllJob {
	return &SyncAllJob{
		accounts: accounts,
		syncer:   syncer,
		log:      log.With().Str("job", "sync_all").Logger(),
	}
}

// Name implements Job
func (j *SyncAllJob) Name() string { return "sync_all" }

// Run implements Job. Partial syncs count as success here; the data that
// could be fetched was committed and the next cycle retries the rest.
func (j *SyncAllJob) Run() error {
	accounts, err := j.accounts.ListAllActive()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for _, account := range accounts {
		wg.Add(1)
		go func(account domain.BrokerAccount) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
			defer cancel()

			err := j.syncer.Sync(ctx, account.UserID, account.AccountID)

			var partial *domain.PartialSyncError
			switch {
			case err == nil:
			case errors.As(err, &partial):
				j.log.Warn().
					Str("account_id", account.AccountID).
					Strs("failed", partial.Failed).
					Msg("Periodic sync partial")
			default:
				j.log.Error().Err(err).
					Str("account_id", account.AccountID).
					Msg("Periodic sync failed")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(account)
	}
	wg.Wait()

	j.log.Info().
		Int("accounts", len(accounts)).
		Int("failed", failed).
		Msg("Sync cycle complete")

	if failed == len(accounts) {
		return fmt.Errorf("all %d account syncs failed", failed)
	}
	return nil
}
