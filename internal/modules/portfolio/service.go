package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"

	"brokerhub/internal/broker"
	"brokerhub/internal/domain"
)

// Service assembles the consolidated portfolio view from stored account
// state and ledger snapshots.
type Service struct {
	registry *broker.Registry
	accounts domain.AccountStore
	ledger   domain.LedgerStore
	log      zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(registry *broker.Registry, accounts domain.AccountStore, ledger domain.LedgerStore, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		accounts: accounts,
		ledger:   ledger,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
}

// GetConsolidated builds the cross-broker portfolio for one user.
//
// Only active accounts whose broker adapter is still registered
// contribute. A stale account (failed recent syncs) contributes its last
// committed snapshot; consumers can detect staleness via lastSyncedAt.
// Reads only committed state, so this never fails on broker outages.
func (s *Service) GetConsolidated(userID string) (*ConsolidatedPortfolio, error) {
	all, err := s.accounts.List(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	portfolio := &ConsolidatedPortfolio{
		Positions: []ConsolidatedPosition{},
		Accounts:  []domain.BrokerAccount{},
	}

	var snapshots [][]domain.BrokerPosition
	for _, account := range all {
		if !account.IsActive {
			continue
		}
		if _, err := s.registry.Resolve(account.BrokerID); err != nil {
			// Adapter unregistered since the account was connected; skip
			// rather than fail the whole view
			s.log.Warn().
				Str("account_id", account.AccountID).
				Str("broker_id", account.BrokerID).
				Msg("Skipping account with unregistered broker")
			continue
		}

		positions, err := s.ledger.GetPositions(userID, account.AccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load positions for account %s: %w", account.AccountID, err)
		}

		snapshots = append(snapshots, positions)
		portfolio.TotalValue += account.Balance
		portfolio.Accounts = append(portfolio.Accounts, account.Redacted())
	}

	portfolio.Positions = Consolidate(snapshots)
	for _, p := range portfolio.Positions {
		portfolio.TotalPL += p.UnrealizedPL
	}
	if portfolio.TotalValue > 0 {
		portfolio.TotalPLPercent = portfolio.TotalPL / portfolio.TotalValue * 100
	}

	return portfolio, nil
}

// ListPositions returns the last committed snapshot for one account
func (s *Service) ListPositions(userID, accountID string) ([]domain.BrokerPosition, error) {
	account, err := s.accounts.Get(userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
	}
	return s.ledger.GetPositions(userID, accountID)
}
