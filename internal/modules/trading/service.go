// Package trading routes validated orders to the owning account's broker
// adapter and records the outcome in the trade ledger.
package trading

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brokerhub/internal/broker"
	"brokerhub/internal/domain"
)

// Service is the trade router. It performs no order management of its
// own: the adapter's answer is authoritative and is persisted verbatim,
// including rejections.
type Service struct {
	registry *broker.Registry
	accounts domain.AccountStore
	ledger   domain.LedgerStore
	log      zerolog.Logger
}

// NewService creates a new trade router
func NewService(registry *broker.Registry, accounts domain.AccountStore, ledger domain.LedgerStore, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		accounts: accounts,
		ledger:   ledger,
		log:      log.With().Str("service", "trading").Logger(),
	}
}

// ExecuteOrder validates the order, dispatches it to the account's
// adapter and persists the resulting trade.
//
// A broker-side rejection comes back as a trade with status REJECTED and
// a nil error. Transport failures surface as ErrAdapterUnavailable; no
// automatic retry is attempted. Callers wanting retry safety supply a
// ClientOrderID and resubmit with the same value.
func (s *Service) ExecuteOrder(ctx context.Context, userID, accountID string, order domain.OrderRequest) (*domain.BrokerTrade, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.Get(userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrAccountInactive)
	}

	adapter, err := s.registry.Resolve(account.BrokerID)
	if err != nil {
		return nil, err
	}

	trade, err := adapter.ExecuteOrder(ctx, account.Credentials, order)
	if err != nil {
		return nil, fmt.Errorf("order dispatch for %s: %v: %w", order.Symbol, err, domain.ErrAdapterUnavailable)
	}

	trade.AccountID = accountID
	if trade.TradeID == "" {
		trade.TradeID = uuid.NewString()
	}
	if err := s.ledger.UpsertTrade(userID, accountID, trade); err != nil {
		// The broker accepted the order; surfacing the persistence
		// failure without the trade would hide a live order
		s.log.Error().Err(err).
			Str("trade_id", trade.TradeID).
			Str("account_id", accountID).
			Msg("Failed to persist executed trade")
		return &trade, fmt.Errorf("failed to persist trade %s: %w", trade.TradeID, err)
	}

	s.log.Info().
		Str("trade_id", trade.TradeID).
		Str("account_id", accountID).
		Str("symbol", trade.Symbol).
		Str("status", string(trade.Status)).
		Msg("Order routed")

	return &trade, nil
}

// ListTrades returns the most recent trades for one account, newest
// first. A zero limit returns everything.
func (s *Service) ListTrades(userID, accountID string, limit int) ([]domain.BrokerTrade, error) {
	account, err := s.accounts.Get(userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
	}
	return s.ledger.GetTrades(userID, accountID, limit)
}
