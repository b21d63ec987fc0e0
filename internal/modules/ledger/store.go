package ledger

import (
	"database/sql"

	"github.com/rs/zerolog"

	"brokerhub/internal/domain"
)

// Store combines the position and trade repositories behind the
// domain.LedgerStore contract consumed by the sync and trading services.
type Store struct {
	Positions *PositionRepository
	Trades    *TradeRepository
}

// NewStore creates a ledger store backed by ledger.db
func NewStore(ledgerDB *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		Positions: NewPositionRepository(ledgerDB, log),
		Trades:    NewTradeRepository(ledgerDB, log),
	}
}

// Compile-time check that Store implements domain.LedgerStore
var _ domain.LedgerStore = (*Store)(nil)

// ReplacePositions implements domain.LedgerStore
func (s *Store) ReplacePositions(userID, accountID string, positions []domain.BrokerPosition) error {
	return s.Positions.Replace(userID, accountID, positions)
}

// GetPositions implements domain.LedgerStore
func (s *Store) GetPositions(userID, accountID string) ([]domain.BrokerPosition, error) {
	return s.Positions.Get(userID, accountID)
}

// UpsertTrade implements domain.LedgerStore
func (s *Store) UpsertTrade(userID, accountID string, trade domain.BrokerTrade) error {
	return s.Trades.Upsert(userID, accountID, trade)
}

// GetTrades implements domain.LedgerStore
func (s *Store) GetTrades(userID, accountID string, limit int) ([]domain.BrokerTrade, error) {
	return s.Trades.Get(userID, accountID, limit)
}
