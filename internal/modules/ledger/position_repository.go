// Package ledger persists synced positions and trade history per account.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"brokerhub/internal/database"
	"brokerhub/internal/domain"
)

// PositionRepository handles position snapshot database operations.
// Positions are replaced wholesale per account on every successful sync:
// the new snapshot fully supersedes the old one.
type PositionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// positionColumns is the list of columns for the positions table.
// Column order must match scanPosition.
const positionColumns = `account_id, symbol, quantity, avg_price, current_price,
	market_value, unrealized_pl, unrealized_pl_percent`

// NewPositionRepository creates a new position repository
func NewPositionRepository(ledgerDB *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "positions").Logger(),
	}
}

// Replace atomically swaps the position snapshot for one account.
// Zero-quantity positions are dropped: closed positions do not persist
// as zero-rows.
func (r *PositionRepository) Replace(userID, accountID string, positions []domain.BrokerPosition) error {
	now := time.Now().Unix()

	err := database.WithTransaction(r.ledgerDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"DELETE FROM positions WHERE user_id = ? AND account_id = ?",
			userID, accountID,
		); err != nil {
			return fmt.Errorf("failed to clear previous snapshot: %w", err)
		}

		insert := `
			INSERT INTO positions
			(user_id, account_id, symbol, quantity, avg_price, current_price,
			 market_value, unrealized_pl, unrealized_pl_percent, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, p := range positions {
			if p.Quantity == 0 {
				continue
			}
			if _, err := tx.Exec(insert,
				userID, accountID, p.Symbol, p.Quantity, p.AvgPrice,
				p.CurrentPrice, p.MarketValue, p.UnrealizedPL,
				p.UnrealizedPLPercent, now,
			); err != nil {
				return fmt.Errorf("failed to insert position %s: %w", p.Symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().
		Str("account_id", accountID).
		Int("positions", len(positions)).
		Msg("Position snapshot replaced")

	return nil
}

// Get returns the last committed snapshot for one account, ordered by symbol
func (r *PositionRepository) Get(userID, accountID string) ([]domain.BrokerPosition, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE user_id = ? AND account_id = ? ORDER BY symbol"

	rows, err := r.ledgerDB.Query(query, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.BrokerPosition
	for rows.Next() {
		var p domain.BrokerPosition
		if err := rows.Scan(
			&p.AccountID, &p.Symbol, &p.Quantity, &p.AvgPrice, &p.CurrentPrice,
			&p.MarketValue, &p.UnrealizedPL, &p.UnrealizedPLPercent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
