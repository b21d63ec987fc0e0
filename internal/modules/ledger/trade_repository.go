package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"brokerhub/internal/domain"
)

// TradeRepository handles trade database operations.
// Trades are upserted by trade id; terminal statuses never revert.
type TradeRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// tradeColumns is the list of columns for the trades table.
// Column order must match scanTrade.
const tradeColumns = `trade_id, account_id, symbol, side, quantity, price,
	order_type, status, reason, client_order_id, executed_at`

// NewTradeRepository creates a new trade repository
func NewTradeRepository(ledgerDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "trades").Logger(),
	}
}

// Upsert inserts a trade or updates it by trade id.
// When an update carries a status the existing one cannot transition to
// (terminal states never revert), the stored status and reason are kept
// and only the remaining fields are refreshed.
func (r *TradeRepository) Upsert(userID, accountID string, trade domain.BrokerTrade) error {
	existing, err := r.getStatus(userID, accountID, trade.TradeID)
	if err != nil {
		return err
	}

	now := time.Now().Unix()

	if existing == nil {
		query := `
			INSERT INTO trades
			(trade_id, user_id, account_id, symbol, side, quantity, price,
			 order_type, status, reason, client_order_id, executed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.ledgerDB.Exec(query,
			trade.TradeID, userID, accountID, trade.Symbol, string(trade.Side),
			trade.Quantity, trade.Price, string(trade.OrderType), string(trade.Status),
			nullString(trade.Reason), nullString(trade.ClientOrderID),
			trade.Timestamp.Unix(), now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}

		r.log.Info().
			Str("trade_id", trade.TradeID).
			Str("symbol", trade.Symbol).
			Str("status", string(trade.Status)).
			Msg("Trade recorded")
		return nil
	}

	status := trade.Status
	reason := trade.Reason
	if !existing.CanTransitionTo(status) {
		// Keep the stored terminal status
		status = *existing
		reason = ""
	}

	query := `
		UPDATE trades
		SET symbol = ?, side = ?, quantity = ?, price = ?, order_type = ?,
		    status = ?, reason = COALESCE(?, reason), client_order_id = ?,
		    executed_at = ?, updated_at = ?
		WHERE user_id = ? AND account_id = ? AND trade_id = ?
	`
	_, err = r.ledgerDB.Exec(query,
		trade.Symbol, string(trade.Side), trade.Quantity, trade.Price,
		string(trade.OrderType), string(status), nullString(reason),
		nullString(trade.ClientOrderID), trade.Timestamp.Unix(), now,
		userID, accountID, trade.TradeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	return nil
}

// Get returns trade history for one account, newest first.
// limit <= 0 means no limit.
func (r *TradeRepository) Get(userID, accountID string, limit int) ([]domain.BrokerTrade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE user_id = ? AND account_id = ? ORDER BY executed_at DESC, trade_id DESC"
	args := []interface{}{userID, accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.ledgerDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.BrokerTrade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// getStatus returns the stored status for a trade within one account, or
// nil when absent. Broker trade ids are only unique per account, so the
// lookup is scoped to avoid merging records across users or accounts.
func (r *TradeRepository) getStatus(userID, accountID, tradeID string) (*domain.TradeStatus, error) {
	var status string
	err := r.ledgerDB.QueryRow(
		"SELECT status FROM trades WHERE user_id = ? AND account_id = ? AND trade_id = ?",
		userID, accountID, tradeID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check existing trade: %w", err)
	}
	s := domain.TradeStatus(status)
	return &s, nil
}

// scanTrade reads one trades row in tradeColumns order
func scanTrade(rows *sql.Rows) (domain.BrokerTrade, error) {
	var (
		trade      domain.BrokerTrade
		side       string
		orderType  string
		status     string
		reason     sql.NullString
		clientOID  sql.NullString
		executedAt int64
	)

	err := rows.Scan(
		&trade.TradeID, &trade.AccountID, &trade.Symbol, &side,
		&trade.Quantity, &trade.Price, &orderType, &status,
		&reason, &clientOID, &executedAt,
	)
	if err != nil {
		return domain.BrokerTrade{}, err
	}

	trade.Side = domain.TradeSide(side)
	trade.OrderType = domain.OrderType(orderType)
	trade.Status = domain.TradeStatus(status)
	trade.Reason = reason.String
	trade.ClientOrderID = clientOID.String
	trade.Timestamp = time.Unix(executedAt, 0).UTC()

	return trade, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
