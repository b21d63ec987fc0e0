// Package accounts provides broker account onboarding and persistence.
package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"brokerhub/internal/domain"
)

// Repository handles broker account database operations.
// Credential material is stored as an opaque msgpack-encoded blob in the
// credentials column and is never logged.
type Repository struct {
	accountsDB *sql.DB
	log        zerolog.Logger
}

// accountColumns is the list of columns for the broker_accounts table.
// Column order must match the scan helpers below.
const accountColumns = `account_id, user_id, broker_id, external_account_id, display_name,
	is_active, balance, buying_power, last_synced_at, credentials, created_at, updated_at`

// NewRepository creates a new account repository
func NewRepository(accountsDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		accountsDB: accountsDB,
		log:        log.With().Str("repo", "accounts").Logger(),
	}
}

// Compile-time check that Repository implements domain.AccountStore
var _ domain.AccountStore = (*Repository)(nil)

// Save persists a new broker account record
func (r *Repository) Save(userID string, account domain.BrokerAccount) error {
	credBlob, err := msgpack.Marshal(account.Credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	now := time.Now().Unix()

	query := `
		INSERT INTO broker_accounts
		(account_id, user_id, broker_id, external_account_id, display_name,
		 is_active, balance, buying_power, last_synced_at, credentials, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.accountsDB.Exec(query,
		account.AccountID,
		userID,
		account.BrokerID,
		account.ExternalAccountID,
		account.DisplayName,
		boolToInt(account.IsActive),
		account.Balance,
		account.BuyingPower,
		nullUnix(account.LastSyncedAt),
		credBlob,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	r.log.Info().
		Str("account_id", account.AccountID).
		Str("broker_id", account.BrokerID).
		Msg("Broker account saved")

	return nil
}

// Get retrieves an account by id. Returns (nil, nil) when absent.
func (r *Repository) Get(userID, accountID string) (*domain.BrokerAccount, error) {
	query := "SELECT " + accountColumns + " FROM broker_accounts WHERE user_id = ? AND account_id = ?"

	row := r.accountsDB.QueryRow(query, userID, accountID)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// List returns all accounts for a user, oldest first
func (r *Repository) List(userID string) ([]domain.BrokerAccount, error) {
	query := "SELECT " + accountColumns + " FROM broker_accounts WHERE user_id = ? ORDER BY created_at, account_id"

	rows, err := r.accountsDB.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.BrokerAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// ListAllActive returns every active account across all users, used by
// the periodic sync job.
func (r *Repository) ListAllActive() ([]domain.BrokerAccount, error) {
	query := "SELECT " + accountColumns + " FROM broker_accounts WHERE is_active = 1 ORDER BY user_id, created_at, account_id"

	rows, err := r.accountsDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.BrokerAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// Update overwrites the mutable state of an existing account
// (balance, buying power, sync timestamp, active flag, display name).
// Credentials are re-encoded as well so credential rotation persists.
func (r *Repository) Update(userID string, account domain.BrokerAccount) error {
	credBlob, err := msgpack.Marshal(account.Credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	query := `
		UPDATE broker_accounts
		SET display_name = ?, is_active = ?, balance = ?, buying_power = ?,
		    last_synced_at = ?, credentials = ?, updated_at = ?
		WHERE user_id = ? AND account_id = ?
	`

	result, err := r.accountsDB.Exec(query,
		account.DisplayName,
		boolToInt(account.IsActive),
		account.Balance,
		account.BuyingPower,
		nullUnix(account.LastSyncedAt),
		credBlob,
		time.Now().Unix(),
		userID,
		account.AccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %s: %w", account.AccountID, domain.ErrAccountNotFound)
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows for the scan helper
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanAccount reads one broker_accounts row in accountColumns order
func scanAccount(row scanner) (domain.BrokerAccount, error) {
	var (
		account    domain.BrokerAccount
		isActive   int
		lastSynced sql.NullInt64
		credBlob   []byte
		createdAt  int64
		updatedAt  int64
	)

	err := row.Scan(
		&account.AccountID,
		&account.UserID,
		&account.BrokerID,
		&account.ExternalAccountID,
		&account.DisplayName,
		&isActive,
		&account.Balance,
		&account.BuyingPower,
		&lastSynced,
		&credBlob,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.BrokerAccount{}, err
	}

	account.IsActive = isActive != 0
	if lastSynced.Valid {
		t := time.Unix(lastSynced.Int64, 0).UTC()
		account.LastSyncedAt = &t
	}
	account.CreatedAt = time.Unix(createdAt, 0).UTC()
	account.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if err := msgpack.Unmarshal(credBlob, &account.Credentials); err != nil {
		return domain.BrokerAccount{}, fmt.Errorf("failed to decode credentials: %w", err)
	}

	return account, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
