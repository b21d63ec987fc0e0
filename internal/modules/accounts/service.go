package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brokerhub/internal/broker"
	"brokerhub/internal/domain"
)

// Syncer triggers a sync for one account.
// Implemented by the sync module; defined here to avoid a dependency on it.
type Syncer interface {
	Sync(ctx context.Context, userID, accountID string) error
}

// ConnectRequest holds the parameters for onboarding a broker account
type ConnectRequest struct {
	BrokerID          string `json:"broker_id"`
	APIKey            string `json:"api_key"`
	APISecret         string `json:"api_secret"`
	ExternalAccountID string `json:"external_account_id"`
	DisplayName       string `json:"display_name"`
}

// Service onboards broker accounts: it validates credentials via the
// adapter, persists the account record, and triggers an initial sync.
type Service struct {
	registry *broker.Registry
	store    domain.AccountStore
	syncer   Syncer
	log      zerolog.Logger
}

// NewService creates a new account service
func NewService(registry *broker.Registry, store domain.AccountStore, syncer Syncer, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		store:    store,
		syncer:   syncer,
		log:      log.With().Str("service", "accounts").Logger(),
	}
}

// Connect onboards a new broker account for a user.
//
// The account is only persisted after the adapter has confirmed the
// credentials. A failed initial sync does not roll back creation; the
// account exists unsynced and is retryable later.
func (s *Service) Connect(ctx context.Context, userID string, req ConnectRequest) (*domain.BrokerAccount, error) {
	adapter, err := s.registry.Resolve(req.BrokerID)
	if err != nil {
		return nil, err
	}

	creds := domain.Credentials{
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
	}

	valid, err := adapter.ValidateCredentials(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("validating credentials for broker %s: %w", req.BrokerID, domain.ErrAdapterUnavailable)
	}
	if !valid {
		return nil, fmt.Errorf("broker %s: %w", req.BrokerID, domain.ErrInvalidCredentials)
	}

	now := time.Now().UTC()
	account := domain.BrokerAccount{
		AccountID:         uuid.NewString(),
		UserID:            userID,
		BrokerID:          req.BrokerID,
		ExternalAccountID: req.ExternalAccountID,
		DisplayName:       req.DisplayName,
		IsActive:          true,
		Balance:           0,
		BuyingPower:       0,
		LastSyncedAt:      nil,
		Credentials:       creds,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.Save(userID, account); err != nil {
		return nil, fmt.Errorf("failed to persist account: %w", err)
	}

	s.log.Info().
		Str("account_id", account.AccountID).
		Str("broker_id", account.BrokerID).
		Msg("Broker account connected")

	// Initial sync. Failure here leaves the account unsynced but created.
	if s.syncer != nil {
		if err := s.syncer.Sync(ctx, userID, account.AccountID); err != nil {
			s.log.Warn().
				Err(err).
				Str("account_id", account.AccountID).
				Msg("Initial sync failed, account created unsynced")
		}
	}

	// Return current state (initial sync may have updated balances)
	current, err := s.store.Get(userID, account.AccountID)
	if err != nil || current == nil {
		return &account, nil
	}
	return current, nil
}

// List returns all broker accounts for a user with credentials redacted
func (s *Service) List(userID string) ([]domain.BrokerAccount, error) {
	accounts, err := s.store.List(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	for i := range accounts {
		accounts[i] = accounts[i].Redacted()
	}
	return accounts, nil
}

// Deactivate marks an account inactive after repeated validation failure.
// The record is kept: deletion is a separate, user-initiated operation.
func (s *Service) Deactivate(userID, accountID string) error {
	account, err := s.store.Get(userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
	}

	account.IsActive = false
	if err := s.store.Update(userID, *account); err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	s.log.Info().Str("account_id", accountID).Msg("Broker account deactivated")
	return nil
}
