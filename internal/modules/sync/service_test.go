package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerhub/internal/broker"
	"brokerhub/internal/domain"
	brokertest "brokerhub/internal/testing"
)

func newTestService(t *testing.T, adapter *brokertest.MockAdapter) (*Service, *brokertest.MockAccountStore, *brokertest.MockLedgerStore) {
	t.Helper()

	log := zerolog.Nop()
	registry := broker.NewRegistry(log)
	if adapter != nil {
		registry.Register("mock", adapter)
	}

	accounts := brokertest.NewMockAccountStore()
	ledger := brokertest.NewMockLedgerStore()

	return NewService(registry, accounts, ledger, log), accounts, ledger
}

func seedAccount(t *testing.T, store *brokertest.MockAccountStore, active bool) domain.BrokerAccount {
	t.Helper()

	account := domain.BrokerAccount{
		AccountID:   "acct-1",
		UserID:      "user-1",
		BrokerID:    "mock",
		DisplayName: "Test Account",
		IsActive:    active,
		Credentials: domain.Credentials{APIKey: "key", APISecret: "secret"},
	}
	require.NoError(t, store.Save("user-1", account))
	return account
}

func TestSyncFullSuccess(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		Info: domain.AccountInfo{Balance: 50000, BuyingPower: 100000},
		Positions: []domain.BrokerPosition{
			domain.NewBrokerPosition("AAPL", 10, 150, 170),
		},
		Trades: []domain.BrokerTrade{
			{TradeID: "t-1", Symbol: "AAPL", Side: domain.TradeSideBuy, Quantity: 10, Price: 150, Status: domain.TradeStatusFilled, Timestamp: time.Now()},
		},
	}
	svc, accounts, ledger := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	err := svc.Sync(context.Background(), "user-1", "acct-1")
	require.NoError(t, err)

	account, err := accounts.Get("user-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, account.Balance)
	assert.Equal(t, 100000.0, account.BuyingPower)
	require.NotNil(t, account.LastSyncedAt)

	positions, err := ledger.GetPositions("user-1", "acct-1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)

	trades, err := ledger.GetTrades("user-1", "acct-1", 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "acct-1", trades[0].AccountID)
}

func TestSyncTwiceIsIdempotent(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		Info: domain.AccountInfo{Balance: 50000, BuyingPower: 100000},
		Positions: []domain.BrokerPosition{
			domain.NewBrokerPosition("AAPL", 10, 150, 170),
			domain.NewBrokerPosition("MSFT", 5, 380, 400),
		},
		Trades: []domain.BrokerTrade{
			{TradeID: "t-1", Symbol: "AAPL", Side: domain.TradeSideBuy, Quantity: 10, Price: 150, Status: domain.TradeStatusFilled, Timestamp: time.Now()},
		},
	}
	svc, accounts, ledger := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	require.NoError(t, svc.Sync(context.Background(), "user-1", "acct-1"))

	firstPositions, err := ledger.GetPositions("user-1", "acct-1")
	require.NoError(t, err)
	firstTrades, err := ledger.GetTrades("user-1", "acct-1", 0)
	require.NoError(t, err)
	firstAccount, err := accounts.Get("user-1", "acct-1")
	require.NoError(t, err)

	// Resync with unchanged broker state must not double anything
	require.NoError(t, svc.Sync(context.Background(), "user-1", "acct-1"))

	positions, err := ledger.GetPositions("user-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, firstPositions, positions)

	trades, err := ledger.GetTrades("user-1", "acct-1", 0)
	require.NoError(t, err)
	assert.Equal(t, firstTrades, trades)

	account, err := accounts.Get("user-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, firstAccount.Balance, account.Balance)
	assert.Equal(t, firstAccount.BuyingPower, account.BuyingPower)
}

func TestSyncUnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(t, &brokertest.MockAdapter{})

	err := svc.Sync(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSyncInactiveAccount(t *testing.T) {
	adapter := &brokertest.MockAdapter{}
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, false)

	err := svc.Sync(context.Background(), "user-1", "acct-1")
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
	assert.Equal(t, 0, adapter.InfoCallCount())
}

func TestSyncUnregisteredAdapter(t *testing.T) {
	svc, accounts, _ := newTestService(t, nil)

	account := domain.BrokerAccount{
		AccountID: "acct-1",
		UserID:    "user-1",
		BrokerID:  "gone",
		IsActive:  true,
	}
	require.NoError(t, accounts.Save("user-1", account))

	err := svc.Sync(context.Background(), "user-1", "acct-1")
	assert.ErrorIs(t, err, domain.ErrUnsupportedBroker)
}

func TestSyncPartialPositionsFail(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		Info:         domain.AccountInfo{Balance: 25000, BuyingPower: 50000},
		PositionsErr: errors.New("positions endpoint down"),
		Trades: []domain.BrokerTrade{
			{TradeID: "t-1", Symbol: "MSFT", Side: domain.TradeSideBuy, Quantity: 5, Price: 400, Status: domain.TradeStatusFilled, Timestamp: time.Now()},
		},
	}
	svc, accounts, ledger := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	err := svc.Sync(context.Background(), "user-1", "acct-1")

	var partial *domain.PartialSyncError
	require.ErrorAs(t, err, &partial)
	assert.True(t, partial.FailedFetch(domain.SyncFetchPositions))
	assert.False(t, partial.FailedFetch(domain.SyncFetchAccountInfo))
	assert.False(t, partial.FailedFetch(domain.SyncFetchTrades))
	assert.ErrorIs(t, err, domain.ErrAdapterUnavailable)

	// Balance and trades were still committed
	account, err := accounts.Get("user-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 25000.0, account.Balance)
	require.NotNil(t, account.LastSyncedAt)

	trades, err := ledger.GetTrades("user-1", "acct-1", 0)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestSyncPartialKeepsStalePositions(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		Info: domain.AccountInfo{Balance: 10000},
		Positions: []domain.BrokerPosition{
			domain.NewBrokerPosition("TSLA", 3, 200, 250),
		},
	}
	svc, accounts, ledger := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	require.NoError(t, svc.Sync(context.Background(), "user-1", "acct-1"))

	// Second sync fails to fetch positions; the prior snapshot survives
	adapter.PositionsErr = errors.New("timeout")

	err := svc.Sync(context.Background(), "user-1", "acct-1")
	var partial *domain.PartialSyncError
	require.ErrorAs(t, err, &partial)

	positions, err := ledger.GetPositions("user-1", "acct-1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "TSLA", positions[0].Symbol)
}

func TestSyncAllFetchesFail(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		InfoErr:      errors.New("down"),
		PositionsErr: errors.New("down"),
		TradesErr:    errors.New("down"),
	}
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	err := svc.Sync(context.Background(), "user-1", "acct-1")
	require.Error(t, err)

	var partial *domain.PartialSyncError
	assert.False(t, errors.As(err, &partial), "total failure is not a partial sync")
	assert.ErrorIs(t, err, domain.ErrAdapterUnavailable)

	// lastSyncedAt is untouched when nothing was committed
	account, getErr := accounts.Get("user-1", "acct-1")
	require.NoError(t, getErr)
	assert.Nil(t, account.LastSyncedAt)
}

func TestSyncDeactivatesAfterRepeatedValidationFailure(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		ValidateResult: false,
		InfoErr:        errors.New("401 unauthorized"),
		PositionsErr:   errors.New("401 unauthorized"),
		TradesErr:      errors.New("401 unauthorized"),
	}
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	for i := 0; i < validationFailureLimit; i++ {
		err := svc.Sync(context.Background(), "user-1", "acct-1")
		require.ErrorIs(t, err, domain.ErrAdapterUnavailable)
	}

	account, err := accounts.Get("user-1", "acct-1")
	require.NoError(t, err)
	assert.False(t, account.IsActive, "account should be deactivated, not deleted")

	err = svc.Sync(context.Background(), "user-1", "acct-1")
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestSyncBrokerOutageDoesNotDeactivate(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		ValidateErr:  errors.New("connection refused"),
		InfoErr:      errors.New("connection refused"),
		PositionsErr: errors.New("connection refused"),
		TradesErr:    errors.New("connection refused"),
	}
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	for i := 0; i < validationFailureLimit+1; i++ {
		require.Error(t, svc.Sync(context.Background(), "user-1", "acct-1"))
	}

	account, err := accounts.Get("user-1", "acct-1")
	require.NoError(t, err)
	assert.True(t, account.IsActive, "an outage is not a credential failure")
}

func TestSyncSuccessResetsValidationFailures(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		ValidateResult: false,
		InfoErr:        errors.New("401 unauthorized"),
		PositionsErr:   errors.New("401 unauthorized"),
		TradesErr:      errors.New("401 unauthorized"),
	}
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	for i := 0; i < validationFailureLimit-1; i++ {
		require.Error(t, svc.Sync(context.Background(), "user-1", "acct-1"))
	}

	// A successful sync clears the streak
	adapter.InfoErr = nil
	adapter.PositionsErr = nil
	adapter.TradesErr = nil
	require.NoError(t, svc.Sync(context.Background(), "user-1", "acct-1"))

	adapter.InfoErr = errors.New("401 unauthorized")
	adapter.PositionsErr = errors.New("401 unauthorized")
	adapter.TradesErr = errors.New("401 unauthorized")
	for i := 0; i < validationFailureLimit-1; i++ {
		require.Error(t, svc.Sync(context.Background(), "user-1", "acct-1"))
	}

	account, err := accounts.Get("user-1", "acct-1")
	require.NoError(t, err)
	assert.True(t, account.IsActive)
}

func TestSyncBalanceUntouchedWhenInfoFails(t *testing.T) {
	adapter := &brokertest.MockAdapter{
		InfoErr:   errors.New("auth rotated"),
		Positions: []domain.BrokerPosition{},
		Trades:    []domain.BrokerTrade{},
	}
	svc, accounts, _ := newTestService(t, adapter)
	account := seedAccount(t, accounts, true)
	account.Balance = 7777
	require.NoError(t, accounts.Update("user-1", account))

	err := svc.Sync(context.Background(), "user-1", "acct-1")
	var partial *domain.PartialSyncError
	require.ErrorAs(t, err, &partial)

	got, err := accounts.Get("user-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 7777.0, got.Balance)
	require.NotNil(t, got.LastSyncedAt)
}

func TestSyncSameAccountSerialized(t *testing.T) {
	var inFlight, maxInFlight int
	var mu stdsync.Mutex

	adapter := &brokertest.MockAdapter{
		Info: domain.AccountInfo{Balance: 1},
		InfoFn: func() {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
		},
	}
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	var wg stdsync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Sync(context.Background(), "user-1", "acct-1")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxInFlight, "same-account syncs must not overlap")
	assert.Equal(t, 4, adapter.InfoCallCount())
}
