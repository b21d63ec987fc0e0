package trading

import (
	"context"
	"errors"
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

func seedAccount(t *testing.T, store *brokertest.MockAccountStore, active bool) {
	t.Helper()
	require.NoError(t, store.Save("user-1", domain.BrokerAccount{
		AccountID:   "acct-1",
		UserID:      "user-1",
		BrokerID:    "mock",
		IsActive:    active,
		Credentials: domain.Credentials{APIKey: "key", APISecret: "secret"},
	}))
}

func marketBuy(symbol string, qty float64) domain.OrderRequest {
	return domain.OrderRequest{
		Symbol:    symbol,
		Side:      domain.TradeSideBuy,
		OrderType: domain.OrderTypeMarket,
		Quantity:  qty,
	}
}

func TestExecuteOrderFilled(t *testing.T) {
	adapter := brokertest.NewMockAdapter()
	adapter.ExecuteFn = func(order domain.OrderRequest) (domain.BrokerTrade, error) {
		return domain.BrokerTrade{
			TradeID:   "broker-trade-1",
			Symbol:    order.Symbol,
			Side:      order.Side,
			Quantity:  order.Quantity,
			Price:     101.5,
			OrderType: order.OrderType,
			Status:    domain.TradeStatusFilled,
			Timestamp: time.Now(),
		}, nil
	}
	svc, accounts, ledger := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	trade, err := svc.ExecuteOrder(context.Background(), "user-1", "acct-1", marketBuy("AAPL", 10))
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusFilled, trade.Status)
	assert.Equal(t, "acct-1", trade.AccountID)

	persisted, err := ledger.GetTrades("user-1", "acct-1", 0)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "broker-trade-1", persisted[0].TradeID)
}

func TestExecuteOrderRejectionIsPersistedNotError(t *testing.T) {
	adapter := brokertest.NewMockAdapter()
	adapter.ExecuteFn = func(order domain.OrderRequest) (domain.BrokerTrade, error) {
		return domain.BrokerTrade{
			TradeID: "rej-1",
			Symbol:  order.Symbol,
			Side:    order.Side,
			Status:  domain.TradeStatusRejected,
			Reason:  "insufficient buying power",
		}, nil
	}
	svc, accounts, ledger := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	trade, err := svc.ExecuteOrder(context.Background(), "user-1", "acct-1", marketBuy("AAPL", 1000000))
	require.NoError(t, err, "business rejection is data, not an error")
	assert.Equal(t, domain.TradeStatusRejected, trade.Status)
	assert.Equal(t, "insufficient buying power", trade.Reason)

	persisted, err := ledger.GetTrades("user-1", "acct-1", 0)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, domain.TradeStatusRejected, persisted[0].Status)
}

func TestExecuteOrderInvalidOrder(t *testing.T) {
	adapter := brokertest.NewMockAdapter()
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	_, err := svc.ExecuteOrder(context.Background(), "user-1", "acct-1", domain.OrderRequest{
		Side:      domain.TradeSideBuy,
		OrderType: domain.OrderTypeMarket,
		Quantity:  10,
	})
	assert.ErrorIs(t, err, domain.ErrEmptySymbol)
	assert.Equal(t, 0, adapter.ExecuteCalls, "invalid orders never reach the adapter")
}

func TestExecuteOrderUnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(t, brokertest.NewMockAdapter())

	_, err := svc.ExecuteOrder(context.Background(), "user-1", "missing", marketBuy("AAPL", 1))
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestExecuteOrderInactiveAccount(t *testing.T) {
	adapter := brokertest.NewMockAdapter()
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, false)

	_, err := svc.ExecuteOrder(context.Background(), "user-1", "acct-1", marketBuy("AAPL", 1))
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
	assert.Equal(t, 0, adapter.ExecuteCalls)
}

func TestExecuteOrderTransportFailure(t *testing.T) {
	adapter := brokertest.NewMockAdapter()
	adapter.ExecuteErr = errors.New("connection reset")
	svc, accounts, ledger := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	_, err := svc.ExecuteOrder(context.Background(), "user-1", "acct-1", marketBuy("AAPL", 1))
	assert.ErrorIs(t, err, domain.ErrAdapterUnavailable)

	persisted, getErr := ledger.GetTrades("user-1", "acct-1", 0)
	require.NoError(t, getErr)
	assert.Empty(t, persisted, "nothing persisted when dispatch fails")
}

func TestExecuteOrderAssignsTradeID(t *testing.T) {
	adapter := brokertest.NewMockAdapter()
	adapter.ExecuteFn = func(order domain.OrderRequest) (domain.BrokerTrade, error) {
		return domain.BrokerTrade{Symbol: order.Symbol, Side: order.Side, Status: domain.TradeStatusPending}, nil
	}
	svc, accounts, _ := newTestService(t, adapter)
	seedAccount(t, accounts, true)

	trade, err := svc.ExecuteOrder(context.Background(), "user-1", "acct-1", marketBuy("AAPL", 1))
	require.NoError(t, err)
	assert.NotEmpty(t, trade.TradeID)
}

func TestListTrades(t *testing.T) {
	svc, accounts, ledger := newTestService(t, brokertest.NewMockAdapter())
	seedAccount(t, accounts, true)

	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, ledger.UpsertTrade("user-1", "acct-1", domain.BrokerTrade{
			TradeID: id, Symbol: "AAPL", Side: domain.TradeSideBuy, Status: domain.TradeStatusFilled,
		}))
	}

	trades, err := svc.ListTrades("user-1", "acct-1", 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "t3", trades[0].TradeID)

	_, err = svc.ListTrades("user-1", "missing", 0)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
