package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeStatus_IsTerminal(t *testing.T) {
	assert.False(t, TradeStatusPending.IsTerminal())
	assert.True(t, TradeStatusFilled.IsTerminal())
	assert.True(t, TradeStatusCancelled.IsTerminal())
	assert.True(t, TradeStatusRejected.IsTerminal())
}

func TestTradeStatus_CanTransitionTo(t *testing.T) {
	testCases := []struct {
		name    string
		from    TradeStatus
		to      TradeStatus
		allowed bool
	}{
		{"pending to filled", TradeStatusPending, TradeStatusFilled, true},
		{"pending to cancelled", TradeStatusPending, TradeStatusCancelled, true},
		{"pending to rejected", TradeStatusPending, TradeStatusRejected, true},
		{"filled stays filled", TradeStatusFilled, TradeStatusFilled, true},
		{"filled never reverts to pending", TradeStatusFilled, TradeStatusPending, false},
		{"rejected never becomes filled", TradeStatusRejected, TradeStatusFilled, false},
		{"cancelled never reverts", TradeStatusCancelled, TradeStatusPending, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestNewBrokerPosition_DerivedFields(t *testing.T) {
	p := NewBrokerPosition("AAPL", 10, 100, 110)

	assert.Equal(t, 1100.0, p.MarketValue)
	assert.Equal(t, 100.0, p.UnrealizedPL)
	assert.InDelta(t, 10.0, p.UnrealizedPLPercent, 1e-9)
}

func TestNewBrokerPosition_ShortPosition(t *testing.T) {
	// Short 10 shares at 50, price dropped to 40: a gain of 100
	p := NewBrokerPosition("TSLA", -10, 50, 40)

	assert.Equal(t, -400.0, p.MarketValue)
	assert.Equal(t, 100.0, p.UnrealizedPL)
}

func TestBrokerAccount_Redacted(t *testing.T) {
	acct := BrokerAccount{
		AccountID: "acc-1",
		Credentials: Credentials{
			APIKey:    "key",
			APISecret: "secret",
		},
	}

	redacted := acct.Redacted()
	assert.Empty(t, redacted.Credentials.APIKey)
	assert.Empty(t, redacted.Credentials.APISecret)
	// Original is untouched
	assert.Equal(t, "key", acct.Credentials.APIKey)
}

func TestOrderRequest_Validate(t *testing.T) {
	valid := OrderRequest{
		Symbol:    "AAPL",
		Side:      TradeSideBuy,
		Quantity:  10,
		OrderType: OrderTypeMarket,
	}
	assert.NoError(t, valid.Validate())

	testCases := []struct {
		name    string
		mutate  func(*OrderRequest)
		wantErr error
	}{
		{"missing symbol", func(o *OrderRequest) { o.Symbol = "" }, ErrEmptySymbol},
		{"bad side", func(o *OrderRequest) { o.Side = "HOLD" }, ErrInvalidSide},
		{"bad order type", func(o *OrderRequest) { o.OrderType = "TRAILING" }, ErrInvalidOrderType},
		{"zero quantity", func(o *OrderRequest) { o.Quantity = 0 }, ErrInvalidQuantity},
		{"negative quantity", func(o *OrderRequest) { o.Quantity = -5 }, ErrInvalidQuantity},
		{"limit without price", func(o *OrderRequest) { o.OrderType = OrderTypeLimit }, ErrInvalidLimitPrice},
		{"stop without price", func(o *OrderRequest) { o.OrderType = OrderTypeStop }, ErrInvalidStopPrice},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := valid
			tc.mutate(&o)
			assert.ErrorIs(t, o.Validate(), tc.wantErr)
		})
	}
}

func TestOrderRequest_Validate_StopLimit(t *testing.T) {
	o := OrderRequest{
		Symbol:     "AAPL",
		Side:       TradeSideSell,
		Quantity:   5,
		OrderType:  OrderTypeStopLimit,
		LimitPrice: 95,
		StopPrice:  96,
	}
	assert.NoError(t, o.Validate())

	o.StopPrice = 0
	assert.ErrorIs(t, o.Validate(), ErrInvalidStopPrice)
}
