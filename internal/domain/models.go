// Package domain provides core domain models and types.
package domain

import "time"

// TradeSide represents the direction of a trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Valid reports whether the side is a known value
func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// OrderType represents the execution style of an order
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// Valid reports whether the order type is a known value
func (o OrderType) Valid() bool {
	switch o {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
		return true
	}
	return false
}

// TradeStatus represents the lifecycle state of a trade
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusFilled    TradeStatus = "FILLED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusRejected  TradeStatus = "REJECTED"
)

// IsTerminal reports whether the status is final.
// Terminal states never revert.
func (s TradeStatus) IsTerminal() bool {
	switch s {
	case TradeStatusFilled, TradeStatusCancelled, TradeStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a status change is allowed.
// The only legal transitions are PENDING -> {FILLED, CANCELLED, REJECTED}.
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	if s == next {
		return true
	}
	return s == TradeStatusPending && next.IsTerminal()
}

// Credentials is the opaque secret material for one broker account.
// It must never be logged and never returned to callers unredacted.
type Credentials struct {
	APIKey    string            `json:"-" msgpack:"api_key"`
	APISecret string            `json:"-" msgpack:"api_secret"`
	Extra     map[string]string `json:"-" msgpack:"extra,omitempty"`
}

// AccountInfo is the balance snapshot returned by a broker backend
type AccountInfo struct {
	Balance     float64 `json:"balance"`
	BuyingPower float64 `json:"buying_power"`
}

// BrokerAccount represents one user's link to one brokerage
type BrokerAccount struct {
	AccountID         string      `json:"account_id"`
	UserID            string      `json:"user_id"`
	BrokerID          string      `json:"broker_id"`
	ExternalAccountID string      `json:"external_account_id"`
	DisplayName       string      `json:"display_name"`
	IsActive          bool        `json:"is_active"`
	Balance           float64     `json:"balance"`
	BuyingPower       float64     `json:"buying_power"`
	LastSyncedAt      *time.Time  `json:"last_synced_at"`
	Credentials       Credentials `json:"-"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Redacted returns a copy safe for API responses: credential material zeroed.
func (a BrokerAccount) Redacted() BrokerAccount {
	a.Credentials = Credentials{}
	return a
}

// BrokerPosition represents a holding of one symbol within one account.
// Quantity is signed: negative means short.
type BrokerPosition struct {
	AccountID           string  `json:"account_id,omitempty"`
	Symbol              string  `json:"symbol"`
	Quantity            float64 `json:"quantity"`
	AvgPrice            float64 `json:"avg_price"`
	CurrentPrice        float64 `json:"current_price"`
	MarketValue         float64 `json:"market_value"`
	UnrealizedPL        float64 `json:"unrealized_pl"`
	UnrealizedPLPercent float64 `json:"unrealized_pl_percent"`
}

// NewBrokerPosition builds a position with the derived fields computed
// from quantity and prices.
func NewBrokerPosition(symbol string, quantity, avgPrice, currentPrice float64) BrokerPosition {
	p := BrokerPosition{
		Symbol:       symbol,
		Quantity:     quantity,
		AvgPrice:     avgPrice,
		CurrentPrice: currentPrice,
	}
	p.Recompute()
	return p
}

// Recompute refreshes the derived fields from quantity and prices
func (p *BrokerPosition) Recompute() {
	p.MarketValue = p.Quantity * p.CurrentPrice
	costBasis := p.Quantity * p.AvgPrice
	p.UnrealizedPL = p.MarketValue - costBasis
	if costBasis != 0 {
		p.UnrealizedPLPercent = p.UnrealizedPL / costBasis * 100
	} else {
		p.UnrealizedPLPercent = 0
	}
}

// BrokerTrade represents an executed or pending order
type BrokerTrade struct {
	TradeID       string      `json:"trade_id"`
	AccountID     string      `json:"account_id"`
	Symbol        string      `json:"symbol"`
	Side          TradeSide   `json:"side"`
	Quantity      float64     `json:"quantity"`
	Price         float64     `json:"price"`
	OrderType     OrderType   `json:"order_type"`
	Status        TradeStatus `json:"status"`
	Reason        string      `json:"reason,omitempty"`
	ClientOrderID string      `json:"client_order_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// OrderRequest is a caller-supplied order to be routed to a broker backend
type OrderRequest struct {
	Symbol     string    `json:"symbol"`
	Side       TradeSide `json:"side"`
	Quantity   float64   `json:"quantity"`
	OrderType  OrderType `json:"order_type"`
	LimitPrice float64   `json:"limit_price,omitempty"`
	StopPrice  float64   `json:"stop_price,omitempty"`
	// ClientOrderID is an optional idempotency key, forwarded to the adapter.
	// Order placement is not retry-safe without it.
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// Validate checks the order request for structural problems
func (o OrderRequest) Validate() error {
	if o.Symbol == "" {
		return ErrEmptySymbol
	}
	if !o.Side.Valid() {
		return ErrInvalidSide
	}
	if !o.OrderType.Valid() {
		return ErrInvalidOrderType
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if (o.OrderType == OrderTypeLimit || o.OrderType == OrderTypeStopLimit) && o.LimitPrice <= 0 {
		return ErrInvalidLimitPrice
	}
	if (o.OrderType == OrderTypeStop || o.OrderType == OrderTypeStopLimit) && o.StopPrice <= 0 {
		return ErrInvalidStopPrice
	}
	return nil
}
