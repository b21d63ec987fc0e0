// Package simbroker is a deterministic in-process broker backend for
// local development. It needs no network and no real credentials; the
// same API key always produces the same account state.
package simbroker

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brokerhub/internal/domain"
)

// symbols traded by the simulated market
var symbols = []string{"AAPL", "MSFT", "GOOG", "TSLA", "NVDA", "AMZN"}

// Adapter implements domain.BrokerAdapter against a simulated broker.
// Account state is derived deterministically from the API key; executed
// orders accumulate in memory for the process lifetime so synced trade
// history reflects what was routed.
type Adapter struct {
	log zerolog.Logger

	mu     sync.Mutex
	trades map[string][]domain.BrokerTrade // API key -> executed trades
}

// NewAdapter creates a simulated broker adapter
func NewAdapter(log zerolog.Logger) *Adapter {
	return &Adapter{
		log:    log.With().Str("adapter", "simbroker").Logger(),
		trades: make(map[string][]domain.BrokerTrade),
	}
}

// seed derives a stable per-account seed from the API key
func seed(apiKey string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(apiKey))
	return h.Sum64()
}

// price returns a stable pseudo-price for a symbol under a given seed,
// between 20 and 520.
func price(s uint64, symbol string) float64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	mixed := s ^ h.Sum64()
	return 20 + float64(mixed%50000)/100
}

// ValidateCredentials implements domain.BrokerAdapter. Any non-empty
// key/secret pair is accepted; the key "invalid" is refused so failure
// paths can be exercised end to end.
func (a *Adapter) ValidateCredentials(ctx context.Context, creds domain.Credentials) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if creds.APIKey == "" || creds.APISecret == "" || creds.APIKey == "invalid" {
		return false, nil
	}
	return true, nil
}

// GetAccountInfo implements domain.BrokerAdapter
func (a *Adapter) GetAccountInfo(ctx context.Context, creds domain.Credentials) (domain.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.AccountInfo{}, err
	}
	s := seed(creds.APIKey)
	balance := 10000 + float64(s%90000)
	return domain.AccountInfo{
		Balance:     balance,
		BuyingPower: balance * 2,
	}, nil
}

// GetPositions implements domain.BrokerAdapter. Each account holds a
// deterministic subset of the simulated market.
func (a *Adapter) GetPositions(ctx context.Context, creds domain.Credentials) ([]domain.BrokerPosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := seed(creds.APIKey)
	count := int(s%uint64(len(symbols))) + 1

	positions := make([]domain.BrokerPosition, 0, count)
	for i := 0; i < count; i++ {
		symbol := symbols[(s+uint64(i))%uint64(len(symbols))]
		current := price(s, symbol)
		avg := current * 0.95 // everyone is slightly up in the sim
		qty := float64((s>>uint(i))%40 + 1)
		positions = append(positions, domain.NewBrokerPosition(symbol, qty, avg, current))
	}
	return positions, nil
}

// GetRecentTrades implements domain.BrokerAdapter, returning the orders
// executed through this adapter instance for the same credentials.
func (a *Adapter) GetRecentTrades(ctx context.Context, creds domain.Credentials) ([]domain.BrokerTrade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.BrokerTrade, len(a.trades[creds.APIKey]))
	copy(out, a.trades[creds.APIKey])
	return out, nil
}

// ExecuteOrder implements domain.BrokerAdapter. Market orders fill
// immediately at the simulated price; limit orders fill when the limit
// crosses it and are rejected otherwise, giving deterministic coverage
// of the rejection path.
func (a *Adapter) ExecuteOrder(ctx context.Context, creds domain.Credentials, order domain.OrderRequest) (domain.BrokerTrade, error) {
	if err := ctx.Err(); err != nil {
		return domain.BrokerTrade{}, err
	}

	s := seed(creds.APIKey)
	fill := price(s, order.Symbol)

	trade := domain.BrokerTrade{
		TradeID:       uuid.NewString(),
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		Price:         fill,
		OrderType:     order.OrderType,
		ClientOrderID: order.ClientOrderID,
		Timestamp:     time.Now().UTC(),
	}

	switch order.OrderType {
	case domain.OrderTypeMarket:
		trade.Status = domain.TradeStatusFilled
	case domain.OrderTypeLimit:
		if crossesLimit(order, fill) {
			trade.Status = domain.TradeStatusFilled
			trade.Price = order.LimitPrice
		} else {
			trade.Status = domain.TradeStatusRejected
			trade.Reason = fmt.Sprintf("limit %.2f does not cross market price %.2f", order.LimitPrice, fill)
		}
	default:
		// Stop orders rest on a real broker; the sim has no book to
		// hold them, so they park as pending
		trade.Status = domain.TradeStatusPending
	}

	a.mu.Lock()
	a.trades[creds.APIKey] = append(a.trades[creds.APIKey], trade)
	a.mu.Unlock()

	a.log.Debug().
		Str("symbol", order.Symbol).
		Str("status", string(trade.Status)).
		Msg("Simulated order")

	return trade, nil
}

// crossesLimit reports whether a limit order is marketable at the
// current price: buys at or above market, sells at or below.
func crossesLimit(order domain.OrderRequest, market float64) bool {
	if order.Side == domain.TradeSideBuy {
		return order.LimitPrice >= market
	}
	return order.LimitPrice <= market
}

// Compile-time interface check
var _ domain.BrokerAdapter = (*Adapter)(nil)
