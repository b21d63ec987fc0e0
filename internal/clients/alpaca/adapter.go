// Package alpaca implements the broker adapter contract against the
// Alpaca trading API.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/rs/zerolog"

	"brokerhub/internal/domain"
)

// requestTimeout bounds every Alpaca API call. The v3 SDK does not
// thread a context through its methods, so the limit lives on the
// shared HTTP client.
const requestTimeout = 15 * time.Second

// Adapter adapts the Alpaca v3 SDK to domain.BrokerAdapter. It is
// stateless: a fresh SDK client is built per call from the supplied
// credentials, so one adapter instance serves every connected Alpaca
// account.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewAdapter creates an Alpaca adapter. baseURL selects the paper or
// live environment.
func NewAdapter(baseURL string, log zerolog.Logger) *Adapter {
	return &Adapter{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log.With().Str("adapter", "alpaca").Logger(),
	}
}

func (a *Adapter) client(creds domain.Credentials) *alpaca.Client {
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:     creds.APIKey,
		APISecret:  creds.APISecret,
		BaseURL:    a.baseURL,
		HTTPClient: a.httpClient,
	})
}

// ValidateCredentials implements domain.BrokerAdapter. An authentication
// failure is a false result, not an error; errors mean the backend was
// unreachable.
func (a *Adapter) ValidateCredentials(ctx context.Context, creds domain.Credentials) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := a.client(creds).GetAccount()
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return false, nil
		}
		return false, fmt.Errorf("alpaca account check: %w", err)
	}
	return true, nil
}

// GetAccountInfo implements domain.BrokerAdapter
func (a *Adapter) GetAccountInfo(ctx context.Context, creds domain.Credentials) (domain.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.AccountInfo{}, err
	}

	account, err := a.client(creds).GetAccount()
	if err != nil {
		return domain.AccountInfo{}, fmt.Errorf("alpaca get account: %w", err)
	}
	return transformAccount(account), nil
}

// GetPositions implements domain.BrokerAdapter
func (a *Adapter) GetPositions(ctx context.Context, creds domain.Credentials) ([]domain.BrokerPosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	positions, err := a.client(creds).GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca get positions: %w", err)
	}
	return transformPositions(positions), nil
}

// GetRecentTrades implements domain.BrokerAdapter. Returns the most
// recent closed and open orders; order management itself stays on the
// broker side.
func (a *Adapter) GetRecentTrades(ctx context.Context, creds domain.Credentials) ([]domain.BrokerTrade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orders, err := a.client(creds).GetOrders(alpaca.GetOrdersRequest{
		Status: "all",
		Limit:  100,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca get orders: %w", err)
	}

	trades := make([]domain.BrokerTrade, 0, len(orders))
	for i := range orders {
		trades = append(trades, transformOrder(&orders[i]))
	}
	return trades, nil
}

// ExecuteOrder implements domain.BrokerAdapter. Broker-side rejections
// (4xx responses other than auth) are returned as REJECTED trades with
// the broker's message as the reason.
func (a *Adapter) ExecuteOrder(ctx context.Context, creds domain.Credentials, order domain.OrderRequest) (domain.BrokerTrade, error) {
	if err := ctx.Err(); err != nil {
		return domain.BrokerTrade{}, err
	}

	req, err := transformOrderRequest(order)
	if err != nil {
		return domain.BrokerTrade{}, err
	}

	placed, err := a.client(creds).PlaceOrder(req)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && isBusinessRejection(apiErr.StatusCode) {
			a.log.Warn().
				Str("symbol", order.Symbol).
				Int("status_code", apiErr.StatusCode).
				Msg("Order rejected by broker")
			return rejectedTrade(order, apiErr.Message), nil
		}
		return domain.BrokerTrade{}, fmt.Errorf("alpaca place order: %w", err)
	}

	return transformOrder(placed), nil
}

// isBusinessRejection distinguishes a broker saying "no" from a broker
// being unreachable or the credentials being bad.
func isBusinessRejection(statusCode int) bool {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	default:
		return statusCode >= 400 && statusCode < 500
	}
}

// Compile-time interface check
var _ domain.BrokerAdapter = (*Adapter)(nil)
