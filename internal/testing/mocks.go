package testing

import (
	"context"
	"sync"

	"brokerhub/internal/domain"
)

// MockAdapter is a configurable in-memory implementation of
// domain.BrokerAdapter for testing. Each capability can be overridden with
// a function or primed with static data; errors are injected per call.
type MockAdapter struct {
	mu sync.Mutex

	ValidateResult bool
	ValidateErr    error

	Info    domain.AccountInfo
	InfoErr error
	// InfoFn, when set, runs on every GetAccountInfo call outside the
	// mock's own lock, so callers can observe overlapping calls.
	InfoFn func()

	Positions    []domain.BrokerPosition
	PositionsErr error

	Trades    []domain.BrokerTrade
	TradesErr error

	ExecuteFn  func(order domain.OrderRequest) (domain.BrokerTrade, error)
	ExecuteErr error

	// Call counters
	ValidateCalls int
	InfoCalls     int
	PositionCalls int
	TradeCalls    int
	ExecuteCalls  int
}

// NewMockAdapter creates a mock adapter that accepts all credentials
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{ValidateResult: true}
}

// ValidateCredentials implements domain.BrokerAdapter
func (m *MockAdapter) ValidateCredentials(_ context.Context, _ domain.Credentials) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidateCalls++
	if m.ValidateErr != nil {
		return false, m.ValidateErr
	}
	return m.ValidateResult, nil
}

// GetAccountInfo implements domain.BrokerAdapter
func (m *MockAdapter) GetAccountInfo(_ context.Context, _ domain.Credentials) (domain.AccountInfo, error) {
	m.mu.Lock()
	m.InfoCalls++
	fn := m.InfoFn
	err := m.InfoErr
	info := m.Info
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
	if err != nil {
		return domain.AccountInfo{}, err
	}
	return info, nil
}

// GetPositions implements domain.BrokerAdapter
func (m *MockAdapter) GetPositions(_ context.Context, _ domain.Credentials) ([]domain.BrokerPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PositionCalls++
	if m.PositionsErr != nil {
		return nil, m.PositionsErr
	}
	out := make([]domain.BrokerPosition, len(m.Positions))
	copy(out, m.Positions)
	return out, nil
}

// GetRecentTrades implements domain.BrokerAdapter
func (m *MockAdapter) GetRecentTrades(_ context.Context, _ domain.Credentials) ([]domain.BrokerTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TradeCalls++
	if m.TradesErr != nil {
		return nil, m.TradesErr
	}
	out := make([]domain.BrokerTrade, len(m.Trades))
	copy(out, m.Trades)
	return out, nil
}

// ExecuteOrder implements domain.BrokerAdapter
func (m *MockAdapter) ExecuteOrder(_ context.Context, _ domain.Credentials, order domain.OrderRequest) (domain.BrokerTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecuteCalls++
	if m.ExecuteErr != nil {
		return domain.BrokerTrade{}, m.ExecuteErr
	}
	if m.ExecuteFn != nil {
		return m.ExecuteFn(order)
	}
	return domain.BrokerTrade{
		TradeID:       "mock-trade",
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		Price:         order.LimitPrice,
		OrderType:     order.OrderType,
		Status:        domain.TradeStatusFilled,
		ClientOrderID: order.ClientOrderID,
	}, nil
}

// InfoCallCount returns how many times GetAccountInfo was called
func (m *MockAdapter) InfoCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InfoCalls
}

// Compile-time interface check
var _ domain.BrokerAdapter = (*MockAdapter)(nil)

// MockAccountStore is an in-memory implementation of domain.AccountStore
type MockAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]map[string]domain.BrokerAccount // userID -> accountID -> account
	err      error
}

// NewMockAccountStore creates an empty in-memory account store
func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{
		accounts: make(map[string]map[string]domain.BrokerAccount),
	}
}

// SetError makes every store operation fail with err
func (m *MockAccountStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Save implements domain.AccountStore
func (m *MockAccountStore) Save(userID string, account domain.BrokerAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.accounts[userID] == nil {
		m.accounts[userID] = make(map[string]domain.BrokerAccount)
	}
	m.accounts[userID][account.AccountID] = account
	return nil
}

// Get implements domain.AccountStore
func (m *MockAccountStore) Get(userID, accountID string) (*domain.BrokerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	acct, ok := m.accounts[userID][accountID]
	if !ok {
		return nil, nil
	}
	return &acct, nil
}

// List implements domain.AccountStore
func (m *MockAccountStore) List(userID string) ([]domain.BrokerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.BrokerAccount
	for _, acct := range m.accounts[userID] {
		out = append(out, acct)
	}
	return out, nil
}

// Update implements domain.AccountStore
func (m *MockAccountStore) Update(userID string, account domain.BrokerAccount) error {
	return m.Save(userID, account)
}

// Count returns the number of stored accounts for a user
func (m *MockAccountStore) Count(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts[userID])
}

// Compile-time interface check
var _ domain.AccountStore = (*MockAccountStore)(nil)

// MockLedgerStore is an in-memory implementation of domain.LedgerStore
type MockLedgerStore struct {
	mu        sync.RWMutex
	positions map[string][]domain.BrokerPosition         // accountID -> snapshot
	trades    map[string]map[string]domain.BrokerTrade   // accountID -> tradeID -> trade
	order     map[string][]string                        // accountID -> insertion order of trade ids
	err       error
}

// NewMockLedgerStore creates an empty in-memory ledger store
func NewMockLedgerStore() *MockLedgerStore {
	return &MockLedgerStore{
		positions: make(map[string][]domain.BrokerPosition),
		trades:    make(map[string]map[string]domain.BrokerTrade),
		order:     make(map[string][]string),
	}
}

// SetError makes every ledger operation fail with err
func (m *MockLedgerStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ReplacePositions implements domain.LedgerStore
func (m *MockLedgerStore) ReplacePositions(_ string, accountID string, positions []domain.BrokerPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	snapshot := make([]domain.BrokerPosition, 0, len(positions))
	for _, p := range positions {
		if p.Quantity == 0 {
			continue
		}
		snapshot = append(snapshot, p)
	}
	m.positions[accountID] = snapshot
	return nil
}

// GetPositions implements domain.LedgerStore
func (m *MockLedgerStore) GetPositions(_ string, accountID string) ([]domain.BrokerPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.BrokerPosition, len(m.positions[accountID]))
	copy(out, m.positions[accountID])
	return out, nil
}

// UpsertTrade implements domain.LedgerStore
func (m *MockLedgerStore) UpsertTrade(_ string, accountID string, trade domain.BrokerTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.trades[accountID] == nil {
		m.trades[accountID] = make(map[string]domain.BrokerTrade)
	}
	existing, ok := m.trades[accountID][trade.TradeID]
	if ok && !existing.Status.CanTransitionTo(trade.Status) {
		// Preserve terminal status
		trade.Status = existing.Status
	}
	if !ok {
		m.order[accountID] = append(m.order[accountID], trade.TradeID)
	}
	m.trades[accountID][trade.TradeID] = trade
	return nil
}

// GetTrades implements domain.LedgerStore
func (m *MockLedgerStore) GetTrades(_ string, accountID string, limit int) ([]domain.BrokerTrade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	ids := m.order[accountID]
	var out []domain.BrokerTrade
	// Newest first
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, m.trades[accountID][ids[i]])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Compile-time interface check
var _ domain.LedgerStore = (*MockLedgerStore)(nil)
