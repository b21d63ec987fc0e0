package testing

import (
	"time"

	"brokerhub/internal/domain"
)

// NewAccountFixture returns a connected, active broker account for tests
func NewAccountFixture(userID, accountID, brokerID string) domain.BrokerAccount {
	now := time.Now().UTC()
	return domain.BrokerAccount{
		AccountID:         accountID,
		UserID:            userID,
		BrokerID:          brokerID,
		ExternalAccountID: "ext-" + accountID,
		DisplayName:       "Test Account " + accountID,
		IsActive:          true,
		Balance:           25000,
		BuyingPower:       50000,
		Credentials: domain.Credentials{
			APIKey:    "test-key-" + accountID,
			APISecret: "test-secret-" + accountID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewPositionFixtures returns a small long/short position snapshot
func NewPositionFixtures() []domain.BrokerPosition {
	return []domain.BrokerPosition{
		domain.NewBrokerPosition("AAPL", 10, 150, 170),
		domain.NewBrokerPosition("MSFT", 5, 300, 310),
		domain.NewBrokerPosition("GME", -3, 40, 35),
	}
}

// NewTradeFixture returns a filled market buy for tests
func NewTradeFixture(tradeID, accountID, symbol string) domain.BrokerTrade {
	return domain.BrokerTrade{
		TradeID:   tradeID,
		AccountID: accountID,
		Symbol:    symbol,
		Side:      domain.TradeSideBuy,
		Quantity:  10,
		Price:     100,
		OrderType: domain.OrderTypeMarket,
		Status:    domain.TradeStatusFilled,
		Timestamp: time.Now().UTC(),
	}
}
