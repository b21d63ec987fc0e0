package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerhub/internal/domain"
)

func TestConsolidateMergesAcrossAccounts(t *testing.T) {
	snapshots := [][]domain.BrokerPosition{
		{
			domain.NewBrokerPosition("AAPL", 10, 100, 120),
			domain.NewBrokerPosition("MSFT", 5, 300, 310),
		},
		{
			domain.NewBrokerPosition("AAPL", 20, 130, 120),
		},
	}

	merged := Consolidate(snapshots)
	require.Len(t, merged, 2)

	// Sorted by symbol
	aapl := merged[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, 30.0, aapl.Quantity)
	// (10*100 + 20*130) / 30 = 120
	assert.InDelta(t, 120.0, aapl.AvgPrice, 1e-9)
	assert.InDelta(t, 3600.0, aapl.MarketValue, 1e-9)
	// 10*(120-100) + 20*(120-130) = 0
	assert.InDelta(t, 0.0, aapl.UnrealizedPL, 1e-9)
	assert.Equal(t, 2, aapl.AccountCount)

	msft := merged[1]
	assert.Equal(t, "MSFT", msft.Symbol)
	assert.Equal(t, 1, msft.AccountCount)
	assert.InDelta(t, 50.0, msft.UnrealizedPL, 1e-9)
}

func TestConsolidateDropsNetFlatSymbols(t *testing.T) {
	snapshots := [][]domain.BrokerPosition{
		{domain.NewBrokerPosition("TSLA", 10, 200, 250)},
		{domain.NewBrokerPosition("TSLA", -10, 220, 250)},
	}

	merged := Consolidate(snapshots)
	assert.Empty(t, merged)
}

func TestConsolidateShortPosition(t *testing.T) {
	snapshots := [][]domain.BrokerPosition{
		{domain.NewBrokerPosition("GME", -10, 50, 40)},
	}

	merged := Consolidate(snapshots)
	require.Len(t, merged, 1)
	assert.Equal(t, -10.0, merged[0].Quantity)
	assert.InDelta(t, 50.0, merged[0].AvgPrice, 1e-9)
	// Short 10 at 50, now 40: +100 unrealized
	assert.InDelta(t, 100.0, merged[0].UnrealizedPL, 1e-9)
}

func TestConsolidateEmpty(t *testing.T) {
	assert.Empty(t, Consolidate(nil))
	assert.Empty(t, Consolidate([][]domain.BrokerPosition{{}, {}}))
}

func TestConsolidateStableOrder(t *testing.T) {
	snapshots := [][]domain.BrokerPosition{
		{
			domain.NewBrokerPosition("ZM", 1, 60, 65),
			domain.NewBrokerPosition("AMD", 1, 100, 110),
			domain.NewBrokerPosition("NVDA", 1, 400, 500),
		},
	}

	merged := Consolidate(snapshots)
	require.Len(t, merged, 3)
	assert.Equal(t, "AMD", merged[0].Symbol)
	assert.Equal(t, "NVDA", merged[1].Symbol)
	assert.Equal(t, "ZM", merged[2].Symbol)
}
