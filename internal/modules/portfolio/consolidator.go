// Package portfolio merges per-account position snapshots into a single
// cross-broker view of the user's holdings.
package portfolio

import (
	"sort"

	"brokerhub/internal/domain"
)

// ConsolidatedPosition is one symbol's holdings merged across accounts.
type ConsolidatedPosition struct {
	Symbol              string  `json:"symbol"`
	Quantity            float64 `json:"quantity"`
	AvgPrice            float64 `json:"avg_price"`
	MarketValue         float64 `json:"market_value"`
	UnrealizedPL        float64 `json:"unrealized_pl"`
	UnrealizedPLPercent float64 `json:"unrealized_pl_percent"`
	AccountCount        int     `json:"account_count"`
}

// ConsolidatedPortfolio is the derived cross-broker view. It is computed
// on demand and never persisted.
type ConsolidatedPortfolio struct {
	TotalValue     float64                `json:"total_value"`
	TotalPL        float64                `json:"total_pl"`
	TotalPLPercent float64                `json:"total_pl_percent"`
	Positions      []ConsolidatedPosition `json:"positions"`
	Accounts       []domain.BrokerAccount `json:"accounts"`
}

// Consolidate merges position snapshots from multiple accounts by symbol.
//
// Per symbol: quantity and market value sum, the average price is the
// cost-weighted mean, and unrealized P&L sums. Symbols whose net quantity
// is zero (long in one account, short in another) are dropped. Output is
// sorted by symbol.
func Consolidate(snapshots [][]domain.BrokerPosition) []ConsolidatedPosition {
	type group struct {
		quantity    float64
		cost        float64
		marketValue float64
		pl          float64
		accounts    int
	}

	groups := make(map[string]*group)
	seen := make(map[string]map[int]bool)

	for i, snapshot := range snapshots {
		for _, p := range snapshot {
			g, ok := groups[p.Symbol]
			if !ok {
				g = &group{}
				groups[p.Symbol] = g
				seen[p.Symbol] = make(map[int]bool)
			}
			g.quantity += p.Quantity
			g.cost += p.AvgPrice * p.Quantity
			g.marketValue += p.MarketValue
			g.pl += p.UnrealizedPL
			if !seen[p.Symbol][i] {
				seen[p.Symbol][i] = true
				g.accounts++
			}
		}
	}

	out := make([]ConsolidatedPosition, 0, len(groups))
	for symbol, g := range groups {
		if g.quantity == 0 {
			// Net-flat across accounts; no meaningful average price
			continue
		}
		merged := ConsolidatedPosition{
			Symbol:       symbol,
			Quantity:     g.quantity,
			AvgPrice:     g.cost / g.quantity,
			MarketValue:  g.marketValue,
			UnrealizedPL: g.pl,
			AccountCount: g.accounts,
		}
		if g.cost != 0 {
			merged.UnrealizedPLPercent = g.pl / g.cost * 100
		}
		out = append(out, merged)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
