package alpaca

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerhub/internal/domain"
)

// transformAccount maps an Alpaca account to the domain shape
func transformAccount(account *alpaca.Account) domain.AccountInfo {
	return domain.AccountInfo{
		Balance:     decimalToFloat(account.Equity),
		BuyingPower: decimalToFloat(account.BuyingPower),
	}
}

// transformPositions maps Alpaca positions to domain positions. Alpaca
// reports short positions with negative quantity, which matches the
// domain convention directly.
func transformPositions(positions []alpaca.Position) []domain.BrokerPosition {
	out := make([]domain.BrokerPosition, 0, len(positions))
	for i := range positions {
		p := &positions[i]
		pos := domain.NewBrokerPosition(
			p.Symbol,
			decimalToFloat(p.Qty),
			decimalToFloat(p.AvgEntryPrice),
			decimalPtrToFloat(p.CurrentPrice),
		)
		out = append(out, pos)
	}
	return out
}

// transformOrder maps an Alpaca order to a domain trade
func transformOrder(order *alpaca.Order) domain.BrokerTrade {
	price := decimalPtrToFloat(order.FilledAvgPrice)
	if price == 0 {
		price = decimalPtrToFloat(order.LimitPrice)
	}

	timestamp := order.CreatedAt
	if order.FilledAt != nil {
		timestamp = *order.FilledAt
	}

	quantity := decimalPtrToFloat(order.Qty)
	if filled := decimalToFloat(order.FilledQty); filled > 0 {
		quantity = filled
	}

	return domain.BrokerTrade{
		TradeID:       order.ID,
		Symbol:        order.Symbol,
		Side:          transformSide(order.Side),
		Quantity:      quantity,
		Price:         price,
		OrderType:     transformOrderType(order.Type),
		Status:        transformStatus(order.Status),
		ClientOrderID: order.ClientOrderID,
		Timestamp:     timestamp,
	}
}

// transformOrderRequest maps a domain order to an Alpaca place request.
// A ClientOrderID is generated when the caller did not supply one, so
// every submission is individually traceable on the broker side.
func transformOrderRequest(order domain.OrderRequest) (alpaca.PlaceOrderRequest, error) {
	qty := decimal.NewFromFloat(order.Quantity)

	req := alpaca.PlaceOrderRequest{
		Symbol:        order.Symbol,
		Qty:           &qty,
		TimeInForce:   alpaca.Day,
		ClientOrderID: order.ClientOrderID,
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	switch order.Side {
	case domain.TradeSideBuy:
		req.Side = alpaca.Buy
	case domain.TradeSideSell:
		req.Side = alpaca.Sell
	default:
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("unmapped order side %q", order.Side)
	}

	switch order.OrderType {
	case domain.OrderTypeMarket:
		req.Type = alpaca.Market
	case domain.OrderTypeLimit:
		req.Type = alpaca.Limit
		limit := decimal.NewFromFloat(order.LimitPrice)
		req.LimitPrice = &limit
	case domain.OrderTypeStop:
		req.Type = alpaca.Stop
		stop := decimal.NewFromFloat(order.StopPrice)
		req.StopPrice = &stop
	case domain.OrderTypeStopLimit:
		req.Type = alpaca.StopLimit
		limit := decimal.NewFromFloat(order.LimitPrice)
		stop := decimal.NewFromFloat(order.StopPrice)
		req.LimitPrice = &limit
		req.StopPrice = &stop
	default:
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("unmapped order type %q", order.OrderType)
	}

	return req, nil
}

func transformSide(side alpaca.Side) domain.TradeSide {
	if side == alpaca.Sell {
		return domain.TradeSideSell
	}
	return domain.TradeSideBuy
}

func transformOrderType(orderType alpaca.OrderType) domain.OrderType {
	switch orderType {
	case alpaca.Limit:
		return domain.OrderTypeLimit
	case alpaca.Stop:
		return domain.OrderTypeStop
	case alpaca.StopLimit:
		return domain.OrderTypeStopLimit
	default:
		return domain.OrderTypeMarket
	}
}

// transformStatus maps Alpaca's order lifecycle onto the domain's four
// states. Everything still working toward a fill is PENDING.
func transformStatus(status string) domain.TradeStatus {
	switch status {
	case "filled":
		return domain.TradeStatusFilled
	case "canceled", "expired", "done_for_day", "replaced":
		return domain.TradeStatusCancelled
	case "rejected", "stopped", "suspended":
		return domain.TradeStatusRejected
	default:
		return domain.TradeStatusPending
	}
}

// rejectedTrade builds the trade record for an order the broker refused
// at submission time.
func rejectedTrade(order domain.OrderRequest, reason string) domain.BrokerTrade {
	return domain.BrokerTrade{
		TradeID:       uuid.NewString(),
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		Price:         order.LimitPrice,
		OrderType:     order.OrderType,
		Status:        domain.TradeStatusRejected,
		Reason:        reason,
		ClientOrderID: order.ClientOrderID,
		Timestamp:     time.Now().UTC(),
	}
}

func decimalToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func decimalPtrToFloat(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return decimalToFloat(*d)
}
