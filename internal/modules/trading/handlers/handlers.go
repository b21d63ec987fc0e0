// Package handlers provides HTTP handlers for order routing.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"brokerhub/internal/api"
	"brokerhub/internal/domain"
	"brokerhub/internal/modules/trading"
)

// Handler provides HTTP handlers for trading endpoints
type Handler struct {
	service *trading.Service
	log     zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(service *trading.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

// RegisterRoutes mounts the trading routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.HandleExecuteOrder)
	r.Get("/accounts/{accountID}/trades", h.HandleListTrades)
}

// orderRequest is the wire shape for POST /api/orders
type orderRequest struct {
	AccountID     string  `json:"account_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	OrderType     string  `json:"order_type"`
	Quantity      float64 `json:"quantity"`
	LimitPrice    float64 `json:"limit_price,omitempty"`
	StopPrice     float64 `json:"stop_price,omitempty"`
	ClientOrderID string  `json:"client_order_id,omitempty"`
}

// HandleExecuteOrder handles POST /api/orders
func (h *Handler) HandleExecuteOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.AccountID == "" {
		api.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "account_id is required"})
		return
	}

	order := domain.OrderRequest{
		Symbol:        req.Symbol,
		Side:          domain.TradeSide(req.Side),
		OrderType:     domain.OrderType(req.OrderType),
		Quantity:      req.Quantity,
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		ClientOrderID: req.ClientOrderID,
	}

	trade, err := h.service.ExecuteOrder(r.Context(), api.UserID(r), req.AccountID, order)
	if err != nil {
		if trade != nil {
			// The broker executed the order but the ledger write failed;
			// the caller still needs to see the live order
			h.log.Error().Err(err).Str("trade_id", trade.TradeID).Msg("Executed order could not be recorded")
			api.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error": "order executed but could not be recorded",
				"trade": trade,
			})
			return
		}
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, trade)
}

// HandleListTrades handles GET /api/accounts/{accountID}/trades
func (h *Handler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	trades, err := h.service.ListTrades(api.UserID(r), accountID, limit)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, trades)
}
