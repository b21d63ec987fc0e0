// Package handlers provides HTTP handlers for broker account management.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"brokerhub/internal/api"
	"brokerhub/internal/modules/accounts"
)

// Handler provides HTTP handlers for account endpoints
type Handler struct {
	service *accounts.Service
	log     zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(service *accounts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "accounts").Logger(),
	}
}

// RegisterRoutes mounts the account routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/accounts", h.HandleConnect)
	r.Get("/accounts", h.HandleList)
	r.Post("/accounts/{accountID}/deactivate", h.HandleDeactivate)
}

// HandleConnect handles POST /api/accounts
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req accounts.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	account, err := h.service.Connect(r.Context(), api.UserID(r), req)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, account)
}

// HandleList handles GET /api/accounts
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(api.UserID(r))
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// HandleDeactivate handles POST /api/accounts/{accountID}/deactivate
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	if err := h.service.Deactivate(api.UserID(r), accountID); err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
