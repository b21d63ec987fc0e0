// Package handlers provides HTTP handlers for the consolidated
// portfolio view.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"brokerhub/internal/api"
	"brokerhub/internal/modules/portfolio"
)

// Handler provides HTTP handlers for portfolio endpoints
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes mounts the portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolio", h.HandleGetPortfolio)
	r.Get("/accounts/{accountID}/positions", h.HandleListPositions)
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetConsolidated(api.UserID(r))
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view)
}

// HandleListPositions handles GET /api/accounts/{accountID}/positions
func (h *Handler) HandleListPositions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	positions, err := h.service.ListPositions(api.UserID(r), accountID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, positions)
}
