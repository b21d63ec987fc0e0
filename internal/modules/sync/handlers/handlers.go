// Package handlers provides HTTP handlers for sync triggers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"brokerhub/internal/api"
	"brokerhub/internal/domain"
	accountsync "brokerhub/internal/modules/sync"
)

// Handler provides HTTP handlers for sync endpoints
type Handler struct {
	service *accountsync.Service
	log     zerolog.Logger
}

// NewHandler creates a new sync handler
func NewHandler(service *accountsync.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "sync").Logger(),
	}
}

// RegisterRoutes mounts the sync routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/accounts/{accountID}/sync", h.HandleSync)
}

// syncResponse reports the outcome of a sync run. Partial syncs are a
// success from the API's point of view: committed data is committed, and
// the failed sub-fetches are listed so the caller can decide to retry.
type syncResponse struct {
	Status  string   `json:"status"`
	Partial bool     `json:"partial"`
	Failed  []string `json:"failed,omitempty"`
}

// HandleSync handles POST /api/accounts/{accountID}/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	err := h.service.Sync(r.Context(), api.UserID(r), accountID)
	if err == nil {
		api.WriteJSON(w, http.StatusOK, syncResponse{Status: "ok"})
		return
	}

	var partial *domain.PartialSyncError
	if errors.As(err, &partial) {
		api.WriteJSON(w, http.StatusOK, syncResponse{
			Status:  "partial",
			Partial: true,
			Failed:  partial.Failed,
		})
		return
	}

	api.WriteError(w, h.log, err)
}
