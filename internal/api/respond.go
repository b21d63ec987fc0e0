// Package api holds response helpers shared by the module HTTP handlers:
// JSON encoding, domain error to status code mapping, and request
// identity extraction.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"brokerhub/internal/domain"
)

// userHeader carries the caller identity. Authentication itself sits in
// front of this service; an absent header maps to the single-user
// default.
const userHeader = "X-User-ID"

// DefaultUser is the identity used when no user header is present
const DefaultUser = "default"

// UserID extracts the caller identity from the request
func UserID(r *http.Request) string {
	if id := r.Header.Get(userHeader); id != "" {
		return id
	}
	return DefaultUser
}

// WriteJSON writes v as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the uniform error body
type errorResponse struct {
	Error string `json:"error"`
}

// WriteError maps a domain error onto an HTTP status and writes the
// uniform error body. Raw internal errors are logged, not exposed.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		WriteJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	WriteJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedBroker):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAdapterUnavailable):
		return http.StatusBadGateway
	case isValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrEmptySymbol,
		domain.ErrInvalidSide,
		domain.ErrInvalidOrderType,
		domain.ErrInvalidQuantity,
		domain.ErrInvalidLimitPrice,
		domain.ErrInvalidStopPrice,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
