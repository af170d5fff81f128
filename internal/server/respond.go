package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"stake-arena/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// statusFor maps service errors onto HTTP statuses. Anything unmapped is an
// internal error and must not leak its message to the client.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, service.ErrTournamentNotFound),
		errors.Is(err, service.ErrGameTypeNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidTournamentKey),
		errors.Is(err, service.ErrInvalidCountry):
		return http.StatusForbidden, true
	case errors.Is(err, service.ErrInsufficientStake):
		return http.StatusPaymentRequired, true
	case errors.Is(err, service.ErrOwnerCannotJoin),
		errors.Is(err, service.ErrDeadlinePassed),
		errors.Is(err, service.ErrDeadlineNotReached),
		errors.Is(err, service.ErrTournamentNotActive),
		errors.Is(err, service.ErrTournamentClosed),
		errors.Is(err, service.ErrTournamentKeyExists),
		errors.Is(err, service.ErrTournamentNameExists),
		errors.Is(err, service.ErrGameTypeExists),
		errors.Is(err, service.ErrAlreadyPaused),
		errors.Is(err, service.ErrNotPaused):
		return http.StatusConflict, true
	case errors.Is(err, service.ErrCountryRequired),
		errors.Is(err, service.ErrCountryNotSupported),
		errors.Is(err, service.ErrScoreOutOfRange),
		errors.Is(err, service.ErrCommissionRateBounds),
		errors.Is(err, service.ErrQuorumTooSmall),
		errors.Is(err, service.ErrInvalidTournamentType),
		errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest, true
	}
	return http.StatusInternalServerError, false
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, known := statusFor(err)
	if !known {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
