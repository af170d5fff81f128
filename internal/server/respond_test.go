package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"stake-arena/internal/service"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKnown  bool
	}{
		{service.ErrTournamentNotFound, http.StatusNotFound, true},
		{service.ErrGameTypeNotFound, http.StatusNotFound, true},
		{service.ErrUnauthorized, http.StatusForbidden, true},
		{service.ErrInvalidTournamentKey, http.StatusForbidden, true},
		{service.ErrInvalidCountry, http.StatusForbidden, true},
		{service.ErrInsufficientStake, http.StatusPaymentRequired, true},
		{service.ErrOwnerCannotJoin, http.StatusConflict, true},
		{service.ErrDeadlinePassed, http.StatusConflict, true},
		{service.ErrDeadlineNotReached, http.StatusConflict, true},
		{service.ErrTournamentClosed, http.StatusConflict, true},
		{service.ErrTournamentKeyExists, http.StatusConflict, true},
		{service.ErrScoreOutOfRange, http.StatusBadRequest, true},
		{service.ErrQuorumTooSmall, http.StatusBadRequest, true},
		{service.ErrCommissionRateBounds, http.StatusBadRequest, true},
		{errors.New("database exploded"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, known := statusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}
