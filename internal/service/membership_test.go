package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stake-arena/internal/model"
)

func admissionTournament() *model.Tournament {
	now := time.Now().UTC()
	return &model.Tournament{
		ID:            1,
		Name:          "weekly-blitz",
		TournamentKey: "abc",
		Owner:         "alice.near",
		Country:       "IN",
		Type:          model.TournamentPublic,
		State:         model.StatePendingVolume,
		Deadline:      now.Add(24 * time.Hour),
	}
}

func TestCheckAdmission(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		mutate  func(*model.Tournament)
		caller  string
		country string
		key     string
		wantErr error
	}{
		{
			name:   "public tournament admits anyone",
			caller: "bob.near",
		},
		{
			name:    "owner cannot join",
			caller:  "alice.near",
			wantErr: ErrOwnerCannotJoin,
		},
		{
			name:    "closed tournament rejects",
			mutate:  func(tr *model.Tournament) { tr.State = model.StateClosed },
			caller:  "bob.near",
			wantErr: ErrTournamentClosed,
		},
		{
			name:    "deadline passed rejects",
			mutate:  func(tr *model.Tournament) { tr.Deadline = now.Add(-time.Minute) },
			caller:  "bob.near",
			wantErr: ErrDeadlinePassed,
		},
		{
			name:    "deadline exactly now rejects",
			mutate:  func(tr *model.Tournament) { tr.Deadline = now },
			caller:  "bob.near",
			wantErr: ErrDeadlinePassed,
		},
		{
			name:    "private requires matching key",
			mutate:  func(tr *model.Tournament) { tr.Type = model.TournamentPrivate },
			caller:  "bob.near",
			key:     "xyz",
			wantErr: ErrInvalidTournamentKey,
		},
		{
			name:   "private admits with matching key",
			mutate: func(tr *model.Tournament) { tr.Type = model.TournamentPrivate },
			caller: "bob.near",
			key:    "abc",
		},
		{
			name:    "country based requires matching country",
			mutate:  func(tr *model.Tournament) { tr.Type = model.TournamentCountryBased },
			caller:  "bob.near",
			country: "BR",
			wantErr: ErrInvalidCountry,
		},
		{
			name:    "country based admits with matching country",
			mutate:  func(tr *model.Tournament) { tr.Type = model.TournamentCountryBased },
			caller:  "bob.near",
			country: "IN",
		},
		{
			name:   "active tournament still admits late joiners",
			mutate: func(tr *model.Tournament) { tr.State = model.StateActive },
			caller: "bob.near",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tournament := admissionTournament()
			if tt.mutate != nil {
				tt.mutate(tournament)
			}

			err := checkAdmission(tournament, tt.caller, tt.country, tt.key, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// The owner gate comes before the state gate, so an owner hitting a closed
// tournament still sees the owner error.
func TestCheckAdmission_OwnerCheckedFirst(t *testing.T) {
	tournament := admissionTournament()
	tournament.State = model.StateClosed

	err := checkAdmission(tournament, "alice.near", "", "", time.Now().UTC())
	assert.ErrorIs(t, err, ErrOwnerCannotJoin)
}
