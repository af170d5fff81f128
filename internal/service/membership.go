package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"stake-arena/internal/model"
	"stake-arena/internal/pkg/db"
	"stake-arena/internal/pkg/lock"
	"stake-arena/internal/repository"
)

// MembershipService enforces the tournament-type specific join rules and
// appends players, flipping PENDING_VOLUME to ACTIVE once quorum is reached.
type MembershipService struct {
	pool           *db.Pool
	tournamentRepo *repository.TournamentRepository
	escrowRepo     *repository.EscrowRepository
	settingsRepo   *repository.SettingsRepository
	locks          *lock.ScopeLock
}

// NewMembershipService creates a new MembershipService instance.
func NewMembershipService(
	pool *db.Pool,
	tournamentRepo *repository.TournamentRepository,
	escrowRepo *repository.EscrowRepository,
	settingsRepo *repository.SettingsRepository,
	locks *lock.ScopeLock,
) *MembershipService {
	return &MembershipService{
		pool:           pool,
		tournamentRepo: tournamentRepo,
		escrowRepo:     escrowRepo,
		settingsRepo:   settingsRepo,
		locks:          locks,
	}
}

func tournamentScope(id int64) string {
	return fmt.Sprintf("tournament:%d", id)
}

// checkAdmission applies the join preconditions that depend only on the
// tournament itself: owner exclusion, temporal and terminal-state gates, and
// the admission rule of the tournament type.
func checkAdmission(t *model.Tournament, caller, country, key string, now time.Time) error {
	if t.Owner == caller {
		return ErrOwnerCannotJoin
	}
	if t.State == model.StateClosed {
		return ErrTournamentClosed
	}
	if !t.Deadline.After(now) {
		return ErrDeadlinePassed
	}

	switch t.Type {
	case model.TournamentPrivate:
		if t.TournamentKey != key {
			return ErrInvalidTournamentKey
		}
	case model.TournamentCountryBased:
		if t.Country != country {
			return ErrInvalidCountry
		}
	}

	return nil
}

// Join admits the caller into the tournament. Their entire escrowed balance
// for the tournament's token is swept and recorded as their stake; the
// recorded amount is the swept amount, not the minimum. The player receives
// the next 1-based ordinal id. When the player count reaches the configured
// quorum the tournament becomes ACTIVE; later joins leave the state alone.
func (s *MembershipService) Join(ctx context.Context, caller string, tournamentID int64, country, key string) (*model.TournamentPlayer, error) {
	var player *model.TournamentPlayer

	err := s.locks.WithLock(tournamentScope(tournamentID), func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		t, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repository.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}

		if err := checkAdmission(t, caller, country, key, time.Now().UTC()); err != nil {
			return err
		}

		swept, err := s.escrowRepo.Sweep(ctx, tx, caller, t.TokenType, t.MinimumStake)
		if err != nil {
			if errors.Is(err, repository.ErrNoDeposit) || errors.Is(err, repository.ErrBelowMinimum) {
				return ErrInsufficientStake
			}
			return err
		}

		player = &model.TournamentPlayer{
			ID:          int64(len(t.Players)) + 1,
			Account:     caller,
			StakeAmount: swept,
			JoinDate:    time.Now().UTC(),
		}
		if err := s.tournamentRepo.AppendPlayer(ctx, tx, t.ID, player); err != nil {
			return err
		}
		if err := s.tournamentRepo.AddTotalStake(ctx, tx, t.ID, swept); err != nil {
			return err
		}

		if t.State == model.StatePendingVolume {
			settings, err := s.settingsRepo.Get(ctx, tx)
			if err != nil {
				return err
			}
			if int(player.ID) >= settings.MinPlayers {
				if err := s.tournamentRepo.SetState(ctx, tx, t.ID, model.StateActive); err != nil {
					return err
				}
				log.Info().
					Int64("tournament_id", t.ID).
					Int64("players", player.ID).
					Msg("Quorum reached, tournament active")
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("tournament_id", tournamentID).
		Str("account", caller).
		Int64("player_id", player.ID).
		Int64("stake", player.StakeAmount).
		Msg("Player joined")

	return player, nil
}
