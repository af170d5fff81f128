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

// ScoringService accumulates game results into tournament player entries.
type ScoringService struct {
	pool           *db.Pool
	tournamentRepo *repository.TournamentRepository
	gameTypeRepo   *repository.GameTypeRepository
	locks          *lock.ScopeLock
}

// NewScoringService creates a new ScoringService instance.
func NewScoringService(
	pool *db.Pool,
	tournamentRepo *repository.TournamentRepository,
	gameTypeRepo *repository.GameTypeRepository,
	locks *lock.ScopeLock,
) *ScoringService {
	return &ScoringService{
		pool:           pool,
		tournamentRepo: tournamentRepo,
		gameTypeRepo:   gameTypeRepo,
		locks:          locks,
	}
}

// PublishScore adds a bounded game result to the caller's cumulative score
// and bumps their play counter. The tournament must be ACTIVE and before its
// deadline, and the score must not exceed the game type's ceiling. A caller
// who never joined is deliberately a no-op, not an error.
func (s *ScoringService) PublishScore(ctx context.Context, caller string, tournamentID int64, score int64) error {
	if score < 0 {
		return ErrInvalidAmount
	}

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

		if !t.Deadline.After(time.Now().UTC()) {
			return ErrDeadlinePassed
		}
		if t.State != model.StateActive {
			return ErrTournamentNotActive
		}

		gameType, err := s.gameTypeRepo.GetByID(ctx, tx, t.GameTypeID)
		if err != nil {
			if errors.Is(err, repository.ErrGameTypeNotFound) {
				return ErrGameTypeNotFound
			}
			return err
		}
		if score > gameType.MaxScore {
			return ErrScoreOutOfRange
		}

		updated, err := s.tournamentRepo.AddScore(ctx, tx, t.ID, caller, score)
		if err != nil {
			return err
		}
		if updated == 0 {
			// Not a recorded player: nothing to accumulate.
			log.Debug().
				Int64("tournament_id", t.ID).
				Str("account", caller).
				Msg("Score published by non-player ignored")
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return err
	}

	log.Info().
		Int64("tournament_id", tournamentID).
		Str("account", caller).
		Int64("score", score).
		Msg("Score published")

	return nil
}
