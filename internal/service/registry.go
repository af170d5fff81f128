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

// registryScope serializes tournament creation so sequential ids and the
// key/name uniqueness checks cannot race.
const registryScope = "registry:create"

// CreateParams carries the caller-supplied fields of a new tournament.
type CreateParams struct {
	Name         string
	Key          string
	GameTypeID   string
	Type         model.TournamentType
	IntervalDays int64
	MinimumStake int64
	TokenType    string
	Country      string
}

// RegistryService stores tournaments and issues monotonically increasing
// tournament ids.
type RegistryService struct {
	pool           *db.Pool
	tournamentRepo *repository.TournamentRepository
	gameTypeRepo   *repository.GameTypeRepository
	escrowRepo     *repository.EscrowRepository
	settingsRepo   *repository.SettingsRepository
	countryRepo    *repository.CountryRepository
	locks          *lock.ScopeLock
}

// NewRegistryService creates a new RegistryService instance.
func NewRegistryService(
	pool *db.Pool,
	tournamentRepo *repository.TournamentRepository,
	gameTypeRepo *repository.GameTypeRepository,
	escrowRepo *repository.EscrowRepository,
	settingsRepo *repository.SettingsRepository,
	countryRepo *repository.CountryRepository,
	locks *lock.ScopeLock,
) *RegistryService {
	return &RegistryService{
		pool:           pool,
		tournamentRepo: tournamentRepo,
		gameTypeRepo:   gameTypeRepo,
		escrowRepo:     escrowRepo,
		settingsRepo:   settingsRepo,
		countryRepo:    countryRepo,
		locks:          locks,
	}
}

// Create validates the parameters, sweeps the caller's escrow for the stake,
// and stores the tournament in PENDING_VOLUME. A caller other than the
// platform owner is auto-enrolled as player #1 with the swept amount as
// their stake. The whole operation commits or rolls back as one unit.
func (s *RegistryService) Create(ctx context.Context, caller string, p CreateParams) (*model.Tournament, error) {
	if !p.Type.Valid() {
		return nil, ErrInvalidTournamentType
	}
	if p.MinimumStake < 0 {
		return nil, ErrInvalidAmount
	}

	if p.Type == model.TournamentCountryBased {
		if p.Country == "" {
			return nil, ErrCountryRequired
		}
		supported, err := s.countryRepo.IsSupported(ctx, p.Country)
		if err != nil {
			return nil, fmt.Errorf("failed to check country: %w", err)
		}
		if !supported {
			return nil, ErrCountryNotSupported
		}
	} else {
		// Only country-restricted tournaments carry a country.
		p.Country = ""
	}

	var tournament *model.Tournament
	err := s.locks.WithLock(registryScope, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if exists, err := s.tournamentRepo.ExistsByKey(ctx, tx, p.Key); err != nil {
			return err
		} else if exists {
			return ErrTournamentKeyExists
		}
		if exists, err := s.tournamentRepo.ExistsByName(ctx, tx, p.Name); err != nil {
			return err
		} else if exists {
			return ErrTournamentNameExists
		}

		if _, err := s.gameTypeRepo.GetByID(ctx, tx, p.GameTypeID); err != nil {
			if errors.Is(err, repository.ErrGameTypeNotFound) {
				return ErrGameTypeNotFound
			}
			return err
		}

		settings, err := s.settingsRepo.Get(ctx, tx)
		if err != nil {
			return err
		}

		swept, err := s.escrowRepo.Sweep(ctx, tx, caller, p.TokenType, p.MinimumStake)
		if err != nil {
			if errors.Is(err, repository.ErrNoDeposit) || errors.Is(err, repository.ErrBelowMinimum) {
				return ErrInsufficientStake
			}
			return err
		}

		id, err := s.tournamentRepo.NextID(ctx, tx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		tournament = &model.Tournament{
			ID:            id,
			Name:          p.Name,
			TournamentKey: p.Key,
			GameTypeID:    p.GameTypeID,
			Owner:         caller,
			MinimumStake:  p.MinimumStake,
			TotalStake:    swept,
			Country:       p.Country,
			TokenType:     p.TokenType,
			CreatedAt:     now,
			Deadline:      now.Add(time.Duration(p.IntervalDays) * 24 * time.Hour),
			Type:          p.Type,
			State:         model.StatePendingVolume,
		}

		// The platform owner may host tournaments without competing in
		// them; anyone else enters their own tournament as player #1.
		if caller != settings.Owner {
			tournament.Players = []model.TournamentPlayer{{
				ID:          1,
				Account:     caller,
				StakeAmount: swept,
				JoinDate:    now,
			}}
		}

		if err := s.tournamentRepo.Create(ctx, tx, tournament); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("tournament_id", tournament.ID).
		Str("name", tournament.Name).
		Str("owner", caller).
		Str("token_type", tournament.TokenType).
		Int64("staked", tournament.TotalStake).
		Time("deadline", tournament.Deadline).
		Msg("Tournament created")

	return tournament, nil
}

// Resolve returns the tournament matching the key or the name; the most
// recently created match wins when both predicates hit different rows.
func (s *RegistryService) Resolve(ctx context.Context, key, name string) (*model.Tournament, error) {
	t, err := s.tournamentRepo.ResolveByKeyOrName(ctx, key, name)
	if err != nil {
		if errors.Is(err, repository.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

// Get returns a tournament by id with its players.
func (s *RegistryService) Get(ctx context.Context, id int64) (*model.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, s.pool, id)
	if err != nil {
		if errors.Is(err, repository.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns every tournament, or only those owned by owner when owner is
// non-empty.
func (s *RegistryService) List(ctx context.Context, owner string) ([]model.Tournament, error) {
	return s.tournamentRepo.List(ctx, owner)
}
