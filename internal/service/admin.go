package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"stake-arena/internal/model"
	"stake-arena/internal/pkg/db"
	"stake-arena/internal/pkg/lock"
	"stake-arena/internal/repository"
)

const settingsScope = "platform:settings"

const (
	minCommissionRateBps = 1000
	maxCommissionRateBps = 10000
	minQuorum            = 4
)

// AdminService covers owner-gated platform management: pausing, the
// two-step ownership handover, commission rate and quorum tuning, game type
// registration and the country allow-list.
type AdminService struct {
	pool           *db.Pool
	settingsRepo   *repository.SettingsRepository
	countryRepo    *repository.CountryRepository
	gameTypeRepo   *repository.GameTypeRepository
	commissionRepo *repository.CommissionRepository
	locks          *lock.ScopeLock
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(
	pool *db.Pool,
	settingsRepo *repository.SettingsRepository,
	countryRepo *repository.CountryRepository,
	gameTypeRepo *repository.GameTypeRepository,
	commissionRepo *repository.CommissionRepository,
	locks *lock.ScopeLock,
) *AdminService {
	return &AdminService{
		pool:           pool,
		settingsRepo:   settingsRepo,
		countryRepo:    countryRepo,
		gameTypeRepo:   gameTypeRepo,
		commissionRepo: commissionRepo,
		locks:          locks,
	}
}

// Settings returns the current platform settings.
func (s *AdminService) Settings(ctx context.Context) (*model.PlatformSettings, error) {
	return s.settingsRepo.Get(ctx, s.pool)
}

// Pause halts the platform. Fails if already paused.
func (s *AdminService) Pause(ctx context.Context, caller string) error {
	return s.updateSettings(ctx, caller, func(ctx context.Context, q repository.Querier, settings *model.PlatformSettings) error {
		if settings.Paused {
			return ErrAlreadyPaused
		}
		return s.settingsRepo.SetPaused(ctx, q, true)
	})
}

// Unpause resumes a paused platform. Fails if not paused.
func (s *AdminService) Unpause(ctx context.Context, caller string) error {
	return s.updateSettings(ctx, caller, func(ctx context.Context, q repository.Querier, settings *model.PlatformSettings) error {
		if !settings.Paused {
			return ErrNotPaused
		}
		return s.settingsRepo.SetPaused(ctx, q, false)
	})
}

// TransferOwnership nominates a new platform owner. The handover only
// completes when the nominee calls AcceptOwnership; until then the current
// owner keeps full control and may re-nominate.
func (s *AdminService) TransferOwnership(ctx context.Context, caller, newOwner string) error {
	newOwner = strings.TrimSpace(newOwner)
	if newOwner == "" {
		return fmt.Errorf("%w: empty owner account", ErrInvalidAmount)
	}
	return s.updateSettings(ctx, caller, func(ctx context.Context, q repository.Querier, settings *model.PlatformSettings) error {
		return s.settingsRepo.SetPendingOwner(ctx, q, newOwner)
	})
}

// AcceptOwnership completes a pending handover. Only the nominated account
// may call it.
func (s *AdminService) AcceptOwnership(ctx context.Context, caller string) error {
	err := s.locks.WithLock(settingsScope, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		settings, err := s.settingsRepo.Get(ctx, tx)
		if err != nil {
			return err
		}
		if settings.PendingOwner == "" || caller != settings.PendingOwner {
			return ErrUnauthorized
		}
		if err := s.settingsRepo.SetOwner(ctx, tx, caller); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return err
	}

	log.Info().Str("owner", caller).Msg("Platform ownership transferred")
	return nil
}

// SetCommissionRate updates the platform commission, in basis points. Rates
// below 10% or above 100% are rejected.
func (s *AdminService) SetCommissionRate(ctx context.Context, caller string, rateBps int64) error {
	if rateBps < minCommissionRateBps || rateBps > maxCommissionRateBps {
		return ErrCommissionRateBounds
	}
	return s.updateSettings(ctx, caller, func(ctx context.Context, q repository.Querier, settings *model.PlatformSettings) error {
		return s.settingsRepo.SetCommissionRate(ctx, q, rateBps)
	})
}

// SetQuorum updates the player count at which pending tournaments activate.
// The quorum must exceed the three paid prize slots.
func (s *AdminService) SetQuorum(ctx context.Context, caller string, minPlayers int) error {
	if minPlayers < minQuorum {
		return ErrQuorumTooSmall
	}
	return s.updateSettings(ctx, caller, func(ctx context.Context, q repository.Querier, settings *model.PlatformSettings) error {
		return s.settingsRepo.SetMinPlayers(ctx, q, minPlayers)
	})
}

// RegisterGameType registers a game identifier with its maximum submittable
// score. Identifiers are unique; re-registering fails.
func (s *AdminService) RegisterGameType(ctx context.Context, caller, identifier string, maxScore int64) (*model.GameType, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || maxScore <= 0 {
		return nil, fmt.Errorf("%w: game type needs an identifier and a positive max score", ErrInvalidAmount)
	}
	if err := s.requireOwner(ctx, caller); err != nil {
		return nil, err
	}

	gt, err := s.gameTypeRepo.Register(ctx, identifier, maxScore)
	if err != nil {
		if errors.Is(err, repository.ErrGameTypeExists) {
			return nil, ErrGameTypeExists
		}
		return nil, err
	}

	log.Info().
		Str("game_type", gt.Identifier).
		Int64("max_score", gt.MaxScore).
		Msg("Game type registered")

	return gt, nil
}

// GameTypes lists registered game types, optionally filtered to one
// identifier.
func (s *AdminService) GameTypes(ctx context.Context, identifier string) ([]model.GameType, error) {
	return s.gameTypeRepo.List(ctx, identifier)
}

// AddCountry adds a country code to the allow-list used by country-gated
// tournaments. Adding an existing code is a no-op.
func (s *AdminService) AddCountry(ctx context.Context, caller, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ErrCountryRequired
	}
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.countryRepo.Add(ctx, code); err != nil {
		return err
	}

	log.Info().Str("country", code).Msg("Country added to allow-list")
	return nil
}

// IsCountrySupported reports whether a country code is on the allow-list.
func (s *AdminService) IsCountrySupported(ctx context.Context, code string) (bool, error) {
	return s.countryRepo.IsSupported(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// Countries lists the allow-listed country codes.
func (s *AdminService) Countries(ctx context.Context) ([]string, error) {
	return s.countryRepo.List(ctx)
}

// CommissionAccrued returns the accumulated platform commission for a token.
func (s *AdminService) CommissionAccrued(ctx context.Context, tokenType string) (int64, error) {
	return s.commissionRepo.Accrued(ctx, tokenType)
}

func (s *AdminService) requireOwner(ctx context.Context, caller string) error {
	settings, err := s.settingsRepo.Get(ctx, s.pool)
	if err != nil {
		return err
	}
	if caller != settings.Owner {
		return ErrUnauthorized
	}
	return nil
}

// updateSettings runs fn against the settings row under the settings scope
// lock, inside a transaction, after verifying the caller is the owner.
func (s *AdminService) updateSettings(ctx context.Context, caller string, fn func(context.Context, repository.Querier, *model.PlatformSettings) error) error {
	return s.locks.WithLock(settingsScope, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		settings, err := s.settingsRepo.Get(ctx, tx)
		if err != nil {
			return err
		}
		if caller != settings.Owner {
			return ErrUnauthorized
		}
		if err := fn(ctx, tx, settings); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}
