// Package worker runs the background deadline sweeper. Tournaments whose
// deadlines have passed are settled as the platform owner and the resulting
// transfers handed to the token ledger.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"stake-arena/internal/pkg/db"
	"stake-arena/internal/repository"
	"stake-arena/internal/service"
	"stake-arena/internal/token"
)

// Settler periodically settles every tournament past its deadline.
type Settler struct {
	pool           *db.Pool
	tournamentRepo *repository.TournamentRepository
	settingsRepo   *repository.SettingsRepository
	settlement     *service.SettlementService
	notifier       token.Notifier
	interval       time.Duration
	scheduler      gocron.Scheduler
}

// NewSettler creates a new Settler instance.
func NewSettler(
	pool *db.Pool,
	tournamentRepo *repository.TournamentRepository,
	settingsRepo *repository.SettingsRepository,
	settlement *service.SettlementService,
	notifier token.Notifier,
	interval time.Duration,
) *Settler {
	return &Settler{
		pool:           pool,
		tournamentRepo: tournamentRepo,
		settingsRepo:   settingsRepo,
		settlement:     settlement,
		notifier:       notifier,
		interval:       interval,
	}
}

// Start schedules the sweep and begins running it.
func (s *Settler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.scheduler = scheduler

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.sweep(ctx)
		}),
	)
	if err != nil {
		return err
	}

	scheduler.Start()
	log.Info().Dur("interval", s.interval).Msg("Settlement sweeper started")
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (s *Settler) Stop() {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Settlement sweeper shutdown failed")
	}
}

// sweep settles every expired, unsettled tournament as the platform owner.
// A tournament settled concurrently by a manual call surfaces as an
// AlreadyClosed conflict and is skipped quietly.
func (s *Settler) sweep(ctx context.Context) {
	settings, err := s.settingsRepo.Get(ctx, s.pool)
	if err != nil {
		log.Error().Err(err).Msg("Sweep failed to load platform settings")
		return
	}

	ids, err := s.tournamentRepo.ListExpiredUnsettled(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Sweep failed to list expired tournaments")
		return
	}

	for _, id := range ids {
		intents, err := s.settlement.Settle(ctx, settings.Owner, id)
		if err != nil {
			if errors.Is(err, service.ErrTournamentClosed) {
				continue
			}
			log.Error().Err(err).Int64("tournament_id", id).Msg("Sweep settlement failed")
			continue
		}
		s.notifier.Dispatch(ctx, intents)
	}
}
