package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stake-arena/internal/model"
	"stake-arena/internal/pkg/db"
	"stake-arena/internal/pkg/lock"
	"stake-arena/internal/repository"
)

// SettlementService closes tournaments past their deadline. Depending on the
// state it either refunds escrowed stakes (quorum never reached) or computes
// ranked, commission-adjusted payouts. The CLOSED transition and the intent
// records commit locally before any external transfer is dispatched; a
// transfer that later fails is reconciled outside this engine.
type SettlementService struct {
	pool           *db.Pool
	tournamentRepo *repository.TournamentRepository
	commissionRepo *repository.CommissionRepository
	settingsRepo   *repository.SettingsRepository
	intentRepo     *repository.IntentRepository
	locks          *lock.ScopeLock
}

// NewSettlementService creates a new SettlementService instance.
func NewSettlementService(
	pool *db.Pool,
	tournamentRepo *repository.TournamentRepository,
	commissionRepo *repository.CommissionRepository,
	settingsRepo *repository.SettingsRepository,
	intentRepo *repository.IntentRepository,
	locks *lock.ScopeLock,
) *SettlementService {
	return &SettlementService{
		pool:           pool,
		tournamentRepo: tournamentRepo,
		commissionRepo: commissionRepo,
		settingsRepo:   settingsRepo,
		intentRepo:     intentRepo,
		locks:          locks,
	}
}

// Settle closes the tournament and returns the transfer intents the caller
// must hand to the external token service. Only the platform owner may
// settle. The returned intents are already committed; dispatching them is
// fire-and-forget.
func (s *SettlementService) Settle(ctx context.Context, caller string, tournamentID int64) ([]model.TransferIntent, error) {
	var intents []model.TransferIntent

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

		settings, err := s.settingsRepo.Get(ctx, tx)
		if err != nil {
			return err
		}
		if caller != settings.Owner {
			return ErrUnauthorized
		}
		if t.Deadline.After(time.Now().UTC()) {
			return ErrDeadlineNotReached
		}
		if t.State == model.StateClosed {
			return ErrTournamentClosed
		}

		switch t.State {
		case model.StatePendingVolume:
			intents, err = s.refundStakes(ctx, tx, t)
		case model.StateDeleted:
			// Dormant state: nothing to refund or pay out.
			return nil
		default:
			intents, err = s.payOutRanked(ctx, tx, t, settings.CommissionRateBps)
		}
		if err != nil {
			return err
		}

		if err := s.tournamentRepo.SetState(ctx, tx, t.ID, model.StateClosed); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("tournament_id", tournamentID).
		Int("transfers", len(intents)).
		Msg("Tournament settled")

	return intents, nil
}

// refundStakes handles the low-participation path: quorum was never reached,
// so every player gets their full recorded stake back. The one exception is
// a player entry belonging to the tournament owner (the self-entry from
// creating without opponents): that stake accrues to the platform commission
// pool and is never refunded.
func (s *SettlementService) refundStakes(ctx context.Context, q repository.Querier, t *model.Tournament) ([]model.TransferIntent, error) {
	var intents []model.TransferIntent

	for _, p := range t.Players {
		if p.Account == t.Owner {
			if err := s.commissionRepo.Accrue(ctx, q, t.TokenType, p.StakeAmount); err != nil {
				return nil, err
			}
			continue
		}

		intent := model.TransferIntent{
			ID:           uuid.NewString(),
			TournamentID: t.ID,
			TokenType:    t.TokenType,
			To:           p.Account,
			Amount:       p.StakeAmount,
			Kind:         model.IntentRefund,
			Memo:         fmt.Sprintf("stake refund, tournament %q", t.Name),
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.intentRepo.Record(ctx, q, &intent); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}

	return intents, nil
}

// payOutRanked handles the paid-out path: the platform commission is carved
// off the pool, players are ranked best-first by per-game average, and the
// three prize slots are paid to the top ranks. Whatever the slot truncation
// or a short player list leaves unpaid accrues to the commission pool so the
// settled pool is fully accounted for.
func (s *SettlementService) payOutRanked(ctx context.Context, q repository.Querier, t *model.Tournament, commissionRateBps int64) ([]model.TransferIntent, error) {
	commission := Commission(commissionRateBps, t.TotalStake)
	if err := s.commissionRepo.Accrue(ctx, q, t.TokenType, commission); err != nil {
		return nil, err
	}
	payable := t.TotalStake - commission

	ranked := rankPlayers(t.Players)
	weights := PositionPrizes(commissionRateBps)

	slots := len(weights)
	if len(ranked) < slots {
		slots = len(ranked)
	}

	var intents []model.TransferIntent
	var paid int64
	for i := 0; i < slots; i++ {
		amount := prizeAmount(weights[i], t.TotalStake)
		if amount == 0 {
			continue
		}
		paid += amount

		intent := model.TransferIntent{
			ID:           uuid.NewString(),
			TournamentID: t.ID,
			TokenType:    t.TokenType,
			To:           ranked[i].Account,
			Amount:       amount,
			Kind:         model.IntentPrize,
			Memo:         fmt.Sprintf("rank %d prize, tournament %q", i+1, t.Name),
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.intentRepo.Record(ctx, q, &intent); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}

	if leftover := payable - paid; leftover > 0 {
		if err := s.commissionRepo.Accrue(ctx, q, t.TokenType, leftover); err != nil {
			return nil, err
		}
	}

	return intents, nil
}

// PrizeTable returns the current three-slot prize weight table computed from
// the configured commission rate.
func (s *SettlementService) PrizeTable(ctx context.Context) ([3]int64, error) {
	settings, err := s.settingsRepo.Get(ctx, s.pool)
	if err != nil {
		return [3]int64{}, err
	}
	return PositionPrizes(settings.CommissionRateBps), nil
}

// ListIntents returns the transfer intents recorded for a tournament.
func (s *SettlementService) ListIntents(ctx context.Context, tournamentID int64) ([]model.TransferIntent, error) {
	return s.intentRepo.ListByTournament(ctx, tournamentID)
}
