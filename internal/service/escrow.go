package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"stake-arena/internal/model"
	"stake-arena/internal/pkg/lock"
	"stake-arena/internal/repository"
)

// EscrowService handles the per-depositor, per-token staked balance ledger.
// Balances are credited by deposit notifications from the external token
// service and fully swept the moment a create or join consumes them.
type EscrowService struct {
	escrowRepo *repository.EscrowRepository
	locks      *lock.ScopeLock
}

// NewEscrowService creates a new EscrowService instance.
func NewEscrowService(escrowRepo *repository.EscrowRepository, locks *lock.ScopeLock) *EscrowService {
	return &EscrowService{
		escrowRepo: escrowRepo,
		locks:      locks,
	}
}

func escrowScope(account, tokenType string) string {
	return "escrow:" + account + ":" + tokenType
}

// Deposit credits an inbound transfer-with-message to the depositor's
// un-spent balance. The message is reserved for associating a deposit with a
// tournament; it is currently logged and otherwise unused. The receipt
// always reports zero refused: the engine accepts every deposit in full.
func (s *EscrowService) Deposit(ctx context.Context, depositor, tokenType string, amount int64, message string) (*model.DepositReceipt, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	var bal *model.EscrowBalance
	err := s.locks.WithLock(escrowScope(depositor, tokenType), func() error {
		var err error
		bal, err = s.escrowRepo.Credit(ctx, depositor, tokenType, amount)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to credit deposit: %w", err)
	}

	log.Info().
		Str("depositor", depositor).
		Str("token_type", tokenType).
		Int64("amount", amount).
		Int64("balance", bal.Balance).
		Str("message", message).
		Msg("Deposit credited")

	return &model.DepositReceipt{
		Account:   depositor,
		TokenType: tokenType,
		Credited:  amount,
		Refused:   0,
	}, nil
}

// Balance returns the un-spent staked balance for (account, tokenType), zero
// when no deposit exists.
func (s *EscrowService) Balance(ctx context.Context, account, tokenType string) (int64, error) {
	balance, err := s.escrowRepo.Balance(ctx, account, tokenType)
	if err != nil {
		if errors.Is(err, repository.ErrNoDeposit) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}
