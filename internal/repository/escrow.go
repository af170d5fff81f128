package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stake-arena/internal/model"
)

// Common errors for escrow operations.
var (
	// ErrNoDeposit is returned when no escrow row exists for the
	// (account, token_type) pair.
	ErrNoDeposit = errors.New("no deposit on record")
	// ErrBelowMinimum is returned by Sweep when the balance is below the
	// required minimum. The balance is left unchanged.
	ErrBelowMinimum = errors.New("escrow balance below required minimum")
)

// EscrowRepository handles escrow ledger persistence.
type EscrowRepository struct {
	pool *pgxpool.Pool
}

// NewEscrowRepository creates a new EscrowRepository instance.
func NewEscrowRepository(pool *pgxpool.Pool) *EscrowRepository {
	return &EscrowRepository{pool: pool}
}

// Credit adds amount to the un-spent balance for (account, tokenType),
// creating the row if it does not exist. Returns the updated balance.
func (r *EscrowRepository) Credit(ctx context.Context, account, tokenType string, amount int64) (*model.EscrowBalance, error) {
	const query = `
		INSERT INTO escrow_balances (account, token_type, balance, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account, token_type)
		DO UPDATE SET balance = escrow_balances.balance + $3, updated_at = NOW()
		RETURNING account, token_type, balance, updated_at
	`

	var bal model.EscrowBalance
	err := r.pool.QueryRow(ctx, query, account, tokenType, amount).Scan(
		&bal.Account,
		&bal.TokenType,
		&bal.Balance,
		&bal.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to credit escrow: %w", err)
	}

	return &bal, nil
}

// Balance retrieves the current un-spent balance for (account, tokenType).
// Returns ErrNoDeposit when no row exists.
func (r *EscrowRepository) Balance(ctx context.Context, account, tokenType string) (int64, error) {
	const query = `
		SELECT balance FROM escrow_balances
		WHERE account = $1 AND token_type = $2
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, account, tokenType).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoDeposit
		}
		return 0, fmt.Errorf("failed to get escrow balance: %w", err)
	}

	return balance, nil
}

// Sweep consumes the entire balance for (account, tokenType) if it is at
// least requiredMinimum, zeroing the row and returning the full amount that
// was held. The row is read under FOR UPDATE so the read-then-zero pair is
// atomic within the caller's transaction. Returns ErrNoDeposit when no row
// exists and ErrBelowMinimum when the balance is insufficient; in both cases
// nothing is consumed.
func (r *EscrowRepository) Sweep(ctx context.Context, q Querier, account, tokenType string, requiredMinimum int64) (int64, error) {
	const selectQuery = `
		SELECT balance FROM escrow_balances
		WHERE account = $1 AND token_type = $2
		FOR UPDATE
	`

	var balance int64
	err := q.QueryRow(ctx, selectQuery, account, tokenType).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoDeposit
		}
		return 0, fmt.Errorf("failed to read escrow balance: %w", err)
	}

	if balance < requiredMinimum {
		return 0, ErrBelowMinimum
	}

	const zeroQuery = `
		UPDATE escrow_balances
		SET balance = 0, updated_at = NOW()
		WHERE account = $1 AND token_type = $2
	`

	if _, err := q.Exec(ctx, zeroQuery, account, tokenType); err != nil {
		return 0, fmt.Errorf("failed to zero escrow balance: %w", err)
	}

	return balance, nil
}
