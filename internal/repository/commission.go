package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CommissionRepository tracks the platform-retained share of settled stakes,
// accrued per token type.
type CommissionRepository struct {
	pool *pgxpool.Pool
}

// NewCommissionRepository creates a new CommissionRepository instance.
func NewCommissionRepository(pool *pgxpool.Pool) *CommissionRepository {
	return &CommissionRepository{pool: pool}
}

// Accrue adds amount to the commission pool for the token type.
func (r *CommissionRepository) Accrue(ctx context.Context, q Querier, tokenType string, amount int64) error {
	const query = `
		INSERT INTO commission_pool (token_type, accrued, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token_type)
		DO UPDATE SET accrued = commission_pool.accrued + $2, updated_at = NOW()
	`

	if _, err := q.Exec(ctx, query, tokenType, amount); err != nil {
		return fmt.Errorf("failed to accrue commission: %w", err)
	}
	return nil
}

// Accrued returns the total commission accrued for the token type, zero when
// nothing has accrued yet.
func (r *CommissionRepository) Accrued(ctx context.Context, tokenType string) (int64, error) {
	const query = `SELECT accrued FROM commission_pool WHERE token_type = $1`

	var accrued int64
	err := r.pool.QueryRow(ctx, query, tokenType).Scan(&accrued)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get accrued commission: %w", err)
	}

	return accrued, nil
}
