package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"stake-arena/internal/model"
)

// IntentRepository records outbound transfer intents. Dispatch to the token
// service is fire-and-forget, so the recorded intent is the only trace the
// engine keeps of money it asked to move.
type IntentRepository struct {
	pool *pgxpool.Pool
}

// NewIntentRepository creates a new IntentRepository instance.
func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{pool: pool}
}

// Record persists a transfer intent.
func (r *IntentRepository) Record(ctx context.Context, q Querier, intent *model.TransferIntent) error {
	const query = `
		INSERT INTO transfer_intents (id, tournament_id, token_type, to_account, amount, kind, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		intent.ID, intent.TournamentID, intent.TokenType, intent.To,
		intent.Amount, intent.Kind, intent.Memo, intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record transfer intent: %w", err)
	}
	return nil
}

// ListByTournament returns all intents recorded for a tournament, oldest
// first.
func (r *IntentRepository) ListByTournament(ctx context.Context, tournamentID int64) ([]model.TransferIntent, error) {
	const query = `
		SELECT id, tournament_id, token_type, to_account, amount, kind, memo, created_at
		FROM transfer_intents
		WHERE tournament_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer intents: %w", err)
	}
	defer rows.Close()

	var intents []model.TransferIntent
	for rows.Next() {
		var in model.TransferIntent
		err := rows.Scan(&in.ID, &in.TournamentID, &in.TokenType, &in.To, &in.Amount, &in.Kind, &in.Memo, &in.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer intent: %w", err)
		}
		intents = append(intents, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfer intents: %w", err)
	}

	return intents, nil
}
