package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stake-arena/internal/model"
)

// Common errors for game type operations.
var (
	ErrGameTypeNotFound = errors.New("game type not found")
	ErrGameTypeExists   = errors.New("game type already registered")
)

// GameTypeRepository handles game type persistence.
type GameTypeRepository struct {
	pool *pgxpool.Pool
}

// NewGameTypeRepository creates a new GameTypeRepository instance.
func NewGameTypeRepository(pool *pgxpool.Pool) *GameTypeRepository {
	return &GameTypeRepository{pool: pool}
}

// Register inserts a new game type. Game types are immutable once
// registered; re-registering an identifier fails with ErrGameTypeExists.
func (r *GameTypeRepository) Register(ctx context.Context, identifier string, maxScore int64) (*model.GameType, error) {
	const query = `
		INSERT INTO game_types (identifier, max_score, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identifier) DO NOTHING
		RETURNING identifier, max_score, created_at
	`

	var gt model.GameType
	err := r.pool.QueryRow(ctx, query, identifier, maxScore).Scan(&gt.Identifier, &gt.MaxScore, &gt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameTypeExists
		}
		return nil, fmt.Errorf("failed to register game type: %w", err)
	}

	return &gt, nil
}

// GetByID retrieves a game type by identifier.
func (r *GameTypeRepository) GetByID(ctx context.Context, q Querier, identifier string) (*model.GameType, error) {
	const query = `SELECT identifier, max_score, created_at FROM game_types WHERE identifier = $1`

	var gt model.GameType
	err := q.QueryRow(ctx, query, identifier).Scan(&gt.Identifier, &gt.MaxScore, &gt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameTypeNotFound
		}
		return nil, fmt.Errorf("failed to get game type: %w", err)
	}

	return &gt, nil
}

// List returns all game types, or only the one matching identifier when it
// is non-empty.
func (r *GameTypeRepository) List(ctx context.Context, identifier string) ([]model.GameType, error) {
	query := `SELECT identifier, max_score, created_at FROM game_types ORDER BY identifier`
	args := []any{}
	if identifier != "" {
		query = `SELECT identifier, max_score, created_at FROM game_types WHERE identifier = $1`
		args = append(args, identifier)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list game types: %w", err)
	}
	defer rows.Close()

	var types []model.GameType
	for rows.Next() {
		var gt model.GameType
		if err := rows.Scan(&gt.Identifier, &gt.MaxScore, &gt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game type: %w", err)
		}
		types = append(types, gt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game types: %w", err)
	}

	return types, nil
}
