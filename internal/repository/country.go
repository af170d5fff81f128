package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CountryRepository handles the append-only country allow-list.
type CountryRepository struct {
	pool *pgxpool.Pool
}

// NewCountryRepository creates a new CountryRepository instance.
func NewCountryRepository(pool *pgxpool.Pool) *CountryRepository {
	return &CountryRepository{pool: pool}
}

// Add appends a country code to the allow-list. Adding an existing code is a
// no-op; the list only ever grows.
func (r *CountryRepository) Add(ctx context.Context, code string) error {
	const query = `
		INSERT INTO supported_countries (code, added_at)
		VALUES ($1, NOW())
		ON CONFLICT (code) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, code); err != nil {
		return fmt.Errorf("failed to add country: %w", err)
	}
	return nil
}

// IsSupported reports whether the country code is on the allow-list.
func (r *CountryRepository) IsSupported(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM supported_countries WHERE code = $1)`

	var supported bool
	if err := r.pool.QueryRow(ctx, query, code).Scan(&supported); err != nil {
		return false, fmt.Errorf("failed to check country: %w", err)
	}
	return supported, nil
}

// List returns all allow-listed country codes.
func (r *CountryRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT code FROM supported_countries ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating countries: %w", err)
	}

	return codes, nil
}
