package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"stake-arena/internal/model"
)

// SettingsRepository handles the singleton platform settings row.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository instance.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Seed inserts the settings row if it does not exist yet. Existing settings
// are never overwritten by config values; the admin mutators own them after
// first start.
func (r *SettingsRepository) Seed(ctx context.Context, owner string, minPlayers int, commissionRateBps int64) error {
	const query = `
		INSERT INTO platform_settings (id, owner_account, min_tournament_players, commission_rate_bps)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, owner, minPlayers, commissionRateBps); err != nil {
		return fmt.Errorf("failed to seed platform settings: %w", err)
	}
	return nil
}

// Get retrieves the platform settings.
func (r *SettingsRepository) Get(ctx context.Context, q Querier) (*model.PlatformSettings, error) {
	const query = `
		SELECT owner_account, pending_owner, paused, min_tournament_players, commission_rate_bps, updated_at
		FROM platform_settings WHERE id = 1
	`

	var s model.PlatformSettings
	err := q.QueryRow(ctx, query).Scan(
		&s.Owner,
		&s.PendingOwner,
		&s.Paused,
		&s.MinPlayers,
		&s.CommissionRateBps,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get platform settings: %w", err)
	}

	return &s, nil
}

// SetPaused updates the pause flag.
func (r *SettingsRepository) SetPaused(ctx context.Context, q Querier, paused bool) error {
	return r.update(ctx, q, `UPDATE platform_settings SET paused = $1, updated_at = NOW() WHERE id = 1`, paused)
}

// SetPendingOwner records the proposed successor of a two-step ownership
// transfer.
func (r *SettingsRepository) SetPendingOwner(ctx context.Context, q Querier, pending string) error {
	return r.update(ctx, q, `UPDATE platform_settings SET pending_owner = $1, updated_at = NOW() WHERE id = 1`, pending)
}

// SetOwner completes an ownership transfer, clearing the pending slot.
func (r *SettingsRepository) SetOwner(ctx context.Context, q Querier, owner string) error {
	return r.update(ctx, q, `UPDATE platform_settings SET owner_account = $1, pending_owner = '', updated_at = NOW() WHERE id = 1`, owner)
}

// SetCommissionRate updates the commission rate in basis points.
func (r *SettingsRepository) SetCommissionRate(ctx context.Context, q Querier, rateBps int64) error {
	return r.update(ctx, q, `UPDATE platform_settings SET commission_rate_bps = $1, updated_at = NOW() WHERE id = 1`, rateBps)
}

// SetMinPlayers updates the quorum required for PENDING_VOLUME -> ACTIVE.
func (r *SettingsRepository) SetMinPlayers(ctx context.Context, q Querier, minPlayers int) error {
	return r.update(ctx, q, `UPDATE platform_settings SET min_tournament_players = $1, updated_at = NOW() WHERE id = 1`, minPlayers)
}

func (r *SettingsRepository) update(ctx context.Context, q Querier, query string, arg any) error {
	if _, err := q.Exec(ctx, query, arg); err != nil {
		return fmt.Errorf("failed to update platform settings: %w", err)
	}
	return nil
}
