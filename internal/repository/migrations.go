package repository

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Migrate applies the database schema. Statements are idempotent so the
// server can run them on every start.
func Migrate(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS platform_settings (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			owner_account TEXT NOT NULL,
			pending_owner TEXT NOT NULL DEFAULT '',
			paused BOOLEAN NOT NULL DEFAULT FALSE,
			min_tournament_players INT NOT NULL DEFAULT 4,
			commission_rate_bps BIGINT NOT NULL DEFAULT 1000,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration: platform_settings table ready")

	_, err = q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_types (
			identifier TEXT PRIMARY KEY,
			max_score BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration: game_types table ready")

	_, err = q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS supported_countries (
			code TEXT PRIMARY KEY,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration: supported_countries table ready")

	_, err = q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS escrow_balances (
			account TEXT NOT NULL,
			token_type TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (account, token_type)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration: escrow_balances table ready")

	_, err = q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tournaments (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			tournament_key TEXT NOT NULL UNIQUE,
			game_type_id TEXT NOT NULL REFERENCES game_types(identifier),
			owner_account TEXT NOT NULL,
			minimum_stake BIGINT NOT NULL,
			total_stake BIGINT NOT NULL DEFAULT 0,
			country TEXT NOT NULL DEFAULT '',
			token_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			deadline TIMESTAMPTZ NOT NULL,
			type VARCHAR(20) NOT NULL,
			state VARCHAR(20) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tournaments_owner ON tournaments(owner_account);
		CREATE INDEX IF NOT EXISTS idx_tournaments_state_deadline ON tournaments(state, deadline);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration: tournaments table ready")

	_, err = q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tournament_players (
			tournament_id BIGINT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			player_id BIGINT NOT NULL,
			account TEXT NOT NULL,
			stake_amount BIGINT NOT NULL,
			score BIGINT NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			join_date TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (tournament_id, player_id)
		);
		CREATE INDEX IF NOT EXISTS idx_tournament_players_account ON tournament_players(account);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration: tournament_players table ready")

	_, err = q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS commission_pool (
			token_type TEXT PRIMARY KEY,
			accrued BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration: commission_pool table ready")

	_, err = q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transfer_intents (
			id UUID PRIMARY KEY,
			tournament_id BIGINT NOT NULL REFERENCES tournaments(id),
			token_type TEXT NOT NULL,
			to_account TEXT NOT NULL,
			amount BIGINT NOT NULL,
			kind VARCHAR(20) NOT NULL,
			memo TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transfer_intents_tournament ON transfer_intents(tournament_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration: transfer_intents table ready")

	return nil
}
