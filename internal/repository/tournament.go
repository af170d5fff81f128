package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stake-arena/internal/model"
)

// ErrTournamentNotFound is returned when no tournament matches the lookup.
var ErrTournamentNotFound = errors.New("tournament not found")

// TournamentRepository handles tournament and player persistence.
type TournamentRepository struct {
	pool *pgxpool.Pool
}

// NewTournamentRepository creates a new TournamentRepository instance.
func NewTournamentRepository(pool *pgxpool.Pool) *TournamentRepository {
	return &TournamentRepository{pool: pool}
}

const tournamentColumns = `
	id, name, tournament_key, game_type_id, owner_account, minimum_stake,
	total_stake, country, token_type, created_at, deadline, type, state
`

func scanTournament(row pgx.Row) (*model.Tournament, error) {
	var t model.Tournament
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.TournamentKey,
		&t.GameTypeID,
		&t.Owner,
		&t.MinimumStake,
		&t.TotalStake,
		&t.Country,
		&t.TokenType,
		&t.CreatedAt,
		&t.Deadline,
		&t.Type,
		&t.State,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NextID returns the id the next created tournament receives. Tournaments
// are never deleted, so count+1 stays sequential.
func (r *TournamentRepository) NextID(ctx context.Context, q Querier) (int64, error) {
	var count int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return count + 1, nil
}

// ExistsByKey reports whether a tournament with the given key exists.
func (r *TournamentRepository) ExistsByKey(ctx context.Context, q Querier, key string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tournaments WHERE tournament_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tournament key: %w", err)
	}
	return exists, nil
}

// ExistsByName reports whether a tournament with the given name exists.
func (r *TournamentRepository) ExistsByName(ctx context.Context, q Querier, name string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tournaments WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tournament name: %w", err)
	}
	return exists, nil
}

// Create inserts a tournament together with its initial players.
func (r *TournamentRepository) Create(ctx context.Context, q Querier, t *model.Tournament) error {
	const query = `
		INSERT INTO tournaments (` + tournamentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := q.Exec(ctx, query,
		t.ID, t.Name, t.TournamentKey, t.GameTypeID, t.Owner, t.MinimumStake,
		t.TotalStake, t.Country, t.TokenType, t.CreatedAt, t.Deadline, t.Type, t.State,
	)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}

	for i := range t.Players {
		if err := r.AppendPlayer(ctx, q, t.ID, &t.Players[i]); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a tournament with its players ordered by join ordinal.
// Returns ErrTournamentNotFound if the id does not resolve.
func (r *TournamentRepository) GetByID(ctx context.Context, q Querier, id int64) (*model.Tournament, error) {
	const query = `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	t.Players, err = r.players(ctx, q, id)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// ResolveByKeyOrName returns the tournament matching either the key or the
// name. When several match, the one created last wins, matching the linear
// scan of the original store where later entries overwrite earlier hits.
func (r *TournamentRepository) ResolveByKeyOrName(ctx context.Context, key, name string) (*model.Tournament, error) {
	const query = `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE tournament_key = $1 OR name = $2
		ORDER BY id DESC
		LIMIT 1
	`

	t, err := scanTournament(r.pool.QueryRow(ctx, query, key, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to resolve tournament: %w", err)
	}

	t.Players, err = r.players(ctx, r.pool, t.ID)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// List returns all tournaments in id order, or only those owned by owner
// when owner is non-empty. Players are attached to each tournament.
func (r *TournamentRepository) List(ctx context.Context, owner string) ([]model.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY id`
	args := []any{}
	if owner != "" {
		query = `SELECT ` + tournamentColumns + ` FROM tournaments WHERE owner_account = $1 ORDER BY id`
		args = append(args, owner)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []model.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournaments: %w", err)
	}

	for i := range tournaments {
		tournaments[i].Players, err = r.players(ctx, r.pool, tournaments[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return tournaments, nil
}

// ListExpiredUnsettled returns ids of tournaments whose deadline has passed
// and which still need a settlement pass.
func (r *TournamentRepository) ListExpiredUnsettled(ctx context.Context, now time.Time) ([]int64, error) {
	const query = `
		SELECT id FROM tournaments
		WHERE deadline <= $1 AND state NOT IN ($2, $3)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, now, model.StateClosed, model.StateDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired tournaments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament ids: %w", err)
	}

	return ids, nil
}

// AppendPlayer inserts a player row for the tournament.
func (r *TournamentRepository) AppendPlayer(ctx context.Context, q Querier, tournamentID int64, p *model.TournamentPlayer) error {
	const query = `
		INSERT INTO tournament_players (tournament_id, player_id, account, stake_amount, score, games_played, join_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := q.Exec(ctx, query, tournamentID, p.ID, p.Account, p.StakeAmount, p.Score, p.GamesPlayed, p.JoinDate)
	if err != nil {
		return fmt.Errorf("failed to append player: %w", err)
	}
	return nil
}

// PlayerCount returns the number of players in the tournament.
func (r *TournamentRepository) PlayerCount(ctx context.Context, q Querier, tournamentID int64) (int64, error) {
	var count int64
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM tournament_players WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

// AddScore accumulates a published score onto the caller's own player rows
// and bumps their play counter. Returns the number of rows updated; zero
// means the account never joined, which the scoring rules treat as a no-op.
func (r *TournamentRepository) AddScore(ctx context.Context, q Querier, tournamentID int64, account string, score int64) (int64, error) {
	const query = `
		UPDATE tournament_players
		SET score = score + $3, games_played = games_played + 1
		WHERE tournament_id = $1 AND account = $2
	`

	tag, err := q.Exec(ctx, query, tournamentID, account, score)
	if err != nil {
		return 0, fmt.Errorf("failed to add score: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetState moves the tournament to the given lifecycle state.
func (r *TournamentRepository) SetState(ctx context.Context, q Querier, tournamentID int64, state model.TournamentState) error {
	tag, err := q.Exec(ctx, `UPDATE tournaments SET state = $2 WHERE id = $1`, tournamentID, state)
	if err != nil {
		return fmt.Errorf("failed to set tournament state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

// AddTotalStake accumulates a swept stake into the tournament's pool total.
func (r *TournamentRepository) AddTotalStake(ctx context.Context, q Querier, tournamentID int64, amount int64) error {
	tag, err := q.Exec(ctx, `UPDATE tournaments SET total_stake = total_stake + $2 WHERE id = $1`, tournamentID, amount)
	if err != nil {
		return fmt.Errorf("failed to add total stake: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (r *TournamentRepository) players(ctx context.Context, q Querier, tournamentID int64) ([]model.TournamentPlayer, error) {
	const query = `
		SELECT player_id, account, stake_amount, score, games_played, join_date
		FROM tournament_players
		WHERE tournament_id = $1
		ORDER BY player_id
	`

	rows, err := q.Query(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	defer rows.Close()

	var players []model.TournamentPlayer
	for rows.Next() {
		var p model.TournamentPlayer
		err := rows.Scan(&p.ID, &p.Account, &p.StakeAmount, &p.Score, &p.GamesPlayed, &p.JoinDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}
