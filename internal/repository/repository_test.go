// Package repository tests use testcontainers-go to spin up a PostgreSQL
// container, mirroring the production schema via Migrate.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stake-arena/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func testTournament(id int64) *model.Tournament {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Tournament{
		ID:            id,
		Name:          "weekly-blitz",
		TournamentKey: "key-weekly-blitz",
		GameTypeID:    "blitz",
		Owner:         "alice.near",
		MinimumStake:  100,
		TotalStake:    0,
		TokenType:     "usdt",
		CreatedAt:     now,
		Deadline:      now.Add(7 * 24 * time.Hour),
		Type:          model.TournamentPublic,
		State:         model.StatePendingVolume,
	}
}

func seedGameType(t *testing.T, pool *pgxpool.Pool, identifier string) {
	t.Helper()
	repo := NewGameTypeRepository(pool)
	_, err := repo.Register(context.Background(), identifier, 1000)
	require.NoError(t, err)
}

// ============================================================================
// EscrowRepository Tests
// ============================================================================

func TestEscrowRepository_CreditAccumulates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEscrowRepository(pool)
	ctx := context.Background()

	bal, err := repo.Credit(ctx, "alice.near", "usdt", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.Balance)

	bal, err = repo.Credit(ctx, "alice.near", "usdt", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bal.Balance)

	// Token types are independent ledger entries.
	bal, err = repo.Credit(ctx, "alice.near", "wnear", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(30), bal.Balance)
}

func TestEscrowRepository_BalanceNoDeposit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEscrowRepository(pool)

	_, err := repo.Balance(context.Background(), "nobody.near", "usdt")
	assert.ErrorIs(t, err, ErrNoDeposit)
}

func TestEscrowRepository_SweepConsumesFullBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEscrowRepository(pool)
	ctx := context.Background()

	_, err := repo.Credit(ctx, "alice.near", "usdt", 250)
	require.NoError(t, err)

	// The sweep returns the whole balance, not just the minimum.
	swept, err := repo.Sweep(ctx, pool, "alice.near", "usdt", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(250), swept)

	balance, err := repo.Balance(ctx, "alice.near", "usdt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestEscrowRepository_SweepErrors(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEscrowRepository(pool)
	ctx := context.Background()

	_, err := repo.Sweep(ctx, pool, "nobody.near", "usdt", 100)
	assert.ErrorIs(t, err, ErrNoDeposit)

	_, err = repo.Credit(ctx, "bob.near", "usdt", 99)
	require.NoError(t, err)

	_, err = repo.Sweep(ctx, pool, "bob.near", "usdt", 100)
	assert.ErrorIs(t, err, ErrBelowMinimum)

	// A refused sweep leaves the balance untouched.
	balance, err := repo.Balance(ctx, "bob.near", "usdt")
	require.NoError(t, err)
	assert.Equal(t, int64(99), balance)
}

func TestEscrowRepository_SweepRollsBackWithTx(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEscrowRepository(pool)
	ctx := context.Background()

	_, err := repo.Credit(ctx, "alice.near", "usdt", 500)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)

	swept, err := repo.Sweep(ctx, tx, "alice.near", "usdt", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(500), swept)

	require.NoError(t, tx.Rollback(ctx))

	balance, err := repo.Balance(ctx, "alice.near", "usdt")
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)
}

// ============================================================================
// TournamentRepository Tests
// ============================================================================

func TestTournamentRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedGameType(t, pool, "blitz")
	repo := NewTournamentRepository(pool)
	ctx := context.Background()

	tournament := testTournament(1)
	tournament.Players = []model.TournamentPlayer{
		{ID: 1, Account: "bob.near", StakeAmount: 120, JoinDate: time.Now().UTC()},
	}
	require.NoError(t, repo.Create(ctx, pool, tournament))

	got, err := repo.GetByID(ctx, pool, 1)
	require.NoError(t, err)
	assert.Equal(t, "weekly-blitz", got.Name)
	assert.Equal(t, model.StatePendingVolume, got.State)
	require.Len(t, got.Players, 1)
	assert.Equal(t, "bob.near", got.Players[0].Account)
	assert.Equal(t, int64(120), got.Players[0].StakeAmount)

	_, err = repo.GetByID(ctx, pool, 42)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestTournamentRepository_NextID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedGameType(t, pool, "blitz")
	repo := NewTournamentRepository(pool)
	ctx := context.Background()

	id, err := repo.NextID(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.NoError(t, repo.Create(ctx, pool, testTournament(1)))

	id, err = repo.NextID(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestTournamentRepository_ExistsChecks(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedGameType(t, pool, "blitz")
	repo := NewTournamentRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pool, testTournament(1)))

	exists, err := repo.ExistsByKey(ctx, pool, "key-weekly-blitz")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByKey(ctx, pool, "other-key")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByName(ctx, pool, "weekly-blitz")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTournamentRepository_ResolvePrefersLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedGameType(t, pool, "blitz")
	repo := NewTournamentRepository(pool)
	ctx := context.Background()

	first := testTournament(1)
	require.NoError(t, repo.Create(ctx, pool, first))

	second := testTournament(2)
	second.Name = "weekly-blitz-2"
	second.TournamentKey = "key-weekly-blitz-2"
	require.NoError(t, repo.Create(ctx, pool, second))

	// Key matches the first, name matches the second: the later id wins.
	got, err := repo.ResolveByKeyOrName(ctx, "key-weekly-blitz", "weekly-blitz-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)

	_, err = repo.ResolveByKeyOrName(ctx, "missing", "missing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestTournamentRepository_AddScore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedGameType(t, pool, "blitz")
	repo := NewTournamentRepository(pool)
	ctx := context.Background()

	tournament := testTournament(1)
	tournament.Players = []model.TournamentPlayer{
		{ID: 1, Account: "bob.near", StakeAmount: 100, JoinDate: time.Now().UTC()},
	}
	require.NoError(t, repo.Create(ctx, pool, tournament))

	affected, err := repo.AddScore(ctx, pool, 1, "bob.near", 70)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.AddScore(ctx, pool, 1, "bob.near", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Accounts that never joined update nothing.
	affected, err = repo.AddScore(ctx, pool, 1, "eve.near", 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	got, err := repo.GetByID(ctx, pool, 1)
	require.NoError(t, err)
	require.Len(t, got.Players, 1)
	assert.Equal(t, int64(100), got.Players[0].Score)
	assert.Equal(t, int64(2), got.Players[0].GamesPlayed)
}

func TestTournamentRepository_SetStateAndTotalStake(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedGameType(t, pool, "blitz")
	repo := NewTournamentRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pool, testTournament(1)))

	require.NoError(t, repo.SetState(ctx, pool, 1, model.StateActive))
	require.NoError(t, repo.AddTotalStake(ctx, pool, 1, 300))
	require.NoError(t, repo.AddTotalStake(ctx, pool, 1, 200))

	got, err := repo.GetByID(ctx, pool, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StateActive, got.State)
	assert.Equal(t, int64(500), got.TotalStake)

	assert.ErrorIs(t, repo.SetState(ctx, pool, 42, model.StateClosed), ErrTournamentNotFound)
}

func TestTournamentRepository_ListExpiredUnsettled(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedGameType(t, pool, "blitz")
	repo := NewTournamentRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()

	expired := testTournament(1)
	expired.Deadline = now.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, pool, expired))

	closed := testTournament(2)
	closed.Name = "closed-one"
	closed.TournamentKey = "key-closed-one"
	closed.Deadline = now.Add(-time.Hour)
	closed.State = model.StateClosed
	require.NoError(t, repo.Create(ctx, pool, closed))

	upcoming := testTournament(3)
	upcoming.Name = "upcoming-one"
	upcoming.TournamentKey = "key-upcoming-one"
	require.NoError(t, repo.Create(ctx, pool, upcoming))

	ids, err := repo.ListExpiredUnsettled(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

// ============================================================================
// GameTypeRepository Tests
// ============================================================================

func TestGameTypeRepository_RegisterAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameTypeRepository(pool)
	ctx := context.Background()

	gt, err := repo.Register(ctx, "blitz", 1000)
	require.NoError(t, err)
	assert.Equal(t, "blitz", gt.Identifier)
	assert.Equal(t, int64(1000), gt.MaxScore)

	_, err = repo.Register(ctx, "blitz", 2000)
	assert.ErrorIs(t, err, ErrGameTypeExists)

	got, err := repo.GetByID(ctx, pool, "blitz")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.MaxScore)

	_, err = repo.GetByID(ctx, pool, "missing")
	assert.ErrorIs(t, err, ErrGameTypeNotFound)
}

// ============================================================================
// CommissionRepository Tests
// ============================================================================

func TestCommissionRepository_Accrue(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCommissionRepository(pool)
	ctx := context.Background()

	accrued, err := repo.Accrued(ctx, "usdt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), accrued)

	require.NoError(t, repo.Accrue(ctx, pool, "usdt", 100))
	require.NoError(t, repo.Accrue(ctx, pool, "usdt", 25))

	accrued, err = repo.Accrued(ctx, "usdt")
	require.NoError(t, err)
	assert.Equal(t, int64(125), accrued)
}

// ============================================================================
// SettingsRepository Tests
// ============================================================================

func TestSettingsRepository_SeedOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx, "owner.near", 4, 1000))
	// A second seed must not overwrite live settings.
	require.NoError(t, repo.Seed(ctx, "other.near", 10, 5000))

	settings, err := repo.Get(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, "owner.near", settings.Owner)
	assert.Equal(t, 4, settings.MinPlayers)
	assert.Equal(t, int64(1000), settings.CommissionRateBps)
	assert.False(t, settings.Paused)
}

func TestSettingsRepository_Setters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx, "owner.near", 4, 1000))

	require.NoError(t, repo.SetPaused(ctx, pool, true))
	require.NoError(t, repo.SetCommissionRate(ctx, pool, 2500))
	require.NoError(t, repo.SetMinPlayers(ctx, pool, 8))
	require.NoError(t, repo.SetPendingOwner(ctx, pool, "heir.near"))

	settings, err := repo.Get(ctx, pool)
	require.NoError(t, err)
	assert.True(t, settings.Paused)
	assert.Equal(t, int64(2500), settings.CommissionRateBps)
	assert.Equal(t, 8, settings.MinPlayers)
	assert.Equal(t, "heir.near", settings.PendingOwner)

	// Completing the handover clears the nomination.
	require.NoError(t, repo.SetOwner(ctx, pool, "heir.near"))

	settings, err = repo.Get(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, "heir.near", settings.Owner)
	assert.Empty(t, settings.PendingOwner)
}

// ============================================================================
// CountryRepository Tests
// ============================================================================

func TestCountryRepository_AddAndCheck(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCountryRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "IN"))
	require.NoError(t, repo.Add(ctx, "IN")) // idempotent
	require.NoError(t, repo.Add(ctx, "BR"))

	supported, err := repo.IsSupported(ctx, "IN")
	require.NoError(t, err)
	assert.True(t, supported)

	supported, err = repo.IsSupported(ctx, "US")
	require.NoError(t, err)
	assert.False(t, supported)

	countries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"IN", "BR"}, countries)
}

// ============================================================================
// IntentRepository Tests
// ============================================================================

func TestIntentRepository_RecordAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedGameType(t, pool, "blitz")
	tournamentRepo := NewTournamentRepository(pool)
	repo := NewIntentRepository(pool)
	ctx := context.Background()

	require.NoError(t, tournamentRepo.Create(ctx, pool, testTournament(1)))

	intent := &model.TransferIntent{
		ID:           "6e2cb72e-7a20-4df4-a1d1-b53a4ea22cb9",
		TournamentID: 1,
		TokenType:    "usdt",
		To:           "bob.near",
		Amount:       120,
		Kind:         model.IntentRefund,
		Memo:         "stake refund",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Record(ctx, pool, intent))

	intents, err := repo.ListByTournament(ctx, 1)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, intent.ID, intents[0].ID)
	assert.Equal(t, "bob.near", intents[0].To)
	assert.Equal(t, int64(120), intents[0].Amount)
}
