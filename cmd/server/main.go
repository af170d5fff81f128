// Package main is the entry point for the staked tournament engine.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stake-arena/internal/config"
	"stake-arena/internal/pkg/db"
	"stake-arena/internal/pkg/lock"
	"stake-arena/internal/repository"
	"stake-arena/internal/server"
	"stake-arena/internal/service"
	"stake-arena/internal/token"
	"stake-arena/internal/worker"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Local development overrides; absent in production.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	log.Info().Msg("Running database migrations...")
	if err := repository.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	escrowRepo := repository.NewEscrowRepository(dbPool.Pool)
	tournamentRepo := repository.NewTournamentRepository(dbPool.Pool)
	gameTypeRepo := repository.NewGameTypeRepository(dbPool.Pool)
	commissionRepo := repository.NewCommissionRepository(dbPool.Pool)
	settingsRepo := repository.NewSettingsRepository(dbPool.Pool)
	countryRepo := repository.NewCountryRepository(dbPool.Pool)
	intentRepo := repository.NewIntentRepository(dbPool.Pool)

	// Seed the platform settings row and the country allow-list. The seed
	// only applies on first start; later changes go through the admin API.
	if err := settingsRepo.Seed(ctx, cfg.Platform.OwnerAccount, cfg.Platform.MinPlayers, cfg.Platform.CommissionRateBps); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed platform settings")
	}
	for _, code := range cfg.Platform.Countries {
		if err := countryRepo.Add(ctx, code); err != nil {
			log.Fatal().Err(err).Str("country", code).Msg("Failed to seed country allow-list")
		}
	}

	// Initialize scope lock
	locks := lock.NewScopeLock()

	// Initialize services
	escrowService := service.NewEscrowService(escrowRepo, locks)
	registryService := service.NewRegistryService(
		dbPool, tournamentRepo, gameTypeRepo, escrowRepo, settingsRepo, countryRepo, locks,
	)
	membershipService := service.NewMembershipService(
		dbPool, tournamentRepo, escrowRepo, settingsRepo, locks,
	)
	scoringService := service.NewScoringService(dbPool, tournamentRepo, gameTypeRepo, locks)
	settlementService := service.NewSettlementService(
		dbPool, tournamentRepo, commissionRepo, settingsRepo, intentRepo, locks,
	)
	adminService := service.NewAdminService(
		dbPool, settingsRepo, countryRepo, gameTypeRepo, commissionRepo, locks,
	)

	notifier := token.NewClient(&cfg.Token)

	srv := server.New(
		cfg, dbPool,
		escrowService, registryService, membershipService,
		scoringService, settlementService, adminService,
		notifier,
	)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start the deadline sweeper
	var settler *worker.Settler
	if cfg.Settler.Enabled {
		settler = worker.NewSettler(
			dbPool, tournamentRepo, settingsRepo, settlementService, notifier, cfg.Settler.Interval,
		)
		if err := settler.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start settlement sweeper")
		}
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server is starting...")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if settler != nil {
		settler.Stop()
	}

	log.Info().Msg("Server stopped gracefully")
}
