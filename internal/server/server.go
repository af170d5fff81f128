// Package server exposes the tournament engine over HTTP. Callers are
// authenticated by a host-issued bearer token; the deposit webhook is
// authenticated by the token ledger's shared secret.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"stake-arena/internal/config"
	"stake-arena/internal/pkg/db"
	"stake-arena/internal/service"
	"stake-arena/internal/token"
)

// Server wires the service layer to the HTTP surface.
type Server struct {
	cfg        *config.Config
	pool       *db.Pool
	escrow     *service.EscrowService
	registry   *service.RegistryService
	membership *service.MembershipService
	scoring    *service.ScoringService
	settlement *service.SettlementService
	admin      *service.AdminService
	notifier   token.Notifier
}

// New creates a new Server instance.
func New(
	cfg *config.Config,
	pool *db.Pool,
	escrow *service.EscrowService,
	registry *service.RegistryService,
	membership *service.MembershipService,
	scoring *service.ScoringService,
	settlement *service.SettlementService,
	admin *service.AdminService,
	notifier token.Notifier,
) *Server {
	return &Server{
		cfg:        cfg,
		pool:       pool,
		escrow:     escrow,
		registry:   registry,
		membership: membership,
		scoring:    scoring,
		settlement: settlement,
		admin:      admin,
		notifier:   notifier,
	}
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		// Inbound deposit notifications from the token ledger.
		r.With(s.ledgerAuth).Post("/deposits", s.handleDeposit)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/tournaments", func(r chi.Router) {
				r.Post("/", s.handleCreateTournament)
				r.Get("/", s.handleListTournaments)
				r.Get("/resolve", s.handleResolveTournament)
				r.Get("/{id}", s.handleGetTournament)
				r.Post("/{id}/join", s.handleJoin)
				r.Post("/{id}/scores", s.handlePublishScore)
				r.Post("/{id}/settle", s.handleSettle)
				r.Get("/{id}/intents", s.handleListIntents)
			})

			r.Get("/escrow/{token}", s.handleEscrowBalance)
			r.Get("/gametypes", s.handleListGameTypes)
			r.Get("/countries", s.handleListCountries)
			r.Get("/countries/{code}", s.handleCountrySupported)
			r.Get("/prizes", s.handlePrizeTable)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/settings", s.handleSettings)
				r.Post("/pause", s.handlePause)
				r.Post("/unpause", s.handleUnpause)
				r.Post("/ownership/transfer", s.handleTransferOwnership)
				r.Post("/ownership/accept", s.handleAcceptOwnership)
				r.Post("/commission-rate", s.handleSetCommissionRate)
				r.Post("/quorum", s.handleSetQuorum)
				r.Post("/gametypes", s.handleRegisterGameType)
				r.Post("/countries", s.handleAddCountry)
				r.Get("/commission/{token}", s.handleCommissionAccrued)
			})
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return c.Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
