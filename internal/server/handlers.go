package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"stake-arena/internal/model"
	"stake-arena/internal/service"
)

type playerResponse struct {
	ID          int64     `json:"id"`
	Account     string    `json:"account"`
	StakeAmount int64     `json:"stake_amount"`
	Score       int64     `json:"score"`
	GamesPlayed int64     `json:"games_played"`
	JoinDate    time.Time `json:"join_date"`
}

type tournamentResponse struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	GameTypeID   string                `json:"game_type_id"`
	Owner        string                `json:"owner"`
	Type         model.TournamentType  `json:"type"`
	State        model.TournamentState `json:"state"`
	MinimumStake int64                 `json:"minimum_stake"`
	TotalStake   int64                 `json:"total_stake"`
	TokenType    string                `json:"token_type"`
	Country      string                `json:"country,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	Deadline     time.Time             `json:"deadline"`
	Players      []playerResponse      `json:"players"`
}

type intentResponse struct {
	ID        string `json:"id"`
	TokenType string `json:"token_type"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Kind      string `json:"kind"`
	Memo      string `json:"memo"`
}

func toPlayerResponse(p *model.TournamentPlayer) playerResponse {
	return playerResponse{
		ID:          p.ID,
		Account:     p.Account,
		StakeAmount: p.StakeAmount,
		Score:       p.Score,
		GamesPlayed: p.GamesPlayed,
		JoinDate:    p.JoinDate,
	}
}

// toTournamentResponse hides the private admission key from API responses.
func toTournamentResponse(t *model.Tournament) tournamentResponse {
	players := make([]playerResponse, 0, len(t.Players))
	for i := range t.Players {
		players = append(players, toPlayerResponse(&t.Players[i]))
	}
	return tournamentResponse{
		ID:           t.ID,
		Name:         t.Name,
		GameTypeID:   t.GameTypeID,
		Owner:        t.Owner,
		Type:         t.Type,
		State:        t.State,
		MinimumStake: t.MinimumStake,
		TotalStake:   t.TotalStake,
		TokenType:    t.TokenType,
		Country:      t.Country,
		CreatedAt:    t.CreatedAt,
		Deadline:     t.Deadline,
		Players:      players,
	}
}

func toIntentResponses(intents []model.TransferIntent) []intentResponse {
	out := make([]intentResponse, 0, len(intents))
	for _, in := range intents {
		out = append(out, intentResponse{
			ID:        in.ID,
			TokenType: in.TokenType,
			To:        in.To,
			Amount:    in.Amount,
			Kind:      in.Kind,
			Memo:      in.Memo,
		})
	}
	return out
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func tournamentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account   string `json:"account"`
		TokenType string `json:"token_type"`
		Amount    int64  `json:"amount"`
		Message   string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Account == "" || req.TokenType == "" {
		writeBadRequest(w, "account and token_type are required")
		return
	}

	receipt, err := s.escrow.Deposit(r.Context(), req.Account, req.TokenType, req.Amount, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		Key          string `json:"key"`
		GameTypeID   string `json:"game_type_id"`
		Type         string `json:"type"`
		IntervalDays int64  `json:"interval_days"`
		MinimumStake int64  `json:"minimum_stake"`
		TokenType    string `json:"token_type"`
		Country      string `json:"country"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	t, err := s.registry.Create(r.Context(), callerFrom(r.Context()), service.CreateParams{
		Name:         req.Name,
		Key:          req.Key,
		GameTypeID:   req.GameTypeID,
		Type:         model.TournamentType(req.Type),
		IntervalDays: req.IntervalDays,
		MinimumStake: req.MinimumStake,
		TokenType:    req.TokenType,
		Country:      req.Country,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTournamentResponse(t))
}

func (s *Server) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := s.registry.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]tournamentResponse, 0, len(tournaments))
	for i := range tournaments {
		out = append(out, toTournamentResponse(&tournaments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleResolveTournament finds the most recent tournament matching a key or
// a name, most recent first.
func (s *Server) handleResolveTournament(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	name := r.URL.Query().Get("name")
	if key == "" && name == "" {
		writeBadRequest(w, "key or name is required")
		return
	}

	t, err := s.registry.Resolve(r.Context(), key, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTournamentResponse(t))
}

func (s *Server) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentID(r)
	if err != nil {
		writeBadRequest(w, "invalid tournament id")
		return
	}

	t, err := s.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTournamentResponse(t))
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentID(r)
	if err != nil {
		writeBadRequest(w, "invalid tournament id")
		return
	}

	var req struct {
		Country string `json:"country"`
		Key     string `json:"key"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	player, err := s.membership.Join(r.Context(), callerFrom(r.Context()), id, req.Country, req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlayerResponse(player))
}

func (s *Server) handlePublishScore(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentID(r)
	if err != nil {
		writeBadRequest(w, "invalid tournament id")
		return
	}

	var req struct {
		Score int64 `json:"score"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.scoring.PublishScore(r.Context(), callerFrom(r.Context()), id, req.Score); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentID(r)
	if err != nil {
		writeBadRequest(w, "invalid tournament id")
		return
	}

	intents, err := s.settlement.Settle(r.Context(), callerFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Transfers are dispatched after the settlement has committed; the
	// response does not wait for the ledger.
	go s.notifier.Dispatch(context.WithoutCancel(r.Context()), intents)

	writeJSON(w, http.StatusOK, toIntentResponses(intents))
}

func (s *Server) handleListIntents(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentID(r)
	if err != nil {
		writeBadRequest(w, "invalid tournament id")
		return
	}

	intents, err := s.settlement.ListIntents(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIntentResponses(intents))
}

func (s *Server) handleEscrowBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.escrow.Balance(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (s *Server) handleListGameTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.admin.GameTypes(r.Context(), r.URL.Query().Get("identifier"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	type gameTypeResponse struct {
		Identifier string `json:"identifier"`
		MaxScore   int64  `json:"max_score"`
	}
	out := make([]gameTypeResponse, 0, len(types))
	for _, gt := range types {
		out = append(out, gameTypeResponse{Identifier: gt.Identifier, MaxScore: gt.MaxScore})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.admin.Countries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleCountrySupported(w http.ResponseWriter, r *http.Request) {
	supported, err := s.admin.IsCountrySupported(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"supported": supported})
}

func (s *Server) handlePrizeTable(w http.ResponseWriter, r *http.Request) {
	table, err := s.settlement.PrizeTable(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][3]int64{"position_prizes_bps": table})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.admin.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"owner":               settings.Owner,
		"pending_owner":       settings.PendingOwner,
		"paused":              settings.Paused,
		"min_players":         settings.MinPlayers,
		"commission_rate_bps": settings.CommissionRateBps,
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Pause(r.Context(), callerFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Unpause(r.Context(), callerFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewOwner string `json:"new_owner"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.admin.TransferOwnership(r.Context(), callerFrom(r.Context()), req.NewOwner); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAcceptOwnership(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.AcceptOwnership(r.Context(), callerFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSetCommissionRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RateBps int64 `json:"rate_bps"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.admin.SetCommissionRate(r.Context(), callerFrom(r.Context()), req.RateBps); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSetQuorum(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MinPlayers int `json:"min_players"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.admin.SetQuorum(r.Context(), callerFrom(r.Context()), req.MinPlayers); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRegisterGameType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		MaxScore   int64  `json:"max_score"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	gt, err := s.admin.RegisterGameType(r.Context(), callerFrom(r.Context()), req.Identifier, req.MaxScore)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"identifier": gt.Identifier,
		"max_score":  gt.MaxScore,
	})
}

func (s *Server) handleAddCountry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.admin.AddCountry(r.Context(), callerFrom(r.Context()), req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCommissionAccrued(w http.ResponseWriter, r *http.Request) {
	accrued, err := s.admin.CommissionAccrued(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"accrued": accrued})
}
