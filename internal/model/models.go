// Package model defines the data models for the staked tournament engine.
package model

import "time"

// TournamentType controls who may join a tournament.
type TournamentType string

const (
	TournamentPublic       TournamentType = "PUBLIC"
	TournamentPrivate      TournamentType = "PRIVATE"
	TournamentCountryBased TournamentType = "COUNTRY_BASED"
)

// Valid reports whether t is a known tournament type.
func (t TournamentType) Valid() bool {
	switch t {
	case TournamentPublic, TournamentPrivate, TournamentCountryBased:
		return true
	}
	return false
}

// TournamentState is the lifecycle state of a tournament.
// Transitions only move forward: PENDING_VOLUME -> ACTIVE -> CLOSED, or
// PENDING_VOLUME -> CLOSED when quorum is never reached. CLOSED is terminal.
// DELETED is declared but no operation currently sets it.
type TournamentState string

const (
	StatePendingVolume TournamentState = "PENDING_VOLUME"
	StateActive        TournamentState = "ACTIVE"
	StateDeleted       TournamentState = "DELETED"
	StateClosed        TournamentState = "CLOSED"
)

// GameType describes a registered game and its score ceiling.
// Immutable once registered; a published score must never exceed MaxScore.
type GameType struct {
	Identifier string    `db:"identifier"`
	MaxScore   int64     `db:"max_score"`
	CreatedAt  time.Time `db:"created_at"`
}

// TournamentPlayer is a single entry in a tournament. ID is the 1-based join
// ordinal. StakeAmount is the full escrow balance swept at join time, in
// token minor units.
type TournamentPlayer struct {
	ID          int64     `db:"player_id"`
	Account     string    `db:"account"`
	StakeAmount int64     `db:"stake_amount"`
	Score       int64     `db:"score"`
	GamesPlayed int64     `db:"games_played"`
	JoinDate    time.Time `db:"join_date"`
}

// Tournament is the aggregate owned by the registry. Players are ordered by
// their join ordinal.
type Tournament struct {
	ID            int64           `db:"id"`
	Name          string          `db:"name"`
	TournamentKey string          `db:"tournament_key"`
	GameTypeID    string          `db:"game_type_id"`
	Owner         string          `db:"owner_account"`
	MinimumStake  int64           `db:"minimum_stake"`
	TotalStake    int64           `db:"total_stake"`
	Country       string          `db:"country"`
	TokenType     string          `db:"token_type"`
	CreatedAt     time.Time       `db:"created_at"`
	Deadline      time.Time       `db:"deadline"`
	Type          TournamentType  `db:"type"`
	State         TournamentState `db:"state"`
	Players       []TournamentPlayer
}

// Player returns the player entry for the given account, or nil if the
// account never joined. Duplicate joins are possible; the first entry wins.
func (t *Tournament) Player(account string) *TournamentPlayer {
	for i := range t.Players {
		if t.Players[i].Account == account {
			return &t.Players[i]
		}
	}
	return nil
}

// EscrowBalance is the un-spent staked balance one depositor holds for one
// token type. Credited by deposit notifications, fully swept on consume.
type EscrowBalance struct {
	Account   string    `db:"account"`
	TokenType string    `db:"token_type"`
	Balance   int64     `db:"balance"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DepositReceipt acknowledges an inbound deposit notification. Refused is the
// part of the transferred amount the engine did not accept; this engine
// always accepts the full amount.
type DepositReceipt struct {
	Account   string `json:"account"`
	TokenType string `json:"token_type"`
	Credited  int64  `json:"credited"`
	Refused   int64  `json:"refused"`
}

// Transfer intent kinds.
const (
	IntentRefund = "refund" // stake returned after a low-volume settlement
	IntentPrize  = "prize"  // ranked payout after a paid-out settlement
)

// TransferIntent is an outbound transfer handed to the external token
// service. The tournament state commit does not wait for the transfer;
// intents are recorded so an operator-side reconciliation can pick up
// failures.
type TransferIntent struct {
	ID           string    `db:"id"`
	TournamentID int64     `db:"tournament_id"`
	TokenType    string    `db:"token_type"`
	To           string    `db:"to_account"`
	Amount       int64     `db:"amount"`
	Kind         string    `db:"kind"`
	Memo         string    `db:"memo"`
	CreatedAt    time.Time `db:"created_at"`
}

// PlatformSettings is the singleton engine configuration row.
type PlatformSettings struct {
	Owner             string    `db:"owner_account"`
	PendingOwner      string    `db:"pending_owner"`
	Paused            bool      `db:"paused"`
	MinPlayers        int       `db:"min_tournament_players"`
	CommissionRateBps int64     `db:"commission_rate_bps"`
	UpdatedAt         time.Time `db:"updated_at"`
}
