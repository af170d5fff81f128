// Package service implements the tournament lifecycle and stake-settlement
// engine.
package service

import "errors"

// Validation failures are fatal to the single call: the surrounding
// transaction rolls back and no partial state survives. Callers branch on
// these sentinels with errors.Is.
var (
	// Lookup failures.
	ErrTournamentNotFound = errors.New("tournament with provided ID does not exist")
	ErrGameTypeNotFound   = errors.New("no game type with provided identifier")

	// Privilege and role failures.
	ErrUnauthorized    = errors.New("unauthorized")
	ErrOwnerCannotJoin = errors.New("tournament owner can not join the tournament")

	// Admission rule violations.
	ErrInvalidTournamentKey = errors.New("invalid tournament key provided for a private tournament")
	ErrInvalidCountry       = errors.New("invalid country")
	ErrCountryRequired      = errors.New("country based tournament requires a country")
	ErrCountryNotSupported  = errors.New("country code entered is not supported")

	// Escrow failures.
	ErrInsufficientStake = errors.New("insufficient staked balance")

	// Temporal precondition violations.
	ErrDeadlinePassed     = errors.New("tournament exceeded the deadline")
	ErrDeadlineNotReached = errors.New("tournament deadline not yet reached")

	// State-machine precondition violations.
	ErrTournamentNotActive = errors.New("tournament is not active")
	ErrTournamentClosed    = errors.New("tournament is already closed")

	// Creation conflicts.
	ErrTournamentKeyExists  = errors.New("tournament with provided key already exists")
	ErrTournamentNameExists = errors.New("tournament with provided name already exists")
	ErrGameTypeExists       = errors.New("game type already registered")

	// Scoring violations.
	ErrScoreOutOfRange = errors.New("score exceeds threshold for game")

	// Administration guards.
	ErrAlreadyPaused        = errors.New("engine is already paused")
	ErrNotPaused            = errors.New("engine is not paused")
	ErrCommissionRateBounds = errors.New("commission rate must be between 1000 and 10000 basis points")
	ErrQuorumTooSmall       = errors.New("minimum tournament players must be greater than 3")

	// Input validation.
	ErrInvalidTournamentType = errors.New("unknown tournament type")
	ErrInvalidAmount         = errors.New("amount must not be negative")
)
