package services

import "errors"

// Sentinel errors shared across services and the HTTP mapping layer.
var (
	ErrValidationFailed = errors.New("validation failed")

	ErrMatchNotFound      = errors.New("match not found")
	ErrSetNotFound        = errors.New("set not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	// State machine violations.
	ErrInvalidStateTransition = errors.New("invalid match status transition")
	ErrMatchNotSchedulable    = errors.New("match has no court field or scheduled time")
	ErrMatchNotDecided        = errors.New("match does not have enough decided sets to finish")
	ErrSetAlreadyDecided      = errors.New("set is already decided")

	// Awarding and ledger.
	ErrInsufficientBalance = errors.New("insufficient coin balance")
	ErrPointConfigNotFound = errors.New("no point configuration found for round")

	// Groups.
	ErrGroupNotFinalized = errors.New("group standings are not finalized yet")

	ErrConcurrencyConflict = errors.New("resource is busy, try again")
)
