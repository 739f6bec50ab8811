package engine

import "errors"

// Domain errors returned by engine operations. The message is the wire
// code clients see; the web layer maps each to an HTTP status.
var (
	ErrUserNotFound   = errors.New("user_not_found")
	ErrMatchNotFound  = errors.New("match_not_found")
	ErrUserNotInMatch = errors.New("user_not_in_match")

	ErrAlreadyQueued    = errors.New("already_in_queue")
	ErrAlreadyInMatch   = errors.New("already_in_active_match_or_draft")
	ErrAlreadyFinalized = errors.New("already_finalized")
	ErrDuplicateBet     = errors.New("bet_already_placed")
	ErrChampionTaken    = errors.New("champion_already_used_in_team")

	ErrNotInDraft      = errors.New("not_in_draft")
	ErrNotYourTurn     = errors.New("not_your_turn")
	ErrNotInProgress   = errors.New("match_not_in_progress")
	ErrBetWindowClosed = errors.New("bet_window_closed")

	ErrInvalidChampion = errors.New("invalid_champion")
	ErrInvalidRound    = errors.New("invalid_round")
	ErrInvalidTeam     = errors.New("invalid_team")
	ErrInvalidWinner   = errors.New("invalid_winner_team")
	ErrInvalidConfig   = errors.New("invalid_config")
)
