package store

import (
	"context"
	"time"

	"github.com/edvart/arena-inhouse/internal/game"
)

// User is a registered player identity.
type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// PlayerStats is the per-user scoring aggregate updated at finalize.
type PlayerStats struct {
	UserID        string
	Played        int
	Wins          int
	Losses        int
	CurrentStreak int
	MaxStreak     int
	StreaksBroken int
	CorrectBets   int
	Score         float64
}

// ChampionStats is one user's aggregate on a single champion.
type ChampionStats struct {
	Champion      string
	Played        int
	Wins          int
	StreaksBroken int
}

// LeaderboardRow is one ranked line of the leaderboard.
type LeaderboardRow struct {
	UserID string
	Name   string
	Score  float64
	Wins   int
	Losses int
	Played int
}

// FinalizedMatch is the immutable record of a completed match.
type FinalizedMatch struct {
	ID          string
	DisplayID   string
	Map         string
	DraftRound  int
	WinnerTeam  int
	CreatedAt   time.Time
	StartedAt   *time.Time
	BetDeadline *time.Time
	FinishedAt  time.Time
}

// MatchPlayerRecord is one participant row of a finalized match.
type MatchPlayerRecord struct {
	UserID       string
	Team         int
	Position     int
	Champion     string
	StreakBroken bool
}

// MatchRecord is a finalized match with its participants.
type MatchRecord struct {
	FinalizedMatch
	Players []MatchPlayerRecord
}

// PlayerResult carries one participant's outcome into the finalize
// transaction. ScoreDelta already includes any streak bonus.
type PlayerResult struct {
	UserID       string
	Team         int
	Position     int
	Champion     string
	Won          bool
	ScoreDelta   float64
	StreakBroken bool
}

// BetRecord is one wager archived at finalize.
type BetRecord struct {
	UserID   string
	Team     int
	PlacedAt time.Time
}

// PushSubscription is a stored web push subscription.
type PushSubscription struct {
	ID        int64
	UserID    string
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}

// Store is the persistence interface. Lookups return nil, nil when the
// row does not exist.
type Store interface {
	// UpsertUserByName finds a user by name (case-insensitive) or
	// creates one, reporting whether a new row was made.
	UpsertUserByName(ctx context.Context, name string) (*User, bool, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)

	// GetPlayerStats never returns nil: users without a stats row
	// get zeroes.
	GetPlayerStats(ctx context.Context, userID string) (*PlayerStats, error)
	GetChampionStats(ctx context.Context, userID string) ([]ChampionStats, error)
	Leaderboard(ctx context.Context) ([]LeaderboardRow, error)

	// RecordFinalizedMatch archives the match, applies every stat
	// delta and credits correct bets in a single transaction.
	RecordFinalizedMatch(ctx context.Context, m *FinalizedMatch, results []PlayerResult, bets []BetRecord) error
	GetFinishedMatch(ctx context.Context, id string) (*MatchRecord, error)
	ListFinishedMatches(ctx context.Context) ([]MatchRecord, error)
	CountBets(ctx context.Context, matchID string) (team1 int, team2 int, err error)

	LoadConfig(ctx context.Context) (*game.Config, error)
	SaveConfig(ctx context.Context, cfg game.Config) error

	SavePushSubscription(ctx context.Context, sub *PushSubscription) error
	GetPushSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error

	Close() error
}
