package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/edvart/arena-inhouse/internal/game"
)

const configKey = "config"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS player_stats (
			user_id TEXT PRIMARY KEY REFERENCES users(id),
			played INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			losses INTEGER NOT NULL DEFAULT 0,
			current_streak INTEGER NOT NULL DEFAULT 0,
			max_streak INTEGER NOT NULL DEFAULT 0,
			streaks_broken INTEGER NOT NULL DEFAULT 0,
			correct_bets INTEGER NOT NULL DEFAULT 0,
			score REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS player_champ_stats (
			user_id TEXT NOT NULL REFERENCES users(id),
			champion TEXT NOT NULL,
			played INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			streaks_broken INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, champion)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			display_id TEXT NOT NULL,
			map TEXT NOT NULL,
			draft_round INTEGER NOT NULL DEFAULT 0,
			winner_team INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			started_at TIMESTAMP,
			bet_deadline TIMESTAMP,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS match_players (
			match_id TEXT NOT NULL REFERENCES matches(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			team INTEGER NOT NULL,
			position INTEGER NOT NULL,
			champion TEXT NOT NULL DEFAULT '',
			streak_broken INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (match_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			match_id TEXT NOT NULL REFERENCES matches(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			team INTEGER NOT NULL,
			placed_at TIMESTAMP NOT NULL,
			PRIMARY KEY (match_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS push_subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL REFERENCES users(id),
			endpoint TEXT NOT NULL UNIQUE,
			p256dh TEXT NOT NULL,
			auth TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_finished ON matches(finished_at)`,
		`CREATE INDEX IF NOT EXISTS idx_match_players_user ON match_players(user_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertUserByName finds a user by name or creates one with a fresh id
// and an empty stats row.
func (s *SQLiteStore) UpsertUserByName(ctx context.Context, name string) (*User, bool, error) {
	u, err := s.getUserByName(ctx, name)
	if err != nil || u != nil {
		return u, false, err
	}
	return s.createUser(ctx, name)
}

func (s *SQLiteStore) getUserByName(ctx context.Context, name string) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE name = ?`, name).Scan(
		&user.ID, &user.Name, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// createUser inserts a fresh user with its empty stats row. Losing a
// concurrent first insert of the same name is not an error: the insert
// lands on the conflict clause and the winner's row is served instead.
func (s *SQLiteStore) createUser(ctx context.Context, name string) (*User, bool, error) {
	user := User{ID: uuid.New().String(), Name: name, CreatedAt: time.Now()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		user.ID, user.Name, user.CreatedAt,
	)
	if err != nil {
		return nil, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if inserted == 0 {
		winner, err := s.getUserByName(ctx, name)
		if err != nil {
			return nil, false, err
		}
		if winner == nil {
			return nil, false, fmt.Errorf("upsert user %q: insert conflicted but no row matches", name)
		}
		return winner, false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO player_stats (user_id) VALUES (?)`, user.ID,
	); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE id = ?`, id).Scan(
		&user.ID, &user.Name, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all registered users.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of registered users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// GetPlayerStats retrieves a user's scoring aggregate. Users without a
// stats row get zeroes.
func (s *SQLiteStore) GetPlayerStats(ctx context.Context, userID string) (*PlayerStats, error) {
	st := PlayerStats{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT played, wins, losses, current_streak, max_streak, streaks_broken, correct_bets, score
		 FROM player_stats WHERE user_id = ?`, userID).Scan(
		&st.Played, &st.Wins, &st.Losses, &st.CurrentStreak,
		&st.MaxStreak, &st.StreaksBroken, &st.CorrectBets, &st.Score,
	)
	if err == sql.ErrNoRows {
		return &st, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetChampionStats retrieves a user's per-champion aggregates, most
// played first.
func (s *SQLiteStore) GetChampionStats(ctx context.Context, userID string) ([]ChampionStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT champion, played, wins, streaks_broken
		 FROM player_champ_stats WHERE user_id = ?
		 ORDER BY played DESC, champion`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []ChampionStats
	for rows.Next() {
		var cs ChampionStats
		if err := rows.Scan(&cs.Champion, &cs.Played, &cs.Wins, &cs.StreaksBroken); err != nil {
			return nil, err
		}
		stats = append(stats, cs)
	}
	return stats, rows.Err()
}

// Leaderboard returns all users ranked by score, then wins.
func (s *SQLiteStore) Leaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.name, ps.score, ps.wins, ps.losses, ps.played
		 FROM users u
		 JOIN player_stats ps ON ps.user_id = u.id
		 ORDER BY ps.score DESC, ps.wins DESC, u.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardRow
	for rows.Next() {
		var e LeaderboardRow
		if err := rows.Scan(&e.UserID, &e.Name, &e.Score, &e.Wins, &e.Losses, &e.Played); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordFinalizedMatch archives a match and applies all scoring in one
// transaction. Stat updates are relative so concurrent finalizes of
// different matches cannot lose increments.
func (s *SQLiteStore) RecordFinalizedMatch(ctx context.Context, m *FinalizedMatch, results []PlayerResult, bets []BetRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO matches (id, display_id, map, draft_round, winner_team, created_at, started_at, bet_deadline, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.DisplayID, m.Map, m.DraftRound, m.WinnerTeam,
		m.CreatedAt, m.StartedAt, m.BetDeadline, m.FinishedAt,
	); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	for _, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_players (match_id, user_id, team, position, champion, streak_broken)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, r.UserID, r.Team, r.Position, r.Champion, r.StreakBroken,
		); err != nil {
			return fmt.Errorf("insert match player: %w", err)
		}

		if r.Won {
			// current_streak on the right-hand side is the pre-update value.
			if _, err := tx.ExecContext(ctx,
				`UPDATE player_stats SET
					played = played + 1,
					wins = wins + 1,
					current_streak = current_streak + 1,
					max_streak = MAX(max_streak, current_streak + 1),
					score = score + ?
				 WHERE user_id = ?`,
				r.ScoreDelta, r.UserID,
			); err != nil {
				return fmt.Errorf("update winner stats: %w", err)
			}
		} else {
			broken := 0
			if r.StreakBroken {
				broken = 1
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE player_stats SET
					played = played + 1,
					losses = losses + 1,
					current_streak = 0,
					streaks_broken = streaks_broken + ?,
					score = score + ?
				 WHERE user_id = ?`,
				broken, r.ScoreDelta, r.UserID,
			); err != nil {
				return fmt.Errorf("update loser stats: %w", err)
			}
		}

		if r.Champion != "" {
			won, broken := 0, 0
			if r.Won {
				won = 1
			}
			if r.StreakBroken {
				broken = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO player_champ_stats (user_id, champion, played, wins, streaks_broken)
				 VALUES (?, ?, 1, ?, ?)
				 ON CONFLICT(user_id, champion) DO UPDATE SET
					played = played + 1,
					wins = wins + ?,
					streaks_broken = streaks_broken + ?`,
				r.UserID, r.Champion, won, broken, won, broken,
			); err != nil {
				return fmt.Errorf("update champion stats: %w", err)
			}
		}
	}

	for _, b := range bets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bets (match_id, user_id, team, placed_at) VALUES (?, ?, ?, ?)`,
			m.ID, b.UserID, b.Team, b.PlacedAt,
		); err != nil {
			return fmt.Errorf("insert bet: %w", err)
		}
		if b.Team == m.WinnerTeam {
			if _, err := tx.ExecContext(ctx,
				`UPDATE player_stats SET correct_bets = correct_bets + 1 WHERE user_id = ?`,
				b.UserID,
			); err != nil {
				return fmt.Errorf("credit bet: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetFinishedMatch retrieves an archived match with its participants.
func (s *SQLiteStore) GetFinishedMatch(ctx context.Context, id string) (*MatchRecord, error) {
	var rec MatchRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_id, map, draft_round, winner_team, created_at, started_at, bet_deadline, finished_at
		 FROM matches WHERE id = ?`, id).Scan(
		&rec.ID, &rec.DisplayID, &rec.Map, &rec.DraftRound, &rec.WinnerTeam,
		&rec.CreatedAt, &rec.StartedAt, &rec.BetDeadline, &rec.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Players, err = s.getMatchPlayers(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) getMatchPlayers(ctx context.Context, matchID string) ([]MatchPlayerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, team, position, champion, streak_broken
		 FROM match_players WHERE match_id = ?
		 ORDER BY team, position`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []MatchPlayerRecord
	for rows.Next() {
		var p MatchPlayerRecord
		if err := rows.Scan(&p.UserID, &p.Team, &p.Position, &p.Champion, &p.StreakBroken); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// ListFinishedMatches retrieves all archived matches, most recently
// finished first.
func (s *SQLiteStore) ListFinishedMatches(ctx context.Context) ([]MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_id, map, draft_round, winner_team, created_at, started_at, bet_deadline, finished_at
		 FROM matches ORDER BY finished_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		if err := rows.Scan(
			&rec.ID, &rec.DisplayID, &rec.Map, &rec.DraftRound, &rec.WinnerTeam,
			&rec.CreatedAt, &rec.StartedAt, &rec.BetDeadline, &rec.FinishedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range matches {
		matches[i].Players, err = s.getMatchPlayers(ctx, matches[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// CountBets returns per-team bet counts for an archived match.
func (s *SQLiteStore) CountBets(ctx context.Context, matchID string) (int, int, error) {
	var team1, team2 int
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(CASE WHEN team = 1 THEN 1 END),
			COUNT(CASE WHEN team = 2 THEN 1 END)
		 FROM bets WHERE match_id = ?`, matchID).Scan(&team1, &team2)
	if err != nil {
		return 0, 0, err
	}
	return team1, team2, nil
}

// LoadConfig retrieves the persisted rule set, nil when none was saved.
func (s *SQLiteStore) LoadConfig(ctx context.Context) (*game.Config, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, configKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg game.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig persists the rule set as a single settings row.
func (s *SQLiteStore) SaveConfig(ctx context.Context, cfg game.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		configKey, string(raw),
	)
	return err
}

// SavePushSubscription saves or updates a push subscription.
func (s *SQLiteStore) SavePushSubscription(ctx context.Context, sub *PushSubscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
			user_id = excluded.user_id,
			p256dh = excluded.p256dh,
			auth = excluded.auth`,
		sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, time.Now(),
	)
	return err
}

// GetPushSubscriptions retrieves all push subscriptions for a user.
func (s *SQLiteStore) GetPushSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, created_at
		 FROM push_subscriptions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []PushSubscription
	for rows.Next() {
		var sub PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeletePushSubscription removes a push subscription by endpoint.
func (s *SQLiteStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return err
}
