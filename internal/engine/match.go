package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edvart/arena-inhouse/internal/store"
)

// Status is a match lifecycle phase.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Bet is a single wager, held in memory until the match is archived.
type Bet struct {
	Team     int
	PlacedAt time.Time
}

// Match is the live state of one match. Team slices are fixed at
// creation: a player's index in their team is the draft round they pick
// in. The mutex serializes all mutation of one match.
type Match struct {
	mu sync.Mutex

	ID          string
	DisplayID   string
	Map         string
	Status      Status
	Team1       []string
	Team2       []string
	Picks       map[string]string
	Pool        []string // champions legal in this match, frozen at creation
	Bets        map[string]Bet
	CreatedAt   time.Time
	StartedAt   time.Time
	BetDeadline time.Time
	WinnerTeam  int
	Streaked    []string
}

func (m *Match) participants() []string {
	out := make([]string, 0, len(m.Team1)+len(m.Team2))
	out = append(out, m.Team1...)
	out = append(out, m.Team2...)
	return out
}

// teamOf returns the user's team number and position, or 0 when the
// user is not a participant.
func (m *Match) teamOf(userID string) (team, position int) {
	for i, id := range m.Team1 {
		if id == userID {
			return 1, i
		}
	}
	for i, id := range m.Team2 {
		if id == userID {
			return 2, i
		}
	}
	return 0, 0
}

// teamCursor is the next position a team picks at. Picks fill strictly
// in position order, so a team's pick count is its cursor.
func (m *Match) teamCursor(team []string) int {
	for i, id := range team {
		if _, ok := m.Picks[id]; !ok {
			return i
		}
	}
	return len(team)
}

// completedPairings counts rounds where both designated picks are in.
// The two teams advance independently, so this is the slower cursor.
func (m *Match) completedPairings() int {
	c1 := m.teamCursor(m.Team1)
	c2 := m.teamCursor(m.Team2)
	if c1 < c2 {
		return c1
	}
	return c2
}

// snapshotLocked copies the match into a lock-free Snapshot. Caller
// holds m.mu.
func (m *Match) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:         m.ID,
		DisplayID:  m.DisplayID,
		Map:        m.Map,
		Status:     m.Status,
		Team1:      append([]string(nil), m.Team1...),
		Team2:      append([]string(nil), m.Team2...),
		Picks:      make(map[string]string, len(m.Picks)),
		Pairings:   m.completedPairings(),
		CreatedAt:  m.CreatedAt,
		WinnerTeam: m.WinnerTeam,
		Streaked:   append([]string(nil), m.Streaked...),
	}
	for k, v := range m.Picks {
		s.Picks[k] = v
	}
	if !m.StartedAt.IsZero() {
		t := m.StartedAt
		s.StartedAt = &t
	}
	if !m.BetDeadline.IsZero() {
		t := m.BetDeadline
		s.BetDeadline = &t
	}
	return s
}

// GetMatch renders a match for one viewer, live or archived.
func (e *Engine) GetMatch(ctx context.Context, matchID, viewerID string) (MatchView, error) {
	if m := e.liveMatch(matchID); m != nil {
		m.mu.Lock()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return Render(snap, viewerID), nil
	}

	rec, err := e.store.GetFinishedMatch(ctx, matchID)
	if err != nil {
		return MatchView{}, fmt.Errorf("get finished match: %w", err)
	}
	if rec == nil {
		return MatchView{}, ErrMatchNotFound
	}
	return Render(snapshotFromRecord(rec), viewerID), nil
}

// ListMatches renders all matches for one viewer, optionally filtered
// by status. Started matches come first, newest start first; drafts
// that never started sort last by creation time.
func (e *Engine) ListMatches(ctx context.Context, viewerID string, status Status) ([]MatchView, error) {
	type entry struct {
		view    MatchView
		started *time.Time
		created time.Time
	}
	var entries []entry

	e.mu.RLock()
	live := make([]*Match, 0, len(e.matches))
	for _, m := range e.matches {
		live = append(live, m)
	}
	e.mu.RUnlock()

	for _, m := range live {
		m.mu.Lock()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		if status != "" && snap.Status != status {
			continue
		}
		entries = append(entries, entry{
			view:    Render(snap, viewerID),
			started: snap.StartedAt,
			created: snap.CreatedAt,
		})
	}

	if status == "" || status == StatusFinished {
		records, err := e.store.ListFinishedMatches(ctx)
		if err != nil {
			return nil, fmt.Errorf("list finished matches: %w", err)
		}
		for i := range records {
			snap := snapshotFromRecord(&records[i])
			entries = append(entries, entry{
				view:    Render(snap, viewerID),
				started: snap.StartedAt,
				created: snap.CreatedAt,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.started != nil && b.started != nil:
			return a.started.After(*b.started)
		case a.started != nil:
			return true
		case b.started != nil:
			return false
		default:
			return a.created.After(b.created)
		}
	})

	views := make([]MatchView, len(entries))
	for i, en := range entries {
		views[i] = en.view
	}
	return views, nil
}

// Finalize reports the winner, scores the six player outcomes and any
// bets, and archives the match in one store transaction. The live
// match is only dropped after the archive succeeds, so a store failure
// leaves it finalizable again.
func (e *Engine) Finalize(ctx context.Context, matchID string, winnerTeam int) (MatchView, error) {
	m := e.liveMatch(matchID)
	if m == nil {
		return MatchView{}, e.missingMatchErr(ctx, matchID, ErrAlreadyFinalized)
	}

	m.mu.Lock()
	snap, streakedCount, err := e.finalizeLocked(ctx, m, winnerTeam)
	m.mu.Unlock()
	if err != nil {
		return MatchView{}, err
	}

	// Lookups always take e.mu before m.mu, never while holding it, so
	// deleting under m.mu cannot deadlock.
	e.mu.Lock()
	delete(e.matches, matchID)
	e.mu.Unlock()

	e.emit(MatchFinalized{
		MatchID:      m.ID,
		DisplayID:    m.DisplayID,
		WinnerTeam:   winnerTeam,
		Participants: m.participants(),
	})
	e.log.Infof("match %s finalized, team %d wins (%d streaks broken)", m.DisplayID, winnerTeam, streakedCount)

	return Render(snap, ""), nil
}

func (e *Engine) finalizeLocked(ctx context.Context, m *Match, winnerTeam int) (Snapshot, int, error) {
	if m.Status == StatusFinished {
		return Snapshot{}, 0, ErrAlreadyFinalized
	}
	if winnerTeam != 1 && winnerTeam != 2 {
		return Snapshot{}, 0, ErrInvalidWinner
	}

	cfg := e.Config()

	streaks := make(map[string]int, MatchSize)
	for _, uid := range m.participants() {
		stats, err := e.store.GetPlayerStats(ctx, uid)
		if err != nil {
			return Snapshot{}, 0, fmt.Errorf("get player stats: %w", err)
		}
		streaks[uid] = stats.CurrentStreak
	}

	results, streaked := matchResults(m, winnerTeam, streaks, cfg)

	now := time.Now()
	archive := store.FinalizedMatch{
		ID:         m.ID,
		DisplayID:  m.DisplayID,
		Map:        m.Map,
		DraftRound: servedRound(m.completedPairings()),
		WinnerTeam: winnerTeam,
		CreatedAt:  m.CreatedAt,
		FinishedAt: now,
	}
	if !m.StartedAt.IsZero() {
		t := m.StartedAt
		archive.StartedAt = &t
	}
	if !m.BetDeadline.IsZero() {
		t := m.BetDeadline
		archive.BetDeadline = &t
	}

	bets := make([]store.BetRecord, 0, len(m.Bets))
	for uid, b := range m.Bets {
		bets = append(bets, store.BetRecord{UserID: uid, Team: b.Team, PlacedAt: b.PlacedAt})
	}

	if err := e.store.RecordFinalizedMatch(ctx, &archive, results, bets); err != nil {
		return Snapshot{}, 0, fmt.Errorf("record finalized match: %w", err)
	}

	m.Status = StatusFinished
	m.WinnerTeam = winnerTeam
	m.Streaked = streaked

	return m.snapshotLocked(), len(streaked), nil
}

// FixOpenMatches force-completes every live match: remaining picks are
// auto-filled round by round, then the match is finalized with team 1
// as winner. Matches that fail are logged and skipped.
func (e *Engine) FixOpenMatches(ctx context.Context) []string {
	e.mu.RLock()
	ids := make([]string, 0, len(e.matches))
	for id := range e.matches {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	sort.Strings(ids)

	var fixed []string
	for _, id := range ids {
		for round := 0; round < TeamSize; round++ {
			if _, err := e.AutoPickCurrent(ctx, id); err != nil {
				break
			}
		}
		if _, err := e.Finalize(ctx, id, 1); err != nil {
			e.log.Warnf("fix open matches: %s: %v", id, err)
			continue
		}
		fixed = append(fixed, id)
	}
	return fixed
}

// servedRound caps the internal pairing count at the last round index.
func servedRound(pairings int) int {
	if pairings > TeamSize-1 {
		return TeamSize - 1
	}
	return pairings
}
