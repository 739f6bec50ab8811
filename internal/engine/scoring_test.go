package engine

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvart/arena-inhouse/internal/game"
	"github.com/edvart/arena-inhouse/internal/store"
)

func resultFor(results []store.PlayerResult, uid string) store.PlayerResult {
	for _, r := range results {
		if r.UserID == uid {
			return r
		}
	}
	return store.PlayerResult{}
}

func TestMatchResults(t *testing.T) {
	m := &Match{
		Team1: []string{"a0", "a1", "a2"},
		Team2: []string{"b0", "b1", "b2"},
		Picks: map[string]string{
			"a0": "Ashka", "a1": "Bakko", "a2": "Freya",
			"b0": "Croak", "b1": "Jumong", "b2": "Oldur",
		},
	}
	cfg := game.DefaultConfig()

	tests := []struct {
		name         string
		streaks      map[string]int
		winner       int
		wantDelta    map[string]float64
		wantStreaked []string
	}{
		{
			name:      "no streaks anywhere",
			streaks:   map[string]int{},
			winner:    1,
			wantDelta: map[string]float64{"a0": 1, "a1": 1, "a2": 1, "b0": 0, "b1": 0, "b2": 0},
		},
		{
			name:      "winner crosses first tier",
			streaks:   map[string]int{"a0": 2},
			winner:    1,
			wantDelta: map[string]float64{"a0": 1.25, "a1": 1},
		},
		{
			name:      "winner crosses top tier",
			streaks:   map[string]int{"a1": 8},
			winner:    1,
			wantDelta: map[string]float64{"a1": 2},
		},
		{
			name:      "winner between tiers keeps highest reached",
			streaks:   map[string]int{"a2": 4},
			winner:    1,
			wantDelta: map[string]float64{"a2": 1.25},
		},
		{
			name:         "loser at lowest tier breaks",
			streaks:      map[string]int{"b0": 3},
			winner:       1,
			wantDelta:    map[string]float64{"b0": 0},
			wantStreaked: []string{"b0"},
		},
		{
			name:         "loser above lowest tier breaks too",
			streaks:      map[string]int{"b1": 7},
			winner:       1,
			wantStreaked: []string{"b1"},
		},
		{
			name:    "loser below lowest tier does not break",
			streaks: map[string]int{"b2": 2},
			winner:  1,
		},
		{
			name:         "team2 wins",
			streaks:      map[string]int{"a0": 5, "b0": 2},
			winner:       2,
			wantDelta:    map[string]float64{"b0": 1.25, "a0": 0},
			wantStreaked: []string{"a0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, streaked := matchResults(m, tt.winner, tt.streaks, cfg)
			require.Len(t, results, MatchSize)
			for uid, want := range tt.wantDelta {
				assert.Equal(t, want, resultFor(results, uid).ScoreDelta, "delta for %s", uid)
			}
			assert.Equal(t, tt.wantStreaked, streaked)
			for _, r := range results {
				assert.Equal(t, m.Picks[r.UserID], r.Champion)
				assert.Equal(t, r.Team == tt.winner, r.Won)
			}
		})
	}
}

func TestMatchResultsNoTiersConfigured(t *testing.T) {
	m := &Match{
		Team1: []string{"a0", "a1", "a2"},
		Team2: []string{"b0", "b1", "b2"},
		Picks: map[string]string{},
	}
	cfg := game.DefaultConfig()
	cfg.StreakBonus = map[string]float64{}

	results, streaked := matchResults(m, 1, map[string]int{"a0": 50, "b0": 50}, cfg)
	assert.Equal(t, float64(1), resultFor(results, "a0").ScoreDelta)
	assert.Empty(t, streaked)
}

func TestFinalizeAppliesResults(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := completeDraft(t, e, matchID)
	events := e.Subscribe()

	view, err := e.Finalize(ctx, matchID, 2)
	require.NoError(t, err)
	assert.Equal(t, string(StatusFinished), view.Status)
	assert.Equal(t, 2, view.WinnerTeam)
	assert.Empty(t, view.StreakedPlayerIDs)

	// The match left the live registry and is now archived.
	assert.Nil(t, e.liveMatch(matchID))
	rec, err := st.GetFinishedMatch(ctx, matchID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.WinnerTeam)
	assert.Equal(t, 2, rec.DraftRound)
	require.Len(t, rec.Players, MatchSize)
	for _, p := range rec.Players {
		assert.NotEmpty(t, p.Champion)
	}

	for _, uid := range m.Team2 {
		stats, err := st.GetPlayerStats(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Wins)
		assert.Equal(t, 1, stats.CurrentStreak)
		assert.Equal(t, float64(1), stats.Score)
	}
	for _, uid := range m.Team1 {
		stats, err := st.GetPlayerStats(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Losses)
		assert.Equal(t, float64(0), stats.Score)
	}

	got := drainEvents(events)
	require.Len(t, got, 1)
	fin, ok := got[0].(MatchFinalized)
	require.True(t, ok)
	assert.Equal(t, matchID, fin.MatchID)
	assert.Equal(t, 2, fin.WinnerTeam)

	// Participants are free to queue again.
	status, err := e.Enter(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, status.Queued)
}

func TestFinalizeValidation(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	completeDraft(t, e, matchID)

	_, err := e.Finalize(ctx, "nope", 1)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = e.Finalize(ctx, matchID, 0)
	assert.ErrorIs(t, err, ErrInvalidWinner)
	_, err = e.Finalize(ctx, matchID, 3)
	assert.ErrorIs(t, err, ErrInvalidWinner)

	_, err = e.Finalize(ctx, matchID, 1)
	require.NoError(t, err)

	_, err = e.Finalize(ctx, matchID, 1)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestFinalizeMidDraft(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := e.liveMatch(matchID)

	// Only one pick was made before the night got called off.
	_, err := e.Pick(ctx, matchID, m.Team1[0], "Ashka")
	require.NoError(t, err)

	view, err := e.Finalize(ctx, matchID, 1)
	require.NoError(t, err)
	assert.Equal(t, string(StatusFinished), view.Status)

	rec, err := st.GetFinishedMatch(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.DraftRound)
	assert.Nil(t, rec.StartedAt)

	var withChampion int
	for _, p := range rec.Players {
		if p.Champion != "" {
			withChampion++
		}
	}
	assert.Equal(t, 1, withChampion)
}

// priorWin fabricates an archived win so a user enters the next match
// with a streak.
func priorWin(t *testing.T, st store.Store, matchID string, winners []string) {
	t.Helper()
	results := make([]store.PlayerResult, len(winners))
	for i, uid := range winners {
		results[i] = store.PlayerResult{UserID: uid, Team: 1, Position: i, Won: true, ScoreDelta: 1}
	}
	m := &store.FinalizedMatch{
		ID:         matchID,
		DisplayID:  "PRIOR000",
		Map:        "Orman Night",
		WinnerTeam: 1,
		CreatedAt:  time.Now().Add(-time.Hour),
		FinishedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, st.RecordFinalizedMatch(context.Background(), m, results, nil))
}

func TestFinalizeStreakBonusAndBreaks(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := completeDraft(t, e, matchID)

	// Two prior wins put this winner at streak 2; three put the loser
	// at the lowest bonus tier.
	winner := m.Team1[0]
	loser := m.Team2[0]
	priorWin(t, st, "w1", []string{winner, loser})
	priorWin(t, st, "w2", []string{winner, loser})
	priorWin(t, st, "w3", []string{loser})

	view, err := e.Finalize(ctx, matchID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{loser}, view.StreakedPlayerIDs)

	ws, err := st.GetPlayerStats(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, 3, ws.CurrentStreak)
	assert.Equal(t, 3, ws.MaxStreak)
	// 2 from the fabricated wins, then 1 + 0.25 tier bonus.
	assert.Equal(t, 3.25, ws.Score)
	assert.Equal(t, 0, ws.StreaksBroken)

	ls, err := st.GetPlayerStats(ctx, loser)
	require.NoError(t, err)
	assert.Equal(t, 0, ls.CurrentStreak)
	assert.Equal(t, 3, ls.MaxStreak)
	assert.Equal(t, 1, ls.StreaksBroken)

	// The loser's champion carries the broken streak too.
	champs, err := st.GetChampionStats(ctx, loser)
	require.NoError(t, err)
	require.Len(t, champs, 1)
	assert.Equal(t, 1, champs[0].StreaksBroken)
}

// failingStore lets a test make the archive write fail.
type failingStore struct {
	store.Store
	fail bool
}

func (f *failingStore) RecordFinalizedMatch(ctx context.Context, m *store.FinalizedMatch, results []store.PlayerResult, bets []store.BetRecord) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.RecordFinalizedMatch(ctx, m, results, bets)
}

func TestFinalizeStoreFailureKeepsMatchLive(t *testing.T) {
	sqlite, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	flaky := &failingStore{Store: sqlite}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	e, err := New(context.Background(), flaky, Options{Seed: 1, Logger: logger})
	require.NoError(t, err)

	ctx := context.Background()
	ids := seedPlayers(t, e.store, MatchSize)
	matchID := formMatch(t, e, ids)
	m := completeDraft(t, e, matchID)

	flaky.fail = true
	_, err = e.Finalize(ctx, matchID, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyFinalized)

	// Nothing was lost: the match is still live and finalizable.
	require.NotNil(t, e.liveMatch(matchID))
	assert.Equal(t, StatusInProgress, m.Status)

	flaky.fail = false
	view, err := e.Finalize(ctx, matchID, 1)
	require.NoError(t, err)
	assert.Equal(t, string(StatusFinished), view.Status)
}

func TestFixOpenMatches(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()

	first := formMatch(t, e, seedPlayers(t, st, MatchSize))
	second := formMatch(t, e, seedPlayers(t, st, MatchSize))

	// Leave the first mid-draft, run the second to in_progress.
	m1 := e.liveMatch(first)
	_, err := e.Pick(ctx, first, m1.Team1[0], "Ashka")
	require.NoError(t, err)
	completeDraft(t, e, second)

	fixed := e.FixOpenMatches(ctx)
	assert.Len(t, fixed, 2)

	for _, id := range []string{first, second} {
		assert.Nil(t, e.liveMatch(id))
		rec, err := st.GetFinishedMatch(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, 1, rec.WinnerTeam)
	}

	// The mid-draft match was auto-completed before finalizing.
	rec, err := st.GetFinishedMatch(ctx, first)
	require.NoError(t, err)
	for _, p := range rec.Players {
		assert.NotEmpty(t, p.Champion)
	}
	assert.Empty(t, e.FixOpenMatches(ctx))
}
