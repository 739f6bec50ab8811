package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvart/arena-inhouse/internal/game"
)

func TestPickTurnOrder(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := e.liveMatch(matchID)

	// Round 1 and 2 players cannot pick before their turn.
	_, err := e.Pick(ctx, matchID, m.Team1[1], "Ashka")
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, err = e.Pick(ctx, matchID, m.Team1[2], "Ashka")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = e.Pick(ctx, matchID, m.Team1[0], "Ashka")
	require.NoError(t, err)

	// Having picked, the round 0 player is no longer on turn.
	_, err = e.Pick(ctx, matchID, m.Team1[0], "Bakko")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	// Now their round 1 teammate is.
	_, err = e.Pick(ctx, matchID, m.Team1[1], "Bakko")
	require.NoError(t, err)
}

func TestPickValidation(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	outsider := seedPlayers(t, st, 1)[0]
	matchID := formMatch(t, e, ids)
	m := e.liveMatch(matchID)

	_, err := e.Pick(ctx, "nope", m.Team1[0], "Ashka")
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = e.Pick(ctx, matchID, outsider, "Ashka")
	assert.ErrorIs(t, err, ErrUserNotInMatch)

	_, err = e.Pick(ctx, matchID, m.Team1[0], "Gandalf")
	assert.ErrorIs(t, err, ErrInvalidChampion)

	_, err = e.Pick(ctx, matchID, m.Team1[0], "Ashka")
	require.NoError(t, err)

	// Same champion is blocked within the team but fine across teams.
	_, err = e.Pick(ctx, matchID, m.Team2[0], "Ashka")
	require.NoError(t, err)
	_, err = e.Pick(ctx, matchID, m.Team1[1], "Ashka")
	assert.ErrorIs(t, err, ErrChampionTaken)
}

func TestTeamsAdvanceIndependently(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := e.liveMatch(matchID)

	// Team 1 runs its whole draft before team 2 picks at all.
	_, err := e.Pick(ctx, matchID, m.Team1[0], "Ashka")
	require.NoError(t, err)
	_, err = e.Pick(ctx, matchID, m.Team1[1], "Bakko")
	require.NoError(t, err)
	_, err = e.Pick(ctx, matchID, m.Team1[2], "Croak")
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, m.Status)
	assert.Equal(t, 0, m.completedPairings())

	_, err = e.Pick(ctx, matchID, m.Team2[0], "Freya")
	require.NoError(t, err)
	assert.Equal(t, 1, m.completedPairings())
	_, err = e.Pick(ctx, matchID, m.Team2[1], "Jumong")
	require.NoError(t, err)
	view, err := e.Pick(ctx, matchID, m.Team2[2], "Oldur")
	require.NoError(t, err)

	assert.Equal(t, string(StatusInProgress), view.Status)
	assert.Equal(t, 3, m.completedPairings())
}

func TestDraftCompleteOpensBets(t *testing.T) {
	e, st := newTestEngine(t, Options{BetWindow: 5 * time.Minute})
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)

	m := completeDraft(t, e, matchID)

	assert.Equal(t, StatusInProgress, m.Status)
	assert.False(t, m.StartedAt.IsZero())
	assert.Equal(t, m.StartedAt.Add(5*time.Minute), m.BetDeadline)
	assert.Len(t, m.Picks, MatchSize)

	// No further picks once the draft is over.
	_, err := e.Pick(context.Background(), matchID, m.Team1[0], "Thorn")
	assert.ErrorIs(t, err, ErrNotInDraft)
	_, err = e.AutoPickCurrent(context.Background(), matchID)
	assert.ErrorIs(t, err, ErrNotInDraft)
}

func TestPickOnFinalizedMatch(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := completeDraft(t, e, matchID)

	_, err := e.Finalize(ctx, matchID, 1)
	require.NoError(t, err)

	_, err = e.Pick(ctx, matchID, m.Team1[0], "Thorn")
	assert.ErrorIs(t, err, ErrNotInDraft)
}

func TestAutoPickRound(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := e.liveMatch(matchID)

	_, err := e.AutoPickRound(ctx, matchID, -1)
	assert.ErrorIs(t, err, ErrInvalidRound)
	_, err = e.AutoPickRound(ctx, matchID, TeamSize)
	assert.ErrorIs(t, err, ErrInvalidRound)
	_, err = e.AutoPickRound(ctx, "nope", 0)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	// One player picks manually, auto fills the rest of round 0.
	_, err = e.Pick(ctx, matchID, m.Team1[0], "Ashka")
	require.NoError(t, err)

	_, err = e.AutoPickRound(ctx, matchID, 0)
	require.NoError(t, err)

	assert.Equal(t, "Ashka", m.Picks[m.Team1[0]])
	assert.Contains(t, m.Pool, m.Picks[m.Team2[0]])
	assert.Equal(t, 1, m.completedPairings())

	// Filling a round that is not current for either team changes
	// nothing.
	_, err = e.AutoPickRound(ctx, matchID, 0)
	require.NoError(t, err)
	_, err = e.AutoPickRound(ctx, matchID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, len(m.Picks))
}

func TestAutoPickCurrentCompletesDraft(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := e.liveMatch(matchID)

	for round := 0; round < TeamSize; round++ {
		view, err := e.AutoPickCurrent(ctx, matchID)
		require.NoError(t, err)
		if round < TeamSize-1 {
			assert.Equal(t, round+1, view.DraftRound)
		}
	}

	assert.Equal(t, StatusInProgress, m.Status)
	assert.Len(t, m.Picks, MatchSize)

	// All picks legal and distinct within each team.
	for _, side := range [][]string{m.Team1, m.Team2} {
		seen := map[string]bool{}
		for _, id := range side {
			champion := m.Picks[id]
			assert.Contains(t, m.Pool, champion)
			assert.False(t, seen[champion], "champion %s picked twice in team", champion)
			seen[champion] = true
		}
	}
}

func TestAutoPickDeterministicWithSeed(t *testing.T) {
	run := func(seed int64) []string {
		e, st := newTestEngine(t, Options{Seed: seed})
		ids := seedPlayers(t, st, MatchSize)
		matchID := formMatch(t, e, ids)
		m := e.liveMatch(matchID)
		for round := 0; round < TeamSize; round++ {
			_, err := e.AutoPickCurrent(context.Background(), matchID)
			require.NoError(t, err)
		}
		picks := make([]string, 0, MatchSize)
		for _, id := range append(append([]string(nil), m.Team1...), m.Team2...) {
			picks = append(picks, m.Picks[id])
		}
		return picks
	}

	assert.Equal(t, run(7), run(7))
}

func TestChampionPoolFrozenAtCreation(t *testing.T) {
	e, st := newTestEngine(t, Options{})
	ctx := context.Background()
	ids := seedPlayers(t, st, MatchSize)
	matchID := formMatch(t, e, ids)
	m := e.liveMatch(matchID)

	cfg := game.DefaultConfig()
	cfg.ActiveChampions = []string{"Ashka", "Bakko", "Croak"}
	require.NoError(t, e.SetConfig(ctx, cfg))

	// The running draft still allows champions from its original pool.
	_, err := e.Pick(ctx, matchID, m.Team1[0], "Zander")
	require.NoError(t, err)

	// A match formed after the change gets the narrowed pool.
	more := seedPlayers(t, st, MatchSize)
	next := e.liveMatch(formMatch(t, e, more))
	assert.Equal(t, []string{"Ashka", "Bakko", "Croak"}, next.Pool)

	_, err = e.Pick(ctx, next.ID, next.Team1[0], "Zander")
	assert.ErrorIs(t, err, ErrInvalidChampion)
}
