package engine

import (
	"context"
	"time"
)

// Pick records userID's champion for their designated round and returns
// the match rendered for them. A pick is legal when it is the user's
// turn (every earlier teammate has picked), the champion is in the
// match pool and no teammate holds it. The opposing team's progress
// never gates a pick.
func (e *Engine) Pick(ctx context.Context, matchID, userID, champion string) (MatchView, error) {
	m := e.liveMatch(matchID)
	if m == nil {
		return MatchView{}, e.missingMatchErr(ctx, matchID, ErrNotInDraft)
	}

	m.mu.Lock()
	snap, err := e.pickLocked(m, userID, champion)
	m.mu.Unlock()
	if err != nil {
		return MatchView{}, err
	}

	e.emit(DraftUpdated{MatchID: matchID})
	return Render(snap, userID), nil
}

func (e *Engine) pickLocked(m *Match, userID, champion string) (Snapshot, error) {
	if m.Status != StatusDraft {
		return Snapshot{}, ErrNotInDraft
	}

	team, position := m.teamOf(userID)
	if team == 0 {
		return Snapshot{}, ErrUserNotInMatch
	}
	side := m.Team1
	if team == 2 {
		side = m.Team2
	}
	if m.teamCursor(side) != position {
		return Snapshot{}, ErrNotYourTurn
	}

	if !poolHas(m.Pool, champion) {
		return Snapshot{}, ErrInvalidChampion
	}
	for _, id := range side {
		if m.Picks[id] == champion {
			return Snapshot{}, ErrChampionTaken
		}
	}

	m.Picks[userID] = champion
	e.maybeStartLocked(m)
	return m.snapshotLocked(), nil
}

// AutoPickRound fills the given round's missing picks with random legal
// champions. Teams whose cursor is past (or not yet at) the round are
// left alone, so re-invoking is harmless.
func (e *Engine) AutoPickRound(ctx context.Context, matchID string, round int) (MatchView, error) {
	if round < 0 || round >= TeamSize {
		return MatchView{}, ErrInvalidRound
	}
	m := e.liveMatch(matchID)
	if m == nil {
		return MatchView{}, e.missingMatchErr(ctx, matchID, ErrNotInDraft)
	}

	m.mu.Lock()
	snap, picked, err := e.autoPickLocked(m, round)
	m.mu.Unlock()
	if err != nil {
		return MatchView{}, err
	}

	if picked {
		e.emit(DraftUpdated{MatchID: matchID})
	}
	return Render(snap, ""), nil
}

// AutoPickCurrent fills whatever round the draft is currently serving.
func (e *Engine) AutoPickCurrent(ctx context.Context, matchID string) (MatchView, error) {
	m := e.liveMatch(matchID)
	if m == nil {
		return MatchView{}, e.missingMatchErr(ctx, matchID, ErrNotInDraft)
	}

	m.mu.Lock()
	var (
		snap   Snapshot
		picked bool
		err    error
	)
	if m.Status != StatusDraft {
		err = ErrNotInDraft
	} else {
		// In a running draft the pairing count is at most 2, which is
		// exactly the round being served.
		snap, picked, err = e.autoPickLocked(m, m.completedPairings())
	}
	m.mu.Unlock()
	if err != nil {
		return MatchView{}, err
	}

	if picked {
		e.emit(DraftUpdated{MatchID: matchID})
	}
	return Render(snap, ""), nil
}

func (e *Engine) autoPickLocked(m *Match, round int) (Snapshot, bool, error) {
	if m.Status != StatusDraft {
		return Snapshot{}, false, ErrNotInDraft
	}

	picked := false
	for _, side := range [][]string{m.Team1, m.Team2} {
		if m.teamCursor(side) != round {
			continue
		}
		champion := e.randomLegalLocked(m, side)
		if champion == "" {
			continue
		}
		m.Picks[side[round]] = champion
		picked = true
	}
	if picked {
		e.maybeStartLocked(m)
		e.log.Infof("match %s round %d auto-picked", m.DisplayID, round)
	}
	return m.snapshotLocked(), picked, nil
}

// randomLegalLocked draws a champion from the match pool not yet used
// by the given team, "" when the pool is exhausted.
func (e *Engine) randomLegalLocked(m *Match, side []string) string {
	used := make(map[string]bool, TeamSize)
	for _, id := range side {
		if c, ok := m.Picks[id]; ok {
			used[c] = true
		}
	}
	options := make([]string, 0, len(m.Pool))
	for _, c := range m.Pool {
		if !used[c] {
			options = append(options, c)
		}
	}
	if len(options) == 0 {
		return ""
	}
	return e.pickRandom(options)
}

// maybeStartLocked flips the match to in_progress once all three
// pairings are complete, opening the bet window.
func (e *Engine) maybeStartLocked(m *Match) {
	if m.completedPairings() < TeamSize {
		return
	}
	m.Status = StatusInProgress
	m.StartedAt = time.Now()
	m.BetDeadline = m.StartedAt.Add(e.betWindow)
	e.log.Infof("match %s draft complete, bets close at %s", m.DisplayID, m.BetDeadline.Format("15:04:05"))
}

func poolHas(pool []string, champion string) bool {
	for _, c := range pool {
		if c == champion {
			return true
		}
	}
	return false
}
