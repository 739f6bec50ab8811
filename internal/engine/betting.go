package engine

import (
	"context"
	"fmt"
	"time"
)

// PlaceBet records a wager on the winning team. Any registered user can
// bet, participant or not, one bet per match, while the match is
// in_progress and the deadline has not passed. Expiry is checked lazily
// against the wall clock; no timer closes the window.
func (e *Engine) PlaceBet(ctx context.Context, matchID, userID string, team int) error {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return ErrUserNotFound
	}

	m := e.liveMatch(matchID)
	if m == nil {
		return e.missingMatchErr(ctx, matchID, ErrNotInProgress)
	}

	m.mu.Lock()
	err = placeBetLocked(m, userID, team)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	e.emit(BetsUpdated{MatchID: matchID})
	e.log.Infof("%s bet on team %d in match %s", u.Name, team, m.DisplayID)
	return nil
}

func placeBetLocked(m *Match, userID string, team int) error {
	if m.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if time.Now().After(m.BetDeadline) {
		return ErrBetWindowClosed
	}
	if _, ok := m.Bets[userID]; ok {
		return ErrDuplicateBet
	}
	if team != 1 && team != 2 {
		return ErrInvalidTeam
	}
	m.Bets[userID] = Bet{Team: team, PlacedAt: time.Now()}
	return nil
}

// BetCounts returns aggregate counts per team. Who bet on what is never
// served.
func (e *Engine) BetCounts(ctx context.Context, matchID string) (team1, team2 int, err error) {
	if m := e.liveMatch(matchID); m != nil {
		m.mu.Lock()
		for _, b := range m.Bets {
			if b.Team == 1 {
				team1++
			} else {
				team2++
			}
		}
		m.mu.Unlock()
		return team1, team2, nil
	}

	rec, err := e.store.GetFinishedMatch(ctx, matchID)
	if err != nil {
		return 0, 0, fmt.Errorf("get finished match: %w", err)
	}
	if rec == nil {
		return 0, 0, ErrMatchNotFound
	}
	return e.store.CountBets(ctx, matchID)
}
