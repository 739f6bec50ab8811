package engine

import (
	"github.com/edvart/arena-inhouse/internal/game"
	"github.com/edvart/arena-inhouse/internal/store"
)

// matchResults computes every participant's outcome for a finalize.
// streaks holds each participant's current win streak as read before
// this match is applied.
//
// Winners earn the win points plus the bonus of the highest streak tier
// their own new streak reaches. Losers whose pre-loss streak had
// reached the lowest configured tier count as a broken streak; those
// users are returned in team and position order.
func matchResults(m *Match, winnerTeam int, streaks map[string]int, cfg game.Config) ([]store.PlayerResult, []string) {
	lowestTier := cfg.LowestTier()

	results := make([]store.PlayerResult, 0, MatchSize)
	var streaked []string
	for t, side := range [][]string{m.Team1, m.Team2} {
		team := t + 1
		for position, uid := range side {
			r := store.PlayerResult{
				UserID:   uid,
				Team:     team,
				Position: position,
				Champion: m.Picks[uid],
				Won:      team == winnerTeam,
			}
			if r.Won {
				r.ScoreDelta = cfg.Points.Win + cfg.BonusFor(streaks[uid]+1)
			} else {
				r.ScoreDelta = cfg.Points.Loss
				if lowestTier > 0 && streaks[uid] >= lowestTier {
					r.StreakBroken = true
					streaked = append(streaked, uid)
				}
			}
			results = append(results, r)
		}
	}
	return results, streaked
}
