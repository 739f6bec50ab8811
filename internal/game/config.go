package game

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// MinActiveChampions is the smallest champion pool that still lets a
// team of three draft distinct champions.
const MinActiveChampions = 3

// Points holds the base score awarded for a match result.
type Points struct {
	Win  float64 `json:"win"`
	Loss float64 `json:"loss"`
}

// Config is the admin-tunable rule set. StreakBonus maps a streak
// length (decimal string key) to the extra score a winner earns once
// their streak reaches that length.
type Config struct {
	Points          Points             `json:"points"`
	StreakBonus     map[string]float64 `json:"streak_bonus"`
	ActiveMaps      []string           `json:"active_maps"`
	ActiveChampions []string           `json:"active_champions"`
}

// DefaultConfig returns the rule set used until an admin saves one.
func DefaultConfig() Config {
	return Config{
		Points: Points{Win: 1, Loss: 0},
		StreakBonus: map[string]float64{
			"3": 0.25,
			"6": 0.5,
			"9": 1.0,
		},
		ActiveMaps:      append([]string(nil), Maps...),
		ActiveChampions: append([]string(nil), Champions...),
	}
}

// Validate checks the whole rule set. A config that fails here must be
// rejected as a unit, leaving the previous config in force.
func (c Config) Validate() error {
	if math.IsNaN(c.Points.Win) || math.IsInf(c.Points.Win, 0) {
		return errors.New("points.win is not a finite number")
	}
	if math.IsNaN(c.Points.Loss) || math.IsInf(c.Points.Loss, 0) {
		return errors.New("points.loss is not a finite number")
	}
	for key, bonus := range c.StreakBonus {
		n, err := strconv.Atoi(key)
		if err != nil || n <= 0 {
			return fmt.Errorf("streak_bonus key %q is not a positive integer", key)
		}
		if math.IsNaN(bonus) || math.IsInf(bonus, 0) {
			return fmt.Errorf("streak_bonus[%q] is not a finite number", key)
		}
	}
	if len(c.ActiveMaps) == 0 {
		return errors.New("active_maps is empty")
	}
	for _, m := range c.ActiveMaps {
		if !ValidMap(m) {
			return fmt.Errorf("unknown map %q", m)
		}
	}
	if len(c.ActiveChampions) < MinActiveChampions {
		return fmt.Errorf("need at least %d active champions", MinActiveChampions)
	}
	for _, ch := range c.ActiveChampions {
		if !ValidChampion(ch) {
			return fmt.Errorf("unknown champion %q", ch)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hold a snapshot without
// sharing maps or slices with the original.
func (c Config) Clone() Config {
	out := c
	out.StreakBonus = make(map[string]float64, len(c.StreakBonus))
	for k, v := range c.StreakBonus {
		out.StreakBonus[k] = v
	}
	out.ActiveMaps = append([]string(nil), c.ActiveMaps...)
	out.ActiveChampions = append([]string(nil), c.ActiveChampions...)
	return out
}

// BonusFor returns the bonus for the highest streak tier not above
// streak, or 0 when no tier is reached.
func (c Config) BonusFor(streak int) float64 {
	best := 0
	bonus := 0.0
	for key, v := range c.StreakBonus {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if n <= streak && n > best {
			best = n
			bonus = v
		}
	}
	return bonus
}

// LowestTier returns the smallest configured streak tier, or 0 when no
// tiers are configured. A losing streak at or past this length counts
// as a broken streak.
func (c Config) LowestTier() int {
	lowest := 0
	for key := range c.StreakBonus {
		n, err := strconv.Atoi(key)
		if err != nil || n <= 0 {
			continue
		}
		if lowest == 0 || n < lowest {
			lowest = n
		}
	}
	return lowest
}
