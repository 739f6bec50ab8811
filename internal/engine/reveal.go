package engine

import (
	"time"

	"github.com/edvart/arena-inhouse/internal/store"
)

// Snapshot is a lock-free copy of one match's state. Pairings is the
// number of completed pick pairs, 0..3 live, or the archived round for
// finished matches.
type Snapshot struct {
	ID          string
	DisplayID   string
	Map         string
	Status      Status
	Team1       []string
	Team2       []string
	Picks       map[string]string
	Pairings    int
	CreatedAt   time.Time
	StartedAt   *time.Time
	BetDeadline *time.Time
	WinnerTeam  int
	Streaked    []string
}

// MatchView is the JSON shape of a match as served to one viewer. Team
// arrays always have three slots; a hidden slot is the empty string.
type MatchView struct {
	ID                 string            `json:"id"`
	DisplayID          string            `json:"display_id"`
	Map                string            `json:"map"`
	Status             string            `json:"status"`
	Team1              []string          `json:"team1"`
	Team2              []string          `json:"team2"`
	Picks              map[string]string `json:"picks"`
	DraftRound         int               `json:"draft_round"`
	StartedAt          *time.Time        `json:"started_at,omitempty"`
	BetDeadline        *time.Time        `json:"bet_deadline,omitempty"`
	WinnerTeam         int               `json:"winner_team,omitempty"`
	StreakedPlayerIDs  []string          `json:"streaked_player_ids,omitempty"`
	PendingOpponentIDs []string          `json:"pending_opponent_ids,omitempty"`
}

// Render computes what viewerID may see of snap. It is pure: same
// inputs, same view, no clock and no locks, so any transport can call
// it.
//
// While the draft runs, a slot at position i shows its identity to
// non-teammates only once i pairings are complete, and its pick only
// once pairing i itself completes. Teammates see their own side and its
// picks immediately; picks still waiting on the paired opponent are
// listed in pending_opponent_ids. Outside the draft everything is
// visible to everyone.
func Render(s Snapshot, viewerID string) MatchView {
	v := MatchView{
		ID:          s.ID,
		DisplayID:   s.DisplayID,
		Map:         s.Map,
		Status:      string(s.Status),
		Picks:       make(map[string]string, len(s.Picks)),
		DraftRound:  servedRound(s.Pairings),
		StartedAt:   s.StartedAt,
		BetDeadline: s.BetDeadline,
	}

	if s.Status != StatusDraft {
		v.Team1 = append([]string(nil), s.Team1...)
		v.Team2 = append([]string(nil), s.Team2...)
		for id, champion := range s.Picks {
			v.Picks[id] = champion
		}
		v.WinnerTeam = s.WinnerTeam
		if s.Status == StatusFinished {
			v.StreakedPlayerIDs = append([]string(nil), s.Streaked...)
		}
		return v
	}

	onTeam1 := contains(s.Team1, viewerID)
	onTeam2 := contains(s.Team2, viewerID)

	v.Team1 = renderTeam(s.Team1, onTeam1, s.Pairings)
	v.Team2 = renderTeam(s.Team2, onTeam2, s.Pairings)

	for t, side := range [][]string{s.Team1, s.Team2} {
		member := (t == 0 && onTeam1) || (t == 1 && onTeam2)
		for i, id := range side {
			champion, ok := s.Picks[id]
			if !ok {
				continue
			}
			if s.Pairings > i {
				v.Picks[id] = champion
				continue
			}
			if member {
				v.Picks[id] = champion
				v.PendingOpponentIDs = append(v.PendingOpponentIDs, id)
			}
		}
	}
	return v
}

// renderTeam masks the identities a non-member may not see yet.
func renderTeam(side []string, member bool, pairings int) []string {
	out := make([]string, len(side))
	for i, id := range side {
		if member || pairings >= i {
			out[i] = id
		}
	}
	return out
}

// snapshotFromRecord rebuilds a Snapshot from an archived match.
func snapshotFromRecord(rec *store.MatchRecord) Snapshot {
	s := Snapshot{
		ID:          rec.ID,
		DisplayID:   rec.DisplayID,
		Map:         rec.Map,
		Status:      StatusFinished,
		Team1:       make([]string, TeamSize),
		Team2:       make([]string, TeamSize),
		Picks:       make(map[string]string, len(rec.Players)),
		Pairings:    rec.DraftRound,
		CreatedAt:   rec.CreatedAt,
		StartedAt:   rec.StartedAt,
		BetDeadline: rec.BetDeadline,
		WinnerTeam:  rec.WinnerTeam,
	}
	for _, p := range rec.Players {
		side := s.Team1
		if p.Team == 2 {
			side = s.Team2
		}
		if p.Position >= 0 && p.Position < TeamSize {
			side[p.Position] = p.UserID
		}
		if p.Champion != "" {
			s.Picks[p.UserID] = p.Champion
		}
		if p.StreakBroken {
			s.Streaked = append(s.Streaked, p.UserID)
		}
	}
	return s
}

func contains(ids []string, id string) bool {
	if id == "" {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
