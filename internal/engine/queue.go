package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edvart/arena-inhouse/internal/game"
)

// QueueEntry is one waiting player.
type QueueEntry struct {
	UserID     string
	Name       string
	EnqueuedAt time.Time
}

// QueueStatus is the queue view returned to a caller. MatchID is set
// when the caller's enter completed a match.
type QueueStatus struct {
	Count   int    `json:"count"`
	Queued  bool   `json:"queued"`
	MatchID string `json:"match_id,omitempty"`
}

// QueueMember is one queued player. Queue membership is public.
type QueueMember struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// Enter adds a user to the queue. The sixth entry removes the earliest
// six members and creates their match inside the same critical section,
// so concurrent entries can never double-create or strand a player.
func (e *Engine) Enter(ctx context.Context, userID string) (QueueStatus, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return QueueStatus{}, ErrUserNotFound
	}

	cfg := e.Config()

	e.mu.Lock()
	for _, entry := range e.queue {
		if entry.UserID == userID {
			e.mu.Unlock()
			return QueueStatus{}, ErrAlreadyQueued
		}
	}
	if e.userInLiveMatchLocked(userID) {
		e.mu.Unlock()
		return QueueStatus{}, ErrAlreadyInMatch
	}

	e.queue = append(e.queue, QueueEntry{UserID: userID, Name: u.Name, EnqueuedAt: time.Now()})

	var m *Match
	if len(e.queue) >= MatchSize {
		formed := make([]QueueEntry, MatchSize)
		copy(formed, e.queue[:MatchSize])
		e.queue = append([]QueueEntry(nil), e.queue[MatchSize:]...)
		m = e.createMatchLocked(formed, cfg)
	}
	count := len(e.queue)
	e.mu.Unlock()

	e.log.Infof("%s entered the queue (%d waiting)", u.Name, count)
	e.emit(QueueUpdated{Count: count})

	status := QueueStatus{Count: count, Queued: true}
	if m != nil {
		status.MatchID = m.ID
		e.emit(MatchCreated{
			MatchID:      m.ID,
			DisplayID:    m.DisplayID,
			Map:          m.Map,
			Participants: m.participants(),
		})
		e.log.Infof("match %s created on %s", m.DisplayID, m.Map)
	}
	return status, nil
}

// Leave removes a user from the queue. Leaving while not queued is a
// no-op, not an error.
func (e *Engine) Leave(userID string) QueueStatus {
	e.mu.Lock()
	removed := false
	for i, entry := range e.queue {
		if entry.UserID == userID {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			removed = true
			break
		}
	}
	count := len(e.queue)
	e.mu.Unlock()

	if removed {
		e.log.Infof("user %s left the queue (%d waiting)", userID, count)
		e.emit(QueueUpdated{Count: count})
	}
	return QueueStatus{Count: count}
}

// QueueStatusFor reports the queue size and whether userID is in it.
func (e *Engine) QueueStatusFor(userID string) QueueStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := QueueStatus{Count: len(e.queue)}
	for _, entry := range e.queue {
		if entry.UserID == userID {
			status.Queued = true
			break
		}
	}
	return status
}

// QueueMembers lists the queued players in enqueue order.
func (e *Engine) QueueMembers() []QueueMember {
	e.mu.RLock()
	defer e.mu.RUnlock()

	members := make([]QueueMember, len(e.queue))
	for i, entry := range e.queue {
		members[i] = QueueMember{UserID: entry.UserID, Name: entry.Name}
	}
	return members
}

// createMatchLocked forms a match from six queue entries. Caller holds
// e.mu. Teams are a uniform shuffle and the map a uniform draw from the
// rules active at this moment; the champion pool freezes here too.
func (e *Engine) createMatchLocked(entries []QueueEntry, cfg game.Config) *Match {
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.UserID
	}
	e.shuffle(ids)

	id := uuid.New().String()
	m := &Match{
		ID:        id,
		DisplayID: displayID(id),
		Map:       e.pickRandom(cfg.ActiveMaps),
		Status:    StatusDraft,
		Team1:     append([]string(nil), ids[:TeamSize]...),
		Team2:     append([]string(nil), ids[TeamSize:]...),
		Picks:     make(map[string]string),
		Pool:      append([]string(nil), cfg.ActiveChampions...),
		Bets:      make(map[string]Bet),
		CreatedAt: time.Now(),
	}
	e.matches[id] = m
	return m
}

// userInLiveMatchLocked reports whether userID plays in any unfinalized
// match. Team membership never changes after creation, so e.mu alone is
// enough here.
func (e *Engine) userInLiveMatchLocked(userID string) bool {
	for _, m := range e.matches {
		for _, id := range m.Team1 {
			if id == userID {
				return true
			}
		}
		for _, id := range m.Team2 {
			if id == userID {
				return true
			}
		}
	}
	return false
}

// displayID derives the short code players call the match by.
func displayID(id string) string {
	return strings.ToUpper(strings.ReplaceAll(id, "-", ""))[:8]
}
