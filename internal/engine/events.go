package engine

// Event is the interface for all events emitted by the engine. Events
// are advisory change signals; consumers re-fetch state through the
// normal read paths.
type Event interface {
	event() // marker method
}

// QueueUpdated signals a change in queue membership.
type QueueUpdated struct {
	Count int
}

func (QueueUpdated) event() {}

// MatchCreated signals that six queued players were formed into a match.
type MatchCreated struct {
	MatchID      string
	DisplayID    string
	Map          string
	Participants []string
}

func (MatchCreated) event() {}

// DraftUpdated signals a recorded pick or a round advance.
type DraftUpdated struct {
	MatchID string
}

func (DraftUpdated) event() {}

// BetsUpdated signals a newly placed bet.
type BetsUpdated struct {
	MatchID string
}

func (BetsUpdated) event() {}

// MatchFinalized signals a finished match with results applied.
type MatchFinalized struct {
	MatchID      string
	DisplayID    string
	WinnerTeam   int
	Participants []string
}

func (MatchFinalized) event() {}

// ConfigUpdated signals that an admin replaced the rule set.
type ConfigUpdated struct{}

func (ConfigUpdated) event() {}
