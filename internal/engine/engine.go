package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edvart/arena-inhouse/internal/game"
	"github.com/edvart/arena-inhouse/internal/store"
)

// TeamSize is the number of players per side.
const TeamSize = 3

// MatchSize is the queue threshold that forms a match.
const MatchSize = 2 * TeamSize

// DefaultBetWindow is how long bets stay open once a draft completes.
const DefaultBetWindow = 10 * time.Minute

// Engine owns all live queue and match state. Live matches are held in
// memory and written to the store only when finalized; the store also
// provides user identity, history and the persisted rule set.
//
// e.mu guards the queue and the live match registry. Each Match has its
// own mutex for draft, bet and finalize mutations, so unrelated matches
// never contend.
type Engine struct {
	store store.Store
	log   *logrus.Logger

	betWindow time.Duration

	mu      sync.RWMutex
	queue   []QueueEntry
	matches map[string]*Match

	cfgMu sync.RWMutex
	cfg   game.Config

	rngMu sync.Mutex
	rng   *rand.Rand

	subMu       sync.RWMutex
	subscribers []chan Event
}

// Options tunes engine construction. Zero values select defaults.
type Options struct {
	BetWindow time.Duration // default DefaultBetWindow
	Seed      int64         // rng seed, 0 seeds from the clock
	Logger    *logrus.Logger
}

// New creates an Engine backed by st and loads the persisted rule set,
// seeding the defaults on first run.
func New(ctx context.Context, st store.Store, opts Options) (*Engine, error) {
	if opts.BetWindow <= 0 {
		opts.BetWindow = DefaultBetWindow
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	e := &Engine{
		store:     st,
		log:       opts.Logger,
		betWindow: opts.BetWindow,
		matches:   make(map[string]*Match),
		rng:       rand.New(rand.NewSource(opts.Seed)),
	}

	cfg, err := st.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg == nil {
		def := game.DefaultConfig()
		if err := st.SaveConfig(ctx, def); err != nil {
			return nil, fmt.Errorf("seed config: %w", err)
		}
		cfg = &def
		e.log.Info("no stored rules config, seeded defaults")
	}
	e.cfg = *cfg

	return e, nil
}

// Subscribe creates a new event channel for a consumer. The returned
// channel receives all events emitted by the engine; slow consumers
// have events dropped rather than blocking the engine.
func (e *Engine) Subscribe() <-chan Event {
	ch := make(chan Event, 100)
	e.subMu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.subMu.Unlock()
	return ch
}

func (e *Engine) emit(ev Event) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- ev:
		default:
			e.log.Warnf("subscriber channel full, dropping %T", ev)
		}
	}
}

// Config returns the current rule set. The snapshot is shared; callers
// must treat it as read-only.
func (e *Engine) Config() game.Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// SetConfig validates, persists and atomically replaces the whole rule
// set. Matches already drafting keep the champion pool they started
// with.
func (e *Engine) SetConfig(ctx context.Context, cfg game.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg = cfg.Clone()
	if err := e.store.SaveConfig(ctx, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()

	e.emit(ConfigUpdated{})
	e.log.Info("rules config replaced")
	return nil
}

// liveMatch looks up a match in the live registry.
func (e *Engine) liveMatch(id string) *Match {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matches[id]
}

// missingMatchErr classifies a live registry miss: archived matches
// yield finishedErr, unknown ids ErrMatchNotFound.
func (e *Engine) missingMatchErr(ctx context.Context, id string, finishedErr error) error {
	rec, err := e.store.GetFinishedMatch(ctx, id)
	if err != nil {
		return fmt.Errorf("get finished match: %w", err)
	}
	if rec != nil {
		return finishedErr
	}
	return ErrMatchNotFound
}

func (e *Engine) shuffle(ids []string) {
	e.rngMu.Lock()
	e.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	e.rngMu.Unlock()
}

func (e *Engine) pickRandom(options []string) string {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return options[e.rng.Intn(len(options))]
}
