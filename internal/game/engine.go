package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPlayerName = "Player"
	maxNameLength     = 16
)

// Engine is the authoritative room simulation. Every inbound action, timer
// callback and round transition is applied under a single mutex, and the
// publisher sees each event only after the mutation behind it has settled.
type Engine struct {
	Config Config

	mu         sync.Mutex
	state      *GameState
	phase      Phase
	generation int
	stopped    bool

	roundTimer *task
	startTimer *task
	bombTimers map[string]*task

	clock     Clock
	rng       *rand.Rand
	publisher Publisher
	log       zerolog.Logger
	newID     func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for countdowns.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand sets the random source for board generation, power-ups and colors.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithPublisher sets the receiver of outbound events.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithIDGenerator overrides bomb id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an idle room with a freshly generated board and no players.
func NewEngine(config Config, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		Config:     config,
		bombTimers: make(map[string]*task),
		clock:      realClock{},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		publisher:  discardPublisher{},
		log:        zerolog.Nop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.state = &GameState{
		Board:            NewBoard(config, e.rng),
		Players:          NewRegistry(config.Width, config.Height),
		Bombs:            make([]*Bomb, 0),
		RemainingSeconds: config.RoundSeconds,
	}
	return e, nil
}

// Join registers a player and returns a copy of the new record. When the
// second player arrives in an idle room, a round start is scheduled after the
// grace delay.
func (e *Engine) Join(id, name string) (Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return Player{}, ErrEngineStopped
	}
	if _, exists := e.state.Players.Get(id); exists {
		return Player{}, fmt.Errorf("join %s: %w", id, ErrPlayerExists)
	}
	if e.Config.MaxPlayers > 0 && e.state.Players.Len() >= e.Config.MaxPlayers {
		return Player{}, fmt.Errorf("join %s: %w (%d/%d players)", id, ErrRoomFull, e.state.Players.Len(), e.Config.MaxPlayers)
	}

	p := e.state.Players.Add(id, SanitizeName(name), RandomColor(e.rng), e.Config)
	e.log.Info().Str("player", id).Str("name", p.Name).Int("slot", p.Slot).Msg("player joined")

	if e.phase == PhaseIdle && e.state.Players.Len() >= 2 {
		e.phase = PhaseStarting
		e.startTimer = e.after(e.Config.StartDelay, e.startNewGameLocked)
		e.log.Info().Dur("delay", e.Config.StartDelay).Msg("round scheduled")
	}

	e.broadcastLocked()
	return *p, nil
}

// Disconnect removes a player. Bombs they placed keep ticking. A room that
// drops below two players mid-round ends the round immediately.
func (e *Engine) Disconnect(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped || !e.state.Players.Remove(id) {
		return
	}
	e.log.Info().Str("player", id).Int("remaining", e.state.Players.Len()).Msg("player left")

	e.broadcastLocked()

	if e.phase == PhaseActive && e.state.Players.Len() < 2 {
		e.endRoundLocked("not enough players")
		return
	}
	e.checkRoundEndLocked()
}

// Apply dispatches a player action. Invalid actions are ignored.
func (e *Engine) Apply(a Action) {
	switch a.Type {
	case ActionMove:
		e.Move(a.PlayerID, a.Dir)
	case ActionPlaceBomb:
		e.PlaceBomb(a.PlayerID)
	}
}

// Move attempts a one-tile step.
func (e *Engine) Move(playerID string, dir Direction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || !e.state.Active {
		return
	}
	if e.movePlayer(playerID, dir) {
		e.broadcastLocked()
	}
}

// PlaceBomb attempts to drop a bomb at the player's tile.
func (e *Engine) PlaceBomb(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || !e.state.Active {
		return
	}
	if e.placeBomb(playerID) {
		e.broadcastLocked()
	}
}

// Player returns a copy of a registered player.
func (e *Engine) Player(id string) (Player, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.state.Players.Get(id)
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Phase returns the current lifecycle state.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// PlayerCount returns the number of registered players.
func (e *Engine) PlayerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Players.Len()
}

// Stop cancels every pending timer. Later actions and callbacks are no-ops.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	e.cancelTimersLocked()
	e.log.Info().Msg("engine stopped")
}

// cancelTimersLocked revokes the round countdown, any scheduled start and
// every bomb fuse. MUST be called while e.mu is held.
func (e *Engine) cancelTimersLocked() {
	e.roundTimer.cancel()
	e.roundTimer = nil
	e.startTimer.cancel()
	e.startTimer = nil
	for id, t := range e.bombTimers {
		t.cancel()
		delete(e.bombTimers, id)
	}
}

// SanitizeName trims a display name, caps its length and substitutes a
// default for empty names.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	if name == "" {
		return defaultPlayerName
	}
	return name
}
