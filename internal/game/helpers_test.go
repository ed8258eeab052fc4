package game

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// manualClock fires callbacks only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	when    time.Duration
	seq     int
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, when: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, running due callbacks in order. Callbacks run
// without the clock lock so they may schedule or stop timers.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool {
			if c.timers[i].when != c.timers[j].when {
				return c.timers[i].when < c.timers[j].when
			}
			return c.timers[i].seq < c.timers[j].seq
		})
		var next *manualTimer
		for i, t := range c.timers {
			if t.stopped {
				continue
			}
			if t.when <= target {
				next = t
				c.timers = append(c.timers[:i:i], c.timers[i+1:]...)
			}
			break
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.when
		next.stopped = true
		c.mu.Unlock()
		next.f()
	}
}

// Pending counts timers that have not fired or been stopped.
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recorder) Types() []EventType {
	var out []EventType
	for _, ev := range r.Events() {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) Last(t EventType) (Event, bool) {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			return events[i], true
		}
	}
	return Event{}, false
}

// testConfig returns an open board with no blocks or power-ups.
func testConfig() Config {
	config := DefaultConfig()
	config.BlockDensity = 0
	config.PowerUpChance = 0
	return config
}

func newTestEngine(t *testing.T, config Config) (*Engine, *manualClock, *recorder) {
	t.Helper()
	clock := &manualClock{}
	rec := &recorder{}
	ids := 0
	e, err := NewEngine(config,
		WithClock(clock),
		WithPublisher(rec),
		WithRand(rand.New(rand.NewSource(1))),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("b%d", ids)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(e.Stop)
	return e, clock, rec
}

// startedEngine joins the named players and runs the grace delay so the round
// is active.
func startedEngine(t *testing.T, config Config, ids ...string) (*Engine, *manualClock, *recorder) {
	t.Helper()
	e, clock, rec := newTestEngine(t, config)
	for _, id := range ids {
		_, err := e.Join(id, id)
		require.NoError(t, err)
	}
	if len(ids) < 2 {
		e.StartNewGame()
	} else {
		clock.Advance(config.StartDelay)
	}
	require.Equal(t, PhaseActive, e.Phase())
	rec.Reset()
	return e, clock, rec
}

// place moves a player onto pos and drops a bomb there.
func place(t *testing.T, e *Engine, playerID string, pos Position) *Bomb {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.state.Players.Get(playerID)
	require.True(t, ok)
	p.Position = pos
	require.True(t, e.placeBomb(playerID), "placeBomb at (%d,%d)", pos.X, pos.Y)
	return e.state.Bombs[len(e.state.Bombs)-1]
}

func setPosition(e *Engine, playerID string, pos Position) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, _ := e.state.Players.Get(playerID)
	p.Position = pos
}

func livePlayer(e *Engine, id string) *Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, _ := e.state.Players.Get(id)
	return p
}
