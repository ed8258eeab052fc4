package game

import (
	"fmt"
	"math/rand"
)

// Registry tracks registered players in join order. It is not safe for
// concurrent use; the Engine serializes access.
type Registry struct {
	players map[string]*Player
	order   []string
	spawns  []Position
}

// NewRegistry creates an empty registry for a board of the given size.
func NewRegistry(width, height int) *Registry {
	return &Registry{
		players: make(map[string]*Player),
		spawns:  SpawnPositions(width, height),
	}
}

// Add registers a player, assigns the least-used spawn slot and initializes
// the in-round attributes from the config.
func (r *Registry) Add(id, name, color string, config Config) *Player {
	slot := r.nextSlot()
	p := &Player{
		ID:    id,
		Name:  name,
		Color: color,
		Slot:  slot,
	}
	r.reset(p, config)
	r.players[id] = p
	r.order = append(r.order, id)
	return p
}

// Remove unregisters a player. It reports whether the player was present.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the live player record.
func (r *Registry) Get(id string) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	return len(r.players)
}

// All returns players in join order.
func (r *Registry) All() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

// Alive returns players currently standing on the board.
func (r *Registry) Alive() []*Player {
	var out []*Player
	for _, p := range r.All() {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// Contenders returns players with lives remaining.
func (r *Registry) Contenders() []*Player {
	var out []*Player
	for _, p := range r.All() {
		if p.Lives > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Spawn returns the corner position for a spawn slot.
func (r *Registry) Spawn(slot int) Position {
	return r.spawns[slot%len(r.spawns)]
}

// ResetAll restores every player to round-start attributes at their corner.
func (r *Registry) ResetAll(config Config) {
	for _, p := range r.players {
		r.reset(p, config)
	}
}

func (r *Registry) reset(p *Player, config Config) {
	p.Position = r.Spawn(p.Slot)
	p.Alive = true
	p.Lives = config.StartingLives
	p.BombsAvailable = config.StartingBombs
	p.BombRadius = config.BombRadius
}

// nextSlot picks the corner with the fewest current occupants, lowest index
// first, so a full rotation fills all four corners before doubling up.
func (r *Registry) nextSlot() int {
	counts := make([]int, len(r.spawns))
	for _, p := range r.players {
		counts[p.Slot%len(counts)]++
	}
	best := 0
	for i := range counts {
		if counts[i] < counts[best] {
			best = i
		}
	}
	return best
}

// Snapshot returns value copies keyed by player id.
func (r *Registry) Snapshot() map[string]Player {
	out := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		out[id] = *p
	}
	return out
}

// RandomColor returns a random #RRGGBB color.
func RandomColor(rng *rand.Rand) string {
	return fmt.Sprintf("#%06X", rng.Intn(1<<24))
}
