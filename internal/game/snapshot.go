package game

// Snapshot is an externally safe projection of the game state. It shares no
// storage with the Engine.
type Snapshot struct {
	Players          map[string]Player `json:"players"`
	Board            Board             `json:"board"`
	Bombs            []Bomb            `json:"bombs"`
	Active           bool              `json:"gameActive"`
	RemainingSeconds int               `json:"gameTimer"`
	Phase            string            `json:"phase"`
}

// Player looks up a player in the snapshot.
func (s *Snapshot) Player(id string) (Player, bool) {
	p, ok := s.Players[id]
	return p, ok
}

// Snapshot returns a deep copy of the game state safe for serialization.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// snapshotLocked creates a deep copy of the game state.
// MUST be called while e.mu is held.
func (e *Engine) snapshotLocked() Snapshot {
	bombs := make([]Bomb, len(e.state.Bombs))
	for i, b := range e.state.Bombs {
		bombs[i] = *b
	}

	return Snapshot{
		Players:          e.state.Players.Snapshot(),
		Board:            e.state.Board.Clone(),
		Bombs:            bombs,
		Active:           e.state.Active,
		RemainingSeconds: e.state.RemainingSeconds,
		Phase:            e.phase.String(),
	}
}

// broadcastLocked publishes a fresh snapshot.
// MUST be called while e.mu is held.
func (e *Engine) broadcastLocked() {
	s := e.snapshotLocked()
	e.publisher.Publish(Event{Type: EventGameState, State: &s})
}
