package game

// EventType names an outbound notification.
type EventType string

const (
	EventGameState        EventType = "gameState"
	EventBombPlaced       EventType = "bombPlaced"
	EventBombExploded     EventType = "bombExploded"
	EventPlayerRespawned  EventType = "playerRespawned"
	EventPlayerEliminated EventType = "playerEliminated"
	EventGameOver         EventType = "gameOver"
)

// Event is one outbound notification. Exactly one payload field is set,
// matching Type. Payloads are copies and never alias engine state.
type Event struct {
	Type      EventType
	State     *Snapshot
	Bomb      *Bomb
	Explosion *Explosion
	Player    *Player
	Result    *RoundResult
}

// Publisher receives every event in mutation order. Publish is called with the
// engine lock held: it must not block and must not call back into the Engine.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(ev Event) { f(ev) }

type discardPublisher struct{}

func (discardPublisher) Publish(Event) {}

// Outcome classifies how a round ended.
type Outcome string

const (
	OutcomeWinner    Outcome = "winner"
	OutcomeSurvivors Outcome = "survivors"
	OutcomeDraw      Outcome = "draw"
)

// RoundResult is the payload of a gameOver event.
type RoundResult struct {
	Outcome   Outcome  `json:"outcome"`
	Name      string   `json:"name"` // Winner name or a descriptive message
	Winner    *Player  `json:"winner,omitempty"`
	Survivors []string `json:"survivors,omitempty"`
}
