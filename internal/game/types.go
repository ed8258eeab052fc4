package game

import (
	"fmt"
	"time"
)

// Tile represents the type of a cell on the game board.
type Tile int

const (
	Empty             Tile = iota
	SolidWall              // Indestructible
	DestructibleBlock      // Destroyed by explosions
	PowerUp                // Picked up by walking onto it
)

func (t Tile) String() string {
	switch t {
	case Empty:
		return "empty"
	case SolidWall:
		return "wall"
	case DestructibleBlock:
		return "block"
	case PowerUp:
		return "powerup"
	default:
		return fmt.Sprintf("tile(%d)", int(t))
	}
}

// Blocking reports whether a player may not stand on the tile.
func (t Tile) Blocking() bool {
	return t == SolidWall || t == DestructibleBlock
}

// PowerUpKind is the effect granted when a power-up is consumed.
type PowerUpKind int

const (
	PowerUpExtraBomb PowerUpKind = iota
	PowerUpBlastRadius
)

// Direction represents a movement direction.
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// Delta returns the unit step for the direction. ok is false for unknown
// directions.
func (d Direction) Delta() (dx, dy int, ok bool) {
	switch d {
	case DirUp:
		return 0, -1, true
	case DirDown:
		return 0, 1, true
	case DirLeft:
		return -1, 0, true
	case DirRight:
		return 1, 0, true
	}
	return 0, 0, false
}

// ActionType represents the type of player action.
type ActionType int

const (
	ActionMove ActionType = iota
	ActionPlaceBomb
)

// Action represents a player's input action.
type Action struct {
	PlayerID string
	Type     ActionType
	Dir      Direction // Only relevant for ActionMove
}

// Position represents a coordinate on the board.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p shifted by (dx, dy).
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Player represents a registered player. Players hold no references, so a
// value copy is a deep copy.
type Player struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Color          string   `json:"color"`
	Slot           int      `json:"slot"` // Spawn corner, fixed for the membership
	Position       Position `json:"position"`
	Alive          bool     `json:"alive"`
	Lives          int      `json:"lives"`
	BombsAvailable int      `json:"bombsAvailable"`
	BombRadius     int      `json:"bombRadius"`
	Score          int      `json:"score"`
}

// Bomb represents an active bomb on the board.
type Bomb struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"playerId"`
	Position Position `json:"position"`
	Timer    int      `json:"timer"`  // Seconds until detonation
	Radius   int      `json:"radius"` // Captured from the owner at placement
}

// Explosion is the transient result of a detonation. Tiles holds the ray
// tiles only; the origin is reported separately.
type Explosion struct {
	BombID   string     `json:"bombId"`
	OwnerID  string     `json:"playerId"`
	Position Position   `json:"position"`
	Tiles    []Position `json:"tiles"`
}

// Affected returns the origin followed by every ray tile.
func (x Explosion) Affected() []Position {
	out := make([]Position, 0, len(x.Tiles)+1)
	out = append(out, x.Position)
	return append(out, x.Tiles...)
}

// Phase is the round lifecycle state.
type Phase int

const (
	PhaseIdle     Phase = iota // Waiting for a second player
	PhaseStarting              // Round scheduled, grace delay running
	PhaseActive                // Round in progress
	PhaseEnding                // Result broadcast, restart scheduled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseActive:
		return "active"
	case PhaseEnding:
		return "ending"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// GameState is the authoritative state of the room, owned by the Engine.
// Concurrency protection is handled by the Engine's mutex, not by this struct.
type GameState struct {
	Board            Board
	Players          *Registry
	Bombs            []*Bomb
	Active           bool
	RemainingSeconds int
}

// Config holds configurable parameters for a room.
type Config struct {
	Width         int           `json:"width"`
	Height        int           `json:"height"`
	RoundSeconds  int           `json:"roundSeconds"`
	BombFuse      int           `json:"bombFuse"` // Countdown steps before detonation
	BombRadius    int           `json:"bombRadius"`
	StartingBombs int           `json:"startingBombs"`
	StartingLives int           `json:"startingLives"`
	BlockDensity  float64       `json:"blockDensity"`  // 0.0 to 1.0
	PowerUpChance float64       `json:"powerUpChance"` // 0.0 to 1.0
	StartDelay    time.Duration `json:"startDelay"`
	RestartDelay  time.Duration `json:"restartDelay"`
	TickInterval  time.Duration `json:"tickInterval"` // Length of one countdown step
	MaxPlayers    int           `json:"maxPlayers"`   // 0 means unlimited
}

// DefaultConfig returns the reference room configuration.
func DefaultConfig() Config {
	return Config{
		Width:         15,
		Height:        15,
		RoundSeconds:  180,
		BombFuse:      3,
		BombRadius:    2,
		StartingBombs: 1,
		StartingLives: 3,
		BlockDensity:  0.7,
		PowerUpChance: 0.2,
		StartDelay:    3 * time.Second,
		RestartDelay:  10 * time.Second,
		TickInterval:  time.Second,
	}
}

// Validate checks that the configuration can produce a playable board.
func (c Config) Validate() error {
	if c.Width < 5 || c.Height < 5 {
		return fmt.Errorf("board must be at least 5x5, got %dx%d", c.Width, c.Height)
	}
	if c.Width%2 == 0 || c.Height%2 == 0 {
		return fmt.Errorf("board dimensions must be odd, got %dx%d", c.Width, c.Height)
	}
	if c.RoundSeconds <= 0 || c.BombFuse <= 0 {
		return fmt.Errorf("round seconds and bomb fuse must be positive")
	}
	if c.BombRadius <= 0 || c.StartingBombs <= 0 || c.StartingLives <= 0 {
		return fmt.Errorf("bomb radius, starting bombs and lives must be positive")
	}
	if c.BlockDensity < 0 || c.BlockDensity > 1 {
		return fmt.Errorf("block density %v out of range [0,1]", c.BlockDensity)
	}
	if c.PowerUpChance < 0 || c.PowerUpChance > 1 {
		return fmt.Errorf("power-up chance %v out of range [0,1]", c.PowerUpChance)
	}
	if c.TickInterval <= 0 || c.StartDelay < 0 || c.RestartDelay < 0 {
		return fmt.Errorf("invalid timer durations")
	}
	if c.MaxPlayers < 0 {
		return fmt.Errorf("max players must not be negative")
	}
	return nil
}

// SpawnPositions returns the corner spawn positions indexed by spawn slot.
// Slots alternate between opposite corners so the first two players start
// as far apart as possible.
func SpawnPositions(width, height int) []Position {
	return []Position{
		{X: 1, Y: 1},                  // Top-left
		{X: width - 2, Y: height - 2}, // Bottom-right
		{X: 1, Y: height - 2},         // Bottom-left
		{X: width - 2, Y: 1},          // Top-right
	}
}
