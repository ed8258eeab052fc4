package game

import (
	"fmt"
	"math/rand"
)

// Board is the tile grid, indexed as board[y][x].
type Board [][]Tile

// NewBoard generates a classic grid-combat layout.
//
// Layout rules:
//   - Border is all SolidWall
//   - SolidWall at every interior position where both X and Y are even
//   - Random DestructibleBlock fill at the configured density
//   - Each spawn corner and its two inward neighbours end up Empty
func NewBoard(config Config, rng *rand.Rand) Board {
	board := make(Board, config.Height)
	for y := 0; y < config.Height; y++ {
		board[y] = make([]Tile, config.Width)
		for x := 0; x < config.Width; x++ {
			switch {
			case x == 0 || y == 0 || x == config.Width-1 || y == config.Height-1:
				board[y][x] = SolidWall
			case x%2 == 0 && y%2 == 0:
				board[y][x] = SolidWall
			default:
				board[y][x] = Empty
			}
		}
	}

	safeSet := SafeZones(config.Width, config.Height)

	for y := 1; y < config.Height-1; y++ {
		for x := 1; x < config.Width-1; x++ {
			if board[y][x] != Empty || safeSet[Position{X: x, Y: y}] {
				continue
			}
			if rng.Float64() < config.BlockDensity {
				board[y][x] = DestructibleBlock
			}
		}
	}

	// Force the safe zones walkable. Pillars inside the set stay.
	for pos := range safeSet {
		if board.InBounds(pos) && board.At(pos) != SolidWall {
			board.Set(pos, Empty)
		}
	}

	return board
}

// SafeZones returns the corner-safety set: every spawn position plus its two
// orthogonal neighbours pointing into the board.
func SafeZones(width, height int) map[Position]bool {
	safe := make(map[Position]bool)
	for _, sp := range SpawnPositions(width, height) {
		dx, dy := 1, 1
		if sp.X > width/2 {
			dx = -1
		}
		if sp.Y > height/2 {
			dy = -1
		}
		safe[sp] = true
		safe[sp.Add(dx, 0)] = true
		safe[sp.Add(0, dy)] = true
	}
	return safe
}

// Width returns the number of columns.
func (b Board) Width() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Height returns the number of rows.
func (b Board) Height() int {
	return len(b)
}

// InBounds reports whether p addresses a cell of the board.
func (b Board) InBounds(p Position) bool {
	return p.Y >= 0 && p.Y < len(b) && p.X >= 0 && p.X < b.Width()
}

// At returns the tile at p. Callers must bounds-check first.
func (b Board) At(p Position) Tile {
	b.mustContain(p)
	return b[p.Y][p.X]
}

// Set overwrites the tile at p. Callers must bounds-check first.
func (b Board) Set(p Position, t Tile) {
	b.mustContain(p)
	b[p.Y][p.X] = t
}

// Destroy turns a DestructibleBlock into Empty, or into a PowerUp with the
// given probability. It reports whether a block was destroyed.
func (b Board) Destroy(p Position, rng *rand.Rand, powerUpChance float64) bool {
	if b.At(p) != DestructibleBlock {
		return false
	}
	b.Set(p, Empty)
	if rng.Float64() < powerUpChance {
		b.Set(p, PowerUp)
	}
	return true
}

// Consume removes a PowerUp at p and returns the effect to grant, chosen
// uniformly.
func (b Board) Consume(p Position, rng *rand.Rand) (PowerUpKind, bool) {
	if b.At(p) != PowerUp {
		return 0, false
	}
	b.Set(p, Empty)
	return PowerUpKind(rng.Intn(2)), true
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	for y := range b {
		out[y] = make([]Tile, len(b[y]))
		copy(out[y], b[y])
	}
	return out
}

func (b Board) mustContain(p Position) {
	if !b.InBounds(p) {
		panic(fmt.Sprintf("game: position (%d,%d) outside %dx%d board", p.X, p.Y, b.Width(), b.Height()))
	}
}
