package game

// rayDirections lists the four cardinal directions in blast order.
var rayDirections = []Position{
	{X: 0, Y: -1}, // Up
	{X: 1, Y: 0},  // Right
	{X: 0, Y: 1},  // Down
	{X: -1, Y: 0}, // Left
}

// placeBomb places a bomb at the player's current position and starts its
// fuse. It reports whether a bomb was placed.
func (e *Engine) placeBomb(playerID string) bool {
	p, ok := e.state.Players.Get(playerID)
	if !ok || !p.Alive || p.BombsAvailable <= 0 {
		return false
	}

	// One bomb per owner per tile
	if e.ownsBombAt(playerID, p.Position) {
		return false
	}

	bomb := &Bomb{
		ID:       e.newID(),
		OwnerID:  playerID,
		Position: p.Position,
		Timer:    e.Config.BombFuse,
		Radius:   p.BombRadius,
	}

	e.state.Bombs = append(e.state.Bombs, bomb)
	p.BombsAvailable--
	e.bombTimers[bomb.ID] = e.every(e.Config.TickInterval, func() { e.tickBomb(bomb) })

	placed := *bomb
	e.publisher.Publish(Event{Type: EventBombPlaced, Bomb: &placed})
	return true
}

// tickBomb advances one fuse step and detonates at zero.
func (e *Engine) tickBomb(bomb *Bomb) {
	if !e.isActiveBomb(bomb) {
		return
	}
	bomb.Timer--
	if bomb.Timer <= 0 {
		e.detonate(bomb)
	}
}

// detonate explodes a bomb and every bomb its blast reaches, transitively,
// as one mutation. Events are published only after the whole chain has been
// applied, followed by a single snapshot and the round-end check.
func (e *Engine) detonate(bomb *Bomb) []Explosion {
	var (
		queue      = []*Bomb{bomb}
		queued     = map[string]bool{bomb.ID: true}
		pending    []Event
		explosions []Explosion
	)

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		exp, events, chained := e.explode(b, queued)
		pending = append(pending, events...)
		explosions = append(explosions, exp)
		queue = append(queue, chained...)
	}

	for _, ev := range pending {
		e.publisher.Publish(ev)
	}
	e.broadcastLocked()
	e.checkRoundEndLocked()
	return explosions
}

// explode applies a single bomb's blast and returns the bombs it forced to
// zero. Chained bombs keep their own radius.
func (e *Engine) explode(bomb *Bomb, queued map[string]bool) (Explosion, []Event, []*Bomb) {
	if t, ok := e.bombTimers[bomb.ID]; ok {
		t.cancel()
		delete(e.bombTimers, bomb.ID)
	}
	bomb.Timer = 0

	exp := Explosion{
		BombID:   bomb.ID,
		OwnerID:  bomb.OwnerID,
		Position: bomb.Position,
		Tiles:    e.blastTiles(bomb),
	}

	if owner, ok := e.state.Players.Get(bomb.OwnerID); ok {
		owner.BombsAvailable++
	}
	e.removeBomb(bomb)

	affected := exp.Affected()
	hitSet := make(map[Position]bool, len(affected))
	for _, pos := range affected {
		hitSet[pos] = true
		e.state.Board.Destroy(pos, e.rng, e.Config.PowerUpChance)
	}

	var events []Event
	for _, p := range e.state.Players.Alive() {
		if hitSet[p.Position] {
			events = append(events, e.hitPlayer(p, bomb.OwnerID))
		}
	}

	var chained []*Bomb
	for _, other := range e.state.Bombs {
		if hitSet[other.Position] && !queued[other.ID] {
			other.Timer = 0
			queued[other.ID] = true
			chained = append(chained, other)
		}
	}

	ev := exp
	ev.Tiles = append([]Position(nil), exp.Tiles...)
	events = append(events, Event{Type: EventBombExploded, Explosion: &ev})
	return exp, events, chained
}

// hitPlayer removes one life. Survivors respawn at their corner at once; a
// player out of lives stays down for the rest of the round and the bomber
// scores unless it was their own bomb.
func (e *Engine) hitPlayer(p *Player, bomberID string) Event {
	p.Lives--
	if p.Lives > 0 {
		p.Position = e.state.Players.Spawn(p.Slot)
		p.Alive = true
		cp := *p
		return Event{Type: EventPlayerRespawned, Player: &cp}
	}

	p.Lives = 0
	p.Alive = false
	if p.ID != bomberID {
		if bomber, ok := e.state.Players.Get(bomberID); ok {
			bomber.Score++
		}
	}
	e.log.Info().Str("player", p.ID).Str("bomber", bomberID).Msg("player eliminated")
	cp := *p
	return Event{Type: EventPlayerEliminated, Player: &cp}
}

// blastTiles casts the four rays from the bomb. A ray stops before a
// SolidWall and on a DestructibleBlock.
func (e *Engine) blastTiles(bomb *Bomb) []Position {
	var tiles []Position
	for _, d := range rayDirections {
		for dist := 1; dist <= bomb.Radius; dist++ {
			pos := bomb.Position.Add(d.X*dist, d.Y*dist)
			if !e.state.Board.InBounds(pos) {
				break
			}
			tile := e.state.Board.At(pos)
			if tile == SolidWall {
				break
			}
			tiles = append(tiles, pos)
			if tile == DestructibleBlock {
				break
			}
		}
	}
	return tiles
}

func (e *Engine) ownsBombAt(ownerID string, pos Position) bool {
	for _, b := range e.state.Bombs {
		if b.OwnerID == ownerID && b.Position == pos {
			return true
		}
	}
	return false
}

func (e *Engine) isActiveBomb(bomb *Bomb) bool {
	for _, b := range e.state.Bombs {
		if b == bomb {
			return true
		}
	}
	return false
}

func (e *Engine) removeBomb(bomb *Bomb) {
	remaining := e.state.Bombs[:0]
	for _, b := range e.state.Bombs {
		if b != bomb {
			remaining = append(remaining, b)
		}
	}
	e.state.Bombs = remaining
}
