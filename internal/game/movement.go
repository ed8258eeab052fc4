package game

// movePlayer attempts to move a player in the given direction. Movement is
// blocked by walls, blocks and board edges; bombs do not block. Landing on a
// power-up consumes it. It reports whether the player moved.
func (e *Engine) movePlayer(playerID string, dir Direction) bool {
	p, ok := e.state.Players.Get(playerID)
	if !ok || !p.Alive {
		return false
	}

	dx, dy, ok := dir.Delta()
	if !ok {
		return false
	}
	newPos := p.Position.Add(dx, dy)

	if !e.state.Board.InBounds(newPos) || e.state.Board.At(newPos).Blocking() {
		return false
	}

	p.Position = newPos
	e.collectPowerUp(p)
	return true
}

// collectPowerUp grants the effect of a power-up under the player.
func (e *Engine) collectPowerUp(p *Player) {
	kind, ok := e.state.Board.Consume(p.Position, e.rng)
	if !ok {
		return
	}
	switch kind {
	case PowerUpExtraBomb:
		p.BombsAvailable++
	case PowerUpBlastRadius:
		p.BombRadius++
	}
	e.log.Debug().Str("player", p.ID).Int("kind", int(kind)).Msg("power-up collected")
}
