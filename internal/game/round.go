package game

const (
	survivorsMessage = "Time's up! Multiple survivors"
	drawMessage      = "Draw! Everyone was eliminated"

	winnerBonus   = 10
	survivorBonus = 5
)

// StartNewGame begins a round immediately, regardless of phase.
func (e *Engine) StartNewGame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.startNewGameLocked()
}

// startNewGameLocked regenerates the board, resets every player and starts
// the round countdown. MUST be called while e.mu is held.
func (e *Engine) startNewGameLocked() {
	e.cancelTimersLocked()
	e.generation++

	e.state.Board = NewBoard(e.Config, e.rng)
	e.state.Bombs = e.state.Bombs[:0]
	e.state.Players.ResetAll(e.Config)
	e.state.Active = true
	e.state.RemainingSeconds = e.Config.RoundSeconds
	e.phase = PhaseActive

	e.roundTimer = e.every(e.Config.TickInterval, e.tickRoundLocked)

	e.log.Info().
		Int("round", e.generation).
		Int("players", e.state.Players.Len()).
		Msg("round started")
	e.broadcastLocked()
}

// tickRoundLocked advances the round countdown by one step.
func (e *Engine) tickRoundLocked() {
	if e.phase != PhaseActive {
		return
	}
	e.state.RemainingSeconds--
	if e.state.RemainingSeconds <= 0 {
		e.state.RemainingSeconds = 0
		e.endRoundLocked("time up")
		return
	}
	e.broadcastLocked()
}

// checkRoundEndLocked ends the round once at most one player is still in
// contention in a room that has more than one player.
func (e *Engine) checkRoundEndLocked() {
	if e.phase != PhaseActive {
		return
	}
	if len(e.state.Players.Contenders()) <= 1 && e.state.Players.Len() > 1 {
		e.endRoundLocked("last player standing")
	}
}

// endRoundLocked computes the result, awards score, broadcasts and schedules
// the next round. All bomb fuses and the countdown are revoked first.
// MUST be called while e.mu is held.
func (e *Engine) endRoundLocked(reason string) {
	if e.phase != PhaseActive {
		return
	}

	e.cancelTimersLocked()
	e.generation++
	e.state.Bombs = e.state.Bombs[:0]
	e.state.Active = false
	e.phase = PhaseEnding

	result := e.scoreRoundLocked()

	e.log.Info().
		Str("reason", reason).
		Str("outcome", string(result.Outcome)).
		Str("result", result.Name).
		Msg("round over")

	e.publisher.Publish(Event{Type: EventGameOver, Result: &result})
	e.broadcastLocked()

	// The restart is unconditional, even if the room has emptied meanwhile.
	e.startTimer = e.after(e.Config.RestartDelay, e.startNewGameLocked)
}

// scoreRoundLocked classifies the contenders and applies end-of-round score.
func (e *Engine) scoreRoundLocked() RoundResult {
	contenders := e.state.Players.Contenders()

	switch len(contenders) {
	case 0:
		return RoundResult{Outcome: OutcomeDraw, Name: drawMessage}
	case 1:
		winner := contenders[0]
		winner.Score += winnerBonus
		cp := *winner
		return RoundResult{Outcome: OutcomeWinner, Name: winner.Name, Winner: &cp}
	default:
		ids := make([]string, 0, len(contenders))
		for _, p := range contenders {
			p.Score += survivorBonus
			ids = append(ids, p.ID)
		}
		return RoundResult{Outcome: OutcomeSurvivors, Name: survivorsMessage, Survivors: ids}
	}
}
