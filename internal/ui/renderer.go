package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/bomb-arena/internal/game"
	"github.com/amalg/bomb-arena/internal/network"
)

const floor = lipgloss.Color("#1a1a2e")

var (
	// Tile styles
	wallStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#3a3a3a")).
			Foreground(lipgloss.Color("#555555"))

	blockStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B6914")).
			Foreground(lipgloss.Color("#A0772B"))

	emptyStyle = lipgloss.NewStyle().
			Background(floor).
			Foreground(floor)

	powerUpStyle = lipgloss.NewStyle().
			Background(floor).
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true)

	bombStyle = lipgloss.NewStyle().
			Background(floor).
			Foreground(lipgloss.Color("#ff4444")).
			Bold(true)

	fireStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#ff6600")).
			Foreground(lipgloss.Color("#ffcc00")).
			Bold(true)

	deadPlayerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Strikethrough(true)

	// HUD styles
	hudBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8844")).Bold(true)
	lobbyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#44aaff")).Bold(true)
	liveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#44aaff"))

	winnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true)
)

// RenderBoard converts a snapshot into a styled terminal string. flash marks
// tiles of a recent explosion.
func RenderBoard(state *game.Snapshot, flash map[game.Position]bool, myID string) string {
	if state == nil || len(state.Board) == 0 {
		return "Waiting for game state..."
	}

	bombs := make(map[game.Position]game.Bomb, len(state.Bombs))
	for _, b := range state.Bombs {
		bombs[b.Position] = b
	}

	players := make(map[game.Position]game.Player, len(state.Players))
	for _, p := range state.Players {
		if p.Alive {
			players[p.Position] = p
		}
	}

	rows := make([]string, 0, state.Board.Height())
	for y := 0; y < state.Board.Height(); y++ {
		var row strings.Builder
		for x := 0; x < state.Board.Width(); x++ {
			pos := game.Position{X: x, Y: y}
			row.WriteString(renderCell(state.Board.At(pos), pos, flash, bombs, players, myID))
		}
		rows = append(rows, row.String())
	}
	return strings.Join(rows, "\n")
}

// renderCell renders one board cell, two characters wide.
// Priority: player > fire > bomb > tile.
func renderCell(
	tile game.Tile,
	pos game.Position,
	flash map[game.Position]bool,
	bombs map[game.Position]game.Bomb,
	players map[game.Position]game.Player,
	myID string,
) string {
	if p, ok := players[pos]; ok {
		color := lipgloss.Color(p.Color)
		style := lipgloss.NewStyle().Background(floor).Foreground(color).Bold(true)
		if p.ID == myID {
			return style.Background(color).Render("██")
		}
		return style.Render(fmt.Sprintf("P%d", p.Slot+1))
	}

	if flash[pos] {
		return fireStyle.Render("░░")
	}

	if b, ok := bombs[pos]; ok {
		return bombStyle.Render(fmt.Sprintf("(%d", min(max(b.Timer, 0), 9)))
	}

	switch tile {
	case game.SolidWall:
		return wallStyle.Render("██")
	case game.DestructibleBlock:
		return blockStyle.Render("▒▒")
	case game.PowerUp:
		return powerUpStyle.Render("++")
	default:
		return emptyStyle.Render("  ")
	}
}

// RenderHUD renders the round status, the player table, the last round
// result and recent chat.
func RenderHUD(state *game.Snapshot, myID string, result *game.RoundResult, chat []network.ChatMsg) string {
	if state == nil {
		return ""
	}

	parts := []string{titleStyle.Render("💣 BOMB ARENA"), ""}

	switch {
	case state.Active:
		parts = append(parts, liveStyle.Render(fmt.Sprintf("🔥 ROUND LIVE  %s", clock(state.RemainingSeconds))))
	case state.Phase == game.PhaseStarting.String():
		parts = append(parts, lobbyStyle.Render("⏳ Round starting..."))
	case state.Phase == game.PhaseEnding.String():
		parts = append(parts, mutedStyle.Render("Next round soon"))
	default:
		parts = append(parts, lobbyStyle.Render("⏳ Waiting for players..."))
	}
	if result != nil {
		parts = append(parts, renderResult(result))
	}
	parts = append(parts, "")

	parts = append(parts, mutedStyle.Render("Players:"))
	for _, p := range sortedPlayers(state.Players) {
		nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color))
		status := "❤️ "
		if !p.Alive {
			status = "💀"
			nameStyle = deadPlayerStyle
		}
		marker := "  "
		if p.ID == myID {
			marker = "→ "
		}
		parts = append(parts, fmt.Sprintf("%s%s %s [♥%d 💣×%d 🔥%d ★%d]",
			marker, status, nameStyle.Render(p.Name),
			p.Lives, p.BombsAvailable, p.BombRadius, p.Score))
	}

	if len(chat) > 0 {
		parts = append(parts, "", mutedStyle.Render("Chat:"))
		for _, c := range chat {
			parts = append(parts, fmt.Sprintf("%s %s: %s", hintStyle.Render(c.Time), c.Sender, c.Message))
		}
	}

	parts = append(parts, "", hintStyle.Render("WASD/Arrows: Move | Space: Bomb | T: Chat | Q: Quit"))
	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

func renderResult(r *game.RoundResult) string {
	switch r.Outcome {
	case game.OutcomeWinner:
		return winnerStyle.Render(fmt.Sprintf("🏆 %s WINS!", r.Name))
	case game.OutcomeSurvivors:
		return winnerStyle.Render(r.Name)
	default:
		return mutedStyle.Render("💀 " + r.Name)
	}
}

func sortedPlayers(players map[string]game.Player) []game.Player {
	out := make([]game.Player, 0, len(players))
	for _, p := range players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
