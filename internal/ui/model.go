package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/bomb-arena/internal/game"
	"github.com/amalg/bomb-arena/internal/network"
)

const (
	chatHistory  = 5
	flashTimeout = 400 * time.Millisecond
)

// updateMsg carries one server notification from the network client.
type updateMsg network.Update

// flashDoneMsg clears the explosion overlay it was scheduled for.
type flashDoneMsg struct{ seq int }

// errMsg carries an error.
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// Model is the Bubbletea model for the game client.
type Model struct {
	client   *network.Client
	playerID string

	state  *game.Snapshot
	result *game.RoundResult
	chat   []network.ChatMsg

	flash    map[game.Position]bool
	flashSeq int

	typing bool
	draft  []rune

	err      error
	quitting bool
}

// NewModel creates a new TUI model connected to the given network client.
func NewModel(client *network.Client) Model {
	return Model{
		client:   client,
		playerID: client.PlayerID(),
		flash:    make(map[game.Position]bool),
	}
}

// Init starts listening for updates from the server.
func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.client)
}

// Update handles key presses and server notifications.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.typing {
			return m.handleChatKey(msg)
		}
		return m.handleKey(msg)

	case updateMsg:
		cmd := m.apply(network.Update(msg))
		return m, tea.Batch(waitForUpdate(m.client), cmd)

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = make(map[game.Position]bool)
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one notification into the model.
func (m *Model) apply(u network.Update) tea.Cmd {
	switch {
	case u.State != nil:
		m.state = u.State
		// A fresh round clears the previous result.
		if u.State.Active {
			m.result = nil
		}
	case u.Result != nil:
		m.result = u.Result
	case u.Chat != nil:
		m.chat = append(m.chat, *u.Chat)
		if len(m.chat) > chatHistory {
			m.chat = m.chat[len(m.chat)-chatHistory:]
		}
	case u.Explosion != nil:
		for _, p := range u.Explosion.Affected() {
			m.flash[p] = true
		}
		m.flashSeq++
		seq := m.flashSeq
		return tea.Tick(flashTimeout, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
	}
	return nil
}

// View renders the current game state.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye! 👋\n"
	}

	if m.err != nil {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff4444")).
			Render("Error: "+m.err.Error()) + "\n"
	}

	board := RenderBoard(m.state, m.flash, m.playerID)
	hud := RenderHUD(m.state, m.playerID, m.result, m.chat)

	view := lipgloss.JoinHorizontal(lipgloss.Top, board, "  ", hud)
	if m.typing {
		view += "\n" + promptStyle.Render("say: ") + string(m.draft) + "█"
	}
	return view + "\n"
}

// handleKey processes keyboard input during play.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "w":
		err = m.client.Move(game.DirUp)
	case "down", "s":
		err = m.client.Move(game.DirDown)
	case "left", "a":
		err = m.client.Move(game.DirLeft)
	case "right", "d":
		err = m.client.Move(game.DirRight)
	case " ":
		err = m.client.PlaceBomb()
	case "enter", "t":
		m.typing = true
		m.draft = m.draft[:0]
	}

	if err != nil {
		m.err = fmt.Errorf("send: %w", err)
		return m, tea.Quit
	}
	return m, nil
}

// handleChatKey edits the chat draft.
func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		m.typing = false
	case tea.KeyEnter:
		m.typing = false
		if len(m.draft) > 0 {
			if err := m.client.Chat(string(m.draft)); err != nil {
				m.err = fmt.Errorf("send: %w", err)
				return m, tea.Quit
			}
		}
	case tea.KeyBackspace:
		if len(m.draft) > 0 {
			m.draft = m.draft[:len(m.draft)-1]
		}
	case tea.KeySpace:
		m.draft = append(m.draft, ' ')
	case tea.KeyRunes:
		m.draft = append(m.draft, msg.Runes...)
	}
	return m, nil
}

// waitForUpdate returns a Cmd that waits for the next server notification.
func waitForUpdate(client *network.Client) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-client.Updates()
		if !ok {
			return errMsg{err: fmt.Errorf("server connection closed")}
		}
		return updateMsg(u)
	}
}
