package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wricardo/blockfall/game/engine"
)

// tickMsg is a gravity tick. Ticks from an earlier game carry a stale id and
// are ignored, so a restart never doubles the gravity rate.
type tickMsg struct {
	id int
}

// Model is the bubbletea program state. Update runs on a single goroutine,
// which makes the model the only owner of its engine.
type Model struct {
	eng     *engine.GameEngine
	gravity time.Duration

	width  int
	height int
	tickID int

	lastEvent string
	lastDelta int
	quitting  bool
}

// NewModel wraps an engine for interactive play. Gravity runs at the
// engine config's interval.
func NewModel(eng *engine.GameEngine) Model {
	return Model{
		eng:     eng,
		gravity: eng.Config().GravityInterval(),
	}
}

func tickCmd(interval time.Duration, id int) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{id: id} })
}

func (m Model) Init() tea.Cmd {
	DebugLogf("game start gravity=%s", m.gravity)
	return tickCmd(m.gravity, m.tickID)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if msg.id != m.tickID || m.eng.IsGameOver() {
			return m, nil
		}
		m.apply(engine.CommandGravity)
		if m.eng.IsGameOver() {
			return m, nil
		}
		return m, tickCmd(m.gravity, m.tickID)
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

// handleKey maps keys onto engine commands. Quit is handled here and never
// reaches the engine.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		DebugLogf("quit score=%d", m.eng.Score())
		return tea.Quit
	case "r":
		if !m.eng.IsGameOver() {
			return nil
		}
		m.eng.Reset()
		m.lastEvent = "New game"
		m.lastDelta = 0
		m.tickID++
		DebugLogf("restart")
		return tickCmd(m.gravity, m.tickID)
	case "left", "h":
		m.apply(engine.CommandLeft)
	case "right", "l":
		m.apply(engine.CommandRight)
	case "down", "j":
		m.apply(engine.CommandDown)
	case "up", "k", "x":
		m.apply(engine.CommandRotate)
	}
	return nil
}

func (m *Model) apply(cmd engine.Command) {
	step := m.eng.Execute(cmd)
	switch {
	case step.GameOver:
		m.lastEvent = "Game over"
		m.lastDelta = 0
		DebugLogf("game over score=%d", m.eng.Score())
	case step.LinesCleared > 0:
		m.lastEvent = lineClearLabel(step.LinesCleared)
		m.lastDelta = step.ScoreDelta
		DebugLogf("cleared lines=%d delta=%d", step.LinesCleared, step.ScoreDelta)
	}
}

func lineClearLabel(lines int) string {
	switch lines {
	case 1:
		return "Single"
	case 2:
		return "Double"
	case 3:
		return "Triple"
	default:
		return "Four lines!"
	}
}

// Engine exposes the model's engine, mainly for tests and the final score.
func (m Model) Engine() *engine.GameEngine {
	return m.eng
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return viewGame(m)
}
