package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wricardo/blockfall/game/engine"
)

// Run plays eng in the terminal until the player quits and returns the
// final snapshot.
func Run(eng *engine.GameEngine, opts ...tea.ProgramOption) (engine.Snapshot, error) {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	program := tea.NewProgram(NewModel(eng), opts...)
	final, err := program.Run()
	if err != nil {
		DebugLogf("program error: %v", err)
		return eng.Snapshot(), fmt.Errorf("terminal UI: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Engine().Snapshot(), nil
	}
	return eng.Snapshot(), nil
}
