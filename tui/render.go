package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/blockfall/game/engine"
)

type Theme struct {
	BorderColor lipgloss.Color
	TextColor   lipgloss.Color
	AccentColor lipgloss.Color
	LockedColor lipgloss.Color
	ActiveColor lipgloss.Color
}

var defaultTheme = Theme{
	BorderColor: lipgloss.Color("15"),
	TextColor:   lipgloss.Color("250"),
	AccentColor: lipgloss.Color("226"),
	LockedColor: lipgloss.Color("245"),
	ActiveColor: lipgloss.Color("51"),
}

const (
	blockGlyph = "██"
	emptyGlyph = "  "
)

func viewGame(m Model) string {
	snap := m.eng.Snapshot()
	board := renderBoard(snap, defaultTheme)
	info := renderInfo(snap, defaultTheme, m.lastEvent, m.lastDelta)
	content := lipgloss.JoinHorizontal(lipgloss.Top, board, "  ", info)
	return center(m.width, m.height, content)
}

func renderBoard(snap engine.Snapshot, theme Theme) string {
	border := lipgloss.NewStyle().Foreground(theme.BorderColor)
	locked := lipgloss.NewStyle().Foreground(theme.LockedColor)
	active := lipgloss.NewStyle().Foreground(theme.ActiveColor)

	var b strings.Builder
	b.WriteString(border.Render("┌" + strings.Repeat("─", engine.Width*2) + "┐"))
	b.WriteString("\n")
	for y := 0; y < engine.Height; y++ {
		b.WriteString(border.Render("│"))
		for x := 0; x < engine.Width; x++ {
			switch engine.DescribeCell(snap, x, y).Kind {
			case "active":
				b.WriteString(active.Render(blockGlyph))
			case "locked":
				b.WriteString(locked.Render(blockGlyph))
			default:
				b.WriteString(emptyGlyph)
			}
		}
		b.WriteString(border.Render("│"))
		b.WriteString("\n")
	}
	b.WriteString(border.Render("└" + strings.Repeat("─", engine.Width*2) + "┘"))
	return b.String()
}

func renderInfo(snap engine.Snapshot, theme Theme, lastEvent string, lastDelta int) string {
	title := titleStyle(theme)
	text := lipgloss.NewStyle().Foreground(theme.TextColor)

	lines := []string{
		title.Render("BLOCKFALL"),
		"",
		text.Render(fmt.Sprintf("Score: %d", snap.Score)),
		text.Render(fmt.Sprintf("Lines: %d", snap.LinesCleared)),
		text.Render(fmt.Sprintf("Pieces: %d", snap.PiecesLocked)),
	}
	if p := snap.ActivePiece; p != nil {
		lines = append(lines, text.Render(fmt.Sprintf("Current Position: (%d, %d)", p.Anchor.X, p.Anchor.Y)))
	}
	if lastEvent != "" {
		event := lastEvent
		if lastDelta > 0 {
			event = fmt.Sprintf("%s +%d", lastEvent, lastDelta)
		}
		lines = append(lines, "", highlightStyle(theme).Render(event))
	}
	if snap.Status == engine.GameOver {
		lines = append(lines, "", highlightStyle(theme).Render(snap.Message), helpStyle(theme).Render("r : Play again"))
	}

	help := helpStyle(theme)
	lines = append(lines,
		"",
		help.Render("Controls:"),
		help.Render("← → : Move left/right"),
		help.Render("↑ : Rotate"),
		help.Render("↓ : Move down faster"),
		help.Render("q : Quit"),
	)
	return strings.Join(lines, "\n")
}

func titleStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.AccentColor).Bold(true)
}

func highlightStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.AccentColor)
}

func helpStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.TextColor).Faint(true)
}

func center(width, height int, content string) string {
	if width == 0 || height == 0 {
		return content
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
