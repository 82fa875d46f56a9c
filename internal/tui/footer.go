package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// highlightFor is how long a pressed shortcut stays lit in the footer.
const highlightFor = 500 * time.Millisecond

// ClearActiveCmdMsg clears the active command highlight in the footer.
type ClearActiveCmdMsg struct{}

// ShortcutEntry is one footer label. Key is matched against the view's
// last pressed key; an empty Key never lights up.
type ShortcutEntry struct {
	Key   string
	Label string
}

// HighlightCmd clears the footer highlight after a short delay. Views set
// their activeCmd field first:
//
//	m.activeCmd = "g"
//	return m, tui.HighlightCmd()
func HighlightCmd() tea.Cmd {
	return tea.Tick(highlightFor, func(time.Time) tea.Msg {
		return ClearActiveCmdMsg{}
	})
}

// RenderFooterBar renders the shortcut labels of a view. The entry whose
// key was just pressed is bracketed and highlighted.
func RenderFooterBar(shortcuts []ShortcutEntry, activeCmd string) string {
	parts := make([]string, len(shortcuts))
	for i, sc := range shortcuts {
		if activeCmd != "" && sc.Key == activeCmd {
			parts[i] = StyleHighlight.Render("[ " + sc.Label + " ]")
		} else {
			parts[i] = StyleDim.Render(sc.Label)
		}
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(parts, StyleDim.Render(" • ")))
}
