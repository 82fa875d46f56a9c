package unified

import (
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/charmbracelet/lipgloss"
)

// frame wraps content in the padded border every view uses.
func frame(content string) string {
	outer := lipgloss.NewStyle().Padding(1, 2)
	inner := lipgloss.NewStyle().Padding(0, 2, 0, 1)
	return outer.Render(tui.StyleBorder.Render(inner.Render(content)))
}

// renderStatus is the line under a view: a spinner while busy, otherwise
// the last error or notice.
func renderStatus(spin, busy, notice, errMsg string) string {
	switch {
	case busy != "":
		return spin + " " + tui.StyleHelp.Render(busy+"  (esc to cancel)")
	case errMsg != "":
		return tui.StyleError.Render("✗ " + errMsg)
	case notice != "":
		return tui.StyleSuccess.Render("✓ " + notice)
	}
	return ""
}
