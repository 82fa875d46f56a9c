package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by the dashboard. The CLI uses the matching fatih/color
// names so both surfaces read the same.
var (
	ColorGreen  = lipgloss.AdaptiveColor{Light: "#00AF00", Dark: "#00D700"} // copies on the shelf, returned
	ColorCyan   = lipgloss.AdaptiveColor{Light: "#00AFAF", Dark: "#00D7D7"} // categories, filters
	ColorWhite  = lipgloss.AdaptiveColor{Light: "#262626", Dark: "#FFFFFF"}
	ColorGray   = lipgloss.AdaptiveColor{Light: "#767676", Dark: "#808080"}
	ColorYellow = lipgloss.AdaptiveColor{Light: "#D7AF00", Dark: "#FFD700"} // cursor, prompts
	ColorRed    = lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"} // errors, none available, still out
)

var (
	StyleNormal    = lipgloss.NewStyle().Foreground(ColorWhite)
	StyleHighlight = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StyleSuccess   = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleError     = lipgloss.NewStyle().Foreground(ColorRed)
	StyleTag       = lipgloss.NewStyle().Foreground(ColorCyan)
	StyleHelp      = lipgloss.NewStyle().Foreground(ColorGray)
	StyleHeader    = lipgloss.NewStyle().Foreground(ColorWhite).Bold(true)

	// StyleDim is for footer labels and status lines.
	StyleDim = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	// StyleDanger marks irreversible confirmations such as deleting a book.
	StyleDanger = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Foreground(ColorGray).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray)
)
