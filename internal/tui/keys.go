package tui

import "github.com/charmbracelet/bubbles/key"

// StandardKeys defines common key bindings used across TUI components.
type StandardKeys struct {
	Quit   key.Binding
	Select key.Binding
	Login  key.Binding
}

// NewStandardKeys creates a standard set of key bindings. ctrl+c is left
// out: the dashboard handles it before any view sees the key.
func NewStandardKeys() StandardKeys {
	return StandardKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Login: key.NewBinding(
			key.WithKeys("enter", "l"),
			key.WithHelp("enter", "log in"),
		),
	}
}
