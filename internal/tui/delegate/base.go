// Package delegate adapts plain render functions to list.ItemDelegate.
package delegate

import (
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// RenderFunc draws item at index into w.
type RenderFunc func(w io.Writer, m list.Model, index int, item list.Item)

// Rows draws every item as a single line. Key handling stays with the
// owning view, so Update does nothing.
type Rows struct {
	render  RenderFunc
	spacing int
}

// New returns a delegate drawing items with render and no blank lines
// between them.
func New(render RenderFunc) Rows {
	return Rows{render: render}
}

// WithSpacing returns d with n blank lines between items.
func (d Rows) WithSpacing(n int) Rows {
	d.spacing = n
	return d
}

func (d Rows) Height() int  { return 1 }
func (d Rows) Spacing() int { return d.spacing }

func (d Rows) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d Rows) Render(w io.Writer, m list.Model, index int, item list.Item) {
	if d.render != nil {
		d.render(w, m, index, item)
	}
}
