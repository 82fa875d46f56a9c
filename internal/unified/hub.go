package unified

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/blackwell-systems/libctl/internal/tui/delegate"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HubModel is the main menu.
type HubModel struct {
	list    list.Model
	context tui.HubContext
	loaded  bool
	width   int
	height  int
}

var hubKeyMap = tui.NewStandardKeys()

// NewHubModel creates the menu for sess.
func NewHubModel(sess session.Session) HubModel {
	menuItems := tui.GetMenuItems(sess)
	items := make([]list.Item, len(menuItems))
	for i, item := range menuItems {
		items[i] = item
	}

	d := delegate.New(tui.RenderMenuItem).WithSpacing(1)
	l := list.New(items, d, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.HelpStyle = tui.StyleHelp
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{hubKeyMap.Select}
	}

	return HubModel{
		list:    l,
		context: tui.HubContext{User: sess.String(), Admin: sess.Admin},
	}
}

// SetContext records the counts from a background load.
func (m HubModel) SetContext(msg hubLoadedMsg) HubModel {
	m.loaded = true
	if msg.err != nil {
		m.context.Err = "Failed to load the catalog: " + msg.err.Error()
		return m
	}
	m.context.Err = ""
	m.context.BookCount = msg.books
	m.context.TotalCopies = msg.copies
	m.context.Pending = msg.pending
	return m
}

// Resize fits the menu to the terminal.
func (m HubModel) Resize(width, height int) HubModel {
	m.width = width
	m.height = height

	// outer padding, inner padding, border and header lines
	const outerPaddingH = 4 * 2
	const outerPaddingV = 2 * 2
	const innerPaddingH = 1 + 2
	const headerLines = 4
	h, v := tui.StyleBorder.GetFrameSize()

	listWidth := width - outerPaddingH - innerPaddingH - h
	listHeight := height - outerPaddingV - v - headerLines
	if listWidth < 40 {
		listWidth = 40
	}
	if listHeight < 5 {
		listHeight = 5
	}
	m.list.SetSize(listWidth, listHeight)
	return m
}

func (m HubModel) Update(msg tea.Msg) (HubModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, hubKeyMap.Quit):
			return m, func() tea.Msg { return QuitAppMsg{} }

		case key.Matches(msg, hubKeyMap.Select):
			if item, ok := m.list.SelectedItem().(tui.MenuItem); ok {
				target := item.Key
				return m, func() tea.Msg { return NavigateMsg{Target: target} }
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Selected returns the key of the highlighted menu item.
func (m HubModel) Selected() string {
	if item, ok := m.list.SelectedItem().(tui.MenuItem); ok {
		return item.Key
	}
	return ""
}

func (m HubModel) View() string {
	outerStyle := lipgloss.NewStyle().Padding(2, 4)

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Padding(0, 1).
		Render("libctl - Library")

	parts := []string{header, m.statusLine()}
	if m.context.Err != "" {
		parts = append(parts, "  "+tui.StyleError.Render(m.context.Err))
	}
	parts = append(parts, m.list.View())

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	innerPadding := lipgloss.NewStyle().Padding(0, 2, 0, 1)
	return outerStyle.Render(tui.StyleBorder.Render(innerPadding.Render(content)))
}

func (m HubModel) statusLine() string {
	fields := []string{m.context.User}
	if m.loaded && m.context.Err == "" {
		fields = append(fields,
			fmt.Sprintf("%d books", m.context.BookCount),
			fmt.Sprintf("%d copies", m.context.TotalCopies))
		if m.context.Admin {
			fields = append(fields, fmt.Sprintf("%d pending", m.context.Pending))
		}
	}
	return tui.StyleDim.Render("  " + strings.Join(fields, " · "))
}
