package unified

import (
	"strings"

	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// LoginModel tells the user their credential is missing or was rejected
// and offers to run the login prompt.
type LoginModel struct {
	reason string
	user   string
}

// NewLoginModel creates the login hint.
func NewLoginModel(reason string, sess session.Session) LoginModel {
	return LoginModel{reason: reason, user: sess.String()}
}

func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, hubKeyMap.Login):
			return m, func() tea.Msg { return NavigateMsg{Target: "login"} }
		case key.Matches(msg, hubKeyMap.Quit):
			return m, func() tea.Msg { return QuitAppMsg{} }
		}
	}
	return m, nil
}

func (m LoginModel) View() string {
	var b strings.Builder
	b.WriteString(tui.StyleHeader.Render("Log in required"))
	b.WriteString("\n\n")
	if m.reason != "" {
		b.WriteString(m.reason)
		b.WriteString("\n")
	}
	b.WriteString(tui.StyleHelp.Render("Signed in as: " + m.user))
	b.WriteString("\n\n")
	b.WriteString(tui.RenderFooterBar([]tui.ShortcutEntry{
		{Key: "enter", Label: "enter log in"},
		{Key: "q", Label: "q quit"},
	}, ""))
	return frame(b.String())
}
