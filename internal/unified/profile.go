package unified

import (
	"context"
	"errors"
	"strings"

	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/blackwell-systems/libctl/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

const gateNotice = "Your profile is incomplete. Complete it to continue (ctrl+c quits)."

// ProfileModel edits the user's profile. As the gate (modal) it cannot be
// dismissed; only a successful save closes it.
type ProfileModel struct {
	ctx   context.Context
	gate  *profile.Gate
	guard *inflight.Guard
	modal bool

	form    tui.Form
	loading bool
	saving  bool
	err     string
}

// NewProfileModel builds the form from the gate's last loaded profile.
func NewProfileModel(ctx context.Context, deps Deps, gate *profile.Gate, modal bool) ProfileModel {
	m := ProfileModel{ctx: ctx, gate: gate, guard: deps.Guard, modal: modal}
	if gate.Loaded() {
		m.form = m.newForm()
	} else {
		m.form = tui.NewProfileForm(profile.DefaultFields(), nil)
		m.loading = true
	}
	return m
}

func (m ProfileModel) newForm() tui.Form {
	p := m.gate.Profile()
	return tui.NewProfileForm(profile.FieldsOf(p), profile.Missing(p))
}

func (m ProfileModel) Init() tea.Cmd {
	if m.loading {
		return tea.Batch(m.form.Init(), loadProfile(m.ctx, m.gate))
	}
	return m.form.Init()
}

func (m ProfileModel) saveKey() string {
	return inflight.Key(inflight.KindProfile, m.gate.Profile().ID)
}

func (m ProfileModel) Update(msg tea.Msg) (ProfileModel, tea.Cmd) {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = m.gate.Err()
			if m.err == "" {
				m.err = msg.err.Error()
			}
			return m, nil
		}
		m.err = ""
		m.form = m.newForm()
		return m, m.form.Init()

	case profileSavedMsg:
		m.saving = false
		switch {
		case errors.Is(msg.err, context.Canceled):
			m.form = m.form.Reopen("Save canceled")
			return m, nil
		case msg.err != nil:
			m.form = m.form.Reopen(profile.SubmitMessage(msg.err))
			return m, nil
		}
		if m.modal {
			return m, nil
		}
		return m, func() tea.Msg { return NavigateMsg{Target: "hub"} }

	case tea.KeyMsg:
		if m.saving {
			if msg.String() == "esc" {
				m.guard.Cancel(m.saveKey())
			}
			return m, nil
		}
		if m.loading {
			if msg.String() == "esc" && !m.modal {
				return m, func() tea.Msg { return NavigateMsg{Target: "hub"} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)

	if m.form.Canceled() {
		if m.modal {
			m.form = m.form.Reopen(gateNotice)
			return m, nil
		}
		return m, func() tea.Msg { return NavigateMsg{Target: "hub"} }
	}
	if m.form.Submitted() {
		return m.submit()
	}
	return m, cmd
}

func (m ProfileModel) submit() (ProfileModel, tea.Cmd) {
	fields, err := tui.ParseProfileForm(m.form.Values())
	if err != nil {
		m.form = m.form.Reopen(err.Error())
		return m, nil
	}
	command, err := m.gate.Command(fields)
	if err != nil {
		m.form = m.form.Reopen(profile.SubmitMessage(err))
		return m, nil
	}
	m.saving = true
	ctx, gate := m.ctx, m.gate
	return m, func() tea.Msg {
		_, err := gate.Submit(ctx, command)
		return profileSavedMsg{err: err}
	}
}

func (m ProfileModel) View(spin string) string {
	var b strings.Builder
	if m.modal {
		b.WriteString(tui.StyleHighlight.Render(gateNotice))
		b.WriteString("\n\n")
	}
	b.WriteString(m.form.View())
	busy := ""
	switch {
	case m.loading:
		busy = "Loading profile"
	case m.saving:
		busy = "Saving profile"
	}
	if status := renderStatus(spin, busy, "", m.err); status != "" {
		b.WriteString("\n")
		b.WriteString(status)
	}
	return frame(b.String())
}
