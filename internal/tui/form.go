package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCanceled is returned by the Run* helpers when the user backs out.
var ErrCanceled = errors.New("canceled")

// FieldSpec describes one form row. A field with Options is a choice:
// left/right cycles through the options and typing is ignored.
type FieldSpec struct {
	Label       string
	Placeholder string
	Value       string
	CharLimit   int
	Width       int
	Options     []string
	Required    bool
}

// Form is a column of labelled inputs with a confirm step. It can run on
// its own (RunForm) or be embedded in a larger model, in which case the
// parent checks Submitted and Canceled after each Update.
type Form struct {
	title      string
	subtitle   string
	specs      []FieldSpec
	inputs     []textinput.Model
	focused    int
	confirming bool
	submitted  bool
	canceled   bool
	err        string
	note       string
	activeCmd  string
	prompt     string
}

// NewForm builds a form with the first field focused.
func NewForm(title, subtitle string, fields []FieldSpec) Form {
	f := Form{
		title:    title,
		subtitle: subtitle,
		specs:    fields,
		inputs:   make([]textinput.Model, len(fields)),
		prompt:   "Save changes?",
	}
	for i, spec := range fields {
		in := textinput.New()
		in.Placeholder = spec.Placeholder
		in.CharLimit = spec.CharLimit
		if in.CharLimit == 0 {
			in.CharLimit = 200
		}
		in.Width = spec.Width
		if in.Width == 0 {
			in.Width = 42
		}
		in.Prompt = "│ "
		value := spec.Value
		if len(spec.Options) > 0 && indexOf(spec.Options, value) < 0 {
			value = spec.Options[0]
		}
		in.SetValue(value)
		f.inputs[i] = in
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

// WithConfirmPrompt replaces the question shown before submitting.
func (f Form) WithConfirmPrompt(q string) Form {
	f.prompt = q
	return f
}

// WithNote sets a line shown under the subtitle.
func (f Form) WithNote(note string) Form {
	f.note = note
	return f
}

func (f Form) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles a message and returns the updated form.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	if f.submitted || f.canceled {
		return f, nil
	}

	switch msg := msg.(type) {
	case ClearActiveCmdMsg:
		f.activeCmd = ""
		return f, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if f.confirming {
				f.confirming = false
				return f, nil
			}
			f.canceled = true
			return f, nil

		case "enter":
			if f.confirming {
				f.submitted = true
				return f, nil
			}
			if missing := f.firstMissing(); missing >= 0 {
				f.err = f.specs[missing].Label + " is required"
				return f, f.focus(missing)
			}
			f.err = ""
			f.confirming = true
			return f, nil

		case "y", "Y":
			if f.confirming {
				f.submitted = true
				return f, nil
			}

		case "n", "N":
			if f.confirming {
				f.confirming = false
				return f, nil
			}

		case "tab", "shift+tab", "up", "down":
			if f.confirming {
				return f, nil
			}
			next := f.focused + 1
			if msg.String() == "up" || msg.String() == "shift+tab" {
				next = f.focused - 1
			}
			f.activeCmd = "tab"
			return f, tea.Batch(f.focus(next), HighlightCmd())

		case "left", "right", " ":
			if opts := f.specs[f.focused].Options; len(opts) > 0 && !f.confirming {
				step := 1
				if msg.String() == "left" {
					step = -1
				}
				i := indexOf(opts, f.inputs[f.focused].Value())
				i = (i + step + len(opts)) % len(opts)
				f.inputs[f.focused].SetValue(opts[i])
				return f, nil
			}
		}

		if f.confirming || len(f.specs[f.focused].Options) > 0 {
			return f, nil
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return f, cmd
}

func (f *Form) focus(i int) tea.Cmd {
	if i < 0 {
		i = len(f.inputs) - 1
	} else if i >= len(f.inputs) {
		i = 0
	}
	f.focused = i
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == i {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

func (f Form) firstMissing() int {
	for i, spec := range f.specs {
		if spec.Required && strings.TrimSpace(f.inputs[i].Value()) == "" {
			return i
		}
	}
	return -1
}

// Values returns the current input values in field order.
func (f Form) Values() []string {
	out := make([]string, len(f.inputs))
	for i := range f.inputs {
		out[i] = f.inputs[i].Value()
	}
	return out
}

// Submitted reports whether the user confirmed the form.
func (f Form) Submitted() bool { return f.submitted }

// Canceled reports whether the user backed out.
func (f Form) Canceled() bool { return f.canceled }

// Reopen returns a submitted form to editing with msg shown as an error,
// for when the caller rejects the values.
func (f Form) Reopen(msg string) Form {
	f.submitted = false
	f.canceled = false
	f.confirming = false
	f.err = msg
	return f
}

// View renders the form body without the outer frame.
func (f Form) View() string {
	sepStyle := lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#444444"})
	formLabel := lipgloss.NewStyle().
		Foreground(ColorGray).
		Width(16).
		Align(lipgloss.Right).
		PaddingRight(1)
	formLabelActive := lipgloss.NewStyle().
		Foreground(ColorYellow).
		Bold(true).
		Width(16).
		Align(lipgloss.Right).
		PaddingRight(1)

	const w = 62
	sep := sepStyle.Render(strings.Repeat("─", w))

	var b strings.Builder
	b.WriteString(StyleHeader.Render(f.title))
	b.WriteString("\n")
	if f.subtitle != "" {
		b.WriteString(StyleHelp.Render(f.subtitle))
		b.WriteString("\n")
	}
	if f.note != "" {
		b.WriteString(StyleTag.Render(f.note))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(sep)
	b.WriteString("\n\n")

	if f.err != "" {
		b.WriteString(StyleError.Render("Error: " + f.err))
		b.WriteString("\n\n")
	}

	for i, spec := range f.specs {
		label := spec.Label
		if spec.Required {
			label += "*"
		}
		if i == f.focused && !f.confirming {
			b.WriteString(formLabelActive.Render("› " + label))
		} else {
			b.WriteString(formLabel.Render(label))
		}
		if len(spec.Options) > 0 {
			b.WriteString(renderChoice(spec.Options, f.inputs[i].Value(), i == f.focused && !f.confirming))
		} else {
			b.WriteString(f.inputs[i].View())
		}
		b.WriteString("\n\n")
	}

	b.WriteString(sep)
	b.WriteString("\n")

	if f.confirming {
		b.WriteString(StyleHighlight.Render("  " + f.prompt + " "))
		b.WriteString(StyleHelp.Render("Y/n"))
	} else {
		b.WriteString(RenderFooterBar([]ShortcutEntry{
			{Key: "tab", Label: "Tab/↑↓ navigate"},
			{Key: "", Label: "←/→ choose"},
			{Key: "enter", Label: "enter submit"},
			{Key: "", Label: "esc cancel"},
		}, f.activeCmd))
	}
	b.WriteString("\n")
	return b.String()
}

func renderChoice(options []string, value string, active bool) string {
	parts := make([]string, len(options))
	for i, opt := range options {
		switch {
		case opt == value && active:
			parts[i] = StyleHighlight.Render("[" + opt + "]")
		case opt == value:
			parts[i] = StyleNormal.Render("[" + opt + "]")
		default:
			parts[i] = StyleHelp.Render(" " + opt + " ")
		}
	}
	return "│ " + strings.Join(parts, " ")
}

func indexOf(options []string, v string) int {
	for i, o := range options {
		if o == v {
			return i
		}
	}
	return -1
}

// formProgram runs a Form as a standalone full-screen program.
type formProgram struct {
	form Form
}

func (m formProgram) Init() tea.Cmd { return m.form.Init() }

func (m formProgram) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	if m.form.Submitted() || m.form.Canceled() {
		return m, tea.Quit
	}
	return m, cmd
}

func (m formProgram) View() string {
	outerStyle := lipgloss.NewStyle().Padding(2, 4)
	innerPadding := lipgloss.NewStyle().Padding(0, 2, 0, 1)
	return outerStyle.Render(StyleBorder.Render(innerPadding.Render(m.form.View())))
}

// RunForm shows f full-screen and returns the submitted values.
func RunForm(f Form) ([]string, error) {
	p := tea.NewProgram(formProgram{form: f}, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running form: %w", err)
	}
	fm, ok := finalModel.(formProgram)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	if !fm.form.Submitted() {
		return nil, ErrCanceled
	}
	return fm.form.Values(), nil
}
