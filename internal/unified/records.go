package unified

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

type recordsPhase int

const (
	recordsList recordsPhase = iota
	recordsSearch
	recordsConfirm
)

const returnQuestion = "Are you sure this book has been returned?"

var loadRecordsKey = inflight.Key("load", "records")

// RecordsModel lists borrowing records. Admins see every record and can
// mark returns; members see their own.
type RecordsModel struct {
	ctx   context.Context
	recs  *borrow.Records
	sess  session.Session
	guard *inflight.Guard

	phase     recordsPhase
	search    textinput.Model
	status    borrow.ReturnStatus
	cursor    int
	target    api.BorrowingRecord
	busy      map[string]string
	notice    string
	err       string
	activeCmd string
}

// NewRecordsModel creates the view over recs.
func NewRecordsModel(ctx context.Context, recs *borrow.Records, sess session.Session, guard *inflight.Guard) RecordsModel {
	search := textinput.New()
	search.Placeholder = "book title or borrower"
	search.Prompt = "/ "
	search.CharLimit = 100
	search.Width = 40

	f := recs.Filter()
	search.SetValue(f.Search)
	return RecordsModel{
		ctx:    ctx,
		recs:   recs,
		sess:   sess,
		guard:  guard,
		search: search,
		status: f.Status,
		busy:   make(map[string]string),
	}
}

// Init re-fetches the records whenever the view is opened.
func (m RecordsModel) Init() tea.Cmd {
	return m.refresh()
}

func (m RecordsModel) refresh() tea.Cmd {
	m.busy[loadRecordsKey] = "Loading records"
	ctx, guard, recs := m.ctx, m.guard, m.recs
	return func() tea.Msg {
		cctx, done, err := guard.Begin(ctx, loadRecordsKey)
		if err != nil {
			return recordsLoadedMsg{err: err}
		}
		defer done()
		return recordsLoadedMsg{err: recs.Refresh(cctx)}
	}
}

func (m RecordsModel) applyFilter() RecordsModel {
	m.recs.SetFilter(borrow.RecordFilter{Search: strings.TrimSpace(m.search.Value()), Status: m.status})
	n := len(m.recs.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m
}

func (m RecordsModel) Update(msg tea.Msg) (RecordsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.ClearActiveCmdMsg:
		m.activeCmd = ""
		return m, nil

	case recordsLoadedMsg:
		delete(m.busy, loadRecordsKey)
		switch {
		case errors.Is(msg.err, inflight.ErrBusy):
		case errors.Is(msg.err, context.Canceled):
			m.notice = "Canceled"
		case api.IsUnauthorized(msg.err):
			return m, func() tea.Msg { return loginRequiredMsg{reason: "The borrowing records rejected your saved session."} }
		case msg.err != nil:
			m.err = borrow.MsgFetchRecords
		default:
			m.err = ""
		}
		return m.applyFilter(), nil

	case returnedMsg:
		delete(m.busy, inflight.Key(inflight.KindReturn, msg.recordID))
		switch {
		case errors.Is(msg.err, context.Canceled):
			m.notice, m.err = "Canceled", ""
		case errors.Is(msg.err, borrow.ErrStale):
			m.notice, m.err = fmt.Sprintf("Record %d marked returned", msg.recordID), msg.err.Error()
		case msg.err != nil:
			m.notice, m.err = "", borrow.ReturnMessage(msg.err)
		default:
			m.notice, m.err = fmt.Sprintf("Record %d marked returned", msg.recordID), ""
		}
		return m.applyFilter(), nil

	case tea.KeyMsg:
		switch m.phase {
		case recordsSearch:
			return m.updateSearch(msg)
		case recordsConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m RecordsModel) updateList(msg tea.KeyMsg) (RecordsModel, tea.Cmd) {
	visible := m.recs.Visible()
	m.activeCmd = msg.String()

	switch msg.String() {
	case "esc", "q":
		if len(m.busy) > 0 {
			for k := range m.busy {
				m.guard.Cancel(k)
			}
			return m, nil
		}
		return m, func() tea.Msg { return NavigateMsg{Target: "hub"} }

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
		return m, nil

	case "/":
		m.phase = recordsSearch
		return m, tea.Batch(m.search.Focus(), tui.HighlightCmd())

	case "s":
		m.status = m.status.Next()
		return m.applyFilter(), tui.HighlightCmd()

	case "g":
		m.err = ""
		return m, tea.Batch(m.refresh(), tui.HighlightCmd())

	case "enter", "m":
		if !m.sess.Admin || m.cursor >= len(visible) {
			return m, nil
		}
		rec := visible[m.cursor]
		if rec.IsReturned {
			m.notice, m.err = "", borrow.ReturnMessage(borrow.ErrAlreadyReturned)
			return m, nil
		}
		m.target = rec
		m.phase = recordsConfirm
		return m, tui.HighlightCmd()
	}
	m.activeCmd = ""
	return m, nil
}

func (m RecordsModel) updateSearch(msg tea.KeyMsg) (RecordsModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.phase = recordsList
		m.search.Blur()
		return m, nil
	case "esc":
		m.phase = recordsList
		m.search.Blur()
		m.search.SetValue("")
		return m.applyFilter(), nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m.applyFilter(), cmd
}

// updateConfirm is the explicit confirmation step before a return is
// sent. Nothing reaches the backend until the admin answers yes.
func (m RecordsModel) updateConfirm(msg tea.KeyMsg) (RecordsModel, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.phase = recordsList
		return m, nil
	case "enter", "y":
		m.phase = recordsList
		key := inflight.Key(inflight.KindReturn, m.target.ID)
		if _, ok := m.busy[key]; ok || m.recs.Busy(m.target.ID) {
			m.err = borrow.MsgAlreadyInFlight
			return m, nil
		}
		m.busy[key] = fmt.Sprintf("Returning %s", m.target.BookTitle)
		m.notice, m.err = "", ""

		ctx, recs, id := m.ctx, m.recs, m.target.ID
		return m, func() tea.Msg {
			err := recs.MarkReturned(ctx, id, func(api.BorrowingRecord) bool { return true })
			return returnedMsg{recordID: id, err: err}
		}
	}
	return m, nil
}

func (m RecordsModel) busyLabel() string {
	labels := make([]string, 0, len(m.busy))
	for _, l := range m.busy {
		labels = append(labels, l)
	}
	return strings.Join(labels, ", ")
}

func (m RecordsModel) View(spin string) string {
	var b strings.Builder

	title := "Borrowing Records"
	if !m.sess.Admin {
		title = "My Books"
	}
	b.WriteString(tui.StyleHeader.Render(title))
	visible := m.recs.Visible()
	if m.recs.Loaded() {
		b.WriteString(tui.StyleHelp.Render(fmt.Sprintf("   %d of %d records", len(visible), m.recs.Total())))
	}
	b.WriteString("\n")

	if m.phase == recordsSearch {
		b.WriteString(m.search.View())
	} else {
		search := m.search.Value()
		if search == "" {
			search = "-"
		}
		b.WriteString(tui.StyleHelp.Render("search: ") + search)
	}
	b.WriteString("   " + tui.StyleHelp.Render("status: ") + tui.StyleTag.Render(m.status.String()))
	b.WriteString("\n\n")

	if m.phase == recordsConfirm {
		b.WriteString(m.renderConfirm())
	} else {
		b.WriteString(m.renderTable(visible))
	}

	b.WriteString("\n")
	if status := renderStatus(spin, m.busyLabel(), m.notice, m.err); status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}
	if m.phase != recordsConfirm {
		b.WriteString(tui.RenderFooterBar(m.shortcuts(), m.activeCmd))
	}
	return frame(b.String())
}

func (m RecordsModel) renderTable(visible []api.BorrowingRecord) string {
	var b strings.Builder
	switch {
	case !m.recs.Loaded() && m.err == "":
		b.WriteString(tui.StyleHelp.Render("Loading records..."))
		b.WriteString("\n")
		return b.String()
	case len(visible) == 0:
		b.WriteString(tui.StyleHelp.Render("No borrowing records match."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(tui.StyleHelp.Render(fmt.Sprintf("  %-6s %-32s %-14s %-12s %s", "ID", "Title", "Borrower", "Borrowed", "Returned")))
	b.WriteString("\n")
	for i, r := range visible {
		returned := "out"
		if r.IsReturned {
			returned = "yes"
			if r.ReturnDate != nil {
				returned = *r.ReturnDate
			}
		}
		line := fmt.Sprintf("%-6d %-32s %-14s %-12s ",
			r.ID,
			ansi.Truncate(r.BookTitle, 32, "…"),
			ansi.Truncate(r.User, 14, "…"),
			ansi.Truncate(r.BorrowDate, 12, ""))
		returnedStyled := tui.StyleSuccess.Render(returned)
		if !r.IsReturned {
			returnedStyled = tui.StyleError.Render(returned)
		}
		if i == m.cursor {
			b.WriteString(tui.StyleHighlight.Render("› "+line) + returnedStyled)
		} else {
			b.WriteString("  " + tui.StyleNormal.Render(line) + returnedStyled)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m RecordsModel) renderConfirm() string {
	var b strings.Builder
	r := m.target
	b.WriteString(tui.StyleHighlight.Render(returnQuestion))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %-10s %d\n", tui.StyleHelp.Render("Record"), r.ID)
	fmt.Fprintf(&b, "  %-10s %s (%s)\n", tui.StyleHelp.Render("Book"), r.BookTitle, r.Book)
	fmt.Fprintf(&b, "  %-10s %s\n", tui.StyleHelp.Render("Borrower"), r.User)
	fmt.Fprintf(&b, "  %-10s %s\n", tui.StyleHelp.Render("Borrowed"), r.BorrowDate)
	b.WriteString("\n")
	b.WriteString(tui.RenderFooterBar([]tui.ShortcutEntry{
		{Key: "enter", Label: "Enter/y Yes"},
		{Key: "", Label: "Esc/n No"},
	}, m.activeCmd))
	b.WriteString("\n")
	return b.String()
}

func (m RecordsModel) shortcuts() []tui.ShortcutEntry {
	if m.phase == recordsSearch {
		return []tui.ShortcutEntry{{Key: "", Label: "enter keep"}, {Key: "", Label: "esc clear"}}
	}
	out := []tui.ShortcutEntry{
		{Key: "", Label: "↑/↓ move"},
		{Key: "/", Label: "/ search"},
		{Key: "s", Label: "s status"},
	}
	if m.sess.Admin {
		out = append(out, tui.ShortcutEntry{Key: "enter", Label: "enter mark returned"})
	}
	return append(out,
		tui.ShortcutEntry{Key: "g", Label: "g reload"},
		tui.ShortcutEntry{Key: "esc", Label: "esc back"},
	)
}
