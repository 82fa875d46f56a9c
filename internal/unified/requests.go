package unified

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

var loadRequestsKey = inflight.Key("load", "requests")

// RequestsModel is the admin's list of pending borrow requests.
type RequestsModel struct {
	ctx   context.Context
	rev   *borrow.Reviewer
	guard *inflight.Guard

	cursor    int
	busy      map[string]string
	notice    string
	err       string
	activeCmd string
}

// NewRequestsModel creates the view over rev.
func NewRequestsModel(ctx context.Context, rev *borrow.Reviewer, guard *inflight.Guard) RequestsModel {
	return RequestsModel{ctx: ctx, rev: rev, guard: guard, busy: make(map[string]string)}
}

// Init re-fetches the pending list whenever the view is opened.
func (m RequestsModel) Init() tea.Cmd {
	return m.refresh()
}

func (m RequestsModel) refresh() tea.Cmd {
	m.busy[loadRequestsKey] = "Loading requests"
	ctx, guard, rev := m.ctx, m.guard, m.rev
	return func() tea.Msg {
		cctx, done, err := guard.Begin(ctx, loadRequestsKey)
		if err != nil {
			return requestsLoadedMsg{err: err}
		}
		defer done()
		return requestsLoadedMsg{err: rev.Refresh(cctx)}
	}
}

func (m RequestsModel) clampCursor() RequestsModel {
	n := len(m.rev.Pending())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m
}

func (m RequestsModel) Update(msg tea.Msg) (RequestsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.ClearActiveCmdMsg:
		m.activeCmd = ""
		return m, nil

	case requestsLoadedMsg:
		delete(m.busy, loadRequestsKey)
		switch {
		case errors.Is(msg.err, inflight.ErrBusy):
		case errors.Is(msg.err, context.Canceled):
			m.notice = "Canceled"
		case api.IsUnauthorized(msg.err):
			return m, func() tea.Msg { return loginRequiredMsg{reason: "The request list rejected your saved session."} }
		case msg.err != nil:
			m.err = borrow.ReviewMessage(msg.err)
		default:
			m.err = ""
		}
		return m.clampCursor(), nil

	case acceptedMsg:
		delete(m.busy, inflight.Key(inflight.KindAccept, msg.requestID))
		var merr *borrow.MaterializeError
		switch {
		case errors.As(msg.err, &merr):
			// Accepted already; a cancel here still leaves no record.
			m.notice, m.err = "", borrow.ReviewMessage(msg.err)
		case errors.Is(msg.err, context.Canceled):
			m.notice, m.err = fmt.Sprintf("Request %d: canceled", msg.requestID), ""
		case msg.err != nil:
			m.notice, m.err = "", borrow.ReviewMessage(msg.err)
		case msg.result != nil && msg.result.Record != nil:
			m.notice, m.err = fmt.Sprintf("Request %d accepted; record %d created for %s",
				msg.requestID, msg.result.Record.ID, msg.result.Record.User), ""
		default:
			m.notice, m.err = fmt.Sprintf("Request %d accepted", msg.requestID), ""
		}
		return m.clampCursor(), nil

	case materializedMsg:
		delete(m.busy, inflight.Key(inflight.KindAccept, msg.requestID))
		if msg.err != nil {
			m.notice, m.err = "", borrow.ReviewMessage(msg.err)
		} else {
			m.notice, m.err = fmt.Sprintf("Record %d created for request %d", msg.record.ID, msg.requestID), ""
		}
		return m.clampCursor(), nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m RequestsModel) updateKeys(msg tea.KeyMsg) (RequestsModel, tea.Cmd) {
	pending := m.rev.Pending()
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
		if m.cursor < len(pending)-1 {
			m.cursor++
		}
		return m, nil

	case "enter", "a":
		if m.cursor >= len(pending) {
			return m, nil
		}
		return m.accept(pending[m.cursor])

	case "R":
		return m.retryAll()

	case "g":
		m.err = ""
		return m, tea.Batch(m.refresh(), tui.HighlightCmd())
	}
	m.activeCmd = ""
	return m, nil
}

func (m RequestsModel) accept(req api.BorrowRequest) (RequestsModel, tea.Cmd) {
	key := inflight.Key(inflight.KindAccept, req.ID)
	if _, ok := m.busy[key]; ok || m.rev.Busy(req.ID) {
		m.err = borrow.MsgAlreadyInFlight
		return m, nil
	}
	m.busy[key] = fmt.Sprintf("Accepting request %d", req.ID)
	m.notice, m.err = "", ""

	ctx, rev, id := m.ctx, m.rev, req.ID
	return m, tea.Batch(tui.HighlightCmd(), func() tea.Msg {
		res, err := rev.Accept(ctx, id)
		return acceptedMsg{requestID: id, result: res, err: err}
	})
}

// retryAll re-runs record creation for every accepted request that is
// still missing its borrowing record.
func (m RequestsModel) retryAll() (RequestsModel, tea.Cmd) {
	ids := m.rev.Unmaterialized()
	if len(ids) == 0 {
		m.notice = "Nothing to retry"
		return m, nil
	}
	cmds := []tea.Cmd{tui.HighlightCmd()}
	for _, id := range ids {
		key := inflight.Key(inflight.KindAccept, id)
		if _, ok := m.busy[key]; ok {
			continue
		}
		m.busy[key] = fmt.Sprintf("Creating record for request %d", id)
		ctx, rev, id := m.ctx, m.rev, id
		cmds = append(cmds, func() tea.Msg {
			rec, err := rev.RetryMaterialize(ctx, id)
			return materializedMsg{requestID: id, record: rec, err: err}
		})
	}
	return m, tea.Batch(cmds...)
}

func (m RequestsModel) busyLabel() string {
	labels := make([]string, 0, len(m.busy))
	for _, l := range m.busy {
		labels = append(labels, l)
	}
	return strings.Join(labels, ", ")
}

func (m RequestsModel) View(spin string) string {
	var b strings.Builder
	pending := m.rev.Pending()

	b.WriteString(tui.StyleHeader.Render("Borrow Requests"))
	if m.rev.Loaded() {
		b.WriteString(tui.StyleHelp.Render(fmt.Sprintf("   %d pending", len(pending))))
	}
	b.WriteString("\n\n")

	switch {
	case !m.rev.Loaded() && m.err == "":
		b.WriteString(tui.StyleHelp.Render("Loading requests..."))
		b.WriteString("\n")
	case len(pending) == 0:
		b.WriteString(tui.StyleHelp.Render("No pending requests."))
		b.WriteString("\n")
	default:
		b.WriteString(tui.StyleHelp.Render(fmt.Sprintf("  %-6s %-14s %-10s %-32s %-9s %s", "ID", "User", "Book", "Title", "Copies", "Requested")))
		b.WriteString("\n")
		for i, r := range pending {
			line := fmt.Sprintf("%-6d %-14s %-10s %-32s %-9s %s",
				r.ID,
				ansi.Truncate(r.User, 14, "…"),
				ansi.Truncate(r.BookID(), 10, "…"),
				ansi.Truncate(r.BookDetail.Title, 32, "…"),
				fmt.Sprintf("%d/%d", r.BookDetail.AvailableQuantity, r.BookDetail.Quantity),
				r.RequestDate)
			if i == m.cursor {
				b.WriteString(tui.StyleHighlight.Render("› " + line))
			} else {
				b.WriteString("  " + tui.StyleNormal.Render(line))
			}
			b.WriteString("\n")
		}
	}

	if ids := m.rev.Unmaterialized(); len(ids) > 0 {
		b.WriteString("\n")
		b.WriteString(tui.StyleError.Render("Accepted without a borrowing record:"))
		b.WriteString("\n")
		for _, id := range ids {
			fmt.Fprintf(&b, "  request %d\n", id)
		}
		b.WriteString(tui.StyleHelp.Render("  Press R to create the missing records."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if status := renderStatus(spin, m.busyLabel(), m.notice, m.err); status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}
	b.WriteString(tui.RenderFooterBar([]tui.ShortcutEntry{
		{Key: "", Label: "↑/↓ move"},
		{Key: "enter", Label: "enter/a accept"},
		{Key: "R", Label: "R retry record"},
		{Key: "g", Label: "g reload"},
		{Key: "esc", Label: "esc back"},
	}, m.activeCmd))
	return frame(b.String())
}
