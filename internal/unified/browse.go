package unified

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/blackwell-systems/libctl/internal/tui/delegate"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type browsePhase int

const (
	browseList browsePhase = iota
	browseSearch
	browseDetail
	browseConfirmDelete
)

const (
	msgFetchBooks  = "Failed to fetch books."
	msgDeleteBook  = "Failed to delete book."
	msgBookDeleted = "Book deleted."

	msgProfileLoading = "Checking your profile. Try again in a moment."
)

var loadBooksKey = inflight.Key("load", "books")

// BrowseModel lists the catalog with search and category filters. Members
// request books from it; admins also add, edit and delete.
type BrowseModel struct {
	ctx   context.Context
	sess  session.Session
	guard *inflight.Guard
	view  *catalog.View
	mgr   *catalog.Manager
	sub   *borrow.Submitter
	gate  *profile.Gate

	phase      browsePhase
	list       list.Model
	search     textinput.Model
	categories []string
	category   int // index into categories, -1 for all
	requested  map[string]bool
	detail     api.Book

	busy      map[string]string // guard key -> label
	notice    string
	err       string
	activeCmd string
	width     int
	height    int
}

// NewBrowseModel creates the catalog view over the shared workflow state.
func NewBrowseModel(ctx context.Context, deps Deps, view *catalog.View, mgr *catalog.Manager, sub *borrow.Submitter, gate *profile.Gate) BrowseModel {
	l := list.New(nil, delegate.New(tui.RenderBookItem), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	search := textinput.New()
	search.Placeholder = "title, author, book id or publisher"
	search.Prompt = "/ "
	search.CharLimit = 100
	search.Width = 40

	m := BrowseModel{
		ctx:       ctx,
		sess:      deps.Session,
		guard:     deps.Guard,
		view:      view,
		mgr:       mgr,
		sub:       sub,
		gate:      gate,
		list:      l,
		search:    search,
		category:  -1,
		requested: make(map[string]bool),
		busy:      make(map[string]string),
	}
	m.search.SetValue(view.Filter().Search)
	return m.Reload()
}

// Init re-fetches the catalog whenever the view is opened.
func (m BrowseModel) Init() tea.Cmd {
	return m.refresh()
}

func (m BrowseModel) refresh() tea.Cmd {
	m.busy[loadBooksKey] = "Loading catalog"
	ctx, guard, view := m.ctx, m.guard, m.view
	return func() tea.Msg {
		cctx, done, err := guard.Begin(ctx, loadBooksKey)
		if err != nil {
			return booksLoadedMsg{err: err}
		}
		defer done()
		return booksLoadedMsg{err: view.Refresh(cctx)}
	}
}

// Resize fits the list to the terminal.
func (m BrowseModel) Resize(width, height int) BrowseModel {
	m.width, m.height = width, height
	h, v := tui.StyleBorder.GetFrameSize()
	// header, filter line, column header, status and footer
	const chrome = 10
	w, ht := width-h-8, height-v-chrome
	if w < 40 {
		w = 40
	}
	if ht < 5 {
		ht = 5
	}
	m.list.SetSize(w, ht)
	return m
}

// Reload re-reads the visible books from the catalog view.
func (m BrowseModel) Reload() BrowseModel {
	m.categories = catalog.Categories(m.view.All())
	if m.category >= len(m.categories) {
		m.category = -1
	}
	m.view.SetFilter(m.filter())

	visible := m.view.Visible()
	items := make([]list.Item, len(visible))
	for i, b := range visible {
		items[i] = tui.BookItem{Book: b, Requested: m.requested[b.BookID]}
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	return m
}

func (m BrowseModel) filter() catalog.Filter {
	f := catalog.Filter{Search: strings.TrimSpace(m.search.Value())}
	if m.category >= 0 {
		f.Category = m.categories[m.category]
	}
	return f
}

func (m BrowseModel) selected() (api.Book, bool) {
	item, ok := m.list.SelectedItem().(tui.BookItem)
	return item.Book, ok
}

func (m BrowseModel) Update(msg tea.Msg) (BrowseModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.ClearActiveCmdMsg:
		m.activeCmd = ""
		return m, nil

	case booksLoadedMsg:
		delete(m.busy, loadBooksKey)
		switch {
		case errors.Is(msg.err, inflight.ErrBusy):
		case errors.Is(msg.err, context.Canceled):
			m.notice = "Canceled"
		case api.IsUnauthorized(msg.err):
			return m, func() tea.Msg { return loginRequiredMsg{reason: "The catalog rejected your saved session."} }
		case msg.err != nil:
			m.err = msgFetchBooks
		default:
			m.err = ""
		}
		return m.Reload(), nil

	case requestSentMsg:
		delete(m.busy, inflight.Key(inflight.KindRequest, msg.bookID))
		switch {
		case errors.Is(msg.err, context.Canceled):
			m.notice, m.err = "Request canceled", ""
		case msg.err != nil:
			m.notice, m.err = "", borrow.SubmitMessage(msg.err)
		default:
			m.requested[msg.bookID] = true
			m.notice, m.err = borrow.MsgSubmitted, ""
		}
		return m.Reload(), nil

	case bookDeletedMsg:
		delete(m.busy, inflight.Key("delete", msg.bookID))
		m.phase = browseList
		switch {
		case errors.Is(msg.err, catalog.ErrReloadFailed):
			m.notice, m.err = msgBookDeleted, msg.err.Error()
		case msg.err != nil:
			m.notice, m.err = "", msgDeleteBook
		default:
			m.notice, m.err = msgBookDeleted, ""
		}
		return m.Reload(), nil

	case tea.KeyMsg:
		switch m.phase {
		case browseSearch:
			return m.updateSearch(msg)
		case browseDetail:
			return m.updateDetail(msg)
		case browseConfirmDelete:
			return m.updateConfirmDelete(msg)
		default:
			return m.updateList(msg)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// cancelOrBack cancels outstanding calls, or leaves the view if there are
// none.
func (m BrowseModel) cancelOrBack() (BrowseModel, tea.Cmd) {
	if len(m.busy) > 0 {
		for k := range m.busy {
			m.guard.Cancel(k)
		}
		return m, nil
	}
	return m, func() tea.Msg { return NavigateMsg{Target: "hub"} }
}

func (m BrowseModel) updateList(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	m.activeCmd = msg.String()
	switch msg.String() {
	case "esc", "q":
		return m.cancelOrBack()

	case "/":
		m.phase = browseSearch
		return m, tea.Batch(m.search.Focus(), tui.HighlightCmd())

	case "c":
		m.category++
		if m.category >= len(m.categories) {
			m.category = -1
		}
		return m.Reload(), tui.HighlightCmd()

	case "x":
		m.search.SetValue("")
		m.category = -1
		return m.Reload(), tui.HighlightCmd()

	case "g":
		m.err = ""
		return m, tea.Batch(m.refresh(), tui.HighlightCmd())

	case "enter":
		if b, ok := m.selected(); ok {
			m.detail = b
			m.phase = browseDetail
		}
		return m, tui.HighlightCmd()

	case "r":
		if b, ok := m.selected(); ok {
			return m.request(b)
		}
		return m, nil
	}

	if m.sess.Admin {
		if next, cmd, handled := m.adminKey(msg); handled {
			return next, cmd
		}
	}

	m.activeCmd = ""
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m BrowseModel) adminKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd, bool) {
	switch msg.String() {
	case "a":
		return m, func() tea.Msg { return NavigateMsg{Target: "add-book"} }, true
	case "e":
		b, ok := m.selected()
		if m.phase == browseDetail {
			b, ok = m.detail, true
		}
		if !ok {
			return m, nil, true
		}
		return m, func() tea.Msg { return NavigateMsg{Target: string(ViewBookForm), Data: &b} }, true
	case "d":
		b, ok := m.selected()
		if m.phase == browseDetail {
			b, ok = m.detail, true
		}
		if ok {
			m.detail = b
			m.phase = browseConfirmDelete
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m BrowseModel) updateSearch(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.phase = browseList
		m.search.Blur()
		return m, nil
	case "esc":
		m.phase = browseList
		m.search.Blur()
		m.search.SetValue("")
		return m.Reload(), nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m.Reload(), cmd
}

func (m BrowseModel) updateDetail(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "q":
		m.phase = browseList
		return m, nil
	case "r":
		return m.request(m.detail)
	}
	if m.sess.Admin {
		if next, cmd, handled := m.adminKey(msg); handled {
			return next, cmd
		}
	}
	return m, nil
}

func (m BrowseModel) updateConfirmDelete(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.phase = browseList
		return m, nil
	case "enter", "y":
		key := inflight.Key("delete", m.detail.BookID)
		if _, ok := m.busy[key]; ok {
			return m, nil
		}
		m.busy[key] = "Deleting " + m.detail.Title
		ctx, guard, mgr, sess, id := m.ctx, m.guard, m.mgr, m.sess, m.detail.BookID
		return m, func() tea.Msg {
			cctx, done, err := guard.Begin(ctx, key)
			if err != nil {
				return bookDeletedMsg{bookID: id, err: err}
			}
			defer done()
			return bookDeletedMsg{bookID: id, err: mgr.Delete(cctx, sess, id)}
		}
	}
	return m, nil
}

// request sends a borrow request for b. Members with an incomplete
// profile get the profile form instead.
func (m BrowseModel) request(b api.Book) (BrowseModel, tea.Cmd) {
	m.notice = ""
	if !m.sess.Authenticated() {
		m.err = borrow.MsgLoginRequired
		return m, nil
	}
	if !m.sess.Admin && m.gate.State() != profile.Complete {
		switch {
		case m.gate.Loaded():
			return m, func() tea.Msg { return openGateMsg{} }
		case m.gate.Err() != "":
			// The profile could not be checked; refuse and try again.
			m.err = m.gate.Err()
			return m, loadProfile(m.ctx, m.gate)
		default:
			m.notice = msgProfileLoading
			return m, nil
		}
	}
	key := inflight.Key(inflight.KindRequest, b.BookID)
	if _, ok := m.busy[key]; ok || m.sub.Busy(b.BookID) {
		m.err = borrow.MsgAlreadyInFlight
		return m, nil
	}
	m.err = ""
	m.busy[key] = "Requesting " + b.Title

	ctx, sub, sess, id := m.ctx, m.sub, m.sess, b.BookID
	return m, func() tea.Msg {
		_, err := sub.Submit(ctx, sess, id)
		return requestSentMsg{bookID: id, err: err}
	}
}

func (m BrowseModel) busyLabel() string {
	if len(m.busy) == 0 {
		return ""
	}
	labels := make([]string, 0, len(m.busy))
	for _, l := range m.busy {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}

func (m BrowseModel) View(spin string) string {
	var b strings.Builder

	b.WriteString(tui.StyleHeader.Render("Catalog"))
	if m.view.Status() != catalog.NotLoaded {
		b.WriteString(tui.StyleHelp.Render(fmt.Sprintf("   %d of %d books · %d copies in the library",
			len(m.view.Visible()), len(m.view.All()), m.view.Total())))
	}
	b.WriteString("\n")
	b.WriteString(m.renderFilterLine())
	b.WriteString("\n\n")

	switch m.phase {
	case browseDetail:
		b.WriteString(m.renderDetail())
	case browseConfirmDelete:
		b.WriteString(m.renderConfirmDelete())
	default:
		switch m.view.Status() {
		case catalog.NotLoaded:
			if m.err != "" {
				b.WriteString(tui.StyleHelp.Render("Nothing to show. Press g to try again."))
			} else {
				b.WriteString(tui.StyleHelp.Render("Loading catalog..."))
			}
		case catalog.Empty:
			b.WriteString(tui.StyleHelp.Render(catalog.Empty.String()))
		default:
			b.WriteString(tui.RenderColumnHeader(m.list.Width()))
			b.WriteString("\n")
			b.WriteString(m.list.View())
		}
	}

	b.WriteString("\n\n")
	if status := renderStatus(spin, m.busyLabel(), m.notice, m.err); status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}
	b.WriteString(tui.RenderFooterBar(m.shortcuts(), m.activeCmd))
	return frame(b.String())
}

func (m BrowseModel) renderFilterLine() string {
	category := "all"
	if m.category >= 0 {
		category = m.categories[m.category]
	}
	if m.phase == browseSearch {
		return m.search.View() + "   " + tui.StyleHelp.Render("category: ") + tui.StyleTag.Render(category)
	}
	search := m.search.Value()
	if search == "" {
		search = "-"
	}
	return tui.StyleHelp.Render("search: ") + search + "   " + tui.StyleHelp.Render("category: ") + tui.StyleTag.Render(category)
}

func (m BrowseModel) renderDetail() string {
	d := m.detail
	year := "-"
	if d.PublicationYear != nil {
		year = fmt.Sprint(*d.PublicationYear)
	}
	copies := tui.StyleSuccess.Render(fmt.Sprintf("%d of %d available", d.AvailableQuantity, d.Quantity))
	if !catalog.Available(d) {
		copies = tui.StyleError.Render(fmt.Sprintf("none of %d available", d.Quantity))
	}

	var b strings.Builder
	b.WriteString(tui.StyleHighlight.Render(d.Title))
	b.WriteString("\n")
	b.WriteString(tui.StyleHelp.Render("by " + d.Author))
	b.WriteString("\n\n")
	rows := [][2]string{
		{"Book ID", d.BookID},
		{"Publisher", d.Publisher},
		{"Category", d.Category},
		{"Year", year},
		{"Location", d.Location},
		{"Added", d.DateAdded},
		{"Cover", d.CoverImage},
	}
	for _, r := range rows {
		v := r[1]
		if strings.TrimSpace(v) == "" {
			v = "-"
		}
		fmt.Fprintf(&b, "  %-10s %s\n", tui.StyleHelp.Render(r[0]), v)
	}
	fmt.Fprintf(&b, "  %-10s %s\n", tui.StyleHelp.Render("Copies"), copies)
	if m.requested[d.BookID] {
		b.WriteString("\n")
		b.WriteString(tui.StyleTag.Render("  You requested this book."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m BrowseModel) renderConfirmDelete() string {
	var b strings.Builder
	b.WriteString(tui.StyleDanger.Render("Delete book"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %s (%s) by %s\n\n", m.detail.Title, m.detail.BookID, m.detail.Author)
	b.WriteString(tui.StyleDanger.Render("This cannot be undone."))
	b.WriteString("\n\n")
	b.WriteString(tui.RenderFooterBar([]tui.ShortcutEntry{
		{Key: "enter", Label: "Enter/y Delete"},
		{Key: "", Label: "Esc/n Cancel"},
	}, m.activeCmd))
	return b.String()
}

func (m BrowseModel) shortcuts() []tui.ShortcutEntry {
	switch m.phase {
	case browseSearch:
		return []tui.ShortcutEntry{{Key: "", Label: "enter keep"}, {Key: "", Label: "esc clear"}}
	case browseConfirmDelete:
		return nil
	}
	out := []tui.ShortcutEntry{
		{Key: "/", Label: "/ search"},
		{Key: "c", Label: "c category"},
		{Key: "x", Label: "x clear"},
		{Key: "enter", Label: "enter details"},
		{Key: "r", Label: "r request"},
	}
	if m.sess.Admin {
		out = append(out,
			tui.ShortcutEntry{Key: "a", Label: "a add"},
			tui.ShortcutEntry{Key: "e", Label: "e edit"},
			tui.ShortcutEntry{Key: "d", Label: "d delete"},
		)
	}
	return append(out,
		tui.ShortcutEntry{Key: "g", Label: "g reload"},
		tui.ShortcutEntry{Key: "esc", Label: "esc back"},
	)
}
