package unified

import (
	"context"
	"errors"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/blackwell-systems/libctl/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

// BookFormModel adds a book, or edits one when book is set.
type BookFormModel struct {
	ctx   context.Context
	sess  session.Session
	mgr   *catalog.Manager
	guard *inflight.Guard
	book  *api.Book

	form   tui.Form
	saving bool
}

// NewBookFormModel builds the form. book nil means a new book.
func NewBookFormModel(ctx context.Context, deps Deps, mgr *catalog.Manager, book *api.Book) BookFormModel {
	var form tui.Form
	if book == nil {
		form = tui.NewBookForm("Add Book", "", api.BookInput{Quantity: 1, AvailableQuantity: 1})
	} else {
		form = tui.NewBookForm("Edit Book", book.BookID, api.InputFrom(*book))
	}
	return BookFormModel{ctx: ctx, sess: deps.Session, mgr: mgr, guard: deps.Guard, book: book, form: form}
}

func (m BookFormModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m BookFormModel) saveKey() string {
	if m.book == nil {
		return inflight.Key("create", "book")
	}
	return inflight.Key("update", m.book.BookID)
}

func (m BookFormModel) Update(msg tea.Msg) (BookFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case bookSavedMsg:
		m.saving = false
		switch {
		case errors.Is(msg.err, context.Canceled):
			m.form = m.form.Reopen("Save canceled")
			return m, nil
		case errors.Is(msg.err, catalog.ErrReloadFailed):
			// Saved; the catalog view reloads when it opens.
			return m, func() tea.Msg { return NavigateMsg{Target: string(ViewBrowse)} }
		case msg.err != nil:
			m.form = m.form.Reopen(saveMessage(m.book, msg.err))
			return m, nil
		}
		return m, func() tea.Msg { return NavigateMsg{Target: string(ViewBrowse)} }

	case tea.KeyMsg:
		if m.saving {
			if msg.String() == "esc" {
				m.guard.Cancel(m.saveKey())
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)

	if m.form.Canceled() {
		return m, func() tea.Msg { return NavigateMsg{Target: string(ViewBrowse)} }
	}
	if m.form.Submitted() {
		in, err := tui.ParseBookForm(m.form.Values())
		if err != nil {
			m.form = m.form.Reopen(err.Error())
			return m, nil
		}
		m.saving = true
		return m, m.save(in)
	}
	return m, cmd
}

func (m BookFormModel) save(in api.BookInput) tea.Cmd {
	ctx, sess, mgr, guard, book, key := m.ctx, m.sess, m.mgr, m.guard, m.book, m.saveKey()
	return func() tea.Msg {
		cctx, done, err := guard.Begin(ctx, key)
		if err != nil {
			return bookSavedMsg{err: err}
		}
		defer done()

		var saved *api.Book
		if book == nil {
			saved, err = mgr.Create(cctx, sess, in)
		} else {
			saved, err = mgr.Update(cctx, sess, book.BookID, in)
		}
		return bookSavedMsg{book: saved, err: err}
	}
}

func saveMessage(book *api.Book, err error) string {
	var apiErr *api.Error
	switch {
	case api.IsUnauthorized(err), errors.Is(err, api.ErrForbidden):
		return "You are not authorized to perform this action."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case book == nil:
		return "Failed to add book."
	default:
		return "Failed to update book."
	}
}

func (m BookFormModel) View(spin string) string {
	body := m.form.View()
	if m.saving {
		body += "\n" + renderStatus(spin, "Saving", "", "")
	}
	return frame(body)
}
