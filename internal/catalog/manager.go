package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/sirupsen/logrus"
)

// ErrReloadFailed means a write succeeded but the follow-up fetch did not,
// so the view still shows the collection as it was before the write.
var ErrReloadFailed = errors.New("saved, but reloading the catalog failed")

// Backend is the part of the API client the Manager drives.
type Backend interface {
	Lister
	CreateBook(ctx context.Context, token string, in api.BookInput) (*api.Book, error)
	UpdateBook(ctx context.Context, token, bookID string, in api.BookInput) (*api.Book, error)
	DeleteBook(ctx context.Context, token, bookID string) error
}

// Manager provides the admin write operations on the collection.
// Every successful write is followed by a re-fetch of the view, so the
// counters shown always come from the backend.
type Manager struct {
	backend Backend
	view    *View
}

// NewManager creates a Manager that refreshes view after each write.
func NewManager(backend Backend, view *View) *Manager {
	return &Manager{backend: backend, view: view}
}

// View returns the view kept in sync by the manager.
func (m *Manager) View() *View {
	return m.view
}

// Create adds a book.
func (m *Manager) Create(ctx context.Context, sess session.Session, in api.BookInput) (*Book, error) {
	b, err := m.backend.CreateBook(ctx, sess.Credential(), in)
	if err != nil {
		return nil, err
	}
	m.logWrite("created", b.BookID, sess)
	return b, m.refresh(ctx)
}

// Update replaces a book's writable fields.
func (m *Manager) Update(ctx context.Context, sess session.Session, bookID string, in api.BookInput) (*Book, error) {
	b, err := m.backend.UpdateBook(ctx, sess.Credential(), bookID, in)
	if err != nil {
		return nil, err
	}
	m.logWrite("updated", bookID, sess)
	return b, m.refresh(ctx)
}

// Delete removes a book.
func (m *Manager) Delete(ctx context.Context, sess session.Session, bookID string) error {
	if err := m.backend.DeleteBook(ctx, sess.Credential(), bookID); err != nil {
		return err
	}
	m.logWrite("deleted", bookID, sess)
	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) error {
	if m.view == nil {
		return nil
	}
	if err := m.view.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}

func (m *Manager) logWrite(action, bookID string, sess session.Session) {
	logger.Log.WithFields(logrus.Fields{
		"book": bookID,
		"user": sess.Username,
	}).Info("book " + action)
}
