package catalog

import (
	"context"
	"sync"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/logger"
)

// Status describes what a catalog view has to show.
type Status int

const (
	NotLoaded Status = iota // no successful fetch yet
	Empty                   // fetched, but nothing matches the filter
	Populated
)

func (s Status) String() string {
	switch s {
	case NotLoaded:
		return "not loaded"
	case Empty:
		return "No books match."
	default:
		return "populated"
	}
}

// Lister fetches the collection.
type Lister interface {
	ListBooks(ctx context.Context) (*api.BookList, error)
}

// View is the client-side copy of the collection plus the user's filter.
// The fetched set is only replaced by a successful Refresh.
type View struct {
	src Lister

	mu     sync.Mutex
	books  []Book
	loaded bool
	total  int
	filter Filter
	err    string
}

// NewView creates an unloaded view over src.
func NewView(src Lister) *View {
	return &View{src: src}
}

// Refresh re-fetches the collection. On failure the previous set is kept
// and the error message is recorded.
func (v *View) Refresh(ctx context.Context) error {
	list, err := v.src.ListBooks(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.err = err.Error()
		logger.Log.WithError(err).Warn("catalog refresh failed")
		return err
	}
	v.books = list.Books
	v.loaded = true
	v.total = TotalQuantity(list.Books)
	v.err = ""
	logger.Log.WithField("books", len(list.Books)).Debug("catalog refreshed")
	return nil
}

// SetFilter replaces the filter. No fetch happens.
func (v *View) SetFilter(f Filter) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
}

// Filter returns the current filter.
func (v *View) Filter() Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Visible returns the fetched books that pass the filter.
func (v *View) Visible() []Book {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter.Apply(v.books)
}

// All returns the whole fetched set.
func (v *View) All() []Book {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Book, len(v.books))
	copy(out, v.books)
	return out
}

// Total is the copy count over the whole collection, ignoring the filter.
func (v *View) Total() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.total
}

// Status reports whether there is anything to show.
func (v *View) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.loaded {
		return NotLoaded
	}
	if len(v.filter.Apply(v.books)) == 0 {
		return Empty
	}
	return Populated
}

// Err returns the message of the last failed refresh, or "".
func (v *View) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Find looks up a fetched book by id.
func (v *View) Find(id string) *Book {
	v.mu.Lock()
	defer v.mu.Unlock()
	if b := ByID(v.books, id); b != nil {
		cp := *b
		return &cp
	}
	return nil
}
