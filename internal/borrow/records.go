package borrow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/sirupsen/logrus"
)

// ReturnStatus selects records by whether they were returned.
type ReturnStatus int

const (
	StatusAll ReturnStatus = iota
	StatusReturned
	StatusNotReturned
)

func (s ReturnStatus) String() string {
	switch s {
	case StatusReturned:
		return "returned"
	case StatusNotReturned:
		return "not_returned"
	default:
		return "all"
	}
}

// Next cycles all -> returned -> not_returned -> all.
func (s ReturnStatus) Next() ReturnStatus {
	return (s + 1) % 3
}

// ParseReturnStatus accepts "", "all", "returned", "not_returned" and
// "not-returned".
func ParseReturnStatus(s string) (ReturnStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAll, nil
	case "returned":
		return StatusReturned, nil
	case "not_returned", "not-returned", "notreturned":
		return StatusNotReturned, nil
	default:
		return StatusAll, fmt.Errorf("unknown status %q (want all, returned or not_returned)", s)
	}
}

// RecordFilter narrows a record list. Search matches the book title or
// the username; Status is an exact match on the returned flag.
type RecordFilter struct {
	Search string
	Status ReturnStatus
}

// Apply returns the records passing the filter, in their original order.
func (f RecordFilter) Apply(records []api.BorrowingRecord) []api.BorrowingRecord {
	q := strings.ToLower(f.Search)
	out := make([]api.BorrowingRecord, 0, len(records))
	for _, r := range records {
		if q != "" &&
			!strings.Contains(strings.ToLower(r.BookTitle), q) &&
			!strings.Contains(strings.ToLower(r.User), q) {
			continue
		}
		switch f.Status {
		case StatusReturned:
			if !r.IsReturned {
				continue
			}
		case StatusNotReturned:
			if r.IsReturned {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// RecordBackend is the part of the API client Records drives.
type RecordBackend interface {
	ListBorrowingRecords(ctx context.Context, token string) (*api.RecordList, error)
	ListMyBorrowingRecords(ctx context.Context, token string) ([]api.BorrowingRecord, error)
	MarkReturned(ctx context.Context, token string, recordID int64) (*api.BorrowingRecord, error)
}

// RecordsOption configures Records.
type RecordsOption func(*Records)

// OwnRecords scopes Records to the session user's own borrowing.
func OwnRecords() RecordsOption {
	return func(r *Records) { r.own = true }
}

// Records is the borrowing record list with its filter.
type Records struct {
	backend RecordBackend
	sess    session.Session
	guard   *inflight.Guard
	own     bool

	mu      sync.Mutex
	records []api.BorrowingRecord
	total   int
	loaded  bool
	filter  RecordFilter
	err     string
}

// NewRecords creates a Records list acting as sess.
func NewRecords(backend RecordBackend, sess session.Session, guard *inflight.Guard, opts ...RecordsOption) *Records {
	if guard == nil {
		guard = inflight.New()
	}
	r := &Records{backend: backend, sess: sess, guard: guard}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh re-fetches the records. On failure the current list is kept.
func (r *Records) Refresh(ctx context.Context) error {
	if !r.sess.Authenticated() {
		r.setErr(MsgFetchRecords)
		return api.ErrAuthRequired
	}

	var (
		records []api.BorrowingRecord
		total   int
		err     error
	)
	if r.own {
		records, err = r.backend.ListMyBorrowingRecords(ctx, r.sess.Credential())
		total = len(records)
	} else {
		var list *api.RecordList
		list, err = r.backend.ListBorrowingRecords(ctx, r.sess.Credential())
		if list != nil {
			records, total = list.Records, list.Total
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.err = MsgFetchRecords
		return err
	}
	r.records = records
	r.total = total
	r.loaded = true
	r.err = ""
	return nil
}

// SetFilter replaces the filter. No fetch happens.
func (r *Records) SetFilter(f RecordFilter) {
	r.mu.Lock()
	r.filter = f
	r.mu.Unlock()
}

// Filter returns the current filter.
func (r *Records) Filter() RecordFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter
}

// Visible returns the fetched records passing the filter.
func (r *Records) Visible() []api.BorrowingRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter.Apply(r.records)
}

// All returns a copy of the fetched records.
func (r *Records) All() []api.BorrowingRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.BorrowingRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Total is the record count reported by the backend.
func (r *Records) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Loaded reports whether a fetch has succeeded.
func (r *Records) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Err returns the message of the last failure, or "".
func (r *Records) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Find returns a fetched record by id.
func (r *Records) Find(recordID int64) (api.BorrowingRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == recordID {
			return rec, true
		}
	}
	return api.BorrowingRecord{}, false
}

// Busy reports whether a return for recordID is in flight.
func (r *Records) Busy(recordID int64) bool {
	return r.guard.Busy(inflight.Key(inflight.KindReturn, recordID))
}

// MarkReturned closes a record once confirm approves it, then re-fetches
// the list. A nil confirm counts as declined. Nothing is sent unless the
// record is loaded, still open, and confirmed.
func (r *Records) MarkReturned(ctx context.Context, recordID int64, confirm func(api.BorrowingRecord) bool) error {
	if !r.sess.Authenticated() {
		return api.ErrAuthRequired
	}
	rec, ok := r.Find(recordID)
	if !ok {
		return fmt.Errorf("record %d: %w", recordID, api.ErrNotFound)
	}
	if rec.IsReturned {
		return ErrAlreadyReturned
	}
	if confirm == nil || !confirm(rec) {
		return ErrNotConfirmed
	}

	ctx, done, err := r.guard.Begin(ctx, inflight.Key(inflight.KindReturn, recordID))
	if err != nil {
		return err
	}
	defer done()

	entry := logger.Log.WithFields(logrus.Fields{"record": recordID, "book": rec.Book, "admin": r.sess.Username})
	if _, err := r.backend.MarkReturned(ctx, r.sess.Credential(), recordID); err != nil {
		r.setErr(ReturnMessage(err))
		entry.WithError(err).Warn("mark returned failed")
		return err
	}
	entry.Info("record marked returned")

	if err := r.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStale, err)
	}
	return nil
}

func (r *Records) setErr(msg string) {
	r.mu.Lock()
	r.err = msg
	r.mu.Unlock()
}
