package borrow

import (
	"context"
	"sort"
	"sync"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/sirupsen/logrus"
)

// ReviewBackend is the part of the API client the Reviewer drives.
type ReviewBackend interface {
	ListPendingRequests(ctx context.Context, token string) ([]api.BorrowRequest, error)
	AcceptRequest(ctx context.Context, token string, requestID int64) (*api.BorrowRequest, error)
	BorrowBook(ctx context.Context, token, bookID string) (*api.BorrowingRecord, error)
}

// AcceptResult is what a successful Accept produced. Record is nil when
// the reviewer runs without record creation.
type AcceptResult struct {
	Request api.BorrowRequest
	Record  *api.BorrowingRecord
}

// ReviewerOption configures a Reviewer.
type ReviewerOption func(*Reviewer)

// WithoutRecord makes Accept stop after the accept call, for backends
// that create the borrowing record themselves.
func WithoutRecord() ReviewerOption {
	return func(r *Reviewer) { r.chain = false }
}

// Reviewer is an admin's view of pending borrow requests.
//
// Accepting is a two-step sequence: the accept call, then creation of the
// borrowing record for the accepted book. The second step only starts once
// the first has succeeded. If it fails the request stays off the pending
// list and is remembered so the second step alone can be retried.
type Reviewer struct {
	backend ReviewBackend
	sess    session.Session
	guard   *inflight.Guard
	chain   bool

	mu             sync.Mutex
	pending        []api.BorrowRequest
	loaded         bool
	err            string
	unmaterialized map[int64]string // request id -> book id
}

// NewReviewer creates a Reviewer acting as sess.
func NewReviewer(backend ReviewBackend, sess session.Session, guard *inflight.Guard, opts ...ReviewerOption) *Reviewer {
	if guard == nil {
		guard = inflight.New()
	}
	r := &Reviewer{
		backend:        backend,
		sess:           sess,
		guard:          guard,
		chain:          true,
		unmaterialized: make(map[int64]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh re-fetches the pending list. On failure the current list is kept.
func (r *Reviewer) Refresh(ctx context.Context) error {
	if !r.sess.Authenticated() {
		r.setErr(api.ErrAuthRequired)
		return api.ErrAuthRequired
	}
	list, err := r.backend.ListPendingRequests(ctx, r.sess.Credential())

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.err = ReviewMessage(err)
		return err
	}
	r.pending = list
	r.loaded = true
	r.err = ""
	return nil
}

// Pending returns a copy of the pending list.
func (r *Reviewer) Pending() []api.BorrowRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.BorrowRequest, len(r.pending))
	copy(out, r.pending)
	return out
}

// Loaded reports whether a fetch has succeeded.
func (r *Reviewer) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Err returns the message of the last failure, or "".
func (r *Reviewer) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Busy reports whether an accept for requestID is in flight.
func (r *Reviewer) Busy(requestID int64) bool {
	return r.guard.Busy(inflight.Key(inflight.KindAccept, requestID))
}

// Accept approves a pending request and, unless WithoutRecord was given,
// creates its borrowing record. A failed accept returns *AcceptError and
// leaves the list alone. A failed record creation returns a non-nil
// result together with *MaterializeError.
func (r *Reviewer) Accept(ctx context.Context, requestID int64) (*AcceptResult, error) {
	if !r.sess.Authenticated() {
		return nil, api.ErrAuthRequired
	}
	ctx, done, err := r.guard.Begin(ctx, inflight.Key(inflight.KindAccept, requestID))
	if err != nil {
		return nil, err
	}
	defer done()

	local := r.find(requestID)
	entry := logger.Log.WithFields(logrus.Fields{"request": requestID, "admin": r.sess.Username})

	accepted, err := r.backend.AcceptRequest(ctx, r.sess.Credential(), requestID)
	if err != nil {
		aerr := &AcceptError{RequestID: requestID, Err: err}
		r.setErr(aerr)
		entry.WithError(err).Warn("accept failed")
		return nil, aerr
	}
	r.remove(requestID)
	entry.Info("request accepted")

	res := &AcceptResult{Request: *accepted}
	if r.chain {
		bookID := accepted.BookID()
		if bookID == "" && local != nil {
			bookID = local.BookID()
		}
		rec, err := r.materialize(ctx, requestID, bookID)
		if err != nil {
			return res, err
		}
		res.Record = rec
	}

	r.refetch(ctx)
	return res, nil
}

// RetryMaterialize re-runs only the record creation for a request whose
// earlier Accept returned *MaterializeError.
func (r *Reviewer) RetryMaterialize(ctx context.Context, requestID int64) (*api.BorrowingRecord, error) {
	r.mu.Lock()
	bookID, ok := r.unmaterialized[requestID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNothingToRetry
	}
	return r.Materialize(ctx, requestID, bookID)
}

// Materialize creates the borrowing record for an already accepted
// request. It is the second step of Accept on its own, for callers that
// know the book id from elsewhere.
func (r *Reviewer) Materialize(ctx context.Context, requestID int64, bookID string) (*api.BorrowingRecord, error) {
	if !r.sess.Authenticated() {
		return nil, api.ErrAuthRequired
	}
	ctx, done, err := r.guard.Begin(ctx, inflight.Key(inflight.KindAccept, requestID))
	if err != nil {
		return nil, err
	}
	defer done()

	rec, err := r.materialize(ctx, requestID, bookID)
	if err != nil {
		return nil, err
	}
	r.refetch(ctx)
	return rec, nil
}

// Unmaterialized returns the ids of accepted requests that still have no
// borrowing record, in ascending order.
func (r *Reviewer) Unmaterialized() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.unmaterialized))
	for id := range r.unmaterialized {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Reviewer) materialize(ctx context.Context, requestID int64, bookID string) (*api.BorrowingRecord, error) {
	entry := logger.Log.WithFields(logrus.Fields{"request": requestID, "book": bookID})

	if bookID == "" {
		// Nothing to retry with; only an explicit book id can create it.
		merr := &MaterializeError{RequestID: requestID, Err: ErrNoBookID}
		r.mu.Lock()
		delete(r.unmaterialized, requestID)
		r.err = ReviewMessage(merr)
		r.mu.Unlock()
		entry.Error("accepted request names no book; borrowing record not created")
		return nil, merr
	}

	rec, err := r.backend.BorrowBook(ctx, r.sess.Credential(), bookID)
	if err != nil {
		merr := &MaterializeError{RequestID: requestID, BookID: bookID, Err: err}
		r.mu.Lock()
		r.unmaterialized[requestID] = bookID
		r.err = ReviewMessage(merr)
		r.mu.Unlock()
		entry.WithError(err).Error("borrowing record not created for accepted request")
		return nil, merr
	}

	r.mu.Lock()
	delete(r.unmaterialized, requestID)
	r.err = ""
	r.mu.Unlock()
	entry.WithField("record", rec.ID).Info("borrowing record created")
	return rec, nil
}

// refetch reloads the pending list after a successful mutation. A failure
// keeps the locally pruned list.
func (r *Reviewer) refetch(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		logger.Log.WithError(err).Warn("pending list refetch failed")
	}
}

func (r *Reviewer) find(requestID int64) *api.BorrowRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.pending {
		if r.pending[i].ID == requestID {
			cp := r.pending[i]
			return &cp
		}
	}
	return nil
}

func (r *Reviewer) remove(requestID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending[:0:0]
	for _, req := range r.pending {
		if req.ID != requestID {
			out = append(out, req)
		}
	}
	r.pending = out
	r.err = ""
}

func (r *Reviewer) setErr(err error) {
	r.mu.Lock()
	r.err = ReviewMessage(err)
	r.mu.Unlock()
}
