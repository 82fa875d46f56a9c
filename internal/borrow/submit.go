package borrow

import (
	"context"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/sirupsen/logrus"
)

// RequestCreator creates borrow requests.
type RequestCreator interface {
	CreateRequest(ctx context.Context, token, bookID string) (*api.BorrowRequest, error)
}

// Submitter sends borrow requests on a user's behalf.
type Submitter struct {
	backend RequestCreator
	guard   *inflight.Guard
}

// NewSubmitter creates a Submitter. guard may be shared with other
// workflows; keys do not collide.
func NewSubmitter(backend RequestCreator, guard *inflight.Guard) *Submitter {
	if guard == nil {
		guard = inflight.New()
	}
	return &Submitter{backend: backend, guard: guard}
}

// Submit asks to borrow bookID. Availability is not touched locally; the
// catalog shows the backend's numbers on its next fetch.
func (s *Submitter) Submit(ctx context.Context, sess session.Session, bookID string) (*api.BorrowRequest, error) {
	if !sess.Authenticated() {
		return nil, api.ErrAuthRequired
	}
	ctx, done, err := s.guard.Begin(ctx, inflight.Key(inflight.KindRequest, bookID))
	if err != nil {
		return nil, err
	}
	defer done()

	req, err := s.backend.CreateRequest(ctx, sess.Credential(), bookID)
	entry := logger.Log.WithFields(logrus.Fields{"book": bookID, "user": sess.Username})
	if err != nil {
		entry.WithError(err).Warn("borrow request failed")
		return nil, err
	}
	entry.WithField("request", req.ID).Info("borrow request sent")
	return req, nil
}

// Busy reports whether a request for bookID is in flight.
func (s *Submitter) Busy(bookID string) bool {
	return s.guard.Busy(inflight.Key(inflight.KindRequest, bookID))
}
