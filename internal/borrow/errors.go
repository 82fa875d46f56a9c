// Package borrow implements the borrowing lifecycle: users submit borrow
// requests, admins accept them, and accepted requests become borrowing
// records that are later marked returned.
package borrow

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/inflight"
)

// User-facing messages.
const (
	MsgLoginRequired   = "You must be logged in to send a request."
	MsgNotAuthorized   = "You are not authorized to perform this action."
	MsgSubmitFailed    = "Failed to send borrow request."
	MsgSubmitted       = "Borrow request sent successfully!"
	MsgFetchRequests   = "Failed to fetch borrow requests."
	MsgAcceptFailed    = "Failed to accept request."
	MsgFetchRecords    = "Failed to fetch borrowing records."
	MsgReturnFailed    = "Failed to update return status."
	MsgAlreadyInFlight = "Still working on the previous action for this item."
)

var (
	// ErrNotConfirmed is returned by MarkReturned when the user declines.
	ErrNotConfirmed = errors.New("return not confirmed")
	// ErrAlreadyReturned is returned by MarkReturned for a closed record.
	ErrAlreadyReturned = errors.New("record is already returned")
	// ErrNothingToRetry is returned by RetryMaterialize for a request that
	// has no failed record creation on file.
	ErrNothingToRetry = errors.New("no failed borrowing record to retry for this request")
	// ErrStale is returned when a change was saved but the list could not
	// be reloaded afterwards.
	ErrStale = errors.New("saved, but reloading the list failed")
	// ErrNoBookID means an accepted request carried no book id, so its
	// record can only be created by naming the book explicitly.
	ErrNoBookID = errors.New("accepted request names no book")
)

// AcceptError is a failure of the accept call itself. The request is
// still pending.
type AcceptError struct {
	RequestID int64
	Err       error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("accept request %d: %v", e.RequestID, e.Err)
}

func (e *AcceptError) Unwrap() error { return e.Err }

// MaterializeError means the request was accepted but creating its
// borrowing record failed. The request is gone from the pending list and
// no record exists until RetryMaterialize succeeds.
type MaterializeError struct {
	RequestID int64
	BookID    string
	Err       error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("request %d was accepted but no borrowing record was created: %v", e.RequestID, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }

// SubmitMessage turns a Submit error into the text shown to the user.
func SubmitMessage(err error) string {
	switch {
	case err == nil:
		return MsgSubmitted
	case errors.Is(err, api.ErrAuthRequired):
		return MsgLoginRequired
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrForbidden):
		return MsgNotAuthorized
	case errors.Is(err, inflight.ErrBusy):
		return MsgAlreadyInFlight
	default:
		return MsgSubmitFailed
	}
}

// ReviewMessage turns a Reviewer error into the text shown to the admin.
func ReviewMessage(err error) string {
	var me *MaterializeError
	var ae *AcceptError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &me) && errors.Is(me.Err, ErrNoBookID):
		return fmt.Sprintf("Request %d was accepted but names no book, so no borrowing record was created. "+
			"Create it with: libctl accept %d --record-only --book <book-id>", me.RequestID, me.RequestID)
	case errors.As(err, &me):
		return fmt.Sprintf("Request %d was accepted but no borrowing record was created. Retry to create it.", me.RequestID)
	case errors.Is(err, inflight.ErrBusy):
		return MsgAlreadyInFlight
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrForbidden), errors.Is(err, api.ErrAuthRequired):
		return MsgNotAuthorized
	case errors.As(err, &ae):
		return MsgAcceptFailed
	default:
		return MsgFetchRequests
	}
}

// ReturnMessage turns a Records error into the text shown to the admin.
func ReturnMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfirmed):
		return ""
	case errors.Is(err, ErrAlreadyReturned):
		return "That book has already been returned."
	case errors.Is(err, inflight.ErrBusy):
		return MsgAlreadyInFlight
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrForbidden), errors.Is(err, api.ErrAuthRequired):
		return MsgNotAuthorized
	default:
		return MsgReturnFailed
	}
}
