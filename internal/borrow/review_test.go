package borrow_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/api/apitest"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/stretchr/testify/require"
)

func seedPending(b *apitest.Backend, ids ...int64) {
	for _, id := range ids {
		b.Pending = append(b.Pending, api.BorrowRequest{
			ID:         id,
			User:       "bob",
			Book:       "B2",
			BookDetail: b.Books[1],
		})
	}
}

func adminSession(b *apitest.Backend) session.Session {
	return session.Session{Token: b.Token, Username: "admin", Admin: true}
}

func pendingIDs(reqs []api.BorrowRequest) []int64 {
	out := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.ID)
	}
	return out
}

func TestAcceptRemovesExactlyThatRequest(t *testing.T) {
	b := newBackend(t)
	seedPending(b, 41, 42, 43)
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil)
	ctx := context.Background()
	require.NoError(t, r.Refresh(ctx))

	// Keep the refetch from masking the local removal.
	b.FailRoute(apitest.RoutePending, http.StatusInternalServerError)

	res, err := r.Accept(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	require.Equal(t, "B2", res.Record.Book)
	require.Equal(t, []int64{41, 43}, pendingIDs(r.Pending()))
}

func TestAcceptChainsRecordAndRefetches(t *testing.T) {
	b := newBackend(t)
	seedPending(b, 7)
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil)
	ctx := context.Background()
	require.NoError(t, r.Refresh(ctx))

	_, err := r.Accept(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, b.Calls(apitest.RouteAccept))
	require.Equal(t, 1, b.Calls(apitest.RouteBorrow))
	require.Equal(t, 2, b.Calls(apitest.RoutePending))
	require.Equal(t, 1, b.RecordCount())
	require.Empty(t, r.Pending())
	require.Empty(t, r.Err())
}

func TestAcceptThenRecordFailureIsDistinct(t *testing.T) {
	b := newBackend(t)
	seedPending(b, 41, 42)
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil)
	ctx := context.Background()
	require.NoError(t, r.Refresh(ctx))

	b.FailRoute(apitest.RouteBorrow, http.StatusBadRequest)
	res, err := r.Accept(ctx, 42)

	var merr *borrow.MaterializeError
	require.ErrorAs(t, err, &merr)
	var aerr *borrow.AcceptError
	require.False(t, errors.As(err, &aerr))
	require.EqualValues(t, 42, merr.RequestID)
	require.Equal(t, "B2", merr.BookID)
	require.NotNil(t, res)

	require.Equal(t, []int64{41}, pendingIDs(r.Pending()))
	require.Equal(t, []int64{42}, r.Unmaterialized())
	require.NotEqual(t, borrow.MsgAcceptFailed, borrow.ReviewMessage(err))
	require.Contains(t, r.Err(), "Request 42 was accepted")
	require.Zero(t, b.RecordCount())
}

func TestRetryMaterialize(t *testing.T) {
	b := newBackend(t)
	seedPending(b, 42)
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil)
	ctx := context.Background()
	require.NoError(t, r.Refresh(ctx))

	b.FailRoute(apitest.RouteBorrow, http.StatusInternalServerError)
	_, err := r.Accept(ctx, 42)
	require.Error(t, err)

	_, err = r.RetryMaterialize(ctx, 42)
	var merr *borrow.MaterializeError
	require.ErrorAs(t, err, &merr)
	require.Equal(t, 1, b.Calls(apitest.RouteAccept))

	b.FailRoute(apitest.RouteBorrow, 0)
	rec, err := r.RetryMaterialize(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "B2", rec.Book)
	require.Empty(t, r.Unmaterialized())
	require.Equal(t, 1, b.Calls(apitest.RouteAccept))

	_, err = r.RetryMaterialize(ctx, 42)
	require.ErrorIs(t, err, borrow.ErrNothingToRetry)
}

func TestAcceptWithoutBookIDIsNotRetryable(t *testing.T) {
	b := newBackend(t)
	b.Pending = append(b.Pending, api.BorrowRequest{ID: 50, User: "bob"})
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil)
	ctx := context.Background()
	require.NoError(t, r.Refresh(ctx))

	_, err := r.Accept(ctx, 50)
	var merr *borrow.MaterializeError
	require.ErrorAs(t, err, &merr)
	require.ErrorIs(t, err, borrow.ErrNoBookID)
	require.Zero(t, b.Calls(apitest.RouteBorrow))
	require.Empty(t, r.Unmaterialized())
	require.Contains(t, borrow.ReviewMessage(err), "--book <book-id>")

	_, err = r.RetryMaterialize(ctx, 50)
	require.ErrorIs(t, err, borrow.ErrNothingToRetry)
}

func TestAcceptFailureKeepsRequest(t *testing.T) {
	b := newBackend(t)
	seedPending(b, 5)
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil)
	ctx := context.Background()
	require.NoError(t, r.Refresh(ctx))

	b.FailRoute(apitest.RouteAccept, http.StatusInternalServerError)
	_, err := r.Accept(ctx, 5)

	var aerr *borrow.AcceptError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, borrow.MsgAcceptFailed, borrow.ReviewMessage(err))
	require.Equal(t, []int64{5}, pendingIDs(r.Pending()))
	require.Zero(t, b.Calls(apitest.RouteBorrow))
}

func TestAcceptWithoutRecord(t *testing.T) {
	b := newBackend(t)
	seedPending(b, 9)
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil, borrow.WithoutRecord())
	ctx := context.Background()
	require.NoError(t, r.Refresh(ctx))

	res, err := r.Accept(ctx, 9)
	require.NoError(t, err)
	require.Nil(t, res.Record)
	require.Zero(t, b.Calls(apitest.RouteBorrow))
	require.Empty(t, r.Pending())
}

func TestMaterializeAcrossProcesses(t *testing.T) {
	b := newBackend(t)
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil)

	rec, err := r.Materialize(context.Background(), 42, "B1")
	require.NoError(t, err)
	require.Equal(t, "B1", rec.Book)
	require.Zero(t, b.Calls(apitest.RouteAccept))
}

func TestReviewerRequiresCredential(t *testing.T) {
	b := newBackend(t)
	r := borrow.NewReviewer(api.New(b.URL()), session.Anonymous, nil)

	require.ErrorIs(t, r.Refresh(context.Background()), api.ErrAuthRequired)
	_, err := r.Accept(context.Background(), 1)
	require.ErrorIs(t, err, api.ErrAuthRequired)
	require.Zero(t, b.TotalCalls())
}

func TestRefreshFailureKeepsList(t *testing.T) {
	b := newBackend(t)
	seedPending(b, 1, 2)
	r := borrow.NewReviewer(api.New(b.URL()), adminSession(b), nil)
	require.NoError(t, r.Refresh(context.Background()))

	b.FailRoute(apitest.RoutePending, http.StatusForbidden)
	require.ErrorIs(t, r.Refresh(context.Background()), api.ErrForbidden)
	require.Equal(t, borrow.MsgNotAuthorized, r.Err())
	require.Len(t, r.Pending(), 2)
}
