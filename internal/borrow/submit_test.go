package borrow_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/api/apitest"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *apitest.Backend {
	t.Helper()
	b := apitest.New(t)
	b.Books = []api.Book{
		{BookID: "B1", Title: "X", Author: "A", Quantity: 3, AvailableQuantity: 1},
		{BookID: "B2", Title: "Dune", Author: "Herbert", Quantity: 2, AvailableQuantity: 2},
	}
	return b
}

func userSession(b *apitest.Backend) session.Session {
	return session.Session{Token: b.Token, Username: "alice"}
}

func TestSubmitWithoutCredentialSendsNothing(t *testing.T) {
	b := newBackend(t)
	s := borrow.NewSubmitter(api.New(b.URL()), nil)

	for _, sess := range []session.Session{session.Anonymous, {Username: "alice", Token: "   "}} {
		_, err := s.Submit(context.Background(), sess, "B1")
		require.ErrorIs(t, err, api.ErrAuthRequired)
		require.Equal(t, borrow.MsgLoginRequired, borrow.SubmitMessage(err))
	}
	require.Zero(t, b.TotalCalls())
}

func TestSubmit(t *testing.T) {
	b := newBackend(t)
	s := borrow.NewSubmitter(api.New(b.URL()), nil)

	req, err := s.Submit(context.Background(), userSession(b), "B1")
	require.NoError(t, err)
	require.Equal(t, "B1", req.BookID())
	require.Equal(t, borrow.MsgSubmitted, borrow.SubmitMessage(nil))
	require.Equal(t, 1, b.Calls(apitest.RouteCreateRequest))
	require.False(t, s.Busy("B1"))
}

func TestSubmitDuplicatesAreAccepted(t *testing.T) {
	b := newBackend(t)
	s := borrow.NewSubmitter(api.New(b.URL()), nil)
	ctx := context.Background()

	_, err := s.Submit(ctx, userSession(b), "B1")
	require.NoError(t, err)
	_, err = s.Submit(ctx, userSession(b), "B1")
	require.NoError(t, err)
	require.Len(t, b.PendingIDs(), 2)
}

func TestSubmitMessages(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, borrow.MsgNotAuthorized},
		{http.StatusForbidden, borrow.MsgNotAuthorized},
		{http.StatusBadRequest, borrow.MsgSubmitFailed},
		{http.StatusInternalServerError, borrow.MsgSubmitFailed},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			b := newBackend(t)
			b.FailRoute(apitest.RouteCreateRequest, tt.status)
			s := borrow.NewSubmitter(api.New(b.URL()), nil)
			_, err := s.Submit(context.Background(), userSession(b), "B1")
			require.Error(t, err)
			require.Equal(t, tt.want, borrow.SubmitMessage(err))
		})
	}
}

func TestSubmitRefusesWhileInFlight(t *testing.T) {
	b := newBackend(t)
	b.DelayRoute(apitest.RouteCreateRequest, 300*time.Millisecond)
	guard := inflight.New()
	s := borrow.NewSubmitter(api.New(b.URL()), guard)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), userSession(b), "B1")
		errc <- err
	}()
	require.Eventually(t, func() bool { return s.Busy("B1") }, time.Second, 5*time.Millisecond)

	_, err := s.Submit(context.Background(), userSession(b), "B1")
	require.ErrorIs(t, err, inflight.ErrBusy)
	require.Equal(t, borrow.MsgAlreadyInFlight, borrow.SubmitMessage(err))

	require.NoError(t, <-errc)
	require.Equal(t, 1, b.Calls(apitest.RouteCreateRequest))
}

func TestSubmitCancel(t *testing.T) {
	b := newBackend(t)
	b.DelayRoute(apitest.RouteCreateRequest, 2*time.Second)
	guard := inflight.New()
	s := borrow.NewSubmitter(api.New(b.URL()), guard)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), userSession(b), "B1")
		errc <- err
	}()
	key := inflight.Key(inflight.KindRequest, "B1")
	require.Eventually(t, func() bool { return guard.Busy(key) }, time.Second, 5*time.Millisecond)
	require.True(t, guard.Cancel(key))

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled submit did not return")
	}
	require.False(t, s.Busy("B1"))
}
