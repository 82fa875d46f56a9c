package borrow_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/api/apitest"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []api.BorrowingRecord {
	when := "2024-03-01T10:00:00Z"
	return []api.BorrowingRecord{
		{ID: 1, User: "alice", Book: "B1", BookTitle: "X", IsReturned: true, ReturnDate: &when},
		{ID: 2, User: "bob", Book: "B2", BookTitle: "Dune"},
		{ID: 3, User: "carol", Book: "B2", BookTitle: "Dune", IsReturned: true, ReturnDate: &when},
		{ID: 4, User: "alice", Book: "B2", BookTitle: "Dune"},
	}
}

func recordIDs(recs []api.BorrowingRecord) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestRecordFilterStatusIsExact(t *testing.T) {
	recs := sampleRecords()

	all := borrow.RecordFilter{Status: borrow.StatusAll}.Apply(recs)
	require.Equal(t, []int64{1, 2, 3, 4}, recordIDs(all))

	returned := borrow.RecordFilter{Status: borrow.StatusReturned}.Apply(recs)
	require.Equal(t, []int64{1, 3}, recordIDs(returned))
	for _, r := range returned {
		require.True(t, r.IsReturned)
	}

	open := borrow.RecordFilter{Status: borrow.StatusNotReturned}.Apply(recs)
	require.Equal(t, []int64{2, 4}, recordIDs(open))
	for _, r := range open {
		require.False(t, r.IsReturned)
	}
}

func TestRecordFilterSearch(t *testing.T) {
	recs := sampleRecords()
	require.Equal(t, []int64{1, 4}, recordIDs(borrow.RecordFilter{Search: "ALICE"}.Apply(recs)))
	require.Equal(t, []int64{2, 3, 4}, recordIDs(borrow.RecordFilter{Search: "dun"}.Apply(recs)))
	require.Equal(t, []int64{4}, recordIDs(borrow.RecordFilter{Search: "alice", Status: borrow.StatusNotReturned}.Apply(recs)))
	require.Empty(t, borrow.RecordFilter{Search: "zzz"}.Apply(recs))
}

func TestParseReturnStatus(t *testing.T) {
	tests := map[string]borrow.ReturnStatus{
		"":             borrow.StatusAll,
		"all":          borrow.StatusAll,
		"Returned":     borrow.StatusReturned,
		"not_returned": borrow.StatusNotReturned,
		"not-returned": borrow.StatusNotReturned,
	}
	for in, want := range tests {
		got, err := borrow.ParseReturnStatus(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := borrow.ParseReturnStatus("lost")
	require.Error(t, err)

	require.Equal(t, borrow.StatusReturned, borrow.StatusAll.Next())
	require.Equal(t, borrow.StatusAll, borrow.StatusNotReturned.Next())
	require.Equal(t, "not_returned", borrow.StatusNotReturned.String())
}

func newRecords(t *testing.T) (*apitest.Backend, *borrow.Records) {
	t.Helper()
	b := newBackend(t)
	b.Records = sampleRecords()
	r := borrow.NewRecords(api.New(b.URL()), adminSession(b), nil)
	require.NoError(t, r.Refresh(context.Background()))
	return b, r
}

func TestRecordsRefresh(t *testing.T) {
	_, r := newRecords(t)
	require.True(t, r.Loaded())
	require.Equal(t, 4, r.Total())

	r.SetFilter(borrow.RecordFilter{Status: borrow.StatusReturned})
	require.Len(t, r.Visible(), 2)
	require.Len(t, r.All(), 4)
}

func TestMarkReturnedNeedsConfirmation(t *testing.T) {
	b, r := newRecords(t)
	ctx := context.Background()

	require.ErrorIs(t, r.MarkReturned(ctx, 2, nil), borrow.ErrNotConfirmed)
	var asked api.BorrowingRecord
	err := r.MarkReturned(ctx, 2, func(rec api.BorrowingRecord) bool {
		asked = rec
		return false
	})
	require.ErrorIs(t, err, borrow.ErrNotConfirmed)
	require.Equal(t, "Dune", asked.BookTitle)
	require.Empty(t, borrow.ReturnMessage(err))
	require.Zero(t, b.Calls(apitest.RouteReturn))
}

func TestMarkReturnedRefetches(t *testing.T) {
	b, r := newRecords(t)
	ctx := context.Background()
	yes := func(api.BorrowingRecord) bool { return true }

	require.NoError(t, r.MarkReturned(ctx, 2, yes))
	require.Equal(t, 1, b.Calls(apitest.RouteReturn))
	require.Equal(t, 2, b.Calls(apitest.RouteRecords))

	rec, ok := r.Find(2)
	require.True(t, ok)
	require.True(t, rec.IsReturned)

	require.ErrorIs(t, r.MarkReturned(ctx, 2, yes), borrow.ErrAlreadyReturned)
	require.ErrorIs(t, r.MarkReturned(ctx, 99, yes), api.ErrNotFound)
	require.Equal(t, 1, b.Calls(apitest.RouteReturn))
}

func TestMarkReturnedFailure(t *testing.T) {
	b, r := newRecords(t)
	b.FailRoute(apitest.RouteReturn, http.StatusInternalServerError)

	err := r.MarkReturned(context.Background(), 4, func(api.BorrowingRecord) bool { return true })
	require.Error(t, err)
	require.Equal(t, borrow.MsgReturnFailed, borrow.ReturnMessage(err))
	require.Equal(t, borrow.MsgReturnFailed, r.Err())
	require.Equal(t, 1, b.Calls(apitest.RouteRecords))

	rec, _ := r.Find(4)
	require.False(t, rec.IsReturned)
}

func TestOwnRecords(t *testing.T) {
	b := newBackend(t)
	b.Records = sampleRecords()
	r := borrow.NewRecords(api.New(b.URL()), userSession(b), nil, borrow.OwnRecords())

	require.NoError(t, r.Refresh(context.Background()))
	require.Equal(t, []int64{1, 4}, recordIDs(r.All()))
	require.Equal(t, 2, r.Total())
	require.Zero(t, b.Calls(apitest.RouteRecords))
}

func TestRecordsRequireCredential(t *testing.T) {
	b := newBackend(t)
	r := borrow.NewRecords(api.New(b.URL()), session.Anonymous, nil)
	require.ErrorIs(t, r.Refresh(context.Background()), api.ErrAuthRequired)
	require.ErrorIs(t, r.MarkReturned(context.Background(), 1, func(api.BorrowingRecord) bool { return true }), api.ErrAuthRequired)
	require.Zero(t, b.TotalCalls())
}

func TestMarkReturnedStaleList(t *testing.T) {
	b, r := newRecords(t)
	b.FailRoute(apitest.RouteRecords, http.StatusBadGateway)

	err := r.MarkReturned(context.Background(), 4, func(api.BorrowingRecord) bool { return true })
	require.ErrorIs(t, err, borrow.ErrStale)
	require.Equal(t, 1, b.Calls(apitest.RouteReturn))

	// The list on screen is the one from before the return.
	rec, _ := r.Find(4)
	require.False(t, rec.IsReturned)
}
