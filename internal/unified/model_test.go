package unified

import (
	"context"
	"net/http"
	"testing"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/api/apitest"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
)

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newBackend(t *testing.T) *apitest.Backend {
	t.Helper()
	b := apitest.New(t)
	b.Books = []api.Book{
		{BookID: "DUNE", Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", Quantity: 3, AvailableQuantity: 2},
		{BookID: "SICP", Title: "SICP", Author: "Abelson", Category: "Computer Science", Quantity: 1},
	}
	return b
}

func completeProfile(b *apitest.Backend) {
	b.Profile.Fullname = "Alice Liddell"
	b.Profile.Role = "Student"
	b.Profile.Course = "BSIT"
	b.Profile.Address = "Wonderland"
	b.Profile.Birthdate = "2001-02-03"
}

func memberSession(b *apitest.Backend) session.Session {
	return session.Session{Token: b.Token, Username: "alice"}
}

func adminSession(b *apitest.Backend) session.Session {
	return session.Session{Token: b.Token, Username: "root", Admin: true}
}

func newModel(b *apitest.Backend, sess session.Session) Model {
	return New(context.Background(), Deps{Client: api.New(b.URL()), Session: sess, Guard: inflight.New()})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out, cmd
}

// runCmd executes a single async command and feeds its message back.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func TestHubMenuFollowsSession(t *testing.T) {
	b := newBackend(t)

	admin := newModel(b, adminSession(b))
	admin, _ = update(t, admin, tea.WindowSizeMsg{Width: 120, Height: 40})
	view := admin.View()
	require.Contains(t, view, "Borrow Requests")
	require.Contains(t, view, "Add Book")
	require.NotContains(t, view, "Log In")

	anon := newModel(b, session.Anonymous)
	anon, _ = update(t, anon, tea.WindowSizeMsg{Width: 120, Height: 40})
	view = anon.View()
	require.Contains(t, view, "Log In")
	require.NotContains(t, view, "Borrow Requests")
}

func TestHubLoadShowsCounts(t *testing.T) {
	b := newBackend(t)
	b.Pending = []api.BorrowRequest{{ID: 1, Book: "DUNE", Status: "pending"}}
	m := newModel(b, adminSession(b))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m = runCmd(t, m, loadHub(m.ctx, m.catalog, m.reviewer, m.deps.Session))
	view := m.View()
	require.Contains(t, view, "2 books")
	require.Contains(t, view, "4 copies")
	require.Contains(t, view, "1 pending")
}

func TestUnauthorizedLoadAsksForLogin(t *testing.T) {
	b := newBackend(t)
	m := newModel(b, memberSession(b))

	m, _ = update(t, m, hubLoadedMsg{err: api.ErrUnauthorized})
	require.Equal(t, ViewLogin, m.currentView)
	require.Contains(t, m.View(), "Log in required")

	m, cmd := update(t, m, enterKey)
	m, cmd = update(t, m, cmd())
	require.Equal(t, "login", m.GetPendingCommand())
	require.NotNil(t, cmd)
}

func TestQuitLeavesNoPendingCommand(t *testing.T) {
	b := newBackend(t)
	m := newModel(b, session.Anonymous)

	m, cmd := update(t, m, runeKey("q"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, QuitAppMsg{}, msg)
	m, _ = update(t, m, msg)
	require.Empty(t, m.GetPendingCommand())
}

func TestIncompleteProfileOpensGate(t *testing.T) {
	b := newBackend(t)
	m := newModel(b, memberSession(b))

	m = runCmd(t, m, loadProfile(m.ctx, m.gate))
	require.True(t, m.gated)
	require.Contains(t, m.View(), gateNotice)
	require.Contains(t, m.View(), "Missing: fullname")

	// Keys go to the form, not the hub underneath.
	m, _ = update(t, m, runeKey("q"))
	require.True(t, m.gated)
	require.Equal(t, ViewHub, m.currentView)

	// The gate cannot be dismissed.
	m, _ = update(t, m, escKey)
	require.True(t, m.gated)
	require.False(t, m.profile.form.Canceled())

	m, _ = update(t, m, profileSavedMsg{})
	require.False(t, m.gated)
}

func TestCompleteProfileSkipsGate(t *testing.T) {
	b := newBackend(t)
	completeProfile(b)
	m := newModel(b, memberSession(b))

	m = runCmd(t, m, loadProfile(m.ctx, m.gate))
	require.False(t, m.gated)
}

func TestAdminIsNeverGated(t *testing.T) {
	b := newBackend(t)
	m := newModel(b, adminSession(b))
	require.False(t, m.needsGate())
}

func TestNavigateToRecords(t *testing.T) {
	b := newBackend(t)
	b.Records = []api.BorrowingRecord{
		{ID: 2, User: "alice", Book: "DUNE", BookTitle: "Dune", BorrowDate: "2024-03-01"},
		{ID: 3, User: "bob", Book: "SICP", BookTitle: "SICP", BorrowDate: "2024-03-02"},
	}

	admin := newModel(b, adminSession(b))
	admin, cmd := update(t, admin, NavigateMsg{Target: string(ViewRecords)})
	require.Equal(t, ViewRecords, admin.currentView)
	admin = runCmd(t, admin, cmd)
	view := admin.View()
	require.Contains(t, view, "Borrowing Records")
	require.Contains(t, view, "2 of 2 records")

	member := newModel(b, memberSession(b))
	member, cmd = update(t, member, NavigateMsg{Target: string(ViewMyRecords)})
	member = runCmd(t, member, cmd)
	view = member.View()
	require.Contains(t, view, "My Books")
	require.Contains(t, view, "1 of 1 records")
	require.Equal(t, 1, b.Calls(apitest.RouteMyRecords))
}

func TestUnknownTargetStaysPut(t *testing.T) {
	b := newBackend(t)
	m := newModel(b, session.Anonymous)
	m, cmd := update(t, m, NavigateMsg{Target: "nowhere"})
	require.Equal(t, ViewHub, m.currentView)
	require.Nil(t, cmd)
}

func TestReturnNeedsConfirmation(t *testing.T) {
	b := newBackend(t)
	b.Records = []api.BorrowingRecord{
		{ID: 2, User: "alice", Book: "SICP", BookTitle: "SICP", BorrowDate: "2024-03-01"},
	}
	m := newModel(b, adminSession(b))
	m, cmd := update(t, m, NavigateMsg{Target: string(ViewRecords)})
	m = runCmd(t, m, cmd)

	m, _ = update(t, m, enterKey)
	require.Equal(t, recordsConfirm, m.recs.phase)
	require.Contains(t, m.View(), returnQuestion)

	m, _ = update(t, m, runeKey("n"))
	require.Equal(t, recordsList, m.recs.phase)
	require.Zero(t, b.Calls(apitest.RouteReturn))

	m, _ = update(t, m, enterKey)
	m, cmd = update(t, m, runeKey("y"))
	m = runCmd(t, m, cmd)
	require.Equal(t, 1, b.Calls(apitest.RouteReturn))
	require.Equal(t, "Record 2 marked returned", m.recs.notice)
	require.Empty(t, m.recs.err)
	require.Equal(t, 1, b.Books[1].AvailableQuantity)
}

func TestReturnedRecordCannotBeReturnedAgain(t *testing.T) {
	b := newBackend(t)
	when := "2024-03-05"
	b.Records = []api.BorrowingRecord{
		{ID: 9, User: "bob", Book: "DUNE", BookTitle: "Dune", IsReturned: true, ReturnDate: &when},
	}
	m := newModel(b, adminSession(b))
	m, cmd := update(t, m, NavigateMsg{Target: string(ViewRecords)})
	m = runCmd(t, m, cmd)

	m, _ = update(t, m, enterKey)
	require.Equal(t, recordsList, m.recs.phase)
	require.Equal(t, borrow.ReturnMessage(borrow.ErrAlreadyReturned), m.recs.err)
}

func openBrowse(t *testing.T, b *apitest.Backend, sess session.Session) Model {
	t.Helper()
	m := newModel(b, sess)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, cmd := update(t, m, NavigateMsg{Target: string(ViewBrowse)})
	require.Equal(t, ViewBrowse, m.currentView)
	return runCmd(t, m, cmd)
}

func TestBrowseRequestAnonymous(t *testing.T) {
	b := newBackend(t)
	m := openBrowse(t, b, session.Anonymous)
	require.Contains(t, m.View(), "Dune")

	m, cmd := update(t, m, runeKey("r"))
	require.Nil(t, cmd)
	require.Equal(t, borrow.MsgLoginRequired, m.browse.err)
	require.Zero(t, b.Calls(apitest.RouteCreateRequest))
}

func TestBrowseRequestIncompleteProfileOpensGate(t *testing.T) {
	b := newBackend(t)
	m := openBrowse(t, b, memberSession(b))
	_, err := m.gate.Load(m.ctx)
	require.NoError(t, err)

	m, cmd := update(t, m, runeKey("r"))
	require.NotNil(t, cmd)
	require.IsType(t, openGateMsg{}, cmd())
	require.Zero(t, b.Calls(apitest.RouteCreateRequest))
}

func TestBrowseRequestSent(t *testing.T) {
	b := newBackend(t)
	completeProfile(b)
	m := openBrowse(t, b, memberSession(b))
	_, err := m.gate.Load(m.ctx)
	require.NoError(t, err)

	m, cmd := update(t, m, runeKey("r"))
	m = runCmd(t, m, cmd)
	require.Equal(t, 1, b.Calls(apitest.RouteCreateRequest))
	require.Equal(t, borrow.MsgSubmitted, m.browse.notice)
	require.Equal(t, []int64{101}, b.PendingIDs())
	require.True(t, m.browse.requested["DUNE"])
}

func TestBrowseRequestRefusedWhenProfileCheckFails(t *testing.T) {
	b := newBackend(t)
	b.FailRoute(apitest.RouteProfile, http.StatusInternalServerError)
	m := openBrowse(t, b, memberSession(b))

	m = runCmd(t, m, loadProfile(m.ctx, m.gate))
	require.False(t, m.gated)

	m, cmd := update(t, m, runeKey("r"))
	require.Zero(t, b.Calls(apitest.RouteCreateRequest))
	require.Equal(t, m.gate.Err(), m.browse.err)
	require.NotEmpty(t, m.browse.err)

	// The refusal retries the profile check; once it loads complete the
	// request goes through.
	b.FailRoute(apitest.RouteProfile, 0)
	completeProfile(b)
	m = runCmd(t, m, cmd)
	require.False(t, m.gated)

	m, cmd = update(t, m, runeKey("r"))
	m = runCmd(t, m, cmd)
	require.Equal(t, 1, b.Calls(apitest.RouteCreateRequest))
	require.Equal(t, borrow.MsgSubmitted, m.browse.notice)
}

func TestBrowseRequestWaitsForProfileCheck(t *testing.T) {
	b := newBackend(t)
	completeProfile(b)
	m := openBrowse(t, b, memberSession(b))

	m, cmd := update(t, m, runeKey("r"))
	require.Nil(t, cmd)
	require.Equal(t, msgProfileLoading, m.browse.notice)
	require.Zero(t, b.Calls(apitest.RouteCreateRequest))
}

func TestCanceledRecordCreationIsReportedAsUnmaterialized(t *testing.T) {
	b := newBackend(t)
	m := newModel(b, adminSession(b))
	m, cmd := update(t, m, NavigateMsg{Target: string(ViewRequests)})
	m = runCmd(t, m, cmd)

	err := &borrow.MaterializeError{RequestID: 42, BookID: "DUNE", Err: context.Canceled}
	m, _ = update(t, m, acceptedMsg{requestID: 42, err: err})
	require.Empty(t, m.requests.notice)
	require.Equal(t, borrow.ReviewMessage(err), m.requests.err)
	require.Contains(t, m.requests.err, "Request 42 was accepted")
}
