package unified

import (
	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/profile"
)

// NavigateMsg is emitted when a view wants to navigate to another view
type NavigateMsg struct {
	Target string      // The target view ("browse", "requests", "hub", etc.)
	Data   interface{} // Optional data to pass to the target view
}

// QuitAppMsg is emitted when the entire application should quit
type QuitAppMsg struct{}

// Results of background calls. Each carries the error of the call; the
// data itself lives in the workflow object that made it.

type hubLoadedMsg struct {
	books, copies, pending int
	err                    error
}

type booksLoadedMsg struct{ err error }

type requestSentMsg struct {
	bookID string
	err    error
}

type bookSavedMsg struct {
	book *api.Book
	err  error
}

type bookDeletedMsg struct {
	bookID string
	err    error
}

type requestsLoadedMsg struct{ err error }

type acceptedMsg struct {
	requestID int64
	result    *borrow.AcceptResult
	err       error
}

type materializedMsg struct {
	requestID int64
	record    *api.BorrowingRecord
	err       error
}

type recordsLoadedMsg struct{ err error }

type returnedMsg struct {
	recordID int64
	err      error
}

type profileLoadedMsg struct {
	state profile.State
	err   error
}

type profileSavedMsg struct{ err error }

// openGateMsg asks the shell to show the profile form over the current view.
type openGateMsg struct{}

// loginRequiredMsg is sent when the backend rejected the credential.
type loginRequiredMsg struct{ reason string }
