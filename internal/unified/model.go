// Package unified is the full-screen dashboard: a hub menu that switches
// between the catalog, borrow requests, borrowing records and the profile
// form, all inside one bubbletea program.
package unified

import (
	"context"
	"errors"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// View represents the current active view
type View string

const (
	ViewHub       View = "hub"
	ViewBrowse    View = "browse"
	ViewRequests  View = "requests"
	ViewRecords   View = "records"
	ViewMyRecords View = "my-records"
	ViewBookForm  View = "book-form"
	ViewProfile   View = "profile"
	ViewLogin     View = "login"
)

// Deps are the long-lived collaborators shared by every view.
type Deps struct {
	Client  *api.Client
	Session session.Session
	Guard   *inflight.Guard
}

// Model is the unified TUI orchestrator that manages view switching
type Model struct {
	ctx         context.Context
	deps        Deps
	currentView View
	width       int
	height      int
	spin        spinner.Model

	// Workflow state shared across views.
	catalog   *catalog.View
	manager   *catalog.Manager
	submitter *borrow.Submitter
	reviewer  *borrow.Reviewer
	records   *borrow.Records
	gate      *profile.Gate

	// View models
	hub      HubModel
	browse   BrowseModel
	requests RequestsModel
	recs     RecordsModel
	bookForm BookFormModel
	profile  ProfileModel
	login    LoginModel

	// gated is set while the profile form is shown over the current view.
	gated bool

	pendingCommand string
}

// New creates a unified model starting at the hub.
func New(ctx context.Context, deps Deps) Model {
	return NewAtView(ctx, deps, ViewHub)
}

// NewAtView creates a unified model starting at the given view.
func NewAtView(ctx context.Context, deps Deps, start View) Model {
	if deps.Guard == nil {
		deps.Guard = inflight.New()
	}
	sess := deps.Session
	view := catalog.NewView(deps.Client)

	var recOpts []borrow.RecordsOption
	if !sess.Admin {
		recOpts = append(recOpts, borrow.OwnRecords())
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:         ctx,
		deps:        deps,
		currentView: ViewHub,
		spin:        sp,
		catalog:     view,
		manager:     catalog.NewManager(deps.Client, view),
		submitter:   borrow.NewSubmitter(deps.Client, deps.Guard),
		reviewer:    borrow.NewReviewer(deps.Client, sess, deps.Guard),
		records:     borrow.NewRecords(deps.Client, sess, deps.Guard, recOpts...),
		gate:        profile.NewGate(deps.Client, sess, deps.Guard),
	}
	m.hub = NewHubModel(sess)
	if start != ViewHub {
		if v, next := m.open(start, nil); v != "" {
			next.currentView = v
			m = next
		}
	}
	return m
}

// GetPendingCommand returns the command to run after the program exits,
// or "" when the user simply quit.
func (m Model) GetPendingCommand() string {
	return m.pendingCommand
}

// needsGate reports whether this session must pass the profile gate.
func (m Model) needsGate() bool {
	return m.deps.Session.Authenticated() && !m.deps.Session.Admin
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, loadHub(m.ctx, m.catalog, m.reviewer, m.deps.Session)}
	if m.needsGate() {
		cmds = append(cmds, loadProfile(m.ctx, m.gate))
	}
	switch m.currentView {
	case ViewBrowse:
		cmds = append(cmds, m.browse.Init())
	case ViewRequests:
		cmds = append(cmds, m.requests.Init())
	case ViewRecords, ViewMyRecords:
		cmds = append(cmds, m.recs.Init())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.hub = m.hub.Resize(msg.Width, msg.Height)
		if m.currentView == ViewBrowse {
			m.browse = m.browse.Resize(msg.Width, msg.Height)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.deps.Guard.CancelAll()
			return m, tea.Quit
		}
		// The profile form owns the keyboard while the gate is closed.
		if m.gated {
			var cmd tea.Cmd
			m.profile, cmd = m.profile.Update(msg)
			return m, cmd
		}

	case NavigateMsg:
		return m.handleNavigation(msg)

	case QuitAppMsg:
		m.deps.Guard.CancelAll()
		return m, tea.Quit

	case hubLoadedMsg:
		if api.IsUnauthorized(msg.err) {
			return m.requireLogin("The catalog could not be loaded with your saved session.")
		}
		m.hub = m.hub.SetContext(msg)
		if m.currentView == ViewBrowse {
			m.browse = m.browse.Reload()
		}
		return m, nil

	case profileLoadedMsg:
		if api.IsUnauthorized(msg.err) || errors.Is(msg.err, api.ErrAuthRequired) {
			return m.requireLogin("Your profile could not be loaded with your saved session.")
		}
		if m.currentView == ViewProfile && !m.gated {
			var cmd tea.Cmd
			m.profile, cmd = m.profile.Update(msg)
			return m, cmd
		}
		if msg.err == nil && msg.state == profile.Incomplete {
			return m.openGate()
		}
		return m, nil

	case openGateMsg:
		return m.openGate()

	case profileSavedMsg:
		var cmd tea.Cmd
		m.profile, cmd = m.profile.Update(msg)
		if msg.err == nil && m.gated {
			m.gated = false
			logger.Log.Info("profile gate passed")
		}
		return m, cmd

	case loginRequiredMsg:
		return m.requireLogin(msg.reason)
	}

	return m.updateCurrentView(msg)
}

// openGate shows the profile form over whatever view is current. Until it
// is submitted successfully the view underneath gets no keys.
func (m Model) openGate() (tea.Model, tea.Cmd) {
	if m.gated {
		return m, nil
	}
	m.gated = true
	m.profile = NewProfileModel(m.ctx, m.deps, m.gate, true)
	return m, m.profile.Init()
}

func (m Model) requireLogin(reason string) (tea.Model, tea.Cmd) {
	m.gated = false
	m.currentView = ViewLogin
	m.login = NewLoginModel(reason, m.deps.Session)
	return m, nil
}

// updateCurrentView forwards msg to the active view. Background results
// are delivered to their view even when it is not on screen.
func (m Model) updateCurrentView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.(type) {
	case booksLoadedMsg, requestSentMsg, bookDeletedMsg:
		m.browse, cmd = m.browse.Update(msg)
		return m, cmd
	case bookSavedMsg:
		m.bookForm, cmd = m.bookForm.Update(msg)
		return m, cmd
	case requestsLoadedMsg, acceptedMsg, materializedMsg:
		m.requests, cmd = m.requests.Update(msg)
		return m, cmd
	case recordsLoadedMsg, returnedMsg:
		m.recs, cmd = m.recs.Update(msg)
		return m, cmd
	}

	switch m.currentView {
	case ViewHub:
		m.hub, cmd = m.hub.Update(msg)
	case ViewBrowse:
		m.browse, cmd = m.browse.Update(msg)
	case ViewRequests:
		m.requests, cmd = m.requests.Update(msg)
	case ViewRecords, ViewMyRecords:
		m.recs, cmd = m.recs.Update(msg)
	case ViewBookForm:
		m.bookForm, cmd = m.bookForm.Update(msg)
	case ViewProfile:
		m.profile, cmd = m.profile.Update(msg)
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	}
	return m, cmd
}

func (m Model) handleNavigation(msg NavigateMsg) (tea.Model, tea.Cmd) {
	switch msg.Target {
	case "hub":
		m.currentView = ViewHub
		return m, loadHub(m.ctx, m.catalog, m.reviewer, m.deps.Session)

	case "login":
		m.pendingCommand = "login"
		m.deps.Guard.CancelAll()
		return m, tea.Quit

	case "quit":
		return m, func() tea.Msg { return QuitAppMsg{} }
	}

	view, next := m.open(View(msg.Target), msg.Data)
	if view == "" {
		// Unknown target, stay on current view
		return m, nil
	}
	next.currentView = view
	return next, next.initView(view)
}

// open builds the model for target and returns the view to show.
func (m Model) open(target View, data interface{}) (View, Model) {
	switch target {
	case ViewBrowse:
		m.browse = NewBrowseModel(m.ctx, m.deps, m.catalog, m.manager, m.submitter, m.gate)
		m.browse = m.browse.Resize(m.width, m.height)
	case ViewRequests:
		m.requests = NewRequestsModel(m.ctx, m.reviewer, m.deps.Guard)
	case ViewRecords, ViewMyRecords:
		m.recs = NewRecordsModel(m.ctx, m.records, m.deps.Session, m.deps.Guard)
	case "add-book":
		m.bookForm = NewBookFormModel(m.ctx, m.deps, m.manager, nil)
		return ViewBookForm, m
	case ViewBookForm:
		book, _ := data.(*api.Book)
		m.bookForm = NewBookFormModel(m.ctx, m.deps, m.manager, book)
	case ViewProfile:
		m.profile = NewProfileModel(m.ctx, m.deps, m.gate, false)
	default:
		return "", m
	}
	return target, m
}

func (m Model) initView(v View) tea.Cmd {
	switch v {
	case ViewBrowse:
		return m.browse.Init()
	case ViewRequests:
		return m.requests.Init()
	case ViewRecords, ViewMyRecords:
		return m.recs.Init()
	case ViewBookForm:
		return m.bookForm.Init()
	case ViewProfile:
		return m.profile.Init()
	}
	return nil
}

func (m Model) View() string {
	if m.gated {
		return m.profile.View(m.spin.View())
	}
	switch m.currentView {
	case ViewHub:
		return m.hub.View()
	case ViewBrowse:
		return m.browse.View(m.spin.View())
	case ViewRequests:
		return m.requests.View(m.spin.View())
	case ViewRecords, ViewMyRecords:
		return m.recs.View(m.spin.View())
	case ViewBookForm:
		return m.bookForm.View(m.spin.View())
	case ViewProfile:
		return m.profile.View(m.spin.View())
	case ViewLogin:
		return m.login.View()
	default:
		return "Unknown view"
	}
}

// loadHub fetches the counts shown in the hub status line.
func loadHub(ctx context.Context, view *catalog.View, rev *borrow.Reviewer, sess session.Session) tea.Cmd {
	return func() tea.Msg {
		var msg hubLoadedMsg
		if err := view.Refresh(ctx); err != nil {
			msg.err = err
			return msg
		}
		msg.books = len(view.All())
		msg.copies = view.Total()
		if sess.Admin {
			if err := rev.Refresh(ctx); err == nil {
				msg.pending = len(rev.Pending())
			}
		}
		return msg
	}
}

func loadProfile(ctx context.Context, gate *profile.Gate) tea.Cmd {
	return func() tea.Msg {
		state, err := gate.Load(ctx)
		return profileLoadedMsg{state: state, err: err}
	}
}
