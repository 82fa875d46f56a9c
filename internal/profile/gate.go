package profile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/sirupsen/logrus"
)

// State is the gate's position.
type State int

const (
	Incomplete State = iota // the profile form blocks the rest of the UI
	Complete
)

func (s State) String() string {
	if s == Complete {
		return "complete"
	}
	return "incomplete"
}

// Backend reads and writes the session user's profile.
type Backend interface {
	GetProfile(ctx context.Context, token string) (*api.Profile, error)
	UpdateProfile(ctx context.Context, token string, payload json.Marshaler) (*api.Profile, error)
}

// Gate blocks normal use until the user's profile is complete. Load sets
// the initial state; after that only a successful Submit moves it, and
// only from Incomplete to Complete.
type Gate struct {
	backend Backend
	sess    session.Session
	guard   *inflight.Guard

	mu      sync.Mutex
	state   State
	loaded  bool
	profile api.Profile
	err     string
}

// NewGate creates a Gate for sess. It starts Incomplete until loaded.
func NewGate(backend Backend, sess session.Session, guard *inflight.Guard) *Gate {
	if guard == nil {
		guard = inflight.New()
	}
	return &Gate{backend: backend, sess: sess, guard: guard}
}

// Load fetches the profile and evaluates completeness.
func (g *Gate) Load(ctx context.Context) (State, error) {
	if !g.sess.Authenticated() {
		g.setErr("You must be logged in.")
		return g.State(), api.ErrAuthRequired
	}
	p, err := g.backend.GetProfile(ctx, g.sess.Credential())

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.err = "Failed to fetch user information."
		return g.state, err
	}
	g.profile = *p
	g.loaded = true
	g.err = ""
	if g.state != Complete && IsComplete(*p) {
		g.state = Complete
	}
	logger.Log.WithFields(logrus.Fields{"user": p.Username, "state": g.state}).Debug("profile gate loaded")
	return g.state, nil
}

// Command builds an update for the loaded profile. Before a successful
// Load the identity is unknown and this fails with ErrIdentityMissing.
func (g *Gate) Command(fields Fields) (UpdateCommand, error) {
	g.mu.Lock()
	id := IdentityOf(g.profile)
	g.mu.Unlock()
	return NewUpdateCommand(id, fields)
}

// Submit sends cmd. On success the gate is Complete.
func (g *Gate) Submit(ctx context.Context, cmd UpdateCommand) (*api.Profile, error) {
	if !g.sess.Authenticated() {
		return nil, api.ErrAuthRequired
	}
	id := cmd.Identity()
	if len(id.missing()) > 0 {
		return nil, ErrIdentityMissing
	}
	ctx, done, err := g.guard.Begin(ctx, inflight.Key(inflight.KindProfile, id.UserID))
	if err != nil {
		return nil, err
	}
	defer done()

	p, err := g.backend.UpdateProfile(ctx, g.sess.Credential(), cmd)
	if err != nil {
		g.setErr(SubmitMessage(err))
		logger.Log.WithError(err).WithField("user", id.Username).Warn("profile update failed")
		return nil, err
	}

	g.mu.Lock()
	g.profile = *p
	if g.profile.ID == 0 {
		g.profile.ID = id.UserID
	}
	g.state = Complete
	g.loaded = true
	g.err = ""
	g.mu.Unlock()
	logger.Log.WithField("user", id.Username).Info("profile completed")
	return p, nil
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Loaded reports whether the profile has been fetched.
func (g *Gate) Loaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loaded
}

// Profile returns the last fetched or saved profile.
func (g *Gate) Profile() api.Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.profile
}

// Err returns the message of the last failure, or "".
func (g *Gate) Err() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Busy reports whether a submit is in flight.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	id := g.profile.ID
	g.mu.Unlock()
	return g.guard.Busy(inflight.Key(inflight.KindProfile, id))
}

func (g *Gate) setErr(msg string) {
	g.mu.Lock()
	g.err = msg
	g.mu.Unlock()
}

// SubmitMessage turns a Submit error into the text shown in the form.
func SubmitMessage(err error) string {
	var apiErr *api.Error
	var verr *ValidationError
	switch {
	case err == nil:
		return "Profile updated successfully!"
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrIdentityMissing):
		return "Your account details could not be loaded. Reload and try again."
	case errors.Is(err, inflight.ErrBusy):
		return "Still saving your profile."
	case api.IsUnauthorized(err):
		return "Authentication token not found. Please log in again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "Failed to update profile."
	}
}
