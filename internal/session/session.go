// Package session holds the credential issued at login and persists it
// between CLI invocations.
package session

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blackwell-systems/libctl/internal/util"
	"gopkg.in/yaml.v3"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("not logged in; run 'libctl login'")

// Session is the identity a user acts under. It is a plain value: callers
// pass it into each operation instead of reading it from ambient state.
type Session struct {
	Token     string    `yaml:"token"`
	Username  string    `yaml:"username"`
	Admin     bool      `yaml:"admin"`
	BaseURL   string    `yaml:"base_url"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Anonymous is the session of a user who has not logged in.
var Anonymous = Session{}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Credential returns the token sent with protected calls.
func (s Session) Credential() string {
	return s.Token
}

func (s Session) String() string {
	if !s.Authenticated() {
		return "anonymous"
	}
	role := "user"
	if s.Admin {
		role = "admin"
	}
	return fmt.Sprintf("%s (%s)", s.Username, role)
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the session file location.
func (st *Store) Path() string {
	return st.path
}

// Load returns the saved session, or ErrNoSession if there is none.
func (st *Store) Load() (Session, error) {
	data, err := os.ReadFile(st.path)
	if errors.Is(err, os.ErrNotExist) {
		return Anonymous, ErrNoSession
	}
	if err != nil {
		return Anonymous, fmt.Errorf("reading session: %w", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Anonymous, fmt.Errorf("parsing session %s: %w", st.path, err)
	}
	if !s.Authenticated() {
		return Anonymous, ErrNoSession
	}
	return s, nil
}

// Save writes s readable by the owner only.
func (st *Store) Save(s Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(st.path, data, 0600); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent session is not an error.
func (st *Store) Clear() error {
	if err := os.Remove(st.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
