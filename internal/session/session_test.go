package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/libctl/internal/session"
)

func TestStoreRoundTrip(t *testing.T) {
	st := session.NewStore(filepath.Join(t.TempDir(), "state", "session.yml"))
	want := session.Session{
		Token:     "abc123",
		Username:  "alice",
		Admin:     true,
		BaseURL:   "http://127.0.0.1:8000/api",
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := st.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}

	info, err := os.Stat(st.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file perm = %o, want 600", perm)
	}
}

func TestLoadMissing(t *testing.T) {
	st := session.NewStore(filepath.Join(t.TempDir(), "none.yml"))
	s, err := st.Load()
	if !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("Load err = %v, want ErrNoSession", err)
	}
	if s.Authenticated() {
		t.Error("missing session should be anonymous")
	}
}

func TestLoadEmptyToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yml")
	if err := os.WriteFile(path, []byte("username: bob\ntoken: \"  \"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := session.NewStore(path).Load(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("Load err = %v, want ErrNoSession", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yml")
	if err := os.WriteFile(path, []byte("token: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := session.NewStore(path).Load()
	if err == nil || errors.Is(err, session.ErrNoSession) {
		t.Errorf("Load err = %v, want parse error", err)
	}
}

func TestClear(t *testing.T) {
	st := session.NewStore(filepath.Join(t.TempDir(), "session.yml"))
	if err := st.Clear(); err != nil {
		t.Errorf("Clear on absent file: %v", err)
	}
	if err := st.Save(session.Session{Token: "x", Username: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := st.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("after Clear, Load err = %v", err)
	}
}

func TestSessionString(t *testing.T) {
	if got := session.Anonymous.String(); got != "anonymous" {
		t.Errorf("Anonymous.String() = %q", got)
	}
	s := session.Session{Token: "t", Username: "root", Admin: true}
	if got := s.String(); got != "root (admin)" {
		t.Errorf("String() = %q", got)
	}
	if s.Credential() != "t" {
		t.Errorf("Credential() = %q", s.Credential())
	}
}
