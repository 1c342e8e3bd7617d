package session

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestSaveLoadRoundTrip verifies a saved session loads back unchanged.
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s := New(path)
	s.Token = "tok-123"
	s.Identity = Identity{Username: "alice", CompanyID: "c1", ProjectName: "Audit 2024"}
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("permissions = %o, want 0600", perm)
		}
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Token != "tok-123" {
		t.Errorf("Token = %q, want tok-123", got.Token)
	}
	id, ok := got.CurrentUser()
	if !ok {
		t.Fatal("CurrentUser() ok = false, want true")
	}
	if id != s.Identity {
		t.Errorf("Identity = %+v, want %+v", id, s.Identity)
	}
	if got.Path() != path {
		t.Errorf("Path() = %q, want %q", got.Path(), path)
	}
}

// TestLoadMissingFile verifies a missing file is an empty session.
func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.SignedIn() {
		t.Error("SignedIn() = true for missing file")
	}
	if _, ok := s.CurrentUser(); ok {
		t.Error("CurrentUser() ok = true for missing file")
	}
	if !errors.Is(s.Require(), ErrNoSession) {
		t.Errorf("Require() = %v, want ErrNoSession", s.Require())
	}
}

// TestLoadCorruptFile verifies parse errors are reported.
func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

// TestClear verifies sign-out wipes memory and disk.
func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := New(path)
	s.Token = "tok"
	s.Identity.Username = "alice"
	s.ChangeToken = "chg"
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if s.SignedIn() || s.PasswordChangePending() {
		t.Error("session still holds credentials after Clear()")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("session file still exists: %v", err)
	}
	// Clearing twice is fine.
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error: %v", err)
	}
}

// TestCurrentUserRequiresToken verifies a change-token-only session has no identity.
func TestCurrentUserRequiresToken(t *testing.T) {
	s := New("")
	s.Identity.Username = "alice"
	s.ChangeToken = "chg"
	if _, ok := s.CurrentUser(); ok {
		t.Error("CurrentUser() ok = true without token")
	}
	if !s.PasswordChangePending() {
		t.Error("PasswordChangePending() = false, want true")
	}

	var nilSession *Session
	if _, ok := nilSession.CurrentUser(); ok {
		t.Error("nil session reported a user")
	}
}
