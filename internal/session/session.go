// Package session holds the signed-in identity and token, persisted in a
// single JSON file next to the config.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrNoSession is returned when no usable session is stored.
var ErrNoSession = errors.New("not signed in")

// Identity is who the user is, as reported at sign-in.
type Identity struct {
	Username    string `json:"username"`
	CompanyID   string `json:"companyId"`
	ProjectName string `json:"projectName"`
}

// Session is the explicit identity + credential object handed to
// components. A zero Session means signed out.
type Session struct {
	Token    string   `json:"token,omitempty"`
	Identity Identity `json:"identity"`

	// ChangeToken is set after a first sign-in that requires a password
	// change; it only authorizes the password change endpoint.
	ChangeToken string `json:"changeToken,omitempty"`

	path string
}

// New creates an unsaved session bound to path.
func New(path string) *Session {
	return &Session{path: path}
}

// CurrentUser returns the signed-in identity.
func (s *Session) CurrentUser() (Identity, bool) {
	if s == nil || s.Token == "" || s.Identity.Username == "" {
		return Identity{}, false
	}
	return s.Identity, true
}

// SignedIn reports whether a bearer token is held.
func (s *Session) SignedIn() bool {
	return s != nil && s.Token != ""
}

// PasswordChangePending reports whether a change token is waiting to be used.
func (s *Session) PasswordChangePending() bool {
	return s != nil && s.ChangeToken != ""
}

// Path returns the file the session is stored in.
func (s *Session) Path() string {
	return s.path
}

// Load reads the session file at path. A missing file yields an empty
// session and no error.
func Load(path string) (*Session, error) {
	s := New(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// Save writes the session with owner-only permissions.
func (s *Session) Save() error {
	if s.path == "" {
		return errors.New("session has no path")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set session permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear signs out: it resets the session and removes the file.
func (s *Session) Clear() error {
	path := s.path
	*s = Session{path: path}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// Require returns ErrNoSession unless the session holds a token.
func (s *Session) Require() error {
	if !s.SignedIn() {
		return ErrNoSession
	}
	return nil
}
