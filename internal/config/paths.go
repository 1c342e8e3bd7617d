package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/auditportal/auditportal/internal/constants"
)

// ConfigDirectory returns the directory holding the config and session files.
//   - Windows: %APPDATA%\auditportal
//   - Unix: ~/.config/auditportal
func ConfigDirectory() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, constants.AppName)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", constants.AppName)
	}
	return filepath.Join(os.TempDir(), constants.AppName)
}

// DefaultConfigPath returns the path of the INI config file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDirectory(), "config")
}

// DefaultSessionPath returns the path of the session file.
func DefaultSessionPath() string {
	return filepath.Join(ConfigDirectory(), "session.json")
}

// LogDirectory returns the directory for log files written while a
// full-screen view owns the terminal.
//   - Windows: %LOCALAPPDATA%\auditportal\logs
//   - Unix: ~/.config/auditportal/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, constants.AppName, "logs")
		}
	}
	return filepath.Join(ConfigDirectory(), "logs")
}

// EnsureLogDirectory creates the log directory with owner-only access.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}
