package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/auditportal/auditportal/internal/config"
	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/logging"
)

// ViewLogger returns a logger writing to the dated file in the log
// directory. Components built for a full-screen view log through it so
// nothing is written over the screen; warnings still reach the screen
// through bus. Falls back to a discarding logger.
func ViewLogger(bus *events.EventBus) *logging.Logger {
	l, err := logging.NewFileLogger(config.LogDirectory(), bus)
	if err != nil {
		return logging.Nop()
	}
	return l
}

// Run shows model on the alternate screen until it quits or ctx ends.
func Run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return final, nil
	}
	return final, err
}
