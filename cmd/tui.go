package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mkessler/crate/internal/shared"
	"github.com/mkessler/crate/internal/ui"
	"github.com/urfave/cli/v3"
)

// TodoTUI launches the interactive terminal UI for the to-do list.
func (r *Runner) TodoTUI(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.resolveBackend()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/crate-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	// A session persisted by 'todo login' carries into the UI.
	if session, err := loadSessionFile(); err == nil && session != nil {
		backend.RestoreSession(session)
	}

	model := ui.NewModel(ctx, backend)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
