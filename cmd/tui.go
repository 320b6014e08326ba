package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musegen/internal/shared"
	"github.com/desertthunder/musegen/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for training and playing samples.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLogger.Close()
	r.SetLogger(fileLogger.Logger)

	opts := ui.Options{
		Session: ui.SessionOpts{OutputDir: r.config.Samples.OutputDir},
		Logger:  fileLogger.Logger,
	}
	if repo, err := r.samples(); err == nil {
		opts.Session.Recorder = repo
	} else {
		r.logger.Warn("samples will not be recorded", "error", err)
	}
	if repo, err := r.snapshots(); err == nil {
		opts.Session.Snapshots = repo
	}

	model := ui.NewModel(ctx, r.trainer, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
