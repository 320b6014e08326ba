package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/musegen/internal/formatter"
	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
	"github.com/desertthunder/musegen/internal/tasks"
	"github.com/desertthunder/musegen/internal/ui"
	"github.com/urfave/cli/v3"
)

// Models lists the model variants offered by the backend.
func (r *Runner) Models(ctx context.Context, cmd *cli.Command) error {
	variants, err := r.trainer.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(variants, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Model variants (%d)", len(variants.Variants)))
	for _, v := range variants.Variants {
		r.writePlain("%s  %s\n", v.ID, v.Name)
		if v.Description != "" {
			r.writePlain("    %s\n", v.Description)
		}
	}
	return nil
}

// Sessions lists training sessions, optionally for a single model.
func (r *Runner) Sessions(ctx context.Context, cmd *cli.Command) error {
	modelID := cmd.String("model")

	sessions, err := r.trainer.ListSessions(ctx, modelID)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(sessions, cmd.Bool("pretty"))
	}

	if len(sessions.Sessions) == 0 {
		r.writePlain("No training sessions.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Training sessions (%d)", len(sessions.Sessions)))
	for _, s := range sessions.Sessions {
		r.writePlain("%s  model=%s  files=%d  %s  %s\n",
			s.SessionID, s.ModelID, s.FileCount, s.CreatedAt.Format("2006-01-02 15:04"), completion(s.TrainingCompleted))
	}
	return nil
}

// Session shows a single training session.
func (r *Runner) Session(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}

	session, err := r.trainer.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to fetch session: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(session, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Training session " + session.SessionID)
	r.writePlain("Model: %s\n", session.ModelID)
	r.writePlain("Created: %s\n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	r.writePlain("Status: %s\n", completion(session.TrainingCompleted))
	r.writePlain("Files (%d):\n", len(session.FileNames))
	for _, name := range session.FileNames {
		r.writePlain("  - %s\n", name)
	}
	return nil
}

// Train uploads MIDI files to register a new session, then optionally follows its progress.
func (r *Runner) Train(ctx context.Context, cmd *cli.Command) error {
	modelID := cmd.String("model")

	files, err := ui.ReadMidiFiles(cmd.Args().Slice())
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.logger.Info("registering training session", "model_id", modelID, "files", len(files))
	created, err := r.trainer.RegisterSession(ctx, modelID, files)
	if err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}

	r.logger.Info("session registered", "session_id", created.SessionID)
	r.writePlain("✓ Training session registered: %s\n", created.SessionID)

	if !cmd.Bool("watch") {
		r.writePlain("Follow it with: musegen watch %s\n", created.SessionID)
		return nil
	}
	r.writePlain("\n")
	return r.watch(ctx, created.SessionID, cmd.String("format"))
}

// Watch streams the progress of a session, printing each merged update and the final chart.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}
	return r.watch(ctx, sessionID, cmd.String("format"))
}

func (r *Runner) watch(ctx context.Context, sessionID, format string) error {
	if _, err := formatter.Render(&formatter.ChartExport{}, format); err != nil {
		return err
	}

	stream, err := tasks.OpenProgress(ctx, r.trainer, sessionID, tasks.StreamHandlers{
		OnMessage: func(p tasks.AccumulatedProgress) {
			r.writePlain("%s\n", progressLine(p))
		},
		OnFatalError: func(reason string) {
			r.writePlain("✗ training failed: %s\n", reason)
		},
	})
	if err != nil {
		return err
	}
	defer stream.Dispose()

	select {
	case <-stream.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	final := stream.State()
	if final.PointCount() > 0 || final.Finished {
		r.saveSnapshot(sessionID, final)
	}

	if reason := stream.FatalError(); reason != "" {
		return fmt.Errorf("%w: %s", shared.ErrTrainingFailed, reason)
	}

	data, err := formatter.Render(&formatter.ChartExport{SessionID: sessionID, Progress: final.Progress()}, format)
	if err != nil {
		return err
	}
	r.writePlain("\n")
	_, err = r.output.Write(data)
	return err
}

// saveSnapshot stores the chart for offline export; a missing database only warns.
func (r *Runner) saveSnapshot(sessionID string, p tasks.AccumulatedProgress) {
	repo, err := r.snapshots()
	if err != nil {
		r.logger.Warn("progress snapshot not saved", "session_id", sessionID, "error", err)
		return
	}
	if err := repo.Save(models.NewProgressSnapshot(sessionID, p.Progress())); err != nil {
		r.logger.Warn("progress snapshot not saved", "session_id", sessionID, "error", err)
		return
	}
	r.logger.Debug("progress snapshot saved", "session_id", sessionID, "points", p.PointCount())
}

// progressLine summarizes the newest point of every series.
func progressLine(p tasks.AccumulatedProgress) string {
	if p.Finished {
		return "✓ training finished"
	}

	xLabel := p.XLabel
	if xLabel == "" {
		xLabel = "x"
	}

	var b strings.Builder
	wroteX := false
	for i, s := range p.Series {
		n := len(s.Points)
		if n == 0 {
			continue
		}
		last := s.Points[n-1]
		if !wroteX {
			wroteX = true
			fmt.Fprintf(&b, "%s %g:", xLabel, last.X)
		}
		legend := s.Legend
		if legend == "" {
			legend = fmt.Sprintf("series %d", i+1)
		}
		fmt.Fprintf(&b, " %s=%.4g", legend, last.Y)
	}
	if !wroteX {
		return "… waiting for progress"
	}
	return b.String()
}

func completion(done bool) string {
	if done {
		return "trained"
	}
	return "training"
}

// isNotFound reports whether err is a missing record or resource.
func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrSnapshotNotFound) || errors.Is(err, shared.ErrSampleNotFound)
}
