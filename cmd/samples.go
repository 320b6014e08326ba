package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/musegen/internal/formatter"
	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
	"github.com/desertthunder/musegen/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sample generates one MIDI sample and records it.
func (r *Runner) Sample(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}
	seed := cmd.Int("seed")
	if !tasks.ValidSeed(seed) {
		return fmt.Errorf("%w: seed %d outside 1-%d", shared.ErrInvalidArgument, seed, tasks.MaxSeed)
	}

	repo, err := r.samples()
	if err != nil {
		r.logger.Warn("samples will not be recorded", "error", err)
	}

	output := cmd.String("output")
	if output == "" {
		var rec tasks.SampleRecorder
		if repo != nil {
			rec = repo
		}
		res := tasks.SaveSample(ctx, r.trainer, rec, r.config.Samples.OutputDir, sessionID, seed)
		if res.Err != nil {
			return res.Err
		}
		r.logger.Info("sample saved", "session_id", sessionID, "seed", seed, "path", res.Path)
		r.writePlain("✓ seed %d → %s (%d bytes)\n", seed, res.Path, res.Size)
		return nil
	}

	data, err := r.trainer.GenerateSample(ctx, sessionID, seed)
	if err != nil {
		return fmt.Errorf("failed to generate sample: %w", err)
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	if repo != nil {
		if err := repo.Create(models.NewSample(sessionID, seed, output, int64(len(data)))); err != nil {
			r.logger.Warn("sample written but not recorded", "path", output, "error", err)
		}
	}

	r.logger.Info("sample saved", "session_id", sessionID, "seed", seed, "path", output)
	r.writePlain("✓ seed %d → %s (%d bytes)\n", seed, output, len(data))
	return nil
}

// Samples generates a batch of samples with a worker pool and prints progress as it goes.
func (r *Runner) Samples(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}

	seeds, err := parseSeeds(cmd.String("seeds"))
	if err != nil {
		return err
	}

	opts := tasks.BulkSampleOpts{
		OutputDir:  r.config.Samples.OutputDir,
		NumWorkers: r.config.Samples.Workers,
		RateLimit:  r.config.Samples.RateLimit,
	}
	if n := cmd.Int("workers"); n > 0 {
		opts.NumWorkers = n
	}
	if rl := cmd.Float("rate"); rl > 0 {
		opts.RateLimit = rl
	}
	if repo, err := r.samples(); err == nil {
		opts.Recorder = repo
	} else {
		r.logger.Warn("samples will not be recorded", "error", err)
	}

	r.logger.Info("generating samples", "session_id", sessionID, "seeds", len(seeds))
	r.writePlain("Generating %d samples for %s...\n\n", len(seeds), sessionID)

	progressCh := make(chan tasks.ProgressUpdate, 2*len(seeds))
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			switch update.Phase {
			case tasks.GeneratingSample:
				r.writePlain("🎹 %s\n", update.Message)
			default:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := tasks.BulkSamples(ctx, progressCh, r.trainer, sessionID, seeds, opts)
	close(progressCh)
	<-printed

	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Samples Complete!")
	r.writePlain("Session: %s\n", result.SessionID)
	r.writePlain("Saved: %d/%d\n", result.Succeeded, len(seeds))

	if result.Failed > 0 {
		r.writePlain("\nFailed seeds:\n")
		for _, res := range result.Results {
			if res.Err != nil {
				r.writePlain("  - %d: %v\n", res.Seed, res.Err)
			}
		}
	}
	return err
}

// History lists the samples recorded for a session and its stored progress snapshot.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}

	sampleRepo, err := r.samples()
	if err != nil {
		return err
	}
	snapshotRepo, err := r.snapshots()
	if err != nil {
		return err
	}

	samples, err := sampleRepo.ListBySession(sessionID)
	if err != nil {
		return err
	}
	snapshot, err := snapshotRepo.GetBySession(sessionID)
	if err != nil && !isNotFound(err) {
		return err
	}

	if cmd.Bool("json") {
		out := struct {
			SessionID string                   `json:"session_id"`
			Samples   []*models.Sample         `json:"samples"`
			Progress  *models.TrainingProgress `json:"progress,omitempty"`
		}{SessionID: sessionID, Samples: samples}
		if snapshot != nil {
			p := snapshot.Progress()
			out.Progress = &p
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlainHeader("History for " + sessionID)
	if snapshot == nil {
		r.writePlain("Progress: no snapshot stored\n")
	} else {
		status := "in progress"
		if snapshot.Finished() {
			status = "finished"
		}
		points := tasks.Replay(snapshot.Progress()).PointCount()
		r.writePlain("Progress: %s, %d points (saved %s)\n", status, points, snapshot.UpdatedAt().Format("2006-01-02 15:04"))
	}

	r.writePlain("Samples (%d):\n", len(samples))
	for _, s := range samples {
		r.writePlain("  #%d seed %2d → %s (%d bytes)\n", s.Sequence(), s.Seed(), s.Path(), s.SizeBytes())
	}
	return nil
}

// Export renders the stored progress snapshot of a session.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}
	format := cmd.String("format")

	snapshotRepo, err := r.snapshots()
	if err != nil {
		return err
	}
	snapshot, err := snapshotRepo.GetBySession(sessionID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: run 'musegen watch %s' first", err, sessionID)
		}
		return err
	}

	export := &formatter.ChartExport{SessionID: sessionID, Progress: snapshot.Progress()}
	if sampleRepo, err := r.samples(); err == nil {
		if export.Samples, err = sampleRepo.ListBySession(sessionID); err != nil {
			return err
		}
	}
	if session, err := r.trainer.GetSession(ctx, sessionID); err == nil {
		export.ModelName = session.ModelID
		if variants, err := r.trainer.ListModels(ctx); err == nil {
			if v, ok := variants.Find(session.ModelID); ok {
				export.ModelName = v.Name
			}
		}
	} else {
		r.logger.Debug("exporting without model details", "session_id", sessionID, "error", err)
	}

	output := cmd.String("output")
	if output != "" || cmd.Bool("save") {
		path, err := formatter.WriteExport(export, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("export written", "path", path)
		r.writePlain("✓ Exported %s to %s\n", sessionID, path)
		return nil
	}

	data, err := formatter.Render(export, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// parseSeeds reads a comma-separated seed list; empty input selects every piano key.
func parseSeeds(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		seeds := make([]int, tasks.MaxSeed)
		for i := range seeds {
			seeds[i] = i + 1
		}
		return seeds, nil
	}

	var seeds []int
	seen := map[int]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seed, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: seed %q is not a number", shared.ErrInvalidArgument, part)
		}
		if !tasks.ValidSeed(seed) {
			return nil, fmt.Errorf("%w: seed %d outside 1-%d", shared.ErrInvalidArgument, seed, tasks.MaxSeed)
		}
		if !seen[seed] {
			seen[seed] = true
			seeds = append(seeds, seed)
		}
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no seeds given", shared.ErrMissingArgument)
	}
	return seeds, nil
}
