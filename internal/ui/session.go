package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/services"
	"github.com/desertthunder/musegen/internal/tasks"
)

// SnapshotStore persists the final chart of a session (e.g. repositories.SnapshotRepository).
type SnapshotStore interface {
	Save(snapshot *models.ProgressSnapshot) error
}

// SessionOpts are the optional collaborators of a [TrainingSession].
type SessionOpts struct {
	OutputDir string               // Where piano samples are written (default: samples)
	Recorder  tasks.SampleRecorder // Records generated samples
	Snapshots SnapshotStore        // Stores the chart once training finishes
}

// TrainingSession is the view-model of the training-session screen.
//
// It fetches the session, follows its progress stream and generates samples from piano keys.
// Progress frames arrive on the stream goroutine and are handed to the update loop through events.
type TrainingSession struct {
	ctx       context.Context
	cancel    context.CancelFunc
	trainer   services.Trainer
	sessionID string
	opts      SessionOpts

	session *tasks.Tracker[string, models.TrainingSession]
	sample  *tasks.Tracker[int, tasks.SampleResult]

	events    chan Msg
	stream    *tasks.ProgressStream
	progress  tasks.AccumulatedProgress
	fatal     string
	streamErr error
	ended     bool
	lastSeed  int
	pressing  bool
	closed    bool
}

// NewTrainingSession creates the view-model for sessionID.
func NewTrainingSession(ctx context.Context, trainer services.Trainer, sessionID string, opts SessionOpts) *TrainingSession {
	ctx, cancel := context.WithCancel(ctx)
	if opts.OutputDir == "" {
		opts.OutputDir = "samples"
	}

	s := &TrainingSession{
		ctx:       ctx,
		cancel:    cancel,
		trainer:   trainer,
		sessionID: sessionID,
		opts:      opts,
		session:   tasks.NewTracker(trainer.GetSession),
		events:    make(chan Msg, 16),
	}
	s.sample = tasks.NewTracker(func(ctx context.Context, seed int) (tasks.SampleResult, error) {
		res := tasks.SaveSample(ctx, trainer, opts.Recorder, opts.OutputDir, sessionID, seed)
		return res, res.Err
	})
	return s
}

// Init fetches the session and opens the progress stream.
func (s *TrainingSession) Init() tea.Cmd {
	return tea.Batch(s.fetchSession(), s.openStream())
}

func (s *TrainingSession) fetchSession() tea.Cmd {
	return func() tea.Msg {
		s.session.Invoke(s.ctx, s.sessionID)
		return callDoneMsg(s, callSession)
	}
}

// RetrySession refetches the session details.
func (s *TrainingSession) RetrySession() tea.Cmd {
	return s.fetchSession()
}

func (s *TrainingSession) openStream() tea.Cmd {
	return func() tea.Msg {
		stream, err := tasks.OpenProgress(s.ctx, s.trainer, s.sessionID, tasks.StreamHandlers{
			OnMessage:    func(p tasks.AccumulatedProgress) { s.emit(progressMsg(s, p)) },
			OnFatalError: func(reason string) { s.emit(streamFailedMsg(s, reason)) },
		})
		return streamOpenedMsg(s, stream, err)
	}
}

// emit hands a stream event to the update loop, giving up once the view-model is closed.
func (s *TrainingSession) emit(msg Msg) {
	select {
	case s.events <- msg:
	case <-s.ctx.Done():
	}
}

// waitForEvent delivers the next stream event, or a closed message once the stream ends.
func (s *TrainingSession) waitForEvent(stream *tasks.ProgressStream) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-s.events:
			return msg
		case <-stream.Done():
			select {
			case msg := <-s.events:
				return msg
			default:
				return streamClosedMsg(s)
			}
		case <-s.ctx.Done():
			return nil
		}
	}
}

// Handle applies a message produced by this view-model and returns the follow-up command.
func (s *TrainingSession) Handle(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgStreamOpened:
		data := msg.data.(struct {
			stream *tasks.ProgressStream
			err    error
		})
		if s.closed {
			if data.stream != nil {
				data.stream.Dispose()
			}
			return nil
		}
		if data.err != nil {
			s.streamErr = data.err
			return nil
		}
		s.stream = data.stream
		return s.waitForEvent(data.stream)

	case MsgProgress:
		s.progress = msg.data.(tasks.AccumulatedProgress)
		if s.progress.Finished {
			return tea.Batch(s.saveSnapshot(), s.waitForEvent(s.stream))
		}
		return s.waitForEvent(s.stream)

	case MsgStreamFailed:
		s.fatal = msg.data.(string)
		return s.waitForEvent(s.stream)

	case MsgStreamClosed:
		s.ended = true
		return nil

	case MsgCallDone:
		if msg.data == callSample {
			s.pressing = false
		}
	}
	return nil
}

func (s *TrainingSession) saveSnapshot() tea.Cmd {
	if s.opts.Snapshots == nil {
		return nil
	}
	snap := models.NewProgressSnapshot(s.sessionID, s.progress.Progress())
	store := s.opts.Snapshots
	return func() tea.Msg {
		return snapshotSavedMsg(s, store.Save(snap))
	}
}

// PressKey generates the sample for seed. Keys are ignored while another sample is being generated.
func (s *TrainingSession) PressKey(seed int) tea.Cmd {
	if !s.PianoEnabled() || !tasks.ValidSeed(seed) {
		return nil
	}
	s.lastSeed = seed
	s.pressing = true
	return func() tea.Msg {
		s.sample.Invoke(s.ctx, seed)
		return callDoneMsg(s, callSample)
	}
}

// PianoEnabled reports whether piano keys currently generate samples.
func (s *TrainingSession) PianoEnabled() bool {
	return !s.closed && !s.pressing && !s.sample.Loading()
}

// Status summarizes training state for display.
func (s *TrainingSession) Status() string {
	switch {
	case s.fatal != "":
		return "Failed: " + s.fatal
	case s.streamErr != nil:
		return fmt.Sprintf("Failed: %v", s.streamErr)
	case s.progress.Finished:
		return "Ready!"
	case s.ended:
		return "Stream closed"
	default:
		return "In progress…"
	}
}

func (s *TrainingSession) SessionID() string                                { return s.sessionID }
func (s *TrainingSession) Session() tasks.CallState[models.TrainingSession] { return s.session.State() }
func (s *TrainingSession) Sample() tasks.CallState[tasks.SampleResult]      { return s.sample.State() }
func (s *TrainingSession) LastSeed() int                                    { return s.lastSeed }
func (s *TrainingSession) Progress() tasks.AccumulatedProgress              { return s.progress }
func (s *TrainingSession) Ended() bool                                      { return s.ended }
func (s *TrainingSession) FatalError() string                               { return s.fatal }
func (s *TrainingSession) XLabel() string                                   { return s.progress.XLabel }
func (s *TrainingSession) YLabel() string                                   { return s.progress.YLabel }
func (s *TrainingSession) Legends() []string                                { return s.progress.Legends() }
func (s *TrainingSession) Rows() [][]*models.ChartPoint                     { return s.progress.Rows() }

// Close disposes the stream and tears down the trackers. Safe to call more than once.
func (s *TrainingSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.session.Close()
	s.sample.Close()
	s.cancel()
	if s.stream != nil {
		s.stream.Dispose()
	}
}
