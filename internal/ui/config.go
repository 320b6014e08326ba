package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/services"
	"github.com/desertthunder/musegen/internal/tasks"
)

// TrainingMode is how the user wants to obtain a trained session.
type TrainingMode int

const (
	ModeUnset TrainingMode = iota
	Pretrained
	TrainMyself
)

func (m TrainingMode) String() string {
	switch m {
	case Pretrained:
		return "pretrained"
	case TrainMyself:
		return "train myself"
	default:
		return "unset"
	}
}

type registerArgs struct {
	modelID string
	files   []models.MidiFile
}

// ModelConfig is the view-model of the configuration screen.
//
// Selections are owned by the bubbletea update loop; network state lives in the trackers,
// which are safe to invoke from commands.
type ModelConfig struct {
	ctx     context.Context
	cancel  context.CancelFunc
	trainer services.Trainer

	variants *tasks.Tracker[struct{}, models.ModelVariants]
	sessions *tasks.Tracker[string, models.TrainingSessions]
	register *tasks.Tracker[registerArgs, models.TrainingSessionCreated]

	modelID   string
	mode      TrainingMode
	sessionID string
	files     []models.MidiFile
}

// NewModelConfig creates the configuration view-model.
func NewModelConfig(ctx context.Context, trainer services.Trainer) *ModelConfig {
	ctx, cancel := context.WithCancel(ctx)
	return &ModelConfig{
		ctx:     ctx,
		cancel:  cancel,
		trainer: trainer,
		variants: tasks.NewTracker(func(ctx context.Context, _ struct{}) (models.ModelVariants, error) {
			return trainer.ListModels(ctx)
		}),
		sessions: tasks.NewTracker(trainer.ListSessions),
		register: tasks.NewTracker(func(ctx context.Context, a registerArgs) (models.TrainingSessionCreated, error) {
			return trainer.RegisterSession(ctx, a.modelID, a.files)
		}),
	}
}

// Init fetches the model variants.
func (c *ModelConfig) Init() tea.Cmd {
	return func() tea.Msg {
		c.variants.Invoke(c.ctx, struct{}{})
		return callDoneMsg(c, callModels)
	}
}

// PickModel selects a variant. A session picked for another model is cleared.
func (c *ModelConfig) PickModel(id string) tea.Cmd {
	if id == c.modelID {
		return nil
	}
	c.modelID = id
	c.sessionID = ""
	if c.mode == Pretrained {
		return c.fetchSessions()
	}
	return nil
}

// SetTraining switches between a pretrained session and uploading files.
//
// Choosing Pretrained fetches the model's sessions unless a fetch is already loading.
func (c *ModelConfig) SetTraining(mode TrainingMode) tea.Cmd {
	c.mode = mode
	if mode != Pretrained || c.sessions.Loading() {
		return nil
	}
	return c.fetchSessions()
}

// RetrySessions refetches the session list.
func (c *ModelConfig) RetrySessions() tea.Cmd {
	return c.fetchSessions()
}

func (c *ModelConfig) fetchSessions() tea.Cmd {
	modelID := c.modelID
	return func() tea.Msg {
		c.sessions.Invoke(c.ctx, modelID)
		return callDoneMsg(c, callSessions)
	}
}

// SetSessionID picks a prior session; a non-empty id clears the MIDI files.
func (c *ModelConfig) SetSessionID(id string) {
	c.sessionID = id
	if id != "" {
		c.files = nil
	}
}

// SetMidiFiles sets the training files; a non-empty list clears the picked session.
func (c *ModelConfig) SetMidiFiles(files []models.MidiFile) {
	c.files = files
	if len(files) > 0 {
		c.sessionID = ""
	}
}

// SelectedModel looks up the picked variant in the fetched list.
func (c *ModelConfig) SelectedModel() (models.ModelVariant, bool) {
	if c.modelID == "" {
		return models.ModelVariant{}, false
	}
	return c.variants.State().Result.Find(c.modelID)
}

// SelectedSession looks up the picked session in the fetched list.
func (c *ModelConfig) SelectedSession() (models.TrainingSessionSummary, bool) {
	if c.sessionID == "" {
		return models.TrainingSessionSummary{}, false
	}
	return c.sessions.State().Result.Find(c.sessionID)
}

// Ready reports whether Start can proceed.
func (c *ModelConfig) Ready() bool {
	if c.modelID == "" || c.register.Loading() {
		return false
	}
	return c.sessionID != "" || len(c.files) > 0
}

// Start navigates to the picked session, or registers a new one from the MIDI files first.
//
// A successful registration navigates to the new session; a failure stays on this screen.
func (c *ModelConfig) Start() tea.Cmd {
	if !c.Ready() {
		return nil
	}
	if c.sessionID != "" {
		id := c.sessionID
		return func() tea.Msg { return navigateMsg(c, id) }
	}

	args := registerArgs{modelID: c.modelID, files: c.files}
	return func() tea.Msg {
		created, err := c.register.Invoke(c.ctx, args)
		if err != nil || c.register.Closed() {
			return callDoneMsg(c, callRegister)
		}
		return navigateMsg(c, created.SessionID)
	}
}

func (c *ModelConfig) ModelID() string                                    { return c.modelID }
func (c *ModelConfig) Mode() TrainingMode                                 { return c.mode }
func (c *ModelConfig) SessionID() string                                  { return c.sessionID }
func (c *ModelConfig) MidiFiles() []models.MidiFile                       { return c.files }
func (c *ModelConfig) Variants() tasks.CallState[models.ModelVariants]    { return c.variants.State() }
func (c *ModelConfig) Sessions() tasks.CallState[models.TrainingSessions] { return c.sessions.State() }
func (c *ModelConfig) Registration() tasks.CallState[models.TrainingSessionCreated] {
	return c.register.State()
}

// Close tears down the trackers and cancels in-flight calls.
func (c *ModelConfig) Close() {
	c.variants.Close()
	c.sessions.Close()
	c.register.Close()
	c.cancel()
}
