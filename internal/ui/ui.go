package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/services"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ModelListView ViewState = iota
	ModeView
	SessionListView
	FilesView
	TrainingView
)

// Options configures a TUI [Model].
type Options struct {
	Session SessionOpts
	Logger  *log.Logger
}

// Model represents the TUI application state.
//
// It owns at most one screen view-model at a time: a [ModelConfig] on the configuration views
// and a [TrainingSession] on [TrainingView]. Leaving a screen closes its view-model.
type Model struct {
	ctx     context.Context
	trainer services.Trainer
	opts    Options
	logger  *log.Logger

	view     ViewState
	config   *ModelConfig
	training *TrainingSession

	width       int
	height      int
	variantList list.Model
	sessionList list.Model
	files       textinput.Model
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
	err         error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, trainer services.Trainer, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	files := textinput.New()
	files.Placeholder = "path/to/song.mid other.mid"
	files.CharLimit = 1024
	files.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:         ctx,
		trainer:     trainer,
		opts:        opts,
		logger:      logger,
		view:        ModelListView,
		config:      NewModelConfig(ctx, trainer),
		variantList: newList("Model variants"),
		sessionList: newList("Training sessions"),
		files:       files,
		spinner:     sp,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

// Init fetches the model variants.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.config.Init(), m.spinner.Tick)
}

// CurrentView returns the current view state.
func (m *Model) CurrentView() ViewState { return m.view }

// Config returns the configuration view-model, nil on the training view.
func (m *Model) Config() *ModelConfig { return m.config }

// Training returns the training-session view-model, nil on configuration views.
func (m *Model) Training() *TrainingSession { return m.training }

// Close tears down the active view-model.
func (m *Model) Close() {
	if m.config != nil {
		m.config.Close()
	}
	if m.training != nil {
		m.training.Close()
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.variantList.SetSize(msg.Width-4, msg.Height-8)
		m.sessionList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		switch m.view {
		case ModelListView:
			return m.handleModelListKeys(msg)
		case ModeView:
			return m.handleModeKeys(msg)
		case SessionListView:
			return m.handleSessionListKeys(msg)
		case FilesView:
			return m.handleFilesKeys(msg)
		case TrainingView:
			return m.handleTrainingKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch {
	case m.config != nil && msg.from == m.config:
		return m.handleConfigMsg(msg)
	case m.training != nil && msg.from == m.training:
		return m.handleTrainingMsg(msg)
	}
	m.logger.Debug("dropping message from closed screen", "kind", msg.kind)
	return m, nil
}

func (m *Model) handleConfigMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCallDone:
		switch msg.data {
		case callModels:
			state := m.config.Variants()
			if state.Err != nil {
				m.logger.Warn("failed to fetch models", "error", state.Err)
			}
			return m, m.variantList.SetItems(variantItems(state.Result))
		case callSessions:
			state := m.config.Sessions()
			if state.Err != nil {
				m.logger.Warn("failed to fetch sessions", "error", state.Err)
			}
			return m, m.sessionList.SetItems(sessionItems(state.Result))
		case callRegister:
			if err := m.config.Registration().Err; err != nil {
				m.logger.Warn("failed to register session", "error", err)
			}
		}
		return m, nil

	case MsgNavigate:
		return m, m.enterTraining(msg.data.(string))
	}
	return m, nil
}

func (m *Model) handleTrainingMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStreamFailed:
		m.logger.Warn("training failed", "session_id", m.training.SessionID(), "reason", msg.data)
	case MsgSnapshotSaved:
		if err, _ := msg.data.(error); err != nil {
			m.logger.Warn("failed to save progress snapshot", "error", err)
		}
		return m, nil
	case MsgCallDone:
		if msg.data == callSample {
			if res := m.training.Sample(); res.Err != nil {
				m.logger.Warn("failed to generate sample", "error", res.Err)
			} else if res.HasResult {
				m.logger.Info("sample saved", "seed", res.Result.Seed, "path", res.Result.Path)
			}
		}
	}
	return m, m.training.Handle(msg)
}

// enterTraining swaps the configuration view-model for a training-session view-model.
func (m *Model) enterTraining(sessionID string) tea.Cmd {
	m.config.Close()
	m.config = nil
	m.err = nil
	m.files.Blur()

	m.training = NewTrainingSession(m.ctx, m.trainer, sessionID, m.opts.Session)
	m.view = TrainingView
	m.logger.Info("opening training session", "session_id", sessionID)
	return m.training.Init()
}

// leaveTraining returns to the model list with a fresh configuration view-model.
func (m *Model) leaveTraining() tea.Cmd {
	m.training.Close()
	m.training = nil

	m.config = NewModelConfig(m.ctx, m.trainer)
	m.view = ModelListView
	return m.config.Init()
}

func (m *Model) handleModelListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.retry) && m.config.Variants().Err != nil:
		return m, m.config.Init()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.variantList.SelectedItem().(variantItem); ok {
			cmd := m.config.PickModel(item.variant.ID)
			m.view = ModeView
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.variantList, cmd = m.variantList.Update(msg)
	return m, cmd
}

func (m *Model) handleModeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ModelListView
	case key.Matches(msg, m.keys.pretrained):
		m.view = SessionListView
		return m, m.config.SetTraining(Pretrained)
	case key.Matches(msg, m.keys.train):
		m.view = FilesView
		m.err = nil
		m.config.SetTraining(TrainMyself)
		return m, m.files.Focus()
	}
	return m, nil
}

func (m *Model) handleSessionListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ModeView
		return m, nil
	case key.Matches(msg, m.keys.retry):
		return m, m.config.RetrySessions()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.sessionList.SelectedItem().(sessionItem); ok {
			m.config.SetSessionID(item.session.SessionID)
			return m, m.config.Start()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.sessionList, cmd = m.sessionList.Update(msg)
	return m, cmd
}

func (m *Model) handleFilesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.files.Blur()
		m.view = ModeView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		files, err := ReadMidiFiles(ParsePaths(m.files.Value()))
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.config.SetMidiFiles(files)
		return m, m.config.Start()
	}

	var cmd tea.Cmd
	m.files, cmd = m.files.Update(msg)
	return m, cmd
}

func (m *Model) handleTrainingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.leaveTraining()
	case key.Matches(msg, m.keys.retry) && m.training.Session().Err != nil:
		return m, m.training.RetrySession()
	}

	if seed, ok := SeedForKey(msg.String()); ok {
		return m, m.training.PressKey(seed)
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ModelListView:
		m.variantList, cmd = m.variantList.Update(msg)
	case SessionListView:
		m.sessionList, cmd = m.sessionList.Update(msg)
	case FilesView:
		m.files, cmd = m.files.Update(msg)
	}
	return m, cmd
}

// ParsePaths splits user input on whitespace and commas.
func ParsePaths(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// ReadMidiFiles loads each path as a training file named by its base name.
func ReadMidiFiles(paths []string) ([]models.MidiFile, error) {
	if len(paths) == 0 {
		return nil, errors.New("no MIDI files given")
	}
	files := make([]models.MidiFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		files = append(files, models.MidiFile{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}
