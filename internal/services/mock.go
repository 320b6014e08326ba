package services

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
)

var _ Trainer = (*MockService)(nil)

// Canned model variants served in mocked mode.
var (
	LSTM = models.ModelVariant{
		ID:          "0f5e5af5-9ede-4cc8-814d-f7a0dfb8a6d6",
		Name:        "LSTM",
		Description: "Sequential model generating each timestep one by one.",
	}
	MarkovChain = models.ModelVariant{
		ID:          "e5893ba5-1cd1-4153-ac56-6b5898897503",
		Name:        "Markov Chain",
		Description: "Statistical model generating most probable notes.",
	}
	GAN = models.ModelVariant{
		ID:          "eafdabd3-fe56-474d-91be-7a9eeeed2124",
		Name:        "GAN",
		Description: "Generative model generating the whole song at once.",
	}
)

// PretrainedSessionID is the canned session that is already trained in mocked mode.
const PretrainedSessionID = "7c1e0b5e-2f43-4a8e-9d51-3f0c2a6b9e10"

const defaultMockEpochs = 10

// MockService implements [Trainer] with canned data and a fixed artificial delay.
type MockService struct {
	delay    time.Duration
	epochs   int
	variants models.ModelVariants

	mu       sync.Mutex
	sessions map[string]models.TrainingSession
	order    []string
	failures map[string]string
}

// MockOption configures a [MockService].
type MockOption func(*MockService)

// WithMockEpochs sets how many epochs the canned progress stream emits.
func WithMockEpochs(n int) MockOption {
	return func(m *MockService) {
		if n > 0 {
			m.epochs = n
		}
	}
}

// WithMockFailure makes the progress stream of sessionID fail with reason after its first frame.
func WithMockFailure(sessionID, reason string) MockOption {
	return func(m *MockService) {
		m.failures[sessionID] = reason
	}
}

// NewMockService creates a [MockService] seeded with the canned variants and one trained session.
func NewMockService(delay time.Duration, opts ...MockOption) *MockService {
	m := &MockService{
		delay:    delay,
		epochs:   defaultMockEpochs,
		variants: models.ModelVariants{Variants: []models.ModelVariant{LSTM, MarkovChain, GAN}},
		sessions: map[string]models.TrainingSession{},
		failures: map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.store(models.TrainingSession{
		SessionID:         PretrainedSessionID,
		ModelID:           LSTM.ID,
		CreatedAt:         time.Date(2023, time.January, 14, 12, 0, 0, 0, time.UTC),
		FileNames:         []string{"bach_846.mid", "bach_847.mid", "chopin_op28_4.mid"},
		TrainingCompleted: true,
	})
	return m
}

func (m *MockService) Name() string { return "mock" }

// wait blocks for the configured delay or until ctx is done.
func (m *MockService) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockService) store(s models.TrainingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; !ok {
		m.order = append(m.order, s.SessionID)
	}
	m.sessions[s.SessionID] = s
}

func (m *MockService) lookup(id string) (models.TrainingSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MockService) markCompleted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.TrainingCompleted = true
		m.sessions[id] = s
	}
}

func sessionNotFound() *OperationError {
	return &OperationError{Status: http.StatusNotFound, Detail: "Training session not found"}
}

func (m *MockService) ListModels(ctx context.Context) (models.ModelVariants, error) {
	if err := m.wait(ctx); err != nil {
		return models.ModelVariants{}, err
	}
	out := models.ModelVariants{Variants: make([]models.ModelVariant, len(m.variants.Variants))}
	copy(out.Variants, m.variants.Variants)
	return out, nil
}

func (m *MockService) GetSession(ctx context.Context, sessionID string) (models.TrainingSession, error) {
	if err := m.wait(ctx); err != nil {
		return models.TrainingSession{}, err
	}
	s, ok := m.lookup(sessionID)
	if !ok {
		return models.TrainingSession{}, sessionNotFound()
	}
	return s, nil
}

func (m *MockService) ListSessions(ctx context.Context, modelID string) (models.TrainingSessions, error) {
	if err := m.wait(ctx); err != nil {
		return models.TrainingSessions{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := models.TrainingSessions{Sessions: []models.TrainingSessionSummary{}}
	for _, id := range m.order {
		s := m.sessions[id]
		if modelID != "" && s.ModelID != modelID {
			continue
		}
		out.Sessions = append(out.Sessions, models.TrainingSessionSummary{
			SessionID:         s.SessionID,
			ModelID:           s.ModelID,
			CreatedAt:         s.CreatedAt,
			FileCount:         len(s.FileNames),
			TrainingCompleted: s.TrainingCompleted,
		})
	}
	return out, nil
}

func (m *MockService) RegisterSession(ctx context.Context, modelID string, files []models.MidiFile) (models.TrainingSessionCreated, error) {
	if err := m.wait(ctx); err != nil {
		return models.TrainingSessionCreated{}, err
	}
	if _, ok := m.variants.Find(modelID); !ok {
		return models.TrainingSessionCreated{}, &OperationError{Status: http.StatusNotFound, Detail: "Model not found"}
	}
	if len(files) == 0 {
		return models.TrainingSessionCreated{}, &OperationError{Status: http.StatusUnprocessableEntity, Detail: "No training files provided"}
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}

	id := shared.GenerateID()
	m.store(models.TrainingSession{
		SessionID: id,
		ModelID:   modelID,
		CreatedAt: time.Now().UTC(),
		FileNames: names,
	})
	return models.TrainingSessionCreated{SessionID: id}, nil
}

func (m *MockService) GenerateSample(ctx context.Context, sessionID string, seed int) ([]byte, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if _, ok := m.lookup(sessionID); !ok {
		return nil, sessionNotFound()
	}
	if seed < 1 {
		return nil, &OperationError{Status: http.StatusUnprocessableEntity, Detail: "seed must be a positive integer"}
	}
	return cannedMidi(seed), nil
}

// Subscribe returns a stream that emits one loss frame per epoch and a final finished frame.
//
// Unknown sessions close immediately with [CloseTrainingFailed].
func (m *MockService) Subscribe(ctx context.Context, sessionID string) (ProgressConn, error) {
	conn := &mockConn{
		ctx:    ctx,
		delay:  m.delay,
		done:   make(chan struct{}),
		onDone: func() { m.markCompleted(sessionID) },
	}

	if _, ok := m.lookup(sessionID); !ok {
		conn.failure = "training session not found"
		conn.onDone = nil
		return conn, nil
	}
	conn.frames = progressFrames(m.epochs)

	m.mu.Lock()
	if reason, ok := m.failures[sessionID]; ok {
		conn.frames = conn.frames[:min(1, len(conn.frames))]
		conn.failure = reason
		conn.onDone = nil
	}
	m.mu.Unlock()

	return conn, nil
}

// progressFrames builds one loss frame per epoch followed by the finished frame.
func progressFrames(total int) [][]byte {
	frames := make([][]byte, 0, total+1)
	for epoch := 0; epoch < total; epoch++ {
		loss := cannedLoss(epoch, total)
		frames = append(frames, mustFrame(models.TrainingProgress{
			XLabel: "Epoch",
			YLabel: "Loss",
			ChartSeries: []models.ChartSeries{
				{Legend: "loss", Points: []models.ChartPoint{{X: float64(epoch + 1), Y: loss}}},
				{Legend: "val_loss", Points: []models.ChartPoint{{X: float64(epoch + 1), Y: round(loss * 1.12)}}},
			},
		}))
	}
	frames = append(frames, mustFrame(models.TrainingProgress{
		Finished:    true,
		XLabel:      "Epoch",
		YLabel:      "Loss",
		ChartSeries: []models.ChartSeries{},
	}))
	return frames
}

func cannedLoss(epoch, total int) float64 {
	return round(0.15 + 2.4*math.Exp(-3*float64(epoch)/float64(total)))
}

func round(f float64) float64 {
	return math.Round(f*10000) / 10000
}

func mustFrame(p models.TrainingProgress) []byte {
	data, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return data
}

// mockConn replays canned frames with the service delay between them.
type mockConn struct {
	ctx     context.Context
	delay   time.Duration
	frames  [][]byte
	failure string
	onDone  func()

	mu     sync.Mutex
	pos    int
	closed bool
	done   chan struct{}
}

func (c *mockConn) Next() ([]byte, error) {
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-c.done:
			return nil, io.EOF
		case <-c.ctx.Done():
			return nil, io.EOF
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, io.EOF
	}
	if c.pos < len(c.frames) {
		frame := c.frames[c.pos]
		c.pos++
		if c.pos == len(c.frames) && c.failure == "" && c.onDone != nil {
			c.onDone()
		}
		return frame, nil
	}
	if c.failure != "" {
		return nil, &CloseError{Code: CloseTrainingFailed, Reason: c.failure}
	}
	return nil, io.EOF
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// cannedMidi builds a single-note Standard MIDI File whose pitch follows the seed.
func cannedMidi(seed int) []byte {
	pitch := byte(60 + (seed-1)%24)
	track := []byte{
		0x00, 0x90, pitch, 0x64, // note on
		0x60, 0x80, pitch, 0x40, // note off after one quarter
		0x00, 0xFF, 0x2F, 0x00, // end of track
	}

	out := make([]byte, 0, 14+8+len(track))
	out = append(out, 'M', 'T', 'h', 'd')
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, 0)  // format 0
	out = binary.BigEndian.AppendUint16(out, 1)  // one track
	out = binary.BigEndian.AppendUint16(out, 96) // ticks per quarter
	out = append(out, 'M', 'T', 'r', 'k')
	out = binary.BigEndian.AppendUint32(out, uint32(len(track)))
	return append(out, track...)
}
