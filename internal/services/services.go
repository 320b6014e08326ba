// package services defines interface Trainer for interacting with the training backend
package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
)

// Trainer defines the operations offered by the training backend.
type Trainer interface {
	// ListModels retrieves all model variants that can be trained.
	ListModels(ctx context.Context) (models.ModelVariants, error)

	// GetSession retrieves a single training session by ID.
	GetSession(ctx context.Context, sessionID string) (models.TrainingSession, error)

	// ListSessions retrieves summaries of all sessions for a model.
	// An empty modelID lists every session.
	ListSessions(ctx context.Context, modelID string) (models.TrainingSessions, error)

	// RegisterSession uploads training files and starts a new session for the model.
	RegisterSession(ctx context.Context, modelID string, files []models.MidiFile) (models.TrainingSessionCreated, error)

	// GenerateSample returns a MIDI file generated by the session's model from seed.
	GenerateSample(ctx context.Context, sessionID string, seed int) ([]byte, error)

	// Subscribe opens the progress stream of a session.
	// The caller owns the returned connection and must close it.
	Subscribe(ctx context.Context, sessionID string) (ProgressConn, error)

	// Name returns the name of the implementation (e.g., "api", "mock")
	Name() string
}

// ProgressConn is an open progress stream.
type ProgressConn interface {
	// Next blocks until the next frame arrives.
	//
	// Returns a [*CloseError] when the server closed the stream abnormally and [io.EOF] on any other closure.
	Next() ([]byte, error)

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// CloseTrainingFailed is the close code the backend uses to report a fatal training error.
const CloseTrainingFailed = 1011

// CloseError is an abnormal stream closure carrying the server's reason.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("stream closed with code %d: %s", e.Code, e.Reason)
}

// Unwrap lets callers match on [shared.ErrTrainingFailed].
func (e *CloseError) Unwrap() error {
	return shared.ErrTrainingFailed
}

// NewTrainer selects the [Trainer] implementation for cfg.
//
// A configured URL selects [APIService]; an empty one selects [MockService].
func NewTrainer(cfg shared.BackendConfig, client *http.Client, logger *log.Logger) Trainer {
	if cfg.Mocked() {
		if logger != nil {
			logger.Warn("no backend url configured, using canned data", "delay", cfg.MockDelay())
		}
		return NewMockService(cfg.MockDelay())
	}

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	if logger != nil {
		logger.Debug("using training backend", "url", cfg.URL)
	}
	return NewAPIService(cfg.URL, client)
}
