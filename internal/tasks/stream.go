package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/services"
)

// Subscriber opens progress connections. [services.Trainer] satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (services.ProgressConn, error)
}

// StreamHandlers receive the output of a [ProgressStream].
//
// Both run on the stream's reader goroutine, one at a time and in arrival order.
// They must not call [ProgressStream.Dispose] and must return once the stream context is cancelled.
type StreamHandlers struct {
	OnMessage    func(AccumulatedProgress)
	OnFatalError func(reason string)
}

// ProgressStream keeps a live, append-only view of a session's training chart.
type ProgressStream struct {
	sessionID string
	conn      services.ProgressConn
	cancel    context.CancelFunc
	handlers  StreamHandlers

	mu       sync.Mutex
	state    AccumulatedProgress
	fatal    string
	disposed bool

	cbMu sync.Mutex
	once sync.Once
	done chan struct{}
}

// OpenProgress subscribes to the progress stream of sessionID and starts merging frames.
//
// Each frame is decoded and folded into the accumulated state with [MergeProgress], then handed to OnMessage.
// A finished frame closes the subscription. A 1011 closure or an undecodable frame is reported through
// OnFatalError. Every other closure ends the stream quietly.
//
// The returned stream must be released with [ProgressStream.Dispose].
func OpenProgress(ctx context.Context, sub Subscriber, sessionID string, h StreamHandlers) (*ProgressStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	conn, err := sub.Subscribe(ctx, sessionID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to session %s: %w", sessionID, err)
	}

	s := &ProgressStream{
		sessionID: sessionID,
		conn:      conn,
		cancel:    cancel,
		handlers:  h,
		done:      make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *ProgressStream) run() {
	defer close(s.done)
	defer s.conn.Close()

	for {
		frame, err := s.conn.Next()
		if err != nil {
			var closeErr *services.CloseError
			if errors.As(err, &closeErr) {
				s.fail(closeErr.Reason)
			}
			return
		}

		var msg models.TrainingProgress
		if err := json.Unmarshal(frame, &msg); err != nil {
			s.fail(fmt.Sprintf("malformed progress message: %v", err))
			return
		}

		if finished := s.apply(msg); finished {
			return
		}
	}
}

// apply merges msg and notifies OnMessage. Returns true when the stream should stop reading.
func (s *ProgressStream) apply(msg models.TrainingProgress) bool {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return true
	}
	s.state = MergeProgress(s.state, msg)
	state := s.state
	s.mu.Unlock()

	if s.handlers.OnMessage != nil {
		s.handlers.OnMessage(state)
	}
	return state.Finished
}

func (s *ProgressStream) fail(reason string) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.fatal = reason
	s.mu.Unlock()

	if s.handlers.OnFatalError != nil {
		s.handlers.OnFatalError(reason)
	}
}

// Dispose closes the subscription. No handler starts after Dispose returns. Safe to call more than once.
func (s *ProgressStream) Dispose() {
	s.once.Do(func() {
		s.mu.Lock()
		s.disposed = true
		s.mu.Unlock()

		s.cancel()
		s.conn.Close()

		// wait out a handler that is already running
		s.cbMu.Lock()
		s.cbMu.Unlock()
	})
}

// SessionID returns the session this stream follows.
func (s *ProgressStream) SessionID() string { return s.sessionID }

// State returns the latest accumulated progress.
func (s *ProgressStream) State() AccumulatedProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FatalError returns the reason the stream failed, if it did.
func (s *ProgressStream) FatalError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// Done is closed once the reader goroutine has exited.
func (s *ProgressStream) Done() <-chan struct{} {
	return s.done
}
