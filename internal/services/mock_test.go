package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
)

func TestMockService(t *testing.T) {
	ctx := context.Background()

	t.Run("ListModels Returns Canned Variants", func(t *testing.T) {
		srv := NewMockService(0)
		variants, err := srv.ListModels(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(variants.Variants) != 3 {
			t.Fatalf("expected 3 variants, got %d", len(variants.Variants))
		}
		if v, ok := variants.Find(MarkovChain.ID); !ok || v.Name != "Markov Chain" {
			t.Errorf("expected Markov Chain variant, got %+v", v)
		}
	})

	t.Run("Delay Respects Context", func(t *testing.T) {
		srv := NewMockService(time.Hour)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := srv.ListModels(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Delay Is Applied", func(t *testing.T) {
		srv := NewMockService(20 * time.Millisecond)
		start := time.Now()
		if _, err := srv.ListModels(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("expected at least 20ms delay, got %v", elapsed)
		}
	})

	t.Run("Register Then List And Get", func(t *testing.T) {
		srv := NewMockService(0)
		created, err := srv.RegisterSession(ctx, GAN.ID, []models.MidiFile{{Name: "a.mid"}, {Name: "b.mid"}})
		if err != nil {
			t.Fatalf("RegisterSession failed: %v", err)
		}
		if created.SessionID == "" {
			t.Fatal("expected a session id")
		}

		sessions, err := srv.ListSessions(ctx, GAN.ID)
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(sessions.Sessions) != 1 || sessions.Sessions[0].FileCount != 2 {
			t.Errorf("expected one GAN session with 2 files, got %+v", sessions.Sessions)
		}

		all, _ := srv.ListSessions(ctx, "")
		if len(all.Sessions) != 2 {
			t.Errorf("expected pretrained and new session, got %d", len(all.Sessions))
		}

		session, err := srv.GetSession(ctx, created.SessionID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if session.TrainingCompleted {
			t.Error("new session should not be completed")
		}
	})

	t.Run("Register Errors", func(t *testing.T) {
		srv := NewMockService(0)

		_, err := srv.RegisterSession(ctx, "unknown", []models.MidiFile{{Name: "a.mid"}})
		var opErr *OperationError
		if !errors.As(err, &opErr) || opErr.Status != http.StatusNotFound {
			t.Errorf("expected 404 OperationError, got %v", err)
		}

		_, err = srv.RegisterSession(ctx, LSTM.ID, nil)
		if !errors.As(err, &opErr) || opErr.Status != http.StatusUnprocessableEntity {
			t.Errorf("expected 422 OperationError, got %v", err)
		}
	})

	t.Run("GetSession Unknown", func(t *testing.T) {
		_, err := NewMockService(0).GetSession(ctx, "missing")
		if !IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("expected error to wrap ErrAPIRequest")
		}
	})

	t.Run("GenerateSample", func(t *testing.T) {
		srv := NewMockService(0)
		data, err := srv.GenerateSample(ctx, PretrainedSessionID, 5)
		if err != nil {
			t.Fatalf("GenerateSample failed: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("MThd")) {
			t.Errorf("expected a MIDI header, got %q", data[:4])
		}
		if !bytes.Contains(data, []byte("MTrk")) {
			t.Error("expected a MIDI track chunk")
		}

		other, _ := srv.GenerateSample(ctx, PretrainedSessionID, 6)
		if bytes.Equal(data, other) {
			t.Error("expected different seeds to produce different samples")
		}

		if _, err := srv.GenerateSample(ctx, PretrainedSessionID, 0); err == nil {
			t.Error("expected error for seed 0")
		}
		if _, err := srv.GenerateSample(ctx, "missing", 1); !IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("Subscribe Emits Epochs Then Finished", func(t *testing.T) {
		srv := NewMockService(0, WithMockEpochs(3))
		created, _ := srv.RegisterSession(ctx, LSTM.ID, []models.MidiFile{{Name: "a.mid"}})

		conn, err := srv.Subscribe(ctx, created.SessionID)
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer conn.Close()

		var frames []models.TrainingProgress
		for {
			data, err := conn.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var p models.TrainingProgress
			if err := json.Unmarshal(data, &p); err != nil {
				t.Fatalf("frame is not valid JSON: %v", err)
			}
			frames = append(frames, p)
		}

		if len(frames) != 4 {
			t.Fatalf("expected 3 epochs plus finished frame, got %d", len(frames))
		}
		if frames[0].ChartSeries[0].Points[0].X != 1 {
			t.Errorf("expected first x to be epoch 1, got %v", frames[0].ChartSeries[0].Points[0].X)
		}
		if !frames[3].Finished || len(frames[3].ChartSeries) != 0 {
			t.Errorf("expected final finished frame with no series, got %+v", frames[3])
		}
		if frames[2].ChartSeries[0].Points[0].Y >= frames[0].ChartSeries[0].Points[0].Y {
			t.Error("expected loss to decrease")
		}

		session, _ := srv.GetSession(ctx, created.SessionID)
		if !session.TrainingCompleted {
			t.Error("expected session to be completed after the stream finished")
		}
	})

	t.Run("Subscribe Unknown Session Fails", func(t *testing.T) {
		conn, err := NewMockService(0).Subscribe(ctx, "missing")
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer conn.Close()

		_, err = conn.Next()
		var closeErr *CloseError
		if !errors.As(err, &closeErr) || closeErr.Code != CloseTrainingFailed {
			t.Errorf("expected training failure close, got %v", err)
		}
	})

	t.Run("Subscribe With Failure", func(t *testing.T) {
		srv := NewMockService(0, WithMockFailure(PretrainedSessionID, "diverged"))
		conn, _ := srv.Subscribe(ctx, PretrainedSessionID)
		defer conn.Close()

		if _, err := conn.Next(); err != nil {
			t.Fatalf("expected one frame before failure, got %v", err)
		}
		_, err := conn.Next()
		var closeErr *CloseError
		if !errors.As(err, &closeErr) || closeErr.Reason != "diverged" {
			t.Errorf("expected 'diverged' failure, got %v", err)
		}
	})

	t.Run("Close Unblocks Next", func(t *testing.T) {
		srv := NewMockService(time.Hour)
		conn, _ := srv.Subscribe(ctx, PretrainedSessionID)

		errs := make(chan error, 1)
		go func() {
			_, err := conn.Next()
			errs <- err
		}()

		conn.Close()
		conn.Close()
		select {
		case err := <-errs:
			if err != io.EOF {
				t.Errorf("expected io.EOF after close, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Next did not return after Close")
		}
	})
}

func TestNewTrainer(t *testing.T) {
	t.Run("Empty URL Selects Mock", func(t *testing.T) {
		tr := NewTrainer(shared.BackendConfig{}, nil, nil)
		if tr.Name() != "mock" {
			t.Errorf("expected mock trainer, got %s", tr.Name())
		}
	})

	t.Run("URL Selects API", func(t *testing.T) {
		tr := NewTrainer(shared.BackendConfig{URL: "http://localhost:9000", TimeoutSeconds: 3}, nil, shared.NewLogger(io.Discard))
		api, ok := tr.(*APIService)
		if !ok {
			t.Fatalf("expected *APIService, got %T", tr)
		}
		if api.httpClient.Timeout != 3*time.Second {
			t.Errorf("expected 3s timeout, got %v", api.httpClient.Timeout)
		}
	})
}
