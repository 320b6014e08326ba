package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/services"
	"github.com/desertthunder/musegen/internal/shared"
)

// syncBuffer is a log sink shared between server goroutines and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestBackend(t *testing.T, opts ...services.MockOption) (*services.APIService, *syncBuffer) {
	t.Helper()

	logs := &syncBuffer{}
	logger := log.New(logs)
	trainer := services.NewMockService(0, opts...)

	srv := httptest.NewServer(NewBackend(trainer, logger, 0, 0))
	t.Cleanup(srv.Close)

	return services.NewAPIService(srv.URL, srv.Client()), logs
}

func TestBasicRouter(t *testing.T) {
	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodPost, "/items", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Path Values", func(t *testing.T) {
		router := NewBasicRouter()
		var got string
		router.Handle(http.MethodGet, "/items/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.PathValue("id")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
		if got != "42" {
			t.Errorf("expected path value 42, got %q", got)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Logging", func(t *testing.T) {
		var logs strings.Builder
		h := Logging(log.New(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

		out := logs.String()
		if !strings.Contains(out, "path=/brew") || !strings.Contains(out, "status=418") {
			t.Errorf("unexpected log output %q", out)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		h := Recover(log.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("RateLimit", func(t *testing.T) {
		h := RateLimit(0.001, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		codes := make([]int, 0, 3)
		for range 3 {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:5000"
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
			t.Errorf("unexpected status codes %v", codes)
		}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:5000"
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected a separate bucket per client, got %d", rec.Code)
		}
	})
}

func TestTrainingHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Routes", func(t *testing.T) {
		h := NewTrainingHandler(services.NewMockService(0), log.New(io.Discard))
		if len(h.Routes()) != 6 {
			t.Errorf("expected 6 routes, got %v", h.Routes())
		}
	})

	t.Run("ListModels", func(t *testing.T) {
		api, logs := newTestBackend(t)

		variants, err := api.ListModels(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(variants.Variants) != 3 {
			t.Errorf("expected 3 variants, got %d", len(variants.Variants))
		}
		if !strings.Contains(logs.String(), "path=/models") {
			t.Errorf("expected request to be logged, got %q", logs.String())
		}
	})

	t.Run("Sessions", func(t *testing.T) {
		api, _ := newTestBackend(t)

		sessions, err := api.ListSessions(ctx, services.LSTM.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := sessions.Find(services.PretrainedSessionID); !ok {
			t.Errorf("expected pretrained session in %+v", sessions)
		}

		session, err := api.GetSession(ctx, services.PretrainedSessionID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.ModelID != services.LSTM.ID || !session.TrainingCompleted {
			t.Errorf("unexpected session %+v", session)
		}
	})

	t.Run("Session Not Found", func(t *testing.T) {
		api, _ := newTestBackend(t)

		_, err := api.GetSession(ctx, "missing")
		if !services.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
		var opErr *services.OperationError
		if !errors.As(err, &opErr) || opErr.Detail != "Training session not found" {
			t.Errorf("expected detail to round trip, got %v", err)
		}
	})

	t.Run("Register And Sample", func(t *testing.T) {
		api, _ := newTestBackend(t)

		created, err := api.RegisterSession(ctx, services.GAN.ID, []models.MidiFile{
			{Name: "a.mid", Data: []byte("MThd")},
			{Name: "b.mid", Data: []byte("MThd")},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created.SessionID == "" {
			t.Fatal("expected a session id")
		}

		session, err := api.GetSession(ctx, created.SessionID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(session.FileNames) != 2 || session.FileNames[0] != "a.mid" {
			t.Errorf("unexpected file names %v", session.FileNames)
		}

		data, err := api.GenerateSample(ctx, created.SessionID, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(string(data), "MThd") {
			t.Error("expected MIDI bytes")
		}
	})

	t.Run("Register Unknown Model", func(t *testing.T) {
		api, _ := newTestBackend(t)

		_, err := api.RegisterSession(ctx, "nope", []models.MidiFile{{Name: "a.mid", Data: []byte{1}}})
		if !services.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("Register Without Model", func(t *testing.T) {
		api, _ := newTestBackend(t)

		_, err := api.RegisterSession(ctx, "", []models.MidiFile{{Name: "a.mid", Data: []byte{1}}})
		var opErr *services.OperationError
		if !errors.As(err, &opErr) || opErr.Status != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %v", err)
		}
	})

	t.Run("Sample Bad Seed", func(t *testing.T) {
		srv := httptest.NewServer(NewBackend(services.NewMockService(0), log.New(io.Discard), 0, 0))
		defer srv.Close()

		resp, err := srv.Client().Get(srv.URL + "/training/session/" + services.PretrainedSessionID + "/sample?seed=abc")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", resp.StatusCode)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["detail"] == "" {
			t.Errorf("expected a JSON detail, got %v (%v)", body, err)
		}
	})

	t.Run("Rate Limited Backend", func(t *testing.T) {
		srv := httptest.NewServer(NewBackend(services.NewMockService(0), log.New(io.Discard), 0.001, 1))
		defer srv.Close()
		api := services.NewAPIService(srv.URL, srv.Client())

		if _, err := api.ListModels(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := api.ListModels(ctx)
		var opErr *services.OperationError
		if !errors.As(err, &opErr) || opErr.Status != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %v", err)
		}
	})
}

func TestProgressRelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	drain := func(t *testing.T, conn services.ProgressConn) ([][]byte, error) {
		t.Helper()
		defer conn.Close()
		var frames [][]byte
		for {
			frame, err := conn.Next()
			if err != nil {
				return frames, err
			}
			frames = append(frames, frame)
		}
	}

	t.Run("Completed Stream", func(t *testing.T) {
		api, _ := newTestBackend(t, services.WithMockEpochs(2))

		conn, err := api.Subscribe(ctx, services.PretrainedSessionID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		frames, err := drain(t, conn)
		if !errors.Is(err, io.EOF) {
			t.Errorf("expected normal closure, got %v", err)
		}
		if len(frames) != 3 {
			t.Fatalf("expected 3 frames, got %d", len(frames))
		}

		var last models.TrainingProgress
		if err := json.Unmarshal(frames[2], &last); err != nil {
			t.Fatalf("invalid frame: %v", err)
		}
		if !last.Finished {
			t.Error("expected the last frame to be finished")
		}
	})

	t.Run("Training Failure", func(t *testing.T) {
		api, _ := newTestBackend(t, services.WithMockFailure(services.PretrainedSessionID, "diverged"))

		conn, err := api.Subscribe(ctx, services.PretrainedSessionID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		frames, err := drain(t, conn)
		var closeErr *services.CloseError
		if !errors.As(err, &closeErr) {
			t.Fatalf("expected CloseError, got %v", err)
		}
		if closeErr.Code != services.CloseTrainingFailed || closeErr.Reason != "diverged" {
			t.Errorf("unexpected close %+v", closeErr)
		}
		if !errors.Is(err, shared.ErrTrainingFailed) {
			t.Error("expected CloseError to match ErrTrainingFailed")
		}
		if len(frames) != 1 {
			t.Errorf("expected 1 frame before failure, got %d", len(frames))
		}
	})

	t.Run("Long Failure Reason", func(t *testing.T) {
		reason := strings.Repeat("x", 140)
		api, _ := newTestBackend(t, services.WithMockFailure(services.PretrainedSessionID, reason))

		conn, err := api.Subscribe(ctx, services.PretrainedSessionID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = drain(t, conn)
		var closeErr *services.CloseError
		if !errors.As(err, &closeErr) {
			t.Fatalf("expected CloseError, got %v", err)
		}
		if closeErr.Code != services.CloseTrainingFailed {
			t.Errorf("expected code %d, got %d", services.CloseTrainingFailed, closeErr.Code)
		}
		if closeErr.Reason != reason[:maxCloseReason] {
			t.Errorf("expected reason truncated to %d bytes, got %d", maxCloseReason, len(closeErr.Reason))
		}
	})

	t.Run("Unknown Session", func(t *testing.T) {
		api, _ := newTestBackend(t)

		conn, err := api.Subscribe(ctx, "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = drain(t, conn)
		var closeErr *services.CloseError
		if !errors.As(err, &closeErr) {
			t.Errorf("expected CloseError, got %v", err)
		}
	})
}

func TestTruncateReason(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		n      int
		want   string
	}{
		{"Short", "diverged", 123, "diverged"},
		{"Exact", strings.Repeat("a", 123), 123, strings.Repeat("a", 123)},
		{"Long", strings.Repeat("a", 130), 123, strings.Repeat("a", 123)},
		{"Rune Boundary", "ab" + "é", 3, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateReason(tt.reason, tt.n); got != tt.want {
				t.Errorf("truncateReason(%q, %d) = %q, want %q", tt.reason, tt.n, got, tt.want)
			}
		})
	}
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), log.New(io.Discard))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
