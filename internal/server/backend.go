package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/services"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const maxUploadBytes = 32 << 20

// TrainingHandler serves a [services.Trainer] over the backend's HTTP and WebSocket contract.
//
// Routes:
//
//	GET  /models
//	GET  /training/sessions?model_id=
//	POST /training/session                 (multipart: model_id, files...)
//	GET  /training/session/{id}
//	GET  /training/session/{id}/sample?seed=N
//	GET  /training/session/{id}/progress   (WebSocket)
type TrainingHandler struct {
	trainer  services.Trainer
	logger   *log.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	routes   []string
}

// NewTrainingHandler creates a handler backed by trainer.
func NewTrainingHandler(trainer services.Trainer, logger *log.Logger) *TrainingHandler {
	h := &TrainingHandler{
		trainer: trainer,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}

	h.route("GET /models", h.listModels)
	h.route("GET /training/sessions", h.listSessions)
	h.route("POST /training/session", h.registerSession)
	h.route("GET /training/session/{id}", h.getSession)
	h.route("GET /training/session/{id}/sample", h.generateSample)
	h.route("GET /training/session/{id}/progress", h.progress)
	return h
}

func (h *TrainingHandler) route(pattern string, fn http.HandlerFunc) {
	h.mux.HandleFunc(pattern, fn)
	h.routes = append(h.routes, pattern)
}

// Routes returns the HTTP routes this handler serves.
func (h *TrainingHandler) Routes() []string {
	return h.routes
}

func (h *TrainingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *TrainingHandler) listModels(w http.ResponseWriter, r *http.Request) {
	variants, err := h.trainer.ListModels(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, variants)
}

func (h *TrainingHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.trainer.ListSessions(r.Context(), r.URL.Query().Get("model_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *TrainingHandler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.trainer.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *TrainingHandler) registerSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	modelID := r.FormValue("model_id")
	if modelID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "model_id is required")
		return
	}

	var files []models.MidiFile
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("unreadable file %s", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("unreadable file %s", fh.Filename))
			return
		}
		files = append(files, models.MidiFile{Name: fh.Filename, Data: data})
	}

	created, err := h.trainer.RegisterSession(r.Context(), modelID, files)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("session registered", "session_id", created.SessionID, "model_id", modelID, "files", len(files))
	writeJSON(w, http.StatusOK, created)
}

func (h *TrainingHandler) generateSample(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	seed, err := strconv.Atoi(r.URL.Query().Get("seed"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "seed must be an integer")
		return
	}

	data, err := h.trainer.GenerateSample(r.Context(), sessionID, seed)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%d.mid"`, sessionID, seed))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// progress upgrades to a WebSocket and relays progress frames until the stream ends.
//
// A training failure closes with code 1011 and the failure reason; a completed stream closes normally.
func (h *TrainingHandler) progress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	logger := h.logger.With("session_id", sessionID)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Client frames are discarded; a read error means the peer went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	conn, err := h.trainer.Subscribe(ctx, sessionID)
	if err != nil {
		closeWith(ws, logger, services.CloseTrainingFailed, err.Error())
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		frame, err := conn.Next()
		if err != nil {
			var closeErr *services.CloseError
			switch {
			case errors.As(err, &closeErr):
				logger.Warn("training failed", "reason", closeErr.Reason)
				closeWith(ws, logger, services.CloseTrainingFailed, closeErr.Reason)
			case ctx.Err() != nil:
				logger.Debug("client disconnected")
			case errors.Is(err, io.EOF):
				closeWith(ws, logger, websocket.CloseNormalClosure, "")
			default:
				logger.Error("progress stream error", "error", err)
				closeWith(ws, logger, services.CloseTrainingFailed, err.Error())
			}
			return
		}

		if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Debug("failed to write progress frame", "error", err)
			return
		}
	}
}

// maxCloseReason is the largest reason a close frame can carry after its 2-byte code.
const maxCloseReason = 123

func closeWith(ws *websocket.Conn, logger *log.Logger, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, truncateReason(reason, maxCloseReason))
	if err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		logger.Warn("failed to send close frame", "code", code, "error", err)
	}
}

// truncateReason cuts reason to at most n bytes without splitting a rune.
func truncateReason(reason string, n int) string {
	if len(reason) <= n {
		return reason
	}
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}

// writeError maps an [services.OperationError] onto its status; anything else is a 500.
func (h *TrainingHandler) writeError(w http.ResponseWriter, err error) {
	var opErr *services.OperationError
	if errors.As(err, &opErr) {
		writeDetail(w, opErr.Status, opErr.Detail)
		return
	}
	h.logger.Error("request failed", "error", err)
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// NewBackend builds the router served by the serve command: request logging, panic recovery,
// optional per-client rate limiting, and the training routes.
func NewBackend(trainer services.Trainer, logger *log.Logger, limit rate.Limit, burst int) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	if limit > 0 {
		router.Use(RateLimit(limit, burst))
	}
	router.Handler(NewTrainingHandler(trainer, logger))
	return router
}
