// API service for making HTTP requests to the training backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/gorilla/websocket"
)

var _ Trainer = (*APIService)(nil)

// APIService implements [Trainer] against a running backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// NewAPIService creates a new API service instance for the training backend.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		dialer:     websocket.DefaultDialer,
	}
}

func (a *APIService) Name() string { return "api" }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return a.do(req)
}

// Post performs a POST request with the given body and content type and returns the raw response.
func (a *APIService) Post(ctx context.Context, path, contentType string, body io.Reader) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return a.do(req)
}

func (a *APIService) do(req *http.Request) (*APIResponse, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// decode turns a response into T.
//
// Non-2xx responses become an [OperationError]. A body that is not valid JSON yields the zero value.
func decode[T any](resp *APIResponse) (T, error) {
	var out T
	if !resp.OK() {
		return out, newOperationError(resp)
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		var zero T
		return zero, nil
	}
	return out, nil
}

// ListModels calls GET /models.
func (a *APIService) ListModels(ctx context.Context) (models.ModelVariants, error) {
	resp, err := a.Get(ctx, "/models")
	if err != nil {
		return models.ModelVariants{}, err
	}
	return decode[models.ModelVariants](resp)
}

// GetSession calls GET /training/session/{id}.
func (a *APIService) GetSession(ctx context.Context, sessionID string) (models.TrainingSession, error) {
	resp, err := a.Get(ctx, "/training/session/"+url.PathEscape(sessionID))
	if err != nil {
		return models.TrainingSession{}, err
	}
	return decode[models.TrainingSession](resp)
}

// ListSessions calls GET /training/sessions, filtered by model when modelID is set.
func (a *APIService) ListSessions(ctx context.Context, modelID string) (models.TrainingSessions, error) {
	path := "/training/sessions"
	if modelID != "" {
		path += "?" + url.Values{"model_id": {modelID}}.Encode()
	}

	resp, err := a.Get(ctx, path)
	if err != nil {
		return models.TrainingSessions{}, err
	}
	return decode[models.TrainingSessions](resp)
}

// RegisterSession posts a multipart form with the model id and one "files" part per MIDI file.
func (a *APIService) RegisterSession(ctx context.Context, modelID string, files []models.MidiFile) (models.TrainingSessionCreated, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model_id", modelID); err != nil {
		return models.TrainingSessionCreated{}, fmt.Errorf("failed to write form field: %w", err)
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return models.TrainingSessionCreated{}, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return models.TrainingSessionCreated{}, fmt.Errorf("failed to write form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return models.TrainingSessionCreated{}, fmt.Errorf("failed to finish form: %w", err)
	}

	resp, err := a.Post(ctx, "/training/session", w.FormDataContentType(), &buf)
	if err != nil {
		return models.TrainingSessionCreated{}, err
	}
	return decode[models.TrainingSessionCreated](resp)
}

// GenerateSample calls GET /training/session/{id}/sample?seed=N and returns the raw MIDI bytes.
func (a *APIService) GenerateSample(ctx context.Context, sessionID string, seed int) ([]byte, error) {
	path := fmt.Sprintf("/training/session/%s/sample?seed=%s", url.PathEscape(sessionID), strconv.Itoa(seed))

	resp, err := a.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, newOperationError(resp)
	}
	return resp.Body, nil
}

// Subscribe dials the progress WebSocket of a session.
func (a *APIService) Subscribe(ctx context.Context, sessionID string) (ProgressConn, error) {
	u, err := a.progressURL(sessionID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := a.dialer.DialContext(ctx, u, nil)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			return nil, newOperationError(&APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body})
		}
		return nil, fmt.Errorf("failed to open progress stream: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

// progressURL maps the HTTP base URL onto the ws/wss scheme.
func (a *APIService) progressURL(sessionID string) (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/training/session/" + url.PathEscape(sessionID) + "/progress"
	return u.String(), nil
}

// wsConn adapts a [websocket.Conn] to [ProgressConn].
type wsConn struct {
	conn *websocket.Conn
	once sync.Once
	err  error
}

func (c *wsConn) Next() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err == nil {
		return data, nil
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Code == CloseTrainingFailed {
			return nil, &CloseError{Code: closeErr.Code, Reason: closeErr.Text}
		}
		return nil, io.EOF
	}
	return nil, err
}

func (c *wsConn) Close() error {
	c.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.err = c.conn.Close()
	})
	return c.err
}
