package models

import "time"

// ModelVariant is a trainable model offered by the backend.
type ModelVariant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModelVariants is the body of GET /models.
type ModelVariants struct {
	Variants []ModelVariant `json:"variants"`
}

// Find returns the variant with the given id.
func (v ModelVariants) Find(id string) (ModelVariant, bool) {
	for _, m := range v.Variants {
		if m.ID == id {
			return m, true
		}
	}
	return ModelVariant{}, false
}

// TrainingSessionCreated is the body returned when a session is registered.
type TrainingSessionCreated struct {
	SessionID string `json:"session_id"`
}

// TrainingSession describes a single training session.
type TrainingSession struct {
	SessionID         string    `json:"session_id"`
	ModelID           string    `json:"model_id"`
	CreatedAt         time.Time `json:"created_at"`
	FileNames         []string  `json:"file_names"`
	TrainingCompleted bool      `json:"training_completed"`
}

// TrainingSessionSummary is one entry in a session listing.
type TrainingSessionSummary struct {
	SessionID         string    `json:"session_id"`
	ModelID           string    `json:"model_id"`
	CreatedAt         time.Time `json:"created_at"`
	FileCount         int       `json:"file_count"`
	TrainingCompleted bool      `json:"training_completed"`
}

// TrainingSessions is the body of GET /training/sessions.
type TrainingSessions struct {
	Sessions []TrainingSessionSummary `json:"sessions"`
}

// Find returns the summary with the given session id.
func (s TrainingSessions) Find(id string) (TrainingSessionSummary, bool) {
	for _, e := range s.Sessions {
		if e.SessionID == id {
			return e, true
		}
	}
	return TrainingSessionSummary{}, false
}

// ChartPoint is a single (x, y) sample on a progress chart.
type ChartPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChartSeries is a named line on the progress chart.
type ChartSeries struct {
	Legend string       `json:"legend"`
	Points []ChartPoint `json:"points"`
}

// TrainingProgress is one frame of the progress stream.
//
// Each series carries only the points produced since the previous frame.
type TrainingProgress struct {
	Finished    bool          `json:"finished"`
	XLabel      string        `json:"x_label"`
	YLabel      string        `json:"y_label"`
	ChartSeries []ChartSeries `json:"chart_series"`
}

// MidiFile is a named training file sent when registering a session.
type MidiFile struct {
	Name string
	Data []byte
}
