package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sample is a generated MIDI sample stored on disk and recorded in the database.
type Sample struct {
	id        string
	sequence  int
	sessionID string
	seed      int
	path      string
	sizeBytes int64
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewSample creates a [Sample] for the given session and seed.
func NewSample(sessionID string, seed int, path string, sizeBytes int64) *Sample {
	now := time.Now()
	return &Sample{
		sessionID: sessionID,
		seed:      seed,
		path:      path,
		sizeBytes: sizeBytes,
		createdAt: now,
		updatedAt: now,
	}
}

// HydrateSample rebuilds a [Sample] from stored columns.
func HydrateSample(id string, sequence int, sessionID string, seed int, path string, size int64, created, updated time.Time, deleted *time.Time) *Sample {
	return &Sample{
		id:        id,
		sequence:  sequence,
		sessionID: sessionID,
		seed:      seed,
		path:      path,
		sizeBytes: size,
		createdAt: created,
		updatedAt: updated,
		deletedAt: deleted,
	}
}

func (s *Sample) ID() string            { return s.id }
func (s *Sample) Sequence() int         { return s.sequence }
func (s *Sample) SessionID() string     { return s.sessionID }
func (s *Sample) Seed() int             { return s.seed }
func (s *Sample) Path() string          { return s.path }
func (s *Sample) SizeBytes() int64      { return s.sizeBytes }
func (s *Sample) CreatedAt() time.Time  { return s.createdAt }
func (s *Sample) UpdatedAt() time.Time  { return s.updatedAt }
func (s *Sample) DeletedAt() *time.Time { return s.deletedAt }

func (s *Sample) SetID(id string)           { s.id = id }
func (s *Sample) SetSequence(seq int)       { s.sequence = seq }
func (s *Sample) SetPath(p string)          { s.path = p }
func (s *Sample) SetSizeBytes(n int64)      { s.sizeBytes = n }
func (s *Sample) SetUpdatedAt(t time.Time)  { s.updatedAt = t }
func (s *Sample) SetDeletedAt(t *time.Time) { s.deletedAt = t }

// Validate checks required fields and the seed range.
func (s *Sample) Validate() error {
	if s.sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if s.seed < 1 {
		return fmt.Errorf("seed must be positive, got %d", s.seed)
	}
	if s.path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// MarshalJSON exposes the sample's public fields for CLI output.
func (s *Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"id"`
		SessionID string    `json:"session_id"`
		Seed      int       `json:"seed"`
		Path      string    `json:"path"`
		SizeBytes int64     `json:"size_bytes"`
		CreatedAt time.Time `json:"created_at"`
	}{s.id, s.sessionID, s.seed, s.path, s.sizeBytes, s.createdAt})
}

// ProgressSnapshot is the last known chart state of a session, kept for offline export.
type ProgressSnapshot struct {
	id        string
	sequence  int
	sessionID string
	progress  TrainingProgress
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewProgressSnapshot creates a snapshot of accumulated progress for a session.
//
// The progress is stored in the wire shape with every series holding its full history.
func NewProgressSnapshot(sessionID string, progress TrainingProgress) *ProgressSnapshot {
	now := time.Now()
	return &ProgressSnapshot{
		sessionID: sessionID,
		progress:  progress,
		createdAt: now,
		updatedAt: now,
	}
}

// HydrateProgressSnapshot rebuilds a [ProgressSnapshot] from stored columns.
func HydrateProgressSnapshot(id string, sequence int, sessionID string, payload []byte, created, updated time.Time, deleted *time.Time) (*ProgressSnapshot, error) {
	var progress TrainingProgress
	if err := json.Unmarshal(payload, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	return &ProgressSnapshot{
		id:        id,
		sequence:  sequence,
		sessionID: sessionID,
		progress:  progress,
		createdAt: created,
		updatedAt: updated,
		deletedAt: deleted,
	}, nil
}

func (p *ProgressSnapshot) ID() string                 { return p.id }
func (p *ProgressSnapshot) Sequence() int              { return p.sequence }
func (p *ProgressSnapshot) SessionID() string          { return p.sessionID }
func (p *ProgressSnapshot) Progress() TrainingProgress { return p.progress }
func (p *ProgressSnapshot) Finished() bool             { return p.progress.Finished }
func (p *ProgressSnapshot) CreatedAt() time.Time       { return p.createdAt }
func (p *ProgressSnapshot) UpdatedAt() time.Time       { return p.updatedAt }
func (p *ProgressSnapshot) DeletedAt() *time.Time      { return p.deletedAt }

func (p *ProgressSnapshot) SetID(id string)                 { p.id = id }
func (p *ProgressSnapshot) SetSequence(seq int)             { p.sequence = seq }
func (p *ProgressSnapshot) SetProgress(tp TrainingProgress) { p.progress = tp }
func (p *ProgressSnapshot) SetUpdatedAt(t time.Time)        { p.updatedAt = t }
func (p *ProgressSnapshot) SetDeletedAt(t *time.Time)       { p.deletedAt = t }

// Payload returns the JSON encoding stored in the database.
func (p *ProgressSnapshot) Payload() ([]byte, error) {
	return json.Marshal(p.progress)
}

// Validate checks that the snapshot belongs to a session.
func (p *ProgressSnapshot) Validate() error {
	if p.sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return nil
}
