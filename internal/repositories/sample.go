package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
)

const sampleColumns = "id, sequence, session_id, seed, path, size_bytes, created_at, updated_at, deleted_at"

// SampleRepository implements models.Repository[*models.Sample].
//
// Every sample generated from the piano or the samples command is recorded here so that
// the history command can list what was written to disk.
type SampleRepository struct {
	db *sql.DB
}

// NewSampleRepository creates a new SampleRepository with the given database connection
func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// Create inserts a new [models.Sample] with a generated ID and sequence
func (r *SampleRepository) Create(sample *models.Sample) error {
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "samples")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO samples (id, sequence, session_id, seed, path, size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		sample.SessionID(),
		sample.Seed(),
		sample.Path(),
		sample.SizeBytes(),
		sample.CreatedAt(),
		sample.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	sample.SetID(id)
	sample.SetSequence(sequence)
	return nil
}

// Get retrieves a sample by ID, excluding soft-deleted samples
func (r *SampleRepository) Get(id string) (*models.Sample, error) {
	query := "SELECT " + sampleColumns + " FROM samples WHERE id = ? AND deleted_at IS NULL"
	return r.scan(r.db.QueryRow(query, id))
}

// Update rewrites the path and size of an existing sample
func (r *SampleRepository) Update(sample *models.Sample) error {
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	query := `
		UPDATE samples
		SET path = ?, size_bytes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, sample.Path(), sample.SizeBytes(), now, sample.ID())
	if err != nil {
		return fmt.Errorf("failed to update sample: %w", err)
	}
	if err := expectOne(result, shared.ErrSampleNotFound, sample.ID()); err != nil {
		return err
	}

	sample.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a sample by ID. The file on disk is left in place.
func (r *SampleRepository) Delete(id string) error {
	query := `
		UPDATE samples
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}
	return expectOne(result, shared.ErrSampleNotFound, id)
}

// List retrieves samples matching the given criteria in sequence order.
//
// Supported criteria: "session_id" (string) and "seed" (int).
func (r *SampleRepository) List(criteria map[string]any) ([]*models.Sample, error) {
	query := "SELECT " + sampleColumns + " FROM samples WHERE deleted_at IS NULL"
	args := []any{}

	if sessionID, ok := criteria["session_id"].(string); ok && sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	if seed, ok := criteria["seed"].(int); ok && seed > 0 {
		query += " AND seed = ?"
		args = append(args, seed)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.Sample
	for rows.Next() {
		sample, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return samples, nil
}

// ListBySession retrieves every sample generated for a session
func (r *SampleRepository) ListBySession(sessionID string) ([]*models.Sample, error) {
	return r.List(map[string]any{"session_id": sessionID})
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SampleRepository) scan(row scanner) (*models.Sample, error) {
	var (
		id        string
		sequence  int
		sessionID string
		seed      int
		path      string
		size      int64
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &sessionID, &seed, &path, &size, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSampleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sample: %w", err)
	}

	return models.HydrateSample(id, sequence, sessionID, seed, path, size, createdAt, updatedAt, nullableTime(deletedAt)), nil
}
