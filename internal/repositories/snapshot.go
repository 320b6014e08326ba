package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musegen/internal/models"
	"github.com/desertthunder/musegen/internal/shared"
)

const snapshotColumns = "id, sequence, session_id, payload, created_at, updated_at, deleted_at"

// SnapshotRepository implements models.Repository[*models.ProgressSnapshot].
//
// A session has at most one snapshot; [SnapshotRepository.Save] replaces it as new frames arrive.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a snapshot for a session that has none.
func (r *SnapshotRepository) Create(snap *models.ProgressSnapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	payload, err := snap.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	sequence, err := NextSequence(r.db, "progress_snapshots")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO progress_snapshots (id, sequence, session_id, finished, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, snap.SessionID(), snap.Finished(), string(payload), snap.CreatedAt(), snap.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	snap.SetID(id)
	snap.SetSequence(sequence)
	return nil
}

// Save stores snap as the session's snapshot, replacing (and restoring) any earlier one.
func (r *SnapshotRepository) Save(snap *models.ProgressSnapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	var (
		id       string
		sequence int
	)
	err := r.db.QueryRow("SELECT id, sequence FROM progress_snapshots WHERE session_id = ?", snap.SessionID()).Scan(&id, &sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return r.Create(snap)
	}
	if err != nil {
		return fmt.Errorf("failed to look up snapshot: %w", err)
	}

	payload, err := snap.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE progress_snapshots
		SET finished = ?, payload = ?, updated_at = ?, deleted_at = NULL
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, snap.Finished(), string(payload), now, id); err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}

	snap.SetID(id)
	snap.SetSequence(sequence)
	snap.SetUpdatedAt(now)
	snap.SetDeletedAt(nil)
	return nil
}

// Get retrieves a snapshot by ID, excluding soft-deleted snapshots
func (r *SnapshotRepository) Get(id string) (*models.ProgressSnapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM progress_snapshots WHERE id = ? AND deleted_at IS NULL"
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySession retrieves the snapshot of a training session
func (r *SnapshotRepository) GetBySession(sessionID string) (*models.ProgressSnapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM progress_snapshots WHERE session_id = ? AND deleted_at IS NULL"
	return r.scan(r.db.QueryRow(query, sessionID))
}

// Update replaces the payload of an existing snapshot
func (r *SnapshotRepository) Update(snap *models.ProgressSnapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	payload, err := snap.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE progress_snapshots
		SET finished = ?, payload = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, snap.Finished(), string(payload), now, snap.ID())
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	if err := expectOne(result, shared.ErrSnapshotNotFound, snap.ID()); err != nil {
		return err
	}

	snap.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a snapshot by ID
func (r *SnapshotRepository) Delete(id string) error {
	query := `
		UPDATE progress_snapshots
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return expectOne(result, shared.ErrSnapshotNotFound, id)
}

// List retrieves snapshots in sequence order.
//
// Supported criteria: "finished" (bool).
func (r *SnapshotRepository) List(criteria map[string]any) ([]*models.ProgressSnapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM progress_snapshots WHERE deleted_at IS NULL"
	args := []any{}

	if finished, ok := criteria["finished"].(bool); ok {
		query += " AND finished = ?"
		args = append(args, finished)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.ProgressSnapshot
	for rows.Next() {
		snap, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return snaps, nil
}

func (r *SnapshotRepository) scan(row scanner) (*models.ProgressSnapshot, error) {
	var (
		id        string
		sequence  int
		sessionID string
		payload   string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &sessionID, &payload, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	return models.HydrateProgressSnapshot(id, sequence, sessionID, []byte(payload), createdAt, updatedAt, nullableTime(deletedAt))
}
