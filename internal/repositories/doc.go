// Package repositories implements SQLite persistence for generated samples and progress snapshots.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [SampleRepository] : MIDI samples written by the piano and the samples command
//   - [SnapshotRepository] : Last accumulated chart per training session, kept for offline export
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
