// Package models defines the wire types exchanged with the training backend and the records persisted locally.
//
// # Wire Types
//
// [ModelVariants], [TrainingSession], [TrainingSessions] and [TrainingSessionCreated] mirror the JSON bodies of the
// request/response endpoints. [TrainingProgress] is a single frame of the progress stream; it carries only the
// chart points produced since the previous frame.
//
// # Persisted Records
//
// [Sample] and [ProgressSnapshot] implement [Model] and are stored by the repositories package.
// Both use private fields with accessors so repositories control identity and timestamps.
package models
