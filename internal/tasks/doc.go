// Package tasks holds the client-side state machines that sit between the backend services and the UI.
//
// # Call Tracking
//
// [Tracker] wraps one backend operation and exposes its loading/result/error state. Each invocation takes a new
// generation and only the latest generation may publish its outcome; once closed, a tracker ignores every
// completion.
//
// # Progress Merging
//
// [MergeProgress] is a pure reducer folding one progress frame into an [AccumulatedProgress].
// [ProgressStream] drives it from a live subscription, closes the subscription once a finished frame arrives and
// reports training failures (close code 1011) and undecodable frames through a dedicated callback.
//
// # Sample Generation
//
// [SaveSample] generates one MIDI sample for a seed and writes it to disk. [BulkSamples] runs several seeds through
// a worker pool behind a rate limiter and reports through non-blocking [ProgressUpdate] channels.
package tasks
