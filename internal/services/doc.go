// Package services defines the [Trainer] interface for the music-generation training backend and its two
// implementations.
//
// # Trainer Interface
//
// The client consumes a small surface: list model variants, read and list training sessions, register a new
// session with MIDI files, generate a sample for a seed, and subscribe to the live progress stream of a session.
//
// # Implementations
//
// [APIService] talks to a real backend over HTTP, with a gorilla/websocket connection for progress frames.
//
// [MockService] resolves every call with canned data after a fixed delay. It is selected when no backend URL is
// configured and honors the same contract, including the progress stream, so callers cannot tell the modes apart.
//
// [NewTrainer] picks one of the two once, at construction time.
//
// # Error Handling
//
// Any non-2xx response becomes an [OperationError] carrying the status and the optional "detail" string from the
// JSON error body. OperationError unwraps to [shared.ErrAPIRequest].
//
// A success body that is not valid JSON is treated as an empty result rather than an error.
//
// # Progress Stream
//
// [ProgressConn.Next] returns raw frames in arrival order. A close with code 1011 surfaces as a [CloseError]
// carrying the server's reason; any other closure surfaces as [io.EOF].
package services
