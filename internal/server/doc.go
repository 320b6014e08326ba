// Package server provides HTTP routing, middleware, and the local training backend used by the serve command.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally, registering "METHOD /path" patterns
// so wildcards like {id} are available through [http.Request.PathValue].
//
// # Middleware
//
//   - [Logging] writes one structured log line per request
//   - [Recover] converts handler panics into 500 responses
//   - [RateLimit] applies a per-client token bucket and answers 429 when it is empty
//
// # Training Backend
//
// [TrainingHandler] exposes any services.Trainer over the same HTTP and WebSocket contract the client speaks,
// so the CLI and TUI can be pointed at `serve` with backend.url set. Progress frames are relayed as text
// messages; a training failure closes the socket with code 1011 and the failure reason.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
