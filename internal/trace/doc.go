// Package trace records what the language core is doing: server requests,
// catalog loads, per-document rule passes and recovered rule failures.
//
// Enable tracing via command-line flags:
//
//	libertyls lsp --trace=/tmp/libertyls.ndjson --trace-level=detail
//
// Tracer implementations:
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: immediate write to a file or stderr, text or NDJSON
//
// Levels control verbosity:
//
//   - LevelOff: no tracing
//   - LevelError: only failures (recovered panics, load errors)
//   - LevelPhase: server requests and catalog loads
//   - LevelDetail: per-document passes
//   - LevelDebug: per-element events
//
// Tracers travel through context.Context (WithTracer / FromContext), so
// library packages never reach for a global.
package trace
