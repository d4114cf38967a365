// Package trace records what the build pipeline is doing.
//
// Events are emitted as spans (begin/end pairs) or points. A Tracer travels
// through the pipeline inside a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePhase, "emit")
//	defer span.End("")
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: only explicit error points
//   - LevelPhase: driver, build and compilation phase boundaries
//   - LevelDetail: adds per-file work (emit, load, transform)
//   - LevelDebug: everything
//
// # Tracers
//
//   - Nop: zero overhead when disabled
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for a post-mortem dump
package trace
