// Package trace records what the composer did: which entries were built,
// which modules were loaded and resolved, and how long each step took.
//
// # Usage
//
//	wgslcompose compose --trace=- --trace-level=detail shaders/main.wgsl
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only failures
//   - LevelPhase: driver and per-entry boundaries
//   - LevelDetail: module-level events
//   - LevelDebug: everything including per-declaration events
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeEntry, "compose", parentID)
//	defer span.End("")
package trace
