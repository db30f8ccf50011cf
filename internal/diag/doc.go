// Package diag defines the diagnostic model shared by directive parsing,
// import resolution, WGSL scanning and project graph checks.
//
// Diagnostic is the central record: a Severity, a numeric Code with a stable
// string form (DIR/RES/WGS/IO/PRJ series), a short Message, a primary
// source.Span and optional Notes. Producers emit through a Reporter;
// BagReporter collects into a Bag which supports sorting and deduplication.
//
// Package diag performs no IO and no formatting. Rendering lives in
// internal/diagfmt.
package diag
