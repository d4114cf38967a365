// Package diag defines the diagnostic model shared by the compilation core,
// the bundler plugin and the CLI.
//
// A Diagnostic is plain data: severity, a numeric Code with a stable prefixed
// ID, a message, an optional Location and secondary Notes. Diagnostics cross
// goroutine and worker boundaries by value and are cached per file between
// builds, so the model never holds pointers into parsed programs.
//
// Producers either build values directly (New, NewError, WithNote) or emit
// through a Reporter; BagReporter collects into a Bag which supports sorting
// and deduplication. Rendering lives in internal/diagfmt.
package diag
