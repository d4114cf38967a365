// Package compilation orchestrates incremental builds of one TypeScript
// project. A Compilation is initialized once per build; Initialize replaces
// the whole State and reuses the previous one as the incremental baseline.
// Diagnostics are produced lazily and emitted files are handed to the
// bundler.
//
// Two modes exist. AotCompilation analyzes components and lowers templates
// to code at build time. JitCompilation only downlevels constructor
// metadata and turns external resources into imports, leaving templates to
// the runtime compiler.
//
// A Compilation may run on a worker goroutine: ParallelCompilation forwards
// the operations to a Worker and serves the worker's host callbacks through
// internal/bridge.
package compilation
