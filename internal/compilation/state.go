package compilation

import (
	"ngbuild/internal/aot"
	"ngbuild/internal/diag"
	"ngbuild/internal/program"
	"ngbuild/internal/source"
)

// DiagnosticsMode selects how template diagnostics are computed.
type DiagnosticsMode uint8

const (
	// SingleFile is used when exactly one file is affected.
	SingleFile DiagnosticsMode = iota
	WholeProgram
)

func (m DiagnosticsMode) String() string {
	if m == SingleFile {
		return "single-file"
	}
	return "whole-program"
}

func (m DiagnosticsMode) optimizeFor() aot.OptimizeFor {
	if m == SingleFile {
		return aot.SingleFile
	}
	return aot.WholeProgram
}

// State is the snapshot of one build. It is created by Initialize and
// replaced, never mutated from outside, by the next one.
type State struct {
	Program         *aot.Program // nil in JIT mode
	Builder         *program.Builder
	Affected        *source.PathSet
	Mode            DiagnosticsMode
	DiagnosticCache map[string][]diag.Diagnostic
}

// newState builds the next snapshot. The diagnostic cache moves over from
// prev; entries of files that left the program are evicted.
func newState(prev *State, prog *aot.Program, builder *program.Builder, affected *source.PathSet) *State {
	s := &State{
		Program:  prog,
		Builder:  builder,
		Affected: affected,
		Mode:     WholeProgram,
	}
	if affected.Len() == 1 {
		s.Mode = SingleFile
	}
	if prev != nil && prev.DiagnosticCache != nil {
		s.DiagnosticCache = prev.DiagnosticCache
	} else {
		s.DiagnosticCache = make(map[string][]diag.Diagnostic)
	}
	s.evict(builder.SourceFiles())
	return s
}

// evict drops cached diagnostics of files not in files.
func (s *State) evict(files []*program.SourceFile) {
	live := make(map[string]struct{}, len(files))
	for _, sf := range files {
		live[sf.Path] = struct{}{}
	}
	for path := range s.DiagnosticCache {
		if _, ok := live[path]; !ok {
			delete(s.DiagnosticCache, path)
		}
	}
}
