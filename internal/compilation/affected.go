package compilation

import (
	"ngbuild/internal/program"
	"ngbuild/internal/source"
)

// AffectedFileSource is the part of the incremental builder the analysis
// reads.
type AffectedFileSource interface {
	SemanticDiagnosticsOfNextAffectedFile(ignore func(*program.SourceFile) bool) (*program.AffectedFileResult, bool)
	SourceFile(name string) (*program.SourceFile, bool)
	SourceFiles() []*program.SourceFile
}

// EmitSkipOracle decides whether a file's previous output is still valid.
type EmitSkipOracle interface {
	SafeToSkipEmit(sf *program.SourceFile) bool
}

// AffectedOptions configure FindAffectedFiles. Nil sets are empty.
type AffectedOptions struct {
	IgnoreForDiagnostics *source.PathSet
	IgnoreForEmit        *source.PathSet
	Oracle               EmitSkipOracle // nil in JIT mode
	UsingBuildInfo       bool
}

// FindAffectedFiles returns the files to re-diagnose or re-emit: files the
// builder reports with semantic changes, where a changed type-check shim
// stands for its original component file, plus every file whose output the
// oracle cannot reuse.
func FindAffectedFiles(builder AffectedFileSource, opts AffectedOptions) *source.PathSet {
	affected := source.NewPathSet()

	redirect := func(sf *program.SourceFile) {
		original, ok := source.OriginalOfShim(sf.Path)
		if !ok {
			return
		}
		if orig, found := builder.SourceFile(original); found {
			affected.Add(orig.Path)
		}
	}

	for {
		result, ok := builder.SemanticDiagnosticsOfNextAffectedFile(func(sf *program.SourceFile) bool {
			if !opts.IgnoreForDiagnostics.Has(sf.Path) {
				return false
			}
			redirect(sf)
			return true
		})
		if !ok {
			break
		}
		affected.Add(result.File.Path)
	}

	if opts.Oracle != nil {
		for _, sf := range builder.SourceFiles() {
			if opts.IgnoreForEmit.Has(sf.Path) || opts.Oracle.SafeToSkipEmit(sf) {
				continue
			}
			affected.Add(sf.Path)
		}
	}

	// persisted state carries no template type-check results
	if opts.UsingBuildInfo {
		for _, sf := range builder.SourceFiles() {
			if source.IsShim(sf.Path) {
				redirect(sf)
			}
		}
	}
	return affected
}
