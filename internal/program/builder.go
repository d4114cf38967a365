package program

import (
	"slices"

	"ngbuild/internal/diag"
	"ngbuild/internal/source"
)

// AffectedFileResult is one step of SemanticDiagnosticsOfNextAffectedFile.
type AffectedFileResult struct {
	File        *SourceFile
	Diagnostics []diag.Diagnostic
}

// Builder tracks per-file change state across programs: which files have
// semantic changes to report and which still need emitting.
type Builder struct {
	program       *Program
	optionsHash   string
	buildInfoPath string
	files         map[string]*FileState

	semanticQueue []*SourceFile
	semanticIdx   int
	emitQueue     []*SourceFile
	emitIdx       int

	buildInfoPending bool
	fromBuildInfo    bool
}

// NewBuilder creates a builder for p. The baseline is old when present,
// otherwise info (persisted state), otherwise nothing: every file is new.
func NewBuilder(p *Program, old *Builder, info *BuildInfo) *Builder {
	b := &Builder{
		program:       p,
		optionsHash:   p.Options().Hash(),
		buildInfoPath: p.Options().BuildInfoPath(),
		files:         make(map[string]*FileState, len(p.files)),
	}
	b.buildInfoPending = b.buildInfoPath != ""

	var (
		prev         map[string]*FileState
		prevOptsHash string
	)
	switch {
	case old != nil:
		prev, prevOptsHash = old.files, old.optionsHash
	case info != nil:
		prev, prevOptsHash = info.Files, info.OptionsHash
		b.fromBuildInfo = true
	}
	optionsChanged := prev != nil && prevOptsHash != b.optionsHash

	sigChanged := make(map[string]bool)
	for _, sf := range p.files {
		st := &FileState{
			Version:   sf.Version,
			Signature: sf.Signature,
			Deps:      p.deps[sf.Path],
		}
		base := prev[sf.Path]
		switch {
		case base == nil || optionsChanged || base.Version != sf.Version:
			st.SemanticPending = true
		default:
			st.Emitted = base.Emitted
			st.SemanticPending = base.SemanticPending || !slices.Equal(base.Deps, st.Deps)
			if !st.SemanticPending && base.HasSemantic {
				st.Semantic, st.HasSemantic = base.Semantic, true
			}
		}
		if base == nil || base.Signature != sf.Signature {
			sigChanged[sf.Path] = true
		}
		b.files[sf.Path] = st
	}

	// importers of a file whose public shape changed are affected too
	for _, sf := range p.files {
		st := b.files[sf.Path]
		if st.SemanticPending {
			continue
		}
		for _, dep := range st.Deps {
			if sigChanged[dep] {
				st.SemanticPending = true
				st.Semantic, st.HasSemantic = nil, false
				break
			}
		}
	}

	for _, sf := range p.files {
		st := b.files[sf.Path]
		if st.SemanticPending {
			b.semanticQueue = append(b.semanticQueue, sf)
		}
		if !st.Emitted && !sf.IsDeclaration {
			b.emitQueue = append(b.emitQueue, sf)
		}
	}
	return b
}

// Program returns the program the builder was created for.
func (b *Builder) Program() *Program { return b.program }

// SourceFile looks a file up in the program.
func (b *Builder) SourceFile(name string) (*SourceFile, bool) {
	return b.program.SourceFile(name)
}

// UsingBuildInfo reports whether the baseline came from persisted state.
func (b *Builder) UsingBuildInfo() bool { return b.fromBuildInfo }

// SemanticDiagnosticsOfNextAffectedFile hands out the next file with
// semantic changes together with its diagnostics. Files for which ignore
// returns true are consumed without computing diagnostics. Returns false
// once every affected file has been handed out.
func (b *Builder) SemanticDiagnosticsOfNextAffectedFile(ignore func(*SourceFile) bool) (*AffectedFileResult, bool) {
	for b.semanticIdx < len(b.semanticQueue) {
		sf := b.semanticQueue[b.semanticIdx]
		b.semanticIdx++
		st := b.files[sf.Path]
		st.SemanticPending = false
		if ignore != nil && ignore(sf) {
			continue
		}
		return &AffectedFileResult{File: sf, Diagnostics: b.SemanticDiagnostics(sf)}, true
	}
	return nil, false
}

// SemanticDiagnostics returns cached semantic diagnostics, computing them
// on first use.
func (b *Builder) SemanticDiagnostics(sf *SourceFile) []diag.Diagnostic {
	st, ok := b.files[sf.Path]
	if !ok {
		return b.program.SemanticDiagnostics(sf)
	}
	if !st.HasSemantic {
		st.Semantic = b.program.SemanticDiagnostics(sf)
		st.HasSemantic = true
	}
	return st.Semantic
}

func (b *Builder) SyntacticDiagnostics(sf *SourceFile) []diag.Diagnostic {
	return sf.SyntacticDiagnostics()
}

func (b *Builder) OptionsDiagnostics() []diag.Diagnostic { return b.program.OptionsDiagnostics() }

func (b *Builder) GlobalDiagnostics() []diag.Diagnostic { return b.program.GlobalDiagnostics() }

// SourceFiles returns the program files in order.
func (b *Builder) SourceFiles() []*SourceFile { return b.program.files }

// Emit transpiles one file through transformers and marks it emitted.
func (b *Builder) Emit(sf *SourceFile, write WriteFileFunc, transformers []Transformer) error {
	code, err := transpile(sf, b.program.options, transformers)
	if err != nil {
		return err
	}
	write(OutputName(sf.Path), code, []*SourceFile{sf})
	if st, ok := b.files[sf.Path]; ok {
		st.Emitted = true
		b.buildInfoPending = b.buildInfoPath != ""
	}
	return nil
}

// EmitNextAffectedFile emits the next file pending emit. After the last
// file it writes build info once (when configured), reported with a nil
// file. Returns false when nothing is left.
func (b *Builder) EmitNextAffectedFile(write WriteFileFunc, transformers []Transformer) (*SourceFile, bool, error) {
	for b.emitIdx < len(b.emitQueue) {
		sf := b.emitQueue[b.emitIdx]
		b.emitIdx++
		if b.files[sf.Path].Emitted {
			continue
		}
		return sf, true, b.Emit(sf, write, transformers)
	}
	if b.buildInfoPending {
		if err := b.EmitBuildInfo(write); err != nil {
			return nil, true, err
		}
		return nil, true, nil
	}
	return nil, false, nil
}

// EmitBuildInfo writes the encoded state through write. No-op when no
// build info path is configured.
func (b *Builder) EmitBuildInfo(write WriteFileFunc) error {
	if b.buildInfoPath == "" {
		return nil
	}
	data, err := encodeBuildInfo(&BuildInfo{OptionsHash: b.optionsHash, Files: b.files})
	if err != nil {
		return err
	}
	b.buildInfoPending = false
	write(b.buildInfoPath, data, nil)
	return nil
}

// BuildInfoPath returns the configured build info location or "".
func (b *Builder) BuildInfoPath() string { return b.buildInfoPath }

// PendingEmit reports whether a file still needs emitting.
func (b *Builder) PendingEmit(name string) bool {
	st, ok := b.files[source.NormalizePath(name)]
	return ok && !st.Emitted
}
