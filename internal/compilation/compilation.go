package compilation

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"ngbuild/internal/diag"
	"ngbuild/internal/observ"
	"ngbuild/internal/program"
	"ngbuild/internal/source"
	"ngbuild/internal/trace"
	"ngbuild/internal/tsconfig"
)

// InitResult describes a freshly initialized build.
type InitResult struct {
	Affected        *source.PathSet
	CompilerOptions *tsconfig.CompilerOptions
	ReferencedFiles []string
}

// EmitFileResult is one emitted module, named by its source file.
type EmitFileResult struct {
	Filename string
	Contents []byte
}

// Compilation is the build orchestrator shared by both modes.
type Compilation interface {
	// Initialize starts a build. It must precede every other call.
	Initialize(ctx context.Context, tsconfigPath string, host HostOptions, transform OptionsTransformer) (*InitResult, error)
	// Diagnose yields the build's diagnostics lazily. The sequence can be
	// consumed once.
	Diagnose() iter.Seq[diag.Diagnostic]
	// EmitAffectedFiles emits every affected file and persists build info.
	EmitAffectedFiles() ([]EmitFileResult, error)
	Close() error
}

// base holds what both modes share: the current state and the diagnostics
// walk.
type base struct {
	ctx   context.Context
	state *State
	timer *observ.Timer
}

func (b *base) mustState(op string) *State {
	if b.state == nil {
		panic(fmt.Errorf("%w: %s called before Initialize", ErrNotInitialized, op))
	}
	return b.state
}

// State returns the current snapshot, nil before Initialize.
func (b *base) State() *State { return b.state }

// Timer returns the phase timings of the last build.
func (b *base) Timer() *observ.Timer { return b.timer }

func (b *base) Close() error { return nil }

// loadConfig reads tsconfigPath and applies the build's option defaults and
// the host transformer.
func (b *base) loadConfig(tsconfigPath string, host HostOptions, transform OptionsTransformer) (*tsconfig.ParsedConfig, *tsconfig.CompilerOptions, error) {
	cfg, err := tsconfig.Load(tsconfigPath)
	if err != nil {
		return nil, nil, &ConfigError{Path: tsconfigPath, Err: err}
	}
	opts := cfg.Options.Clone()
	opts.NoEmit = false
	opts.Declaration = false
	opts.OutDir = ""
	if file := host.SourceFileCache.BuildInfoFile(); file != "" && opts.TsBuildInfoFile == "" {
		opts.Incremental = true
		opts.TsBuildInfoFile = file
	}
	if transform != nil {
		opts, err = transform(opts)
		if err != nil {
			return nil, nil, &ConfigError{Path: tsconfigPath, Err: err}
		}
	}
	return cfg, opts, nil
}

// readBuildInfo seeds the first builder of a session from disk. Failures
// only cost incrementality.
func (b *base) readBuildInfo(ctx context.Context, opts *tsconfig.CompilerOptions) *program.BuildInfo {
	if b.state != nil || opts.BuildInfoPath() == "" {
		return nil
	}
	info, err := program.ReadBuildInfo(opts.BuildInfoPath())
	if err != nil {
		trace.Error(trace.FromContext(ctx), "read_build_info", err)
		return nil
	}
	return info
}

// persistBuildInfo writes build info to disk through the builder.
func persistBuildInfo(builder *program.Builder) error {
	var writeErr error
	err := builder.EmitBuildInfo(func(name string, contents []byte, _ []*program.SourceFile) {
		writeErr = program.WriteBuildInfo(name, contents)
	})
	return errors.Join(err, writeErr)
}

// diagnose walks the diagnostics in order: options, global, extra, then per
// program file syntactic, semantic and template diagnostics. templates is
// nil in JIT mode.
func (b *base) diagnose(extra []diag.Diagnostic, templates func(*program.SourceFile, DiagnosticsMode) []diag.Diagnostic, ignore *source.PathSet) iter.Seq[diag.Diagnostic] {
	state := b.mustState("Diagnose")
	ctx := b.ctx
	return func(yield func(diag.Diagnostic) bool) {
		ctx, span := trace.Start(ctx, trace.ScopePhase, "diagnose")
		count := 0
		defer func() { span.End(fmt.Sprintf("diagnostics=%d", count)) }()

		emit := func(ds []diag.Diagnostic) bool {
			for _, d := range ds {
				count++
				if !yield(d) {
					return false
				}
			}
			return true
		}

		builder := state.Builder
		if !emit(builder.OptionsDiagnostics()) || !emit(builder.GlobalDiagnostics()) || !emit(extra) {
			return
		}
		for _, sf := range builder.SourceFiles() {
			if ignore.Has(sf.Path) {
				continue
			}
			if !emit(builder.SyntacticDiagnostics(sf)) || !emit(builder.SemanticDiagnostics(sf)) {
				return
			}
			if sf.IsDeclaration || templates == nil {
				continue
			}
			cached, ok := state.DiagnosticCache[sf.Path]
			if state.Affected.Has(sf.Path) || !ok {
				cached = templates(sf, state.Mode)
				state.DiagnosticCache[sf.Path] = cached
				trace.Point(trace.FromContext(ctx), trace.ScopeFile, "template_diagnostics", sf.Path)
			}
			if !emit(cached) {
				return
			}
		}
	}
}
