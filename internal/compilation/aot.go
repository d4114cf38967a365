package compilation

import (
	"context"
	"fmt"
	"iter"
	"path"

	"ngbuild/internal/aot"
	"ngbuild/internal/diag"
	"ngbuild/internal/observ"
	"ngbuild/internal/program"
	"ngbuild/internal/source"
	"ngbuild/internal/template"
	"ngbuild/internal/trace"
	"ngbuild/internal/transform"
)

// EmitResult is the output of one AOT file emit.
type EmitResult struct {
	Content      []byte
	Dependencies []string
}

// FileEmitterFunc emits one file. ok is false when the file is not part of
// the current program.
type FileEmitterFunc func(path string) (result *EmitResult, ok bool, err error)

// AotCompilation compiles templates ahead of time.
type AotCompilation struct {
	base
	templates *template.Factory
	host      HostOptions
}

// NewAotCompilation creates an uninitialized AOT compilation. templates is
// shared by every compilation of the process.
func NewAotCompilation(templates *template.Factory) *AotCompilation {
	return &AotCompilation{templates: templates}
}

func (c *AotCompilation) Initialize(ctx context.Context, tsconfigPath string, host HostOptions, transformOpts OptionsTransformer) (*InitResult, error) {
	c.ctx, c.host, c.timer = ctx, host, observ.NewTimer()

	phase := c.timer.Begin("create_program")
	ctx, span := trace.Start(ctx, trace.ScopePhase, "create_program")
	cfg, opts, err := c.loadConfig(tsconfigPath, host, transformOpts)
	if err != nil {
		span.End("config error")
		c.timer.End(phase, "config error")
		return nil, err
	}
	compiler, err := c.templates.Load(ctx)
	if err != nil {
		span.End("template compiler")
		c.timer.End(phase, "template compiler")
		return nil, fmt.Errorf("load template compiler: %w", err)
	}

	var prevProgram *aot.Program
	var prevBuilder *program.Builder
	if c.state != nil {
		prevProgram, prevBuilder = c.state.Program, c.state.Builder
	}
	prog := aot.New(ctx, aot.Options{
		ConfigPath:        cfg.Path,
		RootNames:         cfg.RootNames,
		Compiler:          opts,
		Angular:           cfg.Angular,
		ConfigDiagnostics: cfg.Errors,
		Host:              newCompilerHost(host),
		Templates:         compiler,
		ModifiedFiles:     host.modifiedFiles(),
	}, prevProgram)
	builder := program.NewBuilder(prog.TSProgram(), prevBuilder, c.readBuildInfo(ctx, opts))
	span.End(fmt.Sprintf("files=%d", len(builder.SourceFiles())))
	c.timer.End(phase, "")

	phase = c.timer.Begin("find_affected")
	_, span = trace.Start(ctx, trace.ScopePhase, "find_affected")
	affected := FindAffectedFiles(builder, AffectedOptions{
		IgnoreForDiagnostics: prog.IgnoreForDiagnostics(),
		IgnoreForEmit:        prog.IgnoreForEmit(),
		Oracle:               prog,
		UsingBuildInfo:       builder.UsingBuildInfo(),
	})
	span.End(fmt.Sprintf("affected=%d", affected.Len()))
	c.timer.End(phase, fmt.Sprintf("%d files", affected.Len()))

	c.state = newState(c.state, prog, builder, affected)
	return &InitResult{
		Affected:        affected,
		CompilerOptions: opts,
		ReferencedFiles: prog.ReferencedFiles(),
	}, nil
}

func (c *AotCompilation) Diagnose() iter.Seq[diag.Diagnostic] {
	state := c.mustState("Diagnose")
	templates := func(sf *program.SourceFile, mode DiagnosticsMode) []diag.Diagnostic {
		return state.Program.DiagnosticsForFile(sf, mode.optimizeFor())
	}
	return c.diagnose(state.Program.StructuralDiagnostics(), templates, state.Program.IgnoreForDiagnostics())
}

// transformers is the fixed AOT emit pipeline.
func (c *AotCompilation) transformers(prog *aot.Program) []program.Transformer {
	return []program.Transformer{
		transform.ComponentLowering{Program: prog},
		transform.BootstrapSubstitution{},
		transform.WebWorkers{Process: c.host.ProcessWebWorker},
	}
}

// FileEmitter returns an emitter bound to the current state. onAfterEmit
// may be nil.
func (c *AotCompilation) FileEmitter(onAfterEmit func(*program.SourceFile)) FileEmitterFunc {
	state := c.mustState("FileEmitter")
	transformers := c.transformers(state.Program)
	return func(file string) (*EmitResult, bool, error) {
		sf, ok := state.Builder.SourceFile(file)
		if !ok {
			return nil, false, nil
		}
		_, span := trace.Start(c.ctx, trace.ScopeFile, "emit_file")
		span.WithExtra("file", sf.Path)

		var content []byte
		err := state.Builder.Emit(sf, func(name string, data []byte, _ []*program.SourceFile) {
			switch path.Ext(name) {
			case ".js", ".mjs", ".cjs":
				content = data
			}
		}, transformers)
		if err != nil {
			span.End("error")
			return nil, true, err
		}
		state.Program.RecordSuccessfulEmit(sf)
		if onAfterEmit != nil {
			onAfterEmit(sf)
		}
		span.End(fmt.Sprintf("bytes=%d", len(content)))
		return &EmitResult{Content: content, Dependencies: state.Program.ResourceDependencies(sf.Path)}, true, nil
	}
}

func (c *AotCompilation) EmitAffectedFiles() ([]EmitFileResult, error) {
	state := c.mustState("EmitAffectedFiles")
	phase := c.timer.Begin("emit")
	_, span := trace.Start(c.ctx, trace.ScopePhase, "emit")

	emitter := c.FileEmitter(nil)
	ignore := state.Program.IgnoreForEmit()
	var results []EmitFileResult
	for file := range state.Affected.All() {
		if ignore.Has(file) || source.IsDeclarationFile(file) {
			continue
		}
		res, ok, err := emitter(file)
		if err != nil {
			span.End("error")
			c.timer.End(phase, "error")
			return nil, err
		}
		if !ok || res.Content == nil {
			continue
		}
		results = append(results, EmitFileResult{Filename: file, Contents: res.Content})
	}
	if err := persistBuildInfo(state.Builder); err != nil {
		trace.Error(trace.FromContext(c.ctx), "write_build_info", err)
	}
	span.End(fmt.Sprintf("files=%d", len(results)))
	c.timer.End(phase, fmt.Sprintf("%d files", len(results)))
	return results, nil
}
