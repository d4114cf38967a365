package compilation

import (
	"context"
	"fmt"
	"iter"

	"ngbuild/internal/diag"
	"ngbuild/internal/observ"
	"ngbuild/internal/program"
	"ngbuild/internal/trace"
	"ngbuild/internal/transform"
)

// JitCompilation leaves templates to the runtime compiler: decorators are
// downleveled and resources are loaded through the bundler.
type JitCompilation struct {
	base
	host HostOptions
}

// NewJitCompilation creates an uninitialized JIT compilation.
func NewJitCompilation() *JitCompilation {
	return &JitCompilation{}
}

func (c *JitCompilation) Initialize(ctx context.Context, tsconfigPath string, host HostOptions, transformOpts OptionsTransformer) (*InitResult, error) {
	c.ctx, c.host, c.timer = ctx, host, observ.NewTimer()

	phase := c.timer.Begin("create_program")
	ctx, span := trace.Start(ctx, trace.ScopePhase, "create_program")
	cfg, opts, err := c.loadConfig(tsconfigPath, host, transformOpts)
	if err != nil {
		span.End("config error")
		c.timer.End(phase, "config error")
		return nil, err
	}
	var prevBuilder *program.Builder
	if c.state != nil {
		prevBuilder = c.state.Builder
	}
	prog := program.New(cfg.RootNames, opts, newCompilerHost(host), cfg.Errors)
	builder := program.NewBuilder(prog, prevBuilder, c.readBuildInfo(ctx, opts))
	span.End(fmt.Sprintf("files=%d", len(builder.SourceFiles())))
	c.timer.End(phase, "")

	phase = c.timer.Begin("find_affected")
	_, span = trace.Start(ctx, trace.ScopePhase, "find_affected")
	affected := FindAffectedFiles(builder, AffectedOptions{UsingBuildInfo: builder.UsingBuildInfo()})
	span.End(fmt.Sprintf("affected=%d", affected.Len()))
	c.timer.End(phase, fmt.Sprintf("%d files", affected.Len()))

	c.state = newState(c.state, nil, builder, affected)

	referenced := make([]string, 0, len(builder.SourceFiles()))
	for _, sf := range builder.SourceFiles() {
		referenced = append(referenced, sf.Path)
	}
	return &InitResult{
		Affected:        affected,
		CompilerOptions: opts,
		ReferencedFiles: referenced,
	}, nil
}

func (c *JitCompilation) Diagnose() iter.Seq[diag.Diagnostic] {
	c.mustState("Diagnose")
	return c.diagnose(nil, nil, nil)
}

func (c *JitCompilation) EmitAffectedFiles() ([]EmitFileResult, error) {
	state := c.mustState("EmitAffectedFiles")
	phase := c.timer.Begin("emit")
	_, span := trace.Start(c.ctx, trace.ScopePhase, "emit")

	transformers := []program.Transformer{
		transform.CtorParameters{},
		transform.ResourceReplacement{InlineStyles: true},
		transform.WebWorkers{Process: c.host.ProcessWebWorker},
	}
	buildInfoPath := state.Builder.BuildInfoPath()

	var (
		results  []EmitFileResult
		writeErr error
	)
	write := func(name string, contents []byte, sources []*program.SourceFile) {
		if len(sources) == 0 && buildInfoPath != "" && name == buildInfoPath {
			if err := program.WriteBuildInfo(name, contents); err != nil {
				writeErr = err
			}
			return
		}
		if len(sources) != 1 {
			panic(fmt.Sprintf("compilation: expected one source file for output %s, got %d", name, len(sources)))
		}
		results = append(results, EmitFileResult{Filename: sources[0].Path, Contents: contents})
	}

	for {
		_, ok, err := state.Builder.EmitNextAffectedFile(write, transformers)
		if err != nil {
			span.End("error")
			c.timer.End(phase, "error")
			return nil, err
		}
		if !ok {
			break
		}
	}
	if writeErr != nil {
		trace.Error(trace.FromContext(c.ctx), "write_build_info", writeErr)
	}
	span.End(fmt.Sprintf("files=%d", len(results)))
	c.timer.End(phase, fmt.Sprintf("%d files", len(results)))
	return results, nil
}
