package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/bundler"
	"ngbuild/internal/cache"
	"ngbuild/internal/compilation"
	"ngbuild/internal/jstransform"
	"ngbuild/internal/project"
	"ngbuild/internal/source"
	"ngbuild/internal/template"
	"ngbuild/internal/trace"
	"ngbuild/internal/tsconfig"
)

// ErrBuildFailed marks a target whose build reported errors.
var ErrBuildFailed = errors.New("build failed")

// updater is implemented by compilations hosted in a worker.
type updater interface {
	Initialized() bool
	Update(files []string) error
}

// Session owns everything one target keeps between rebuilds: the source
// file cache, the compilation and the esbuild context.
type Session struct {
	Target project.Target

	root     string
	cache    *cache.SourceFileCache
	comp     compilation.Compilation
	plugin   *bundler.Plugin
	bctx     api.BuildContext
	progress ProgressSink
}

func newCompilation(t project.Target, templates *template.Factory) compilation.Compilation {
	switch {
	case t.Parallel:
		return compilation.NewParallelCompilation(t.JIT(), templates)
	case t.JIT():
		return compilation.NewJitCompilation()
	default:
		return compilation.NewAotCompilation(templates)
	}
}

// NewSession prepares a target. root is the directory outputs are
// reported against.
func NewSession(ctx context.Context, t project.Target, root string, templates *template.Factory, progress ProgressSink) (*Session, error) {
	s := &Session{
		Target:   t,
		root:     root,
		cache:    cache.NewSourceFileCache(t.CacheDir()),
		comp:     newCompilation(t, templates),
		progress: progress,
	}
	workers := t.Workers
	if workers == 0 {
		workers = 4
	}
	s.plugin = bundler.New(ctx, s.comp, bundler.Options{
		Tsconfig:            t.Tsconfig,
		JIT:                 t.JIT(),
		FileReplacements:    t.FileReplacements,
		SourceFileCache:     s.cache,
		JavaScript:          jstransform.New(jstransform.Options{SourceMap: t.Sourcemap, Target: api.ES2022, Workers: workers}),
		TransformStylesheet: stylesheetTransformer(t),
		ProcessWebWorker:    workerBundler(t),
		TransformOptions:    s.transformOptions,
	})

	opts := api.BuildOptions{
		EntryPoints: t.Entry,
		Bundle:      true,
		Write:       false,
		Outdir:      t.OutDir,
		Format:      api.FormatESModule,
		Platform:    api.PlatformBrowser,
		Target:      api.ES2022,
		Splitting:   true,
		Charset:     api.CharsetUTF8,
		ChunkNames:  "chunk-[hash]",
		External:    t.External,
		LogLevel:    api.LogLevelSilent,
		Plugins:     []api.Plugin{s.plugin.Plugin()},
	}
	if t.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	bctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		_ = s.comp.Close()
		return nil, fmt.Errorf("target %s: %w", t.Name, messagesError("esbuild context", ctxErr.Errors))
	}
	s.bctx = bctx
	return s, nil
}

// transformOptions points the build info at the target's configured file.
func (s *Session) transformOptions(opts *tsconfig.CompilerOptions) (*tsconfig.CompilerOptions, error) {
	if s.Target.BuildInfo != "" {
		opts.Incremental = true
		opts.TsBuildInfoFile = s.Target.BuildInfo
	}
	if s.Target.Sourcemap {
		opts.SourceMap = true
	}
	return opts, nil
}

// Build compiles, bundles and writes the target.
func (s *Session) Build(ctx context.Context) (TargetResult, error) {
	name := s.Target.Name
	ctx, span := trace.Start(ctx, trace.ScopeBuild, "target")
	span.WithExtra("target", name)
	result := TargetResult{Name: name}
	defer func() { span.End(fmt.Sprintf("errors=%d outputs=%d", len(result.Errors), len(result.Outputs))) }()

	start := time.Now()
	emitStage(s.progress, name, StageCompile, StatusWorking, nil, 0)
	res := s.bctx.Rebuild()
	result.Errors = res.Errors
	result.Warnings = res.Warnings
	result.Phases = s.plugin.Timer().Report()
	result.Timings.Set(StageCompile, time.Since(start))
	if len(res.Errors) > 0 {
		emitStage(s.progress, name, StageCompile, StatusError, ErrBuildFailed, time.Since(start))
		return result, nil
	}

	writeStart := time.Now()
	emitStage(s.progress, name, StageWrite, StatusWorking, nil, 0)
	written, err := writeOutputFiles(res.OutputFiles)
	result.Outputs = displayPaths(written, s.root)
	result.Timings.Set(StageWrite, time.Since(writeStart))
	if err != nil {
		trace.Error(trace.FromContext(ctx), "write_outputs", err)
		emitStage(s.progress, name, StageWrite, StatusError, err, time.Since(start))
		return result, err
	}
	emitStage(s.progress, name, StageWrite, StatusDone, nil, time.Since(start))
	return result, nil
}

// WatchFiles lists the files the last build read.
func (s *Session) WatchFiles() []string {
	files := append(s.cache.ReferencedFiles(), s.cache.Resources.WatchFiles()...)
	files = append(files, source.NormalizePath(s.Target.Tsconfig))
	slices.Sort(files)
	return slices.Compact(files)
}

// Invalidate drops everything derived from files before the next Build.
func (s *Session) Invalidate(files []string) error {
	s.cache.InvalidatePaths(files...)
	if u, ok := s.comp.(updater); ok && u.Initialized() {
		return u.Update(files)
	}
	return nil
}

// Close disposes the esbuild context and stops the compilation.
func (s *Session) Close() error {
	s.bctx.Dispose()
	return s.comp.Close()
}
