// Package bundler exposes the compilation as an esbuild plugin.
package bundler

import (
	"context"
	"fmt"
	"path"
	"slices"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/cache"
	"ngbuild/internal/compilation"
	"ngbuild/internal/diag"
	"ngbuild/internal/jstransform"
	"ngbuild/internal/observ"
	"ngbuild/internal/source"
	"ngbuild/internal/trace"
	"ngbuild/internal/transform"
	"ngbuild/internal/tsconfig"
)

// Name is the plugin name reported in esbuild messages.
const Name = "angular-compiler"

// Options configure the plugin for one build target.
type Options struct {
	Tsconfig            string
	JIT                 bool
	FileReplacements    map[string]string
	SourceFileCache     *cache.SourceFileCache
	JavaScript          *jstransform.Transformer
	TransformStylesheet compilation.TransformStylesheetFunc
	ProcessWebWorker    transform.ProcessWebWorkerFunc
	TransformOptions    compilation.OptionsTransformer
}

// Plugin drives a compilation from esbuild's build lifecycle. One Plugin
// serves every rebuild of a build context.
type Plugin struct {
	ctx          context.Context
	opts         Options
	compilation  compilation.Compilation
	replacements map[string]string
	timer        *observ.Timer

	mu            sync.Mutex
	setupWarnings []api.Message
	warned        bool
	initFailed    bool
	jsFiles       map[string]struct{}
}

// New creates a plugin around comp. A nil SourceFileCache or JavaScript
// transformer is replaced by a fresh one.
func New(ctx context.Context, comp compilation.Compilation, opts Options) *Plugin {
	if opts.SourceFileCache == nil {
		opts.SourceFileCache = cache.NewSourceFileCache("")
	}
	if opts.JavaScript == nil {
		opts.JavaScript = jstransform.New(jstransform.Options{})
	}
	replacements := make(map[string]string, len(opts.FileReplacements))
	for from, to := range opts.FileReplacements {
		replacements[source.NormalizePath(from)] = source.NormalizePath(to)
	}
	return &Plugin{
		ctx:          ctx,
		opts:         opts,
		compilation:  comp,
		replacements: replacements,
		timer:        observ.NewTimer(),
		jsFiles:      make(map[string]struct{}),
	}
}

// Timer returns the phase timings of the last build.
func (p *Plugin) Timer() *observ.Timer { return p.timer }

// Plugin returns the esbuild plugin value.
func (p *Plugin) Plugin() api.Plugin {
	return api.Plugin{Name: Name, Setup: p.setup}
}

func (p *Plugin) setup(build api.PluginBuild) {
	build.OnStart(p.onStart)
	build.OnLoad(api.OnLoadOptions{Filter: `\.[cm]?[jt]sx?$`, Namespace: "file"}, p.loadTypeScript)
	build.OnLoad(api.OnLoadOptions{Filter: `\.[cm]?js$`, Namespace: "file"},
		cache.CachedLoad(p.opts.SourceFileCache.Resources, p.loadJavaScript))
	if p.opts.JIT {
		p.setupJIT(build)
	}
	build.OnEnd(p.onEnd)
}

// transformOptions applies the caller's transform, then raises the target
// to ES2022 with define semantics off.
func (p *Plugin) transformOptions(opts *tsconfig.CompilerOptions) (*tsconfig.CompilerOptions, error) {
	if p.opts.TransformOptions != nil {
		var err error
		if opts, err = p.opts.TransformOptions(opts); err != nil {
			return nil, err
		}
	}
	if year := opts.TargetYear(); year < 2022 {
		opts.Target = "ES2022"
		if opts.UseDefineForClassFields == nil {
			useDefine := false
			opts.UseDefineForClassFields = &useDefine
		}
		p.mu.Lock()
		if !p.warned && len(p.setupWarnings) == 0 {
			p.setupWarnings = append(p.setupWarnings, api.Message{
				Detail:     diag.BldSetupWarning.ID(),
				PluginName: Name,
				Text:       `TypeScript compiler options "target" and "useDefineForClassFields" are set to "ES2022" and "false" respectively.`,
				Location:   &api.Location{File: p.opts.Tsconfig},
				Notes:      []api.Note{{Text: "To control ECMA version and features use the browser targets of the build configuration."}},
			})
		}
		p.mu.Unlock()
	}
	return opts, nil
}

func (p *Plugin) onStart() (api.OnStartResult, error) {
	var result api.OnStartResult
	p.timer.Reset()
	ctx, span := trace.Start(p.ctx, trace.ScopeBuild, "compile")
	count := 0
	defer func() { span.End(fmt.Sprintf("diagnostics=%d", count)) }()

	sfc := p.opts.SourceFileCache
	host := compilation.HostOptions{
		FileReplacements:    p.opts.FileReplacements,
		SourceFileCache:     sfc,
		TransformStylesheet: p.opts.TransformStylesheet,
		ProcessWebWorker:    p.opts.ProcessWebWorker,
	}

	phase := p.timer.Begin("initialize")
	res, err := p.compilation.Initialize(ctx, p.opts.Tsconfig, host, p.transformOptions)
	p.mu.Lock()
	p.initFailed = err != nil
	p.mu.Unlock()
	if err != nil {
		p.timer.End(phase, "error")
		result.Errors = append(result.Errors, errorMessage(diag.CfgUnreadable, err))
		return result, nil
	}
	// affected outputs are overwritten by the emit below
	p.timer.End(phase, fmt.Sprintf("%d affected", res.Affected.Len()))

	p.mu.Lock()
	if !p.warned {
		result.Warnings = append(result.Warnings, p.setupWarnings...)
		p.warned = len(p.setupWarnings) > 0
	}
	p.mu.Unlock()

	phase = p.timer.Begin("diagnose")
	for d := range p.compilation.Diagnose() {
		count++
		switch d.Severity {
		case diag.SevError:
			result.Errors = append(result.Errors, toMessage(d))
		case diag.SevWarning:
			result.Warnings = append(result.Warnings, toMessage(d))
		}
	}
	p.timer.End(phase, fmt.Sprintf("%d diagnostics", count))

	phase = p.timer.Begin("emit")
	files, err := p.compilation.EmitAffectedFiles()
	if err != nil {
		p.timer.End(phase, "error")
		result.Errors = append(result.Errors, errorMessage(diag.BldEmitFailed, err))
		return result, nil
	}
	for _, f := range files {
		sfc.TypeScriptOutputs.Store(source.FileURI(f.Filename), cache.Output{Contents: f.Contents})
	}
	p.timer.End(phase, fmt.Sprintf("%d files", len(files)))

	sfc.SetReferencedFiles(res.ReferencedFiles)
	p.rewarmJavaScript(ctx)
	return result, nil
}

// rewarmJavaScript re-transforms, as one batch, the plain JavaScript files of
// earlier builds whose outputs were invalidated since. Failures are left for
// the load of the file to report; deleted files drop out this way too.
func (p *Plugin) rewarmJavaScript(ctx context.Context) {
	sfc := p.opts.SourceFileCache
	p.mu.Lock()
	var stale []string
	for f := range p.jsFiles {
		if _, ok := sfc.JavaScriptOutputs.Load(f); !ok {
			stale = append(stale, f)
		}
	}
	p.mu.Unlock()
	if len(stale) == 0 {
		return
	}
	slices.Sort(stale)

	phase := p.timer.Begin("javascript")
	out, err := p.opts.JavaScript.TransformFiles(ctx, stale)
	for f, data := range out {
		sfc.JavaScriptOutputs.Store(f, data)
	}
	p.mu.Lock()
	for _, f := range stale {
		if _, ok := out[f]; !ok {
			// re-registered by its next load
			delete(p.jsFiles, f)
		}
	}
	p.mu.Unlock()
	if err != nil {
		trace.Error(trace.FromContext(ctx), "rewarm_javascript", err)
	}
	p.timer.End(phase, fmt.Sprintf("%d of %d files", len(out), len(stale)))
}

func isJavaScript(p string) bool {
	switch path.Ext(p) {
	case ".js", ".mjs", ".cjs", ".jsx":
		return true
	}
	return false
}

func (p *Plugin) loadTypeScript(args api.OnLoadArgs) (api.OnLoadResult, error) {
	p.mu.Lock()
	failed := p.initFailed
	p.mu.Unlock()
	if failed {
		// the configuration error already explains the build
		empty := ""
		return api.OnLoadResult{Contents: &empty, Loader: api.LoaderJS}, nil
	}

	file := source.NormalizePath(args.Path)
	request := file
	if r, ok := p.replacements[file]; ok {
		request = r
	}

	sfc := p.opts.SourceFileCache
	uri := source.FileURI(file)
	out, ok := sfc.TypeScriptOutputs.Load(uri)
	if !ok && request != file {
		uri = source.FileURI(request)
		out, ok = sfc.TypeScriptOutputs.Load(uri)
	}
	if !ok {
		if isJavaScript(request) {
			return api.OnLoadResult{}, nil
		}
		msg := api.Message{
			Detail:     diag.IOMissingFromProgram.ID(),
			PluginName: Name,
			Text:       fmt.Sprintf("File '%s' is missing from the TypeScript compilation.", request),
			Notes: []api.Note{{
				Text: "Ensure the file is part of the TypeScript program via the 'files' or 'include' property.",
			}},
		}
		if request != file {
			msg.Notes = append(msg.Notes, api.Note{Text: fmt.Sprintf("File is requested from a file replacement of '%s'.", file)})
		}
		return api.OnLoadResult{Errors: []api.Message{msg}}, nil
	}

	contents := out.Contents
	if !out.Final {
		var err error
		contents, err = p.opts.JavaScript.TransformData(p.ctx, request, contents)
		if err != nil {
			return api.OnLoadResult{Errors: []api.Message{errorMessage(diag.IOTransformFailed, err)}}, nil
		}
		sfc.TypeScriptOutputs.Store(uri, cache.Output{Contents: contents, Final: true})
	}
	text := string(contents)
	return api.OnLoadResult{Contents: &text, Loader: api.LoaderJS}, nil
}

// loadJavaScript handles JavaScript outside the program.
func (p *Plugin) loadJavaScript(args api.OnLoadArgs) (api.OnLoadResult, error) {
	file := source.NormalizePath(args.Path)
	p.mu.Lock()
	p.jsFiles[file] = struct{}{}
	p.mu.Unlock()
	sfc := p.opts.SourceFileCache
	data, ok := sfc.JavaScriptOutputs.Load(file)
	if !ok {
		var err error
		data, err = p.opts.JavaScript.TransformFile(p.ctx, args.Path)
		if err != nil {
			return api.OnLoadResult{Errors: []api.Message{errorMessage(diag.IOTransformFailed, err)}}, nil
		}
		sfc.JavaScriptOutputs.Store(file, data)
	}
	text := string(data)
	return api.OnLoadResult{Contents: &text, Loader: api.LoaderJS}, nil
}

func (p *Plugin) onEnd(result *api.BuildResult) (api.OnEndResult, error) {
	tracer := trace.FromContext(p.ctx)
	trace.Point(tracer, trace.ScopeBuild, "build_timings", p.timer.Summary())
	trace.Point(tracer, trace.ScopeBuild, "build_result",
		fmt.Sprintf("errors=%d warnings=%d", len(result.Errors), len(result.Warnings)))
	return api.OnEndResult{}, nil
}
