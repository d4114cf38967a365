package bundler

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/cache"
	"ngbuild/internal/diag"
	"ngbuild/internal/source"
	"ngbuild/internal/transform"
)

// jitImporter travels from resolve to load for virtual resources.
type jitImporter struct {
	File string
	Dir  string
}

// setupJIT serves the virtual template and style modules imported by
// JIT output.
func (p *Plugin) setupJIT(build api.PluginBuild) {
	build.OnResolve(api.OnResolveOptions{Filter: `^angular:jit:`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		kind, origin, payload, ok := transform.ResourceSpecifier(args.Path)
		if !ok {
			return api.OnResolveResult{Errors: []api.Message{{PluginName: Name, Text: fmt.Sprintf("Invalid JIT resource specifier '%s'.", args.Path)}}}, nil
		}
		spec := args.Path
		if origin == "file" {
			abs := source.NormalizePath(filepath.Join(args.ResolveDir, payload))
			spec = transform.JITNamespace + ":" + kind + ":file;" + abs
		}
		return api.OnResolveResult{
			Path:       spec,
			Namespace:  transform.JITNamespace,
			PluginData: jitImporter{File: source.NormalizePath(args.Importer), Dir: args.ResolveDir},
		}, nil
	})

	build.OnLoad(api.OnLoadOptions{Filter: `.`, Namespace: transform.JITNamespace},
		cache.CachedLoad(p.opts.SourceFileCache.Resources, p.loadJITResource))
}

func (p *Plugin) loadJITResource(args api.OnLoadArgs) (api.OnLoadResult, error) {
	kind, origin, payload, ok := transform.ResourceSpecifier(args.Path)
	if !ok {
		return api.OnLoadResult{Errors: []api.Message{{PluginName: Name, Text: fmt.Sprintf("Invalid JIT resource specifier '%s'.", args.Path)}}}, nil
	}
	importer, _ := args.PluginData.(jitImporter)

	var (
		data     = payload
		file     string
		watch    []string
		resolved = importer.Dir
	)
	if origin == "file" {
		file = payload
		content, err := os.ReadFile(file)
		if err != nil {
			return api.OnLoadResult{Errors: []api.Message{errorMessage(diag.IOLoadFileError, fmt.Errorf("could not load %s file '%s': %w", kind, file, err))}}, nil
		}
		data = string(content)
		watch = []string{file}
		resolved = path.Dir(file)
	}

	if kind == "style" && p.opts.TransformStylesheet != nil {
		css, err := p.opts.TransformStylesheet(p.ctx, data, importer.File, file)
		if err != nil {
			return api.OnLoadResult{Errors: []api.Message{errorMessage(diag.BldStylesheetFailed, err)}, WatchFiles: watch}, nil
		}
		data = css
	}
	return api.OnLoadResult{
		Contents:   &data,
		Loader:     api.LoaderText,
		ResolveDir: resolved,
		WatchFiles: watch,
	}, nil
}
