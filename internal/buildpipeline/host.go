package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/hashicorp/go-multierror"

	"ngbuild/internal/compilation"
	"ngbuild/internal/project"
	"ngbuild/internal/trace"
	"ngbuild/internal/transform"
)

var errNoWorkerOutput = errors.New("worker bundle produced no JavaScript output")

// messagesError folds esbuild errors into one error.
func messagesError(what string, msgs []api.Message) error {
	var result *multierror.Error
	for _, m := range msgs {
		text := m.Text
		if m.Location != nil {
			text = fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column+1, m.Text)
		}
		result = multierror.Append(result, errors.New(text))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// stylesheetTransformer processes component styles with esbuild's CSS
// loader.
func stylesheetTransformer(t project.Target) compilation.TransformStylesheetFunc {
	return func(ctx context.Context, data, containingFile, stylesheetFile string) (string, error) {
		name := stylesheetFile
		if name == "" {
			name = containingFile
		}
		_, span := trace.Start(ctx, trace.ScopeFile, "stylesheet")
		defer span.End(name)

		opts := api.TransformOptions{
			Loader:     api.LoaderCSS,
			Sourcefile: name,
			Target:     api.ES2022,
			Charset:    api.CharsetUTF8,
			LogLevel:   api.LogLevelSilent,
		}
		if t.Sourcemap {
			opts.Sourcemap = api.SourceMapInline
		}
		res := api.Transform(data, opts)
		if err := messagesError("stylesheet "+name, res.Errors); err != nil {
			return "", err
		}
		return strings.TrimSuffix(string(res.Code), "\n"), nil
	}
}

// workerBundler bundles a web worker entry into the target's output
// directory and returns its URL relative to the main bundle.
func workerBundler(t project.Target) transform.ProcessWebWorkerFunc {
	return func(workerFile, containingFile string) (string, error) {
		opts := api.BuildOptions{
			EntryPoints: []string{workerFile},
			Bundle:      true,
			Write:       false,
			Outdir:      t.OutDir,
			EntryNames:  "worker-[hash]",
			Format:      api.FormatESModule,
			Platform:    api.PlatformBrowser,
			Target:      api.ES2022,
			Charset:     api.CharsetUTF8,
			External:    t.External,
			LogLevel:    api.LogLevelSilent,
		}
		if t.Sourcemap {
			opts.Sourcemap = api.SourceMapLinked
		}
		res := api.Build(opts)
		if err := messagesError("web worker "+workerFile, res.Errors); err != nil {
			return "", err
		}
		if _, err := writeOutputFiles(res.OutputFiles); err != nil {
			return "", err
		}
		for _, f := range res.OutputFiles {
			if filepath.Ext(f.Path) == ".js" {
				return "./" + filepath.Base(f.Path), nil
			}
		}
		return "", fmt.Errorf("%s: %w", workerFile, errNoWorkerOutput)
	}
}

// writeOutputFiles writes esbuild outputs and returns their paths.
func writeOutputFiles(files []api.OutputFile) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.Path), 0o750); err != nil {
			return written, fmt.Errorf("failed to create output dir: %w", err)
		}
		if err := os.WriteFile(f.Path, f.Contents, 0o600); err != nil {
			return written, fmt.Errorf("failed to write build output %q: %w", f.Path, err)
		}
		written = append(written, f.Path)
	}
	return written, nil
}
