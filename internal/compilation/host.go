package compilation

import (
	"context"
	"os"

	"ngbuild/internal/cache"
	"ngbuild/internal/program"
	"ngbuild/internal/source"
	"ngbuild/internal/transform"
	"ngbuild/internal/tsconfig"
)

// TransformStylesheetFunc processes component CSS. stylesheetFile is "" for
// inline styles.
type TransformStylesheetFunc func(ctx context.Context, data, containingFile, stylesheetFile string) (string, error)

// OptionsTransformer adjusts compiler options before the program is built.
type OptionsTransformer func(*tsconfig.CompilerOptions) (*tsconfig.CompilerOptions, error)

// HostOptions connect a compilation to its build session.
type HostOptions struct {
	// FileReplacements maps a file to the file whose content replaces it.
	FileReplacements map[string]string
	// ModifiedFiles overrides SourceFileCache.Modified when set.
	ModifiedFiles       *source.PathSet
	SourceFileCache     *cache.SourceFileCache
	TransformStylesheet TransformStylesheetFunc
	ProcessWebWorker    transform.ProcessWebWorkerFunc
}

func (h HostOptions) modifiedFiles() *source.PathSet {
	if h.ModifiedFiles != nil {
		return h.ModifiedFiles
	}
	if h.SourceFileCache != nil {
		return h.SourceFileCache.Modified
	}
	return nil
}

// compilerHost reads files for the programs, honoring file replacements
// and reusing parsed files from the session cache.
type compilerHost struct {
	opts         HostOptions
	replacements map[string]string
}

func newCompilerHost(opts HostOptions) *compilerHost {
	h := &compilerHost{opts: opts, replacements: make(map[string]string, len(opts.FileReplacements))}
	for from, to := range opts.FileReplacements {
		h.replacements[source.NormalizePath(from)] = source.NormalizePath(to)
	}
	return h
}

func (h *compilerHost) actual(path string) string {
	if r, ok := h.replacements[path]; ok {
		return r
	}
	return path
}

func (h *compilerHost) FileExists(path string) bool {
	info, err := os.Stat(h.actual(path))
	return err == nil && !info.IsDir()
}

func (h *compilerHost) GetSourceFile(path string) (*program.SourceFile, error) {
	c := h.opts.SourceFileCache
	if c != nil {
		if sf, ok := c.Parsed(path); ok {
			return sf, nil
		}
	}
	data, err := os.ReadFile(h.actual(path))
	if err != nil {
		return nil, err
	}
	sf := program.NewSourceFile(path, data)
	if c != nil {
		c.PutParsed(sf)
	}
	return sf, nil
}

func (h *compilerHost) ReadResource(path string) ([]byte, error) {
	return os.ReadFile(h.actual(path))
}

func (h *compilerHost) TransformStylesheet(ctx context.Context, data, containingFile, stylesheetFile string) (string, error) {
	if h.opts.TransformStylesheet == nil {
		return data, nil
	}
	return h.opts.TransformStylesheet(ctx, data, containingFile, stylesheetFile)
}
