package tsconfig

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"ngbuild/internal/diag"
	"ngbuild/internal/source"
)

var (
	tsExtensions = []string{".ts", ".tsx", ".mts", ".cts"}
	jsExtensions = []string{".js", ".jsx", ".mjs", ".cjs"}
)

// resolveRootNames expands files/include/exclude into root file names:
// explicit files first, then include matches in pattern order.
func resolveRootNames(cfg *ParsedConfig, l *layer) ([]string, []diag.Diagnostic) {
	var errs []diag.Diagnostic
	seen := source.NewPathSet()

	if l.files != nil {
		for _, f := range *l.files {
			if !fileExists(f) {
				errs = append(errs, diag.NewError(diag.CfgNoInputs, &diag.Location{File: cfg.Path},
					fmt.Sprintf("File '%s' not found.", f)))
				continue
			}
			seen.Add(f)
		}
	}

	include := l.include
	if l.files == nil && include == nil {
		include = &[]string{cfg.Dir + "/**/*"}
	}
	exclude := defaultExcludes(cfg)
	if l.exclude != nil {
		exclude = *l.exclude
	}

	if include != nil {
		for _, pattern := range *include {
			for _, match := range expandInclude(pattern) {
				if !hasSupportedExtension(match, cfg.Options.AllowJS) || isExcluded(match, exclude) {
					continue
				}
				seen.Add(match)
			}
		}
	}

	if seen.Len() == 0 {
		errs = append(errs, diag.NewError(diag.CfgNoInputs, &diag.Location{File: cfg.Path},
			fmt.Sprintf("No inputs were found in config file '%s'. Specified 'include' paths were '%s' and 'exclude' paths were '%s'.",
				cfg.Path, quoteList(include), quoteList(&exclude))))
	}
	return seen.Slice(), errs
}

func defaultExcludes(cfg *ParsedConfig) []string {
	out := []string{
		cfg.Dir + "/node_modules",
		cfg.Dir + "/bower_components",
		cfg.Dir + "/jspm_packages",
	}
	if cfg.Options.OutDir != "" {
		out = append(out, cfg.Options.OutDir)
	}
	return out
}

// expandInclude globs one absolute include pattern. A final segment without
// wildcards or extension names a directory.
func expandInclude(pattern string) []string {
	last := path.Base(pattern)
	if !strings.ContainsAny(last, "*?") && path.Ext(last) == "" {
		pattern += "/**/*"
	}
	base, rel := doublestar.SplitPattern(pattern)
	if rel == "" || rel == "." {
		if fileExists(base) {
			return []string{base}
		}
		return nil
	}
	matches, err := doublestar.Glob(os.DirFS(base), rel, doublestar.WithFilesOnly())
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, source.NormalizePath(path.Join(base, m)))
	}
	return out
}

func isExcluded(file string, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, file); ok {
			return true
		}
		if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/")+"/**", file); ok {
			return true
		}
	}
	return false
}

func hasSupportedExtension(file string, allowJS bool) bool {
	for _, ext := range tsExtensions {
		if strings.HasSuffix(file, ext) {
			return true
		}
	}
	if allowJS {
		for _, ext := range jsExtensions {
			if strings.HasSuffix(file, ext) {
				return true
			}
		}
	}
	return false
}

func quoteList(list *[]string) string {
	if list == nil {
		return "[]"
	}
	q := make([]string, len(*list))
	for i, s := range *list {
		q[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(q, ",") + "]"
}
