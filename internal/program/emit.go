package program

import (
	"cmp"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/tsconfig"
)

// Edit replaces the bytes [Start, End) with Text. Start == End inserts.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Transformer contributes source edits applied before a file is emitted.
type Transformer interface {
	Name() string
	Edits(sf *SourceFile) ([]Edit, error)
}

// WriteFileFunc receives emitted files. sources lists the program files the
// output was produced from; it is empty for build info.
type WriteFileFunc func(name string, contents []byte, sources []*SourceFile)

// ErrOverlappingEdits is returned when two transformers touch the same bytes.
var ErrOverlappingEdits = errors.New("overlapping edits")

// ApplyEdits applies non-overlapping edits. Insertions at the same offset
// keep their relative order.
func ApplyEdits(src []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return src, nil
	}
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b Edit) int { return cmp.Compare(a.Start, b.Start) })

	var sb strings.Builder
	sb.Grow(len(src) + 256)
	pos := 0
	for _, e := range sorted {
		if e.Start < pos || e.End < e.Start || e.End > len(src) {
			return nil, fmt.Errorf("%w at [%d,%d)", ErrOverlappingEdits, e.Start, e.End)
		}
		sb.Write(src[pos:e.Start])
		sb.WriteString(e.Text)
		pos = e.End
	}
	sb.Write(src[pos:])
	return []byte(sb.String()), nil
}

// OutputName maps a source file to its emitted JavaScript name.
func OutputName(p string) string {
	ext := path.Ext(p)
	stem := strings.TrimSuffix(p, ext)
	switch ext {
	case ".mts", ".mjs":
		return stem + ".mjs"
	case ".cts", ".cjs":
		return stem + ".cjs"
	}
	return stem + ".js"
}

// EmitError carries the messages of a failed transpile.
type EmitError struct {
	File     string
	Messages []api.Message
}

func (e *EmitError) Error() string {
	if len(e.Messages) == 0 {
		return "emit failed for " + e.File
	}
	return fmt.Sprintf("emit failed for %s: %s", e.File, e.Messages[0].Text)
}

func transpile(sf *SourceFile, opts *tsconfig.CompilerOptions, transformers []Transformer) ([]byte, error) {
	var edits []Edit
	for _, t := range transformers {
		e, err := t.Edits(sf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
		edits = append(edits, e...)
	}
	content, err := ApplyEdits(sf.Content(), edits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sf.Path, err)
	}

	result := api.Transform(string(content), api.TransformOptions{
		Loader:         loaderFor(sf.Path),
		Format:         api.FormatESModule,
		Target:         esTarget(opts),
		Sourcefile:     sf.Path,
		Sourcemap:      sourceMapMode(opts),
		SourcesContent: sourcesContent(opts),
		TsconfigRaw:    tsconfigRaw(opts),
		Charset:        api.CharsetUTF8,
		LogLevel:       api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, &EmitError{File: sf.Path, Messages: result.Errors}
	}
	return result.Code, nil
}

func loaderFor(p string) api.Loader {
	switch path.Ext(p) {
	case ".tsx":
		return api.LoaderTSX
	case ".js", ".mjs", ".cjs":
		return api.LoaderJS
	case ".jsx":
		return api.LoaderJSX
	}
	return api.LoaderTS
}

func esTarget(opts *tsconfig.CompilerOptions) api.Target {
	switch year := opts.TargetYear(); {
	case year == 0:
		return api.ES2022
	case year <= 2015:
		return api.ES2015
	case year > 2022:
		return api.ESNext
	default:
		return []api.Target{api.ES2016, api.ES2017, api.ES2018, api.ES2019, api.ES2020, api.ES2021, api.ES2022}[year-2016]
	}
}

func sourceMapMode(opts *tsconfig.CompilerOptions) api.SourceMap {
	if opts.SourceMap || opts.InlineSourceMap {
		return api.SourceMapInline
	}
	return api.SourceMapNone
}

func sourcesContent(opts *tsconfig.CompilerOptions) api.SourcesContent {
	if opts.InlineSources {
		return api.SourcesContentInclude
	}
	return api.SourcesContentExclude
}

func tsconfigRaw(opts *tsconfig.CompilerOptions) string {
	useDefine := false
	if opts.UseDefineForClassFields != nil {
		useDefine = *opts.UseDefineForClassFields
	}
	return fmt.Sprintf(`{"compilerOptions":{"experimentalDecorators":true,"useDefineForClassFields":%t,"verbatimModuleSyntax":false}}`, useDefine)
}
