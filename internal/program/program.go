package program

import (
	"fmt"
	"path"
	"strings"

	"ngbuild/internal/diag"
	"ngbuild/internal/source"
	"ngbuild/internal/tsconfig"
)

// Host gives a program access to files. Implementations may cache parsed
// files across programs.
type Host interface {
	FileExists(path string) bool
	GetSourceFile(path string) (*SourceFile, error)
}

// Program is an immutable set of source files with resolved relative
// imports.
type Program struct {
	options     *tsconfig.CompilerOptions
	rootNames   []string
	files       []*SourceFile
	byPath      map[string]*SourceFile
	deps        map[string][]string
	unresolved  map[string][]Import
	optionDiags []diag.Diagnostic
	globalDiags []diag.Diagnostic
}

// New builds a program from root names, following relative imports.
// configDiags are reported as option diagnostics.
func New(rootNames []string, opts *tsconfig.CompilerOptions, host Host, configDiags []diag.Diagnostic) *Program {
	p := &Program{
		options:     opts,
		rootNames:   rootNames,
		byPath:      make(map[string]*SourceFile, len(rootNames)),
		deps:        make(map[string][]string),
		unresolved:  make(map[string][]Import),
		optionDiags: configDiags,
	}

	queue := make([]string, 0, len(rootNames))
	for _, r := range rootNames {
		queue = append(queue, source.NormalizePath(r))
	}
	roots := len(queue)
	for i := 0; i < len(queue); i++ {
		name := queue[i]
		if _, done := p.byPath[name]; done {
			continue
		}
		if !host.FileExists(name) {
			if i < roots {
				p.globalDiags = append(p.globalDiags, diag.NewError(diag.IOLoadFileError, nil,
					fmt.Sprintf("File '%s' not found.", name)))
			}
			continue
		}
		sf, err := host.GetSourceFile(name)
		if err != nil {
			p.globalDiags = append(p.globalDiags, diag.NewError(diag.IOLoadFileError, nil,
				fmt.Sprintf("Cannot read file '%s': %v.", name, err)))
			continue
		}
		p.byPath[sf.Path] = sf
		p.files = append(p.files, sf)

		for _, imp := range sf.Syntax.Imports {
			if !isRelative(imp.Specifier) {
				continue
			}
			target, ok := p.resolve(host, sf.Path, imp.Specifier)
			if !ok {
				p.unresolved[sf.Path] = append(p.unresolved[sf.Path], imp)
				continue
			}
			if target == "" {
				continue // resolved outside the program
			}
			p.deps[sf.Path] = append(p.deps[sf.Path], target)
			queue = append(queue, target)
		}
	}
	return p
}

func isRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".."
}

// resolve returns the imported program file. ok with an empty target means
// the import resolved to a file that does not join the program (plain JS
// without allowJs).
func (p *Program) resolve(host Host, from, spec string) (string, bool) {
	base := path.Join(path.Dir(from), spec)
	var candidates []string
	switch ext := path.Ext(base); ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		stem := strings.TrimSuffix(base, ext)
		tsExt := map[string]string{".js": ".ts", ".jsx": ".tsx", ".mjs": ".mts", ".cjs": ".cts"}[ext]
		candidates = append(candidates, stem+tsExt, stem+".d.ts")
		if p.options.AllowJS {
			candidates = append(candidates, base)
		} else if host.FileExists(base) {
			return "", true
		}
	case ".ts", ".tsx", ".mts", ".cts":
		candidates = append(candidates, base)
	default:
		candidates = append(candidates, base+".ts", base+".tsx", base+".d.ts", base+"/index.ts", base+"/index.d.ts")
		if p.options.AllowJS {
			candidates = append(candidates, base+".js", base+"/index.js")
		} else if host.FileExists(base+".js") || host.FileExists(base+"/index.js") {
			return "", true
		}
	}
	for _, c := range candidates {
		if host.FileExists(c) {
			return source.NormalizePath(c), true
		}
	}
	return "", false
}

// SourceFiles returns files in program order.
func (p *Program) SourceFiles() []*SourceFile { return p.files }

// SourceFile looks a file up by path.
func (p *Program) SourceFile(name string) (*SourceFile, bool) {
	sf, ok := p.byPath[source.NormalizePath(name)]
	return sf, ok
}

func (p *Program) Options() *tsconfig.CompilerOptions { return p.options }

func (p *Program) RootNames() []string { return p.rootNames }

// Dependencies returns the resolved relative imports of a file.
func (p *Program) Dependencies(name string) []string { return p.deps[name] }

func (p *Program) OptionsDiagnostics() []diag.Diagnostic { return p.optionDiags }

func (p *Program) GlobalDiagnostics() []diag.Diagnostic { return p.globalDiags }

// SemanticDiagnostics checks imports and duplicate class declarations.
func (p *Program) SemanticDiagnostics(sf *SourceFile) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, imp := range p.unresolved[sf.Path] {
		out = append(out, diag.NewError(diag.SemCannotFindModule,
			sf.Text.Location(imp.Range.Start, imp.Range.End),
			fmt.Sprintf("Cannot find module '%s' or its corresponding type declarations.", imp.Specifier)))
	}
	seen := make(map[string]bool, len(sf.Syntax.Classes))
	for _, c := range sf.Syntax.Classes {
		if c.Name == "" {
			continue
		}
		if seen[c.Name] {
			out = append(out, diag.NewError(diag.SemDuplicateSymbol,
				sf.Text.Location(c.Range.Start, c.Range.End),
				fmt.Sprintf("Duplicate identifier '%s'.", c.Name)))
		}
		seen[c.Name] = true
	}
	return out
}
