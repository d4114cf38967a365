package aot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"ngbuild/internal/diag"
	"ngbuild/internal/program"
	"ngbuild/internal/source"
	"ngbuild/internal/template"
	"ngbuild/internal/trace"
	"ngbuild/internal/tsconfig"
)

// OptimizeFor selects how template diagnostics are computed.
type OptimizeFor uint8

const (
	// SingleFile checks only the requested file.
	SingleFile OptimizeFor = iota
	// WholeProgram checks every component file on first request.
	WholeProgram
)

// Options configure one analysis program.
type Options struct {
	ConfigPath        string
	RootNames         []string
	Compiler          *tsconfig.CompilerOptions
	Angular           map[string]any
	ConfigDiagnostics []diag.Diagnostic
	Host              Host
	Templates         *template.Compiler
	// ModifiedFiles lists files changed since the previous program. Nil
	// means unknown: every resource is read again.
	ModifiedFiles *source.PathSet
}

// Program is the analysis program of one build.
type Program struct {
	opts        Options
	old         *Program
	ts          *program.Program
	optionsHash string

	components map[string][]*Component
	shims      map[string]*program.SourceFile // shim path -> generated file
	original   map[string]string              // shim path -> component file
	resources  map[string]*resource
	styles     map[string]*resource
	resHash    map[string]string

	ignoreForDiagnostics *source.PathSet
	ignoreForEmit        *source.PathSet

	structural []diag.Diagnostic
	templates  map[string][]diag.Diagnostic
	wholeDone  bool
	checked    []string

	emitted map[string]emitRecord
}

// New analyzes the program rooted at opts.RootNames. old, when non-nil, is
// the previous build's program: unmodified resources and emit records are
// carried over from it.
func New(ctx context.Context, opts Options, old *Program) *Program {
	p := &Program{
		opts:                 opts,
		old:                  old,
		optionsHash:          opts.Compiler.Hash(),
		components:           make(map[string][]*Component),
		shims:                make(map[string]*program.SourceFile),
		original:             make(map[string]string),
		resources:            make(map[string]*resource),
		styles:               make(map[string]*resource),
		resHash:              make(map[string]string),
		ignoreForDiagnostics: source.NewPathSet(),
		ignoreForEmit:        source.NewPathSet(),
		templates:            make(map[string][]diag.Diagnostic),
		emitted:              make(map[string]emitRecord),
	}
	if old != nil && old.optionsHash == p.optionsHash {
		for k, v := range old.emitted {
			p.emitted[k] = v
		}
	}
	p.structural = structuralDiagnostics(opts.ConfigPath, opts.Angular)

	// phase one: user files only
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "aot_discover", trace.CurrentSpan(ctx))
	user := program.New(opts.RootNames, opts.Compiler, opts.Host, opts.ConfigDiagnostics)
	span.End(fmt.Sprintf("files=%d", len(user.SourceFiles())))

	span = trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "aot_analyze", trace.CurrentSpan(ctx))
	roots := slices.Clone(opts.RootNames)
	for _, sf := range user.SourceFiles() {
		if sf.IsDeclaration || sf.IsJS {
			continue
		}
		comps := p.analyzeFile(ctx, sf)
		if len(comps) == 0 {
			continue
		}
		p.components[sf.Path] = comps
		p.resHash[sf.Path] = resourceHash(comps, p)
		if hasTemplates(comps) {
			shim := source.ShimFor(sf.Path)
			p.shims[shim] = program.NewSourceFile(shim, shimContent(sf, comps, p.resHash[sf.Path]))
			p.original[shim] = sf.Path
			p.ignoreForDiagnostics.Add(shim)
			p.ignoreForEmit.Add(shim)
			roots = append(roots, shim)
		}
	}
	span.End(fmt.Sprintf("components=%d shims=%d", len(p.components), len(p.shims)))

	// phase two: user files plus shims
	p.ts = program.New(roots, opts.Compiler, shimHost{Host: opts.Host, shims: p.shims}, opts.ConfigDiagnostics)
	return p
}

func (p *Program) analyzeFile(ctx context.Context, sf *program.SourceFile) []*Component {
	var out []*Component
	for i := range sf.Syntax.Classes {
		cls := &sf.Syntax.Classes[i]
		for j := range cls.Decorators {
			d := &cls.Decorators[j]
			kind, ok := decoratorKinds[d.Name]
			if !ok {
				continue
			}
			c := &Component{Kind: kind, File: sf.Path, Class: cls, Decorator: d}
			if sel, _, ok := stringProp(d, "selector"); ok {
				c.Selector = sel.Value
			}
			if name, _, ok := stringProp(d, "name"); ok {
				c.PipeName = name.Value
			}
			if kind == KindComponent {
				c.Scope = template.Scope{Class: cls.Name, Members: memberSet(cls), Open: cls.Extends}
				p.loadTemplate(sf, c)
				p.loadStyles(ctx, sf, c)
			}
			out = append(out, c)
			break
		}
	}
	return out
}

func hasTemplates(comps []*Component) bool {
	for _, c := range comps {
		if c.Kind == KindComponent {
			return true
		}
	}
	return false
}

// resourceHash fingerprints the external inputs of a file's components.
func resourceHash(comps []*Component, p *Program) string {
	var b strings.Builder
	for _, c := range comps {
		for _, f := range c.Resources() {
			b.WriteString(f)
			b.WriteByte('=')
			if r, ok := p.resources[f]; ok {
				b.WriteString(r.hash)
			}
			b.WriteByte('\n')
		}
		for _, css := range c.Styles {
			b.WriteString(hashOf([]byte(css)))
			b.WriteByte('\n')
		}
	}
	return hashOf([]byte(b.String()))
}

// TSProgram returns the program including generated shims.
func (p *Program) TSProgram() *program.Program { return p.ts }

// Templates returns the template compiler used for analysis.
func (p *Program) Templates() *template.Compiler { return p.opts.Templates }

// Components returns the decorated classes declared in file.
func (p *Program) Components(file string) []*Component {
	return p.components[source.NormalizePath(file)]
}

func (p *Program) IgnoreForDiagnostics() *source.PathSet { return p.ignoreForDiagnostics }

func (p *Program) IgnoreForEmit() *source.PathSet { return p.ignoreForEmit }

// ShimOriginal maps a shim path back to its component file.
func (p *Program) ShimOriginal(shim string) (string, bool) {
	o, ok := p.original[source.NormalizePath(shim)]
	return o, ok
}

// StructuralDiagnostics reports problems with angularCompilerOptions.
func (p *Program) StructuralDiagnostics() []diag.Diagnostic { return p.structural }

// ResourceDependencies lists the template and style files used by file.
func (p *Program) ResourceDependencies(file string) []string {
	var out []string
	for _, c := range p.Components(file) {
		out = append(out, c.Resources()...)
	}
	return out
}

// ReferencedFiles lists every user file and resource the build read.
// Shims are generated and not included.
func (p *Program) ReferencedFiles() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, sf := range p.ts.SourceFiles() {
		if _, isShim := p.original[sf.Path]; isShim {
			continue
		}
		add(sf.Path)
		for _, r := range p.ResourceDependencies(sf.Path) {
			add(r)
		}
	}
	return out
}

// DiagnosticsForFile returns template diagnostics of the components in sf.
func (p *Program) DiagnosticsForFile(sf *program.SourceFile, mode OptimizeFor) []diag.Diagnostic {
	if mode == WholeProgram && !p.wholeDone {
		p.wholeDone = true
		for _, f := range p.ts.SourceFiles() {
			if _, ok := p.templates[f.Path]; !ok && len(p.components[f.Path]) > 0 {
				p.templates[f.Path] = p.check(f.Path)
			}
		}
	}
	if d, ok := p.templates[sf.Path]; ok {
		return d
	}
	d := p.check(sf.Path)
	p.templates[sf.Path] = d
	return d
}

func (p *Program) check(file string) []diag.Diagnostic {
	comps := p.components[file]
	if len(comps) == 0 {
		return nil
	}
	p.checked = append(p.checked, file)
	var out []diag.Diagnostic
	for _, c := range comps {
		out = append(out, c.diagnostics...)
		if c.Template != nil {
			out = append(out, p.opts.Templates.Check(c.Template, c.Scope)...)
		}
	}
	return out
}

// Checked lists files whose template diagnostics were computed, in order.
func (p *Program) Checked() []string { return p.checked }

// shimHost serves generated shims and defers everything else.
type shimHost struct {
	Host
	shims map[string]*program.SourceFile
}

func (h shimHost) FileExists(name string) bool {
	if _, ok := h.shims[name]; ok {
		return true
	}
	return h.Host.FileExists(name)
}

func (h shimHost) GetSourceFile(name string) (*program.SourceFile, error) {
	if sf, ok := h.shims[name]; ok {
		return sf, nil
	}
	return h.Host.GetSourceFile(name)
}
