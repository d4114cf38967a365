package aot

import (
	"path"
	"strings"

	"ngbuild/internal/diag"
	"ngbuild/internal/program"
	"ngbuild/internal/source"
	"ngbuild/internal/template"
)

// Kind of a decorated class.
type Kind uint8

const (
	KindComponent Kind = iota + 1
	KindDirective
	KindPipe
	KindInjectable
	KindNgModule
)

var decoratorKinds = map[string]Kind{
	"Component":  KindComponent,
	"Directive":  KindDirective,
	"Pipe":       KindPipe,
	"Injectable": KindInjectable,
	"NgModule":   KindNgModule,
}

// Component is one decorated class and everything its lowering needs. Only
// KindComponent carries template and style data.
type Component struct {
	Kind      Kind
	File      string
	Class     *program.Class
	Decorator *program.Decorator
	Selector  string
	PipeName  string

	Template     *template.Template
	TemplateFile string // "" for inline templates
	Scope        template.Scope

	Styles     []string // processed CSS
	StyleFiles []string

	diagnostics []diag.Diagnostic
}

// Resources lists the external files the component was built from.
func (c *Component) Resources() []string {
	var out []string
	if c.TemplateFile != "" {
		out = append(out, c.TemplateFile)
	}
	return append(out, c.StyleFiles...)
}

func resolveResource(containingFile, url string) string {
	if strings.HasPrefix(url, "/") {
		return source.NormalizePath(url)
	}
	return source.NormalizePath(path.Join(path.Dir(containingFile), url))
}

func stringProp(d *program.Decorator, key string) (program.StringLit, *program.Property, bool) {
	p, ok := d.Prop(key)
	if !ok || len(p.Strings) == 0 || p.IsArray {
		return program.StringLit{}, p, false
	}
	return p.Strings[0], p, true
}

func memberSet(c *program.Class) map[string]bool {
	m := make(map[string]bool, len(c.Members))
	for _, name := range c.Members {
		m[name] = true
	}
	return m
}
