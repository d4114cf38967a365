package program

import (
	"iter"
	"math"
	"strings"
	"sync"

	"fortio.org/safecast"
	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var tsLanguage = ts.NewLanguage(tsTypescript.LanguageTypescript())

var parserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(tsLanguage); err != nil {
			panic("failed to set TypeScript language: " + err.Error())
		}
		return parser
	},
}

// ParseSyntax parses TypeScript (or JavaScript) text and extracts imports,
// classes with their decorators, identifier calls, worker URLs and parse
// errors.
func ParseSyntax(content []byte) *Syntax {
	parser := parserPool.Get().(*ts.Parser)
	defer func() {
		parser.Reset()
		parserPool.Put(parser)
	}()

	tree := parser.Parse(content, nil)
	if tree == nil {
		return &Syntax{Errors: []SyntaxError{{Text: "failed to parse"}}}
	}
	defer tree.Close()

	x := &extractor{src: content, out: &Syntax{}}
	x.visit(tree.RootNode())
	return x.out
}

type extractor struct {
	src []byte
	out *Syntax
}

func (x *extractor) text(n *ts.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(x.src)
}

func rangeOf(n *ts.Node) Range {
	return Range{Start: offset(n.StartByte()), End: offset(n.EndByte())}
}

// offset clamps byte offsets that do not fit an int.
func offset(b uint) int {
	v, err := safecast.Conv[int](b)
	if err != nil {
		return math.MaxInt
	}
	return v
}

func children(n *ts.Node) iter.Seq[*ts.Node] {
	return func(yield func(*ts.Node) bool) {
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil && !yield(c) {
				return
			}
		}
	}
}

func namedChildren(n *ts.Node) iter.Seq[*ts.Node] {
	return func(yield func(*ts.Node) bool) {
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := n.NamedChild(i); c != nil && !yield(c) {
				return
			}
		}
	}
}

func (x *extractor) visit(n *ts.Node) {
	if n.IsError() {
		text := x.text(n)
		if len(text) > 24 {
			text = text[:24] + "..."
		}
		x.out.Errors = append(x.out.Errors, SyntaxError{Range: rangeOf(n), Text: text})
		return
	}
	if n.IsMissing() {
		x.out.Errors = append(x.out.Errors, SyntaxError{Range: rangeOf(n), Missing: true, Text: n.Kind()})
		return
	}

	switch n.Kind() {
	case "import_statement":
		if src := n.ChildByFieldName("source"); src != nil {
			x.addImport(src, hasAnonChild(n, "type"))
		}
	case "export_statement":
		if src := n.ChildByFieldName("source"); src != nil {
			x.addImport(src, hasAnonChild(n, "type"))
		}
		x.exports(n)
	case "class_declaration", "abstract_class_declaration":
		x.class(n)
	case "call_expression":
		fn := n.ChildByFieldName("function")
		switch {
		case fn == nil:
		case fn.Kind() == "identifier":
			x.out.Calls = append(x.out.Calls, Call{Callee: x.text(fn), CalleeRange: rangeOf(fn)})
		case fn.Kind() == "import":
			if lit, ok := x.firstStringArg(n.ChildByFieldName("arguments")); ok {
				x.out.Imports = append(x.out.Imports, Import{Specifier: lit.Value, Range: lit.Range})
			}
		}
	case "new_expression":
		x.worker(n)
	}

	if !n.HasError() && n.ChildCount() == 0 {
		return
	}
	for c := range children(n) {
		x.visit(c)
	}
}

func hasAnonChild(n *ts.Node, kind string) bool {
	for c := range children(n) {
		if !c.IsNamed() && c.Kind() == kind {
			return true
		}
	}
	return false
}

func (x *extractor) addImport(src *ts.Node, typeOnly bool) {
	lit, ok := x.stringLit(src)
	if !ok {
		return
	}
	x.out.Imports = append(x.out.Imports, Import{Specifier: lit.Value, Range: lit.Range, TypeOnly: typeOnly})
}

func (x *extractor) exports(n *ts.Node) {
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		if name := decl.ChildByFieldName("name"); name != nil {
			x.out.Exports = append(x.out.Exports, x.text(name))
		}
		for c := range namedChildren(decl) {
			if c.Kind() == "variable_declarator" {
				x.out.Exports = append(x.out.Exports, x.text(c.ChildByFieldName("name")))
			}
		}
	}
	for c := range namedChildren(n) {
		if c.Kind() != "export_clause" {
			continue
		}
		for spec := range namedChildren(c) {
			name := spec.ChildByFieldName("alias")
			if name == nil {
				name = spec.ChildByFieldName("name")
			}
			x.out.Exports = append(x.out.Exports, x.text(name))
		}
	}
}

// stringLit accepts 'x', "x" and `x` without substitutions.
func (x *extractor) stringLit(n *ts.Node) (StringLit, bool) {
	if n == nil {
		return StringLit{}, false
	}
	switch n.Kind() {
	case "string":
	case "template_string":
		for c := range namedChildren(n) {
			if c.Kind() == "template_substitution" {
				return StringLit{}, false
			}
		}
	default:
		return StringLit{}, false
	}
	text := x.text(n)
	if len(text) < 2 {
		return StringLit{}, false
	}
	return StringLit{Value: text[1 : len(text)-1], Range: rangeOf(n)}, true
}

func (x *extractor) firstStringArg(args *ts.Node) (StringLit, bool) {
	if args == nil || args.NamedChildCount() == 0 {
		return StringLit{}, false
	}
	return x.stringLit(args.NamedChild(0))
}

func (x *extractor) class(n *ts.Node) {
	c := Class{
		Name:  x.text(n.ChildByFieldName("name")),
		Range: rangeOf(n),
	}
	if p := n.Parent(); p != nil && p.Kind() == "export_statement" {
		c.Exported = true
		c.Decorators = append(c.Decorators, x.decoratorsOf(p)...)
	}
	c.Decorators = append(c.Decorators, x.decoratorsOf(n)...)
	for ch := range namedChildren(n) {
		if ch.Kind() == "class_heritage" && strings.Contains(x.text(ch), "extends") {
			c.Extends = true
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		x.out.Classes = append(x.out.Classes, c)
		return
	}
	c.BodyStart = int(body.StartByte()) + 1
	for m := range namedChildren(body) {
		name := x.text(m.ChildByFieldName("name"))
		switch m.Kind() {
		case "public_field_definition", "method_signature", "abstract_method_signature", "property_signature":
			c.Members = append(c.Members, name)
		case "method_definition":
			if name != "constructor" {
				c.Members = append(c.Members, name)
				continue
			}
			c.HasCtor = true
			c.Ctor = x.params(m.ChildByFieldName("parameters"), &c)
		}
	}
	x.out.Classes = append(x.out.Classes, c)
}

func (x *extractor) params(list *ts.Node, c *Class) []Param {
	if list == nil {
		return nil
	}
	var out []Param
	for p := range namedChildren(list) {
		if p.Kind() != "required_parameter" && p.Kind() != "optional_parameter" {
			continue
		}
		param := Param{
			Name:       x.text(p.ChildByFieldName("pattern")),
			Range:      rangeOf(p),
			Decorators: x.decoratorsOf(p),
		}
		if typ := p.ChildByFieldName("type"); typ != nil {
			param.Type = strings.TrimSpace(strings.TrimPrefix(x.text(typ), ":"))
		}
		for ch := range children(p) {
			if ch.Kind() == "accessibility_modifier" || (!ch.IsNamed() && ch.Kind() == "readonly") {
				c.Members = append(c.Members, param.Name)
				break
			}
		}
		out = append(out, param)
	}
	return out
}

func (x *extractor) decoratorsOf(n *ts.Node) []Decorator {
	var out []Decorator
	for ch := range namedChildren(n) {
		if ch.Kind() == "decorator" {
			out = append(out, x.decorator(ch))
		}
	}
	return out
}

func (x *extractor) decorator(n *ts.Node) Decorator {
	d := Decorator{Range: rangeOf(n)}
	if n.NamedChildCount() == 0 {
		return d
	}
	expr := n.NamedChild(0)
	callee := expr
	var args *ts.Node
	if expr.Kind() == "call_expression" {
		callee = expr.ChildByFieldName("function")
		args = expr.ChildByFieldName("arguments")
	}
	if callee != nil && callee.Kind() == "member_expression" {
		callee = callee.ChildByFieldName("property")
	}
	d.Name = x.text(callee)
	if args == nil {
		return d
	}
	d.HasArgs = true
	text := x.text(args)
	if len(text) >= 2 {
		d.ArgText = text[1 : len(text)-1]
	}
	if args.NamedChildCount() > 0 && args.NamedChild(0).Kind() == "object" {
		d.Props = x.props(args.NamedChild(0))
	}
	return d
}

func (x *extractor) props(obj *ts.Node) []Property {
	var out []Property
	for pair := range namedChildren(obj) {
		if pair.Kind() != "pair" {
			continue
		}
		key := pair.ChildByFieldName("key")
		value := pair.ChildByFieldName("value")
		if key == nil || value == nil {
			continue
		}
		p := Property{Key: x.text(key), Range: rangeOf(pair), Value: rangeOf(value)}
		if lit, ok := x.stringLit(key); ok {
			p.Key = lit.Value
		}
		if lit, ok := x.stringLit(value); ok {
			p.Strings = []StringLit{lit}
		} else if value.Kind() == "array" {
			p.IsArray = true
			for el := range namedChildren(value) {
				if lit, ok := x.stringLit(el); ok {
					p.Strings = append(p.Strings, lit)
				}
			}
		}
		out = append(out, p)
	}
	return out
}

// worker matches new Worker(new URL('./x', import.meta.url), ...).
func (x *extractor) worker(n *ts.Node) {
	ctor := x.text(n.ChildByFieldName("constructor"))
	if ctor != "Worker" && ctor != "SharedWorker" {
		return
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	inner := args.NamedChild(0)
	if inner.Kind() != "new_expression" || x.text(inner.ChildByFieldName("constructor")) != "URL" {
		return
	}
	urlArgs := inner.ChildByFieldName("arguments")
	if urlArgs == nil || urlArgs.NamedChildCount() < 2 {
		return
	}
	if x.text(urlArgs.NamedChild(1)) != "import.meta.url" {
		return
	}
	if lit, ok := x.stringLit(urlArgs.NamedChild(0)); ok {
		x.out.Workers = append(x.out.Workers, WorkerRef{URL: lit})
	}
}
