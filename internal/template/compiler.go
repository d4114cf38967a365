package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsHtml "github.com/tree-sitter/tree-sitter-html/bindings/go"

	"ngbuild/internal/diag"
	"ngbuild/internal/source"
)

// Compiler parses, checks and lowers component templates. Safe for
// concurrent use.
type Compiler struct {
	language *ts.Language
	parsers  sync.Pool
}

func newCompiler() (*Compiler, error) {
	c := &Compiler{language: ts.NewLanguage(tsHtml.Language())}
	probe := ts.NewParser()
	defer probe.Close()
	if err := probe.SetLanguage(c.language); err != nil {
		return nil, fmt.Errorf("failed to set HTML language: %w", err)
	}
	c.parsers.New = func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(c.language); err != nil {
			panic("failed to set HTML language: " + err.Error())
		}
		return parser
	}
	return c, nil
}

// BindingKind classifies template expressions.
type BindingKind uint8

const (
	Interpolation BindingKind = iota + 1
	Property
	Event
	Structural
	ControlFlow
)

// Binding is one template expression. Offset is absolute in Source.
type Binding struct {
	Kind   BindingKind
	Name   string // property or event name
	Expr   string
	Offset int
	Node   *Node // owner element or text node
}

// Node is a simplified template DOM node.
type Node struct {
	Tag      string // "" for text
	Text     string
	Attrs    []Attr
	Children []*Node
	Slot     int // creation index used by lowering
}

// Attr is a static attribute.
type Attr struct {
	Name  string
	Value string
}

// Template is a parsed template. Offsets are absolute in Source, which is
// either the template file or, for inline templates, the component file.
type Template struct {
	Source   *source.Text
	Roots    []*Node
	Bindings []Binding
	Locals   map[string]bool
	Errors   []diag.Diagnostic
}

// Parse parses the template text src[start:end].
func (c *Compiler) Parse(src *source.Text, start, end int) *Template {
	tpl := &Template{Source: src, Locals: make(map[string]bool)}
	content := src.Content[start:end]

	parser := c.parsers.Get().(*ts.Parser)
	defer func() {
		parser.Reset()
		c.parsers.Put(parser)
	}()
	tree := parser.Parse(content, nil)
	if tree == nil {
		tpl.Errors = append(tpl.Errors, diag.NewError(diag.TplParseError, src.Location(start, end), "Template could not be parsed."))
		return tpl
	}
	defer tree.Close()

	w := &walker{tpl: tpl, content: content, base: start, slot: 0}
	tpl.Roots = w.children(tree.RootNode(), nil)
	return tpl
}

type walker struct {
	tpl     *Template
	content []byte
	base    int
	slot    int
}

func (w *walker) abs(off uint) int { return w.base + int(off) }

func (w *walker) errorAt(code diag.Code, n *ts.Node, msg string) {
	loc := w.tpl.Source.Location(w.abs(n.StartByte()), w.abs(n.EndByte()))
	w.tpl.Errors = append(w.tpl.Errors, diag.NewError(code, loc, msg))
}

func (w *walker) children(n *ts.Node, parent *Node) []*Node {
	var out []*Node
	for i := uint(0); i < n.ChildCount(); i++ {
		ch := n.Child(i)
		if ch == nil {
			continue
		}
		if node := w.node(ch, parent); node != nil {
			out = append(out, node)
		}
	}
	return out
}

func (w *walker) node(n *ts.Node, parent *Node) *Node {
	switch {
	case n.IsError():
		w.errorAt(diag.TplParseError, n, fmt.Sprintf("Unexpected character %q.", firstRune(n.Utf8Text(w.content))))
		return nil
	case n.IsMissing():
		w.errorAt(diag.TplParseError, n, fmt.Sprintf("Missing %s.", n.Kind()))
		return nil
	}

	switch n.Kind() {
	case "element", "script_element", "style_element":
		return w.element(n)
	case "text":
		return w.text(n)
	case "erroneous_end_tag":
		name := n.Utf8Text(w.content)
		if nameNode := n.NamedChild(0); nameNode != nil {
			name = nameNode.Utf8Text(w.content)
		}
		w.errorAt(diag.TplStrayEndTag, n, fmt.Sprintf("Unexpected closing tag %q. It may happen when the tag has already been closed by another tag.", name))
		return nil
	case "comment", "doctype":
		return nil
	}
	if n.HasError() {
		w.children(n, parent)
	}
	return nil
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

func (w *walker) element(n *ts.Node) *Node {
	el := &Node{Slot: w.next()}
	for i := uint(0); i < n.ChildCount(); i++ {
		ch := n.Child(i)
		if ch == nil {
			continue
		}
		switch ch.Kind() {
		case "start_tag", "self_closing_tag":
			w.startTag(ch, el)
		case "end_tag", "raw_text":
		default:
			if node := w.node(ch, el); node != nil {
				el.Children = append(el.Children, node)
			}
		}
	}
	return el
}

func (w *walker) next() int {
	s := w.slot
	w.slot++
	return s
}

func (w *walker) startTag(n *ts.Node, el *Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		ch := n.NamedChild(i)
		if ch == nil {
			continue
		}
		switch ch.Kind() {
		case "tag_name":
			el.Tag = ch.Utf8Text(w.content)
		case "attribute":
			w.attribute(ch, el)
		default:
			if ch.IsError() || ch.IsMissing() {
				w.node(ch, el)
			}
		}
	}
}

func (w *walker) attribute(n *ts.Node, el *Node) {
	var (
		name     string
		value    string
		valueOff = -1
	)
	for i := uint(0); i < n.NamedChildCount(); i++ {
		ch := n.NamedChild(i)
		if ch == nil {
			continue
		}
		switch ch.Kind() {
		case "attribute_name":
			name = ch.Utf8Text(w.content)
		case "attribute_value":
			value, valueOff = ch.Utf8Text(w.content), w.abs(ch.StartByte())
		case "quoted_attribute_value":
			valueOff = w.abs(ch.StartByte()) + 1
			if inner := ch.NamedChild(0); inner != nil {
				value, valueOff = inner.Utf8Text(w.content), w.abs(inner.StartByte())
			}
		}
	}
	w.tpl.classifyAttr(el, name, value, valueOff)
}

var (
	interpolationRe = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)
	forBlockRe      = regexp.MustCompile(`@for\s*\(\s*([A-Za-z_$][\w$]*)\s+of\s+([^;)]+)`)
	ifBlockRe       = regexp.MustCompile(`@(?:if|else if)\s*\(([^;)]+)(?:;\s*as\s+([A-Za-z_$][\w$]*))?`)
	switchBlockRe   = regexp.MustCompile(`@(?:switch|case)\s*\(([^)]+)\)`)
	letBlockRe      = regexp.MustCompile(`@let\s+([A-Za-z_$][\w$]*)\s*=\s*([^;]+);`)
	letDeclRe       = regexp.MustCompile(`let\s+([A-Za-z_$][\w$]*)`)
	asDeclRe        = regexp.MustCompile(`\bas\s+([A-Za-z_$][\w$]*)`)
)

func (w *walker) text(n *ts.Node) *Node {
	raw := n.Utf8Text(w.content)
	start := w.abs(n.StartByte())
	node := &Node{Text: raw, Slot: w.next()}
	tpl := w.tpl

	for _, m := range forBlockRe.FindAllStringSubmatchIndex(raw, -1) {
		tpl.Locals[raw[m[2]:m[3]]] = true
		tpl.addBinding(ControlFlow, "for", raw[m[4]:m[5]], start+m[4], node)
	}
	for _, m := range ifBlockRe.FindAllStringSubmatchIndex(raw, -1) {
		tpl.addBinding(ControlFlow, "if", raw[m[2]:m[3]], start+m[2], node)
		if m[4] >= 0 {
			tpl.Locals[raw[m[4]:m[5]]] = true
		}
	}
	for _, m := range switchBlockRe.FindAllStringSubmatchIndex(raw, -1) {
		tpl.addBinding(ControlFlow, "switch", raw[m[2]:m[3]], start+m[2], node)
	}
	for _, m := range letBlockRe.FindAllStringSubmatchIndex(raw, -1) {
		tpl.Locals[raw[m[2]:m[3]]] = true
		tpl.addBinding(ControlFlow, "let", raw[m[4]:m[5]], start+m[4], node)
	}
	tpl.scanInterpolations(raw, start, node, "")
	return node
}

// scanInterpolations records {{ }} bindings and reports unterminated ones.
func (t *Template) scanInterpolations(raw string, start int, owner *Node, attr string) {
	last := 0
	for _, m := range interpolationRe.FindAllStringSubmatchIndex(raw, -1) {
		t.addBinding(Interpolation, attr, raw[m[2]:m[3]], start+m[2], owner)
		last = m[1]
	}
	if idx := strings.Index(raw[last:], "{{"); idx >= 0 {
		off := start + last + idx
		t.Errors = append(t.Errors, diag.NewError(diag.TplUnclosedInterpolation, t.Source.Location(off, off+2),
			"Unterminated interpolation: missing '}}'."))
	}
}

func (t *Template) addBinding(kind BindingKind, name, expr string, off int, owner *Node) {
	trimmed := strings.TrimLeft(expr, " \t\r\n")
	off += len(expr) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, " \t\r\n")
	if trimmed == "" {
		return
	}
	t.Bindings = append(t.Bindings, Binding{Kind: kind, Name: name, Expr: trimmed, Offset: off, Node: owner})
}

func (t *Template) classifyAttr(el *Node, name, value string, valueOff int) {
	switch {
	case name == "":
		return
	case strings.HasPrefix(name, "#"):
		t.Locals[name[1:]] = true
	case strings.HasPrefix(name, "let-"):
		t.Locals[name[4:]] = true
	case strings.HasPrefix(name, "[(") && strings.HasSuffix(name, ")]"):
		t.addBinding(Property, name[2:len(name)-2], value, valueOff, el)
	case strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]"):
		t.addBinding(Property, name[1:len(name)-1], value, valueOff, el)
	case strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")"):
		t.addBinding(Event, name[1:len(name)-1], value, valueOff, el)
	case strings.HasPrefix(name, "*"):
		t.structural(el, name[1:], value, valueOff)
	default:
		el.Attrs = append(el.Attrs, Attr{Name: name, Value: value})
		if valueOff >= 0 {
			t.scanInterpolations(value, valueOff, el, name)
		}
	}
}

// structural handles *ngIf="cond; else x" and *ngFor="let a of list; let i = index".
func (t *Template) structural(el *Node, name, value string, valueOff int) {
	for _, m := range letDeclRe.FindAllStringSubmatch(value, -1) {
		t.Locals[m[1]] = true
	}
	for _, m := range asDeclRe.FindAllStringSubmatch(value, -1) {
		t.Locals[m[1]] = true
	}
	expr, exprOff := value, valueOff
	if idx := strings.Index(value, " of "); idx >= 0 {
		expr, exprOff = value[idx+4:], valueOff+idx+4
	}
	if idx := strings.IndexAny(expr, ";"); idx >= 0 {
		expr = expr[:idx]
	}
	if idx := strings.Index(expr, " as "); idx >= 0 {
		expr = expr[:idx]
	}
	if strings.HasPrefix(strings.TrimSpace(expr), "let ") {
		return
	}
	t.addBinding(Structural, name, expr, exprOff, el)
}
