package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Lowered is the generated template function with its slot counts.
type Lowered struct {
	Decls    int
	Vars     int
	Function string
}

var memberPathRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\??\.[A-Za-z_$][\w$]*)*(\(\))?$`)

// Lower generates the creation/update template function for tpl.
func (c *Compiler) Lower(tpl *Template, fnName string, scope Scope) *Lowered {
	l := &lowerer{tpl: tpl, scope: scope}
	var b strings.Builder
	fmt.Fprintf(&b, "function %s(rf, ctx) {\n", fnName)
	b.WriteString("  if (rf & 1) {\n")
	for _, n := range tpl.Roots {
		l.create(&b, n)
	}
	b.WriteString("  }\n")

	updates := l.updates()
	if len(updates) > 0 {
		b.WriteString("  if (rf & 2) {\n")
		cur := 0
		for _, u := range updates {
			if d := u.Node.Slot - cur; d > 0 {
				fmt.Fprintf(&b, "    i0.ɵɵadvance(%d);\n", d)
				cur = u.Node.Slot
			}
			switch {
			case u.Kind == Property:
				fmt.Fprintf(&b, "    i0.ɵɵproperty(%s, %s);\n", jsString(u.Name), l.expr(u.Expr))
			case u.Name != "":
				fmt.Fprintf(&b, "    i0.ɵɵattributeInterpolate1(%s, \"\", %s, \"\");\n", jsString(u.Name), l.expr(u.Expr))
			default:
				fmt.Fprintf(&b, "    i0.ɵɵtextInterpolate(%s);\n", l.expr(u.Expr))
			}
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}")
	return &Lowered{Decls: l.decls, Vars: len(updates), Function: b.String()}
}

type lowerer struct {
	tpl   *Template
	scope Scope
	decls int
}

func (l *lowerer) create(b *strings.Builder, n *Node) {
	l.decls++
	if n.Tag == "" {
		if l.hasInterpolation(n) {
			fmt.Fprintf(b, "    i0.ɵɵtext(%d);\n", n.Slot)
		} else {
			fmt.Fprintf(b, "    i0.ɵɵtext(%d, %s);\n", n.Slot, jsString(n.Text))
		}
		return
	}
	attrs := make([]string, 0, len(n.Attrs)*2)
	for _, a := range n.Attrs {
		attrs = append(attrs, a.Name, a.Value)
	}
	if len(attrs) > 0 {
		fmt.Fprintf(b, "    i0.ɵɵelementStart(%d, %s, %s);\n", n.Slot, jsString(n.Tag), jsValue(attrs))
	} else {
		fmt.Fprintf(b, "    i0.ɵɵelementStart(%d, %s);\n", n.Slot, jsString(n.Tag))
	}
	for _, bd := range l.tpl.Bindings {
		if bd.Node == n && bd.Kind == Event {
			fmt.Fprintf(b, "    i0.ɵɵlistener(%s, function ($event) { return %s; });\n", jsString(bd.Name), l.expr(bd.Expr))
		}
	}
	for _, ch := range n.Children {
		l.create(b, ch)
	}
	b.WriteString("    i0.ɵɵelementEnd();\n")
}

func (l *lowerer) hasInterpolation(n *Node) bool {
	for _, bd := range l.tpl.Bindings {
		if bd.Node == n && bd.Kind == Interpolation {
			return true
		}
	}
	return false
}

func (l *lowerer) updates() []Binding {
	var out []Binding
	for _, bd := range l.tpl.Bindings {
		if bd.Kind == Interpolation || bd.Kind == Property {
			out = append(out, bd)
		}
	}
	slices.SortStableFunc(out, func(a, b Binding) int { return a.Node.Slot - b.Node.Slot })
	return out
}

// expr renders a binding as JavaScript. Simple member paths read from ctx;
// everything else goes through the runtime evaluator as a string.
func (l *lowerer) expr(e string) string {
	if memberPathRe.MatchString(e) {
		name, _, _ := leadingIdent(e)
		switch {
		case name == "$event":
			return e
		case l.scope.Members[name] || l.scope.Open:
			return "ctx." + e
		}
	}
	return fmt.Sprintf("i0.ɵɵtemplateExpression(ctx, %s)", jsString(e))
}

func jsString(s string) string { return jsValue(s) }

func jsValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(data)
}
