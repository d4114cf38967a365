package template

import (
	"fmt"
	"strings"

	"ngbuild/internal/diag"
)

// Scope describes the component class a template is checked against.
type Scope struct {
	Class   string
	Members map[string]bool
	// Open is set when the class extends something we cannot see; unknown
	// identifiers are then not reported.
	Open bool
}

var templateGlobals = map[string]bool{
	"$event": true, "$any": true, "$index": true, "$first": true, "$last": true,
	"$even": true, "$odd": true, "$count": true, "$implicit": true,
	"true": true, "false": true, "null": true, "undefined": true, "this": true,
	"typeof": true, "void": true,
}

// Check type-checks bindings against scope and returns parse errors followed
// by binding errors.
func (c *Compiler) Check(tpl *Template, scope Scope) []diag.Diagnostic {
	out := append([]diag.Diagnostic(nil), tpl.Errors...)
	if scope.Open {
		return out
	}
	for _, b := range tpl.Bindings {
		name, rel, ok := leadingIdent(b.Expr)
		if !ok || scope.Members[name] || tpl.Locals[name] || templateGlobals[name] {
			continue
		}
		start := b.Offset + rel
		out = append(out, diag.NewError(diag.TplUnknownIdentifier,
			tpl.Source.Location(start, start+len(name)),
			fmt.Sprintf("Property '%s' does not exist on type '%s'.", name, scope.Class)))
	}
	return out
}

// leadingIdent returns the first identifier an expression reads and its
// offset within expr. Literals yield ok=false.
func leadingIdent(expr string) (string, int, bool) {
	i := 0
	for i < len(expr) && strings.IndexByte("!-+( \t\r\n", expr[i]) >= 0 {
		i++
	}
	if i >= len(expr) || !isIdentStart(expr[i]) {
		return "", 0, false
	}
	j := i + 1
	for j < len(expr) && isIdentPart(expr[j]) {
		j++
	}
	return expr[i:j], i, true
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool { return isIdentStart(b) || (b >= '0' && b <= '9') }
