package transform

import (
	"encoding/json"
	"regexp"
	"strings"

	"ngbuild/internal/program"
)

var angularDecorators = map[string]bool{
	"Component":  true,
	"Directive":  true,
	"Pipe":       true,
	"Injectable": true,
	"NgModule":   true,
}

var typeRefRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*`)

func jsValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "undefined"
	}
	return string(data)
}

func insert(at int, text string) program.Edit {
	return program.Edit{Start: at, End: at, Text: text}
}

func remove(r program.Range) program.Edit {
	return program.Edit{Start: r.Start, End: r.End}
}

func replace(r program.Range, text string) program.Edit {
	return program.Edit{Start: r.Start, End: r.End, Text: text}
}

// removeProperty deletes an object literal property together with one
// adjacent comma so the literal stays valid.
func removeProperty(src []byte, p *program.Property) program.Edit {
	end := p.Range.End
	for i := end; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case ',':
			return program.Edit{Start: p.Range.Start, End: i + 1}
		}
		break
	}
	start := p.Range.Start
	for i := start - 1; i >= 0; i-- {
		switch src[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case ',':
			return program.Edit{Start: i, End: p.Range.End}
		}
		break
	}
	return remove(p.Range)
}

// typeValue turns a parameter type annotation into a value expression.
// Generic arguments are dropped; unions and literals have no runtime value.
func typeValue(typ string) string {
	typ = strings.TrimSpace(typ)
	m := typeRefRe.FindString(typ)
	rest := strings.TrimSpace(typ[len(m):])
	if m == "" || (rest != "" && !strings.HasPrefix(rest, "<")) {
		return "undefined"
	}
	switch m {
	case "string", "number", "boolean", "any", "unknown", "object", "never", "void", "null", "undefined":
		return "undefined"
	}
	return m
}

// injectToken returns the DI token of a constructor parameter: the @Inject
// argument when present, otherwise its type.
func injectToken(p program.Param) string {
	for _, d := range p.Decorators {
		if d.Name == "Inject" && strings.TrimSpace(d.ArgText) != "" {
			return strings.TrimSpace(d.ArgText)
		}
	}
	return typeValue(p.Type)
}

func hasAngularDecorator(c *program.Class) bool {
	for _, d := range c.Decorators {
		if angularDecorators[d.Name] {
			return true
		}
	}
	return false
}
