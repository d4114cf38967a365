package transform

import (
	"fmt"
	"strings"

	"ngbuild/internal/program"
)

// CtorParameters keeps constructor DI metadata for runtime linking: the
// parameter types and decorators move into a static ctorParameters
// property and the parameter decorators are removed.
type CtorParameters struct{}

func (CtorParameters) Name() string { return "ctor-parameters" }

func (CtorParameters) Edits(sf *program.SourceFile) ([]program.Edit, error) {
	var edits []program.Edit
	for i := range sf.Syntax.Classes {
		c := &sf.Syntax.Classes[i]
		if !hasAngularDecorator(c) || len(c.Ctor) == 0 {
			continue
		}
		params := make([]string, 0, len(c.Ctor))
		for _, p := range c.Ctor {
			params = append(params, ctorParameter(p))
			for _, d := range p.Decorators {
				edits = append(edits, remove(d.Range))
			}
		}
		edits = append(edits, insert(c.BodyStart,
			fmt.Sprintf("\n  static ctorParameters = () => [%s];\n", strings.Join(params, ", "))))
	}
	return edits, nil
}

func ctorParameter(p program.Param) string {
	typ := typeValue(p.Type)
	if len(p.Decorators) == 0 {
		return fmt.Sprintf("{ type: %s }", typ)
	}
	decs := make([]string, 0, len(p.Decorators))
	for _, d := range p.Decorators {
		if arg := strings.TrimSpace(d.ArgText); arg != "" {
			decs = append(decs, fmt.Sprintf("{ type: %s, args: [%s] }", d.Name, arg))
		} else {
			decs = append(decs, fmt.Sprintf("{ type: %s }", d.Name))
		}
	}
	return fmt.Sprintf("{ type: %s, decorators: [%s] }", typ, strings.Join(decs, ", "))
}
