package transform

import (
	"fmt"
	"strings"

	"ngbuild/internal/aot"
	"ngbuild/internal/program"
)

// CoreImport is the namespace the generated definitions reference.
const CoreImport = "import * as i0 from \"@angular/core\";\n"

// ComponentLowering replaces Angular class decorators with static
// definitions generated from the analysis program.
type ComponentLowering struct {
	Program *aot.Program
}

func (ComponentLowering) Name() string { return "component-lowering" }

func (t ComponentLowering) Edits(sf *program.SourceFile) ([]program.Edit, error) {
	comps := t.Program.Components(sf.Path)
	if len(comps) == 0 {
		return nil, nil
	}
	edits := []program.Edit{insert(0, CoreImport)}
	for _, c := range comps {
		edits = append(edits, remove(c.Decorator.Range))
		for _, p := range c.Class.Ctor {
			for _, d := range p.Decorators {
				edits = append(edits, remove(d.Range))
			}
		}
		edits = append(edits, insert(c.Class.BodyStart, t.definitions(sf, c)))
	}
	return edits, nil
}

func (t ComponentLowering) definitions(sf *program.SourceFile, c *aot.Component) string {
	name := c.Class.Name
	inject := "i0.ɵɵdirectiveInject"
	if c.Kind == aot.KindInjectable || c.Kind == aot.KindNgModule {
		inject = "i0.ɵɵinject"
	}
	args := make([]string, 0, len(c.Class.Ctor))
	for _, p := range c.Class.Ctor {
		args = append(args, fmt.Sprintf("%s(%s)", inject, injectToken(p)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  static ɵfac = function %s_Factory(t) { return new (t || %s)(%s); };\n", name, name, strings.Join(args, ", "))
	switch c.Kind {
	case aot.KindComponent:
		fn := fmt.Sprintf("function %s_Template(rf, ctx) {}", name)
		decls, vars := 0, 0
		if c.Template != nil {
			lowered := t.Program.Templates().Lower(c.Template, name+"_Template", c.Scope)
			fn, decls, vars = lowered.Function, lowered.Decls, lowered.Vars
		}
		fmt.Fprintf(&b, "  static ɵcmp = /*@__PURE__*/ i0.ɵɵdefineComponent({ type: %s, selectors: %s, standalone: %t, decls: %d, vars: %d, template: %s, styles: %s });\n",
			name, selectors(c.Selector), standalone(sf, c.Decorator), decls, vars, fn, jsValue(stylesOrEmpty(c.Styles)))
	case aot.KindDirective:
		fmt.Fprintf(&b, "  static ɵdir = /*@__PURE__*/ i0.ɵɵdefineDirective({ type: %s, selectors: %s, standalone: %t });\n",
			name, selectors(c.Selector), standalone(sf, c.Decorator))
	case aot.KindPipe:
		fmt.Fprintf(&b, "  static ɵpipe = /*@__PURE__*/ i0.ɵɵdefinePipe({ name: %s, type: %s, pure: %t, standalone: %t });\n",
			jsValue(c.PipeName), name, propText(sf, c.Decorator, "pure") != "false", standalone(sf, c.Decorator))
	case aot.KindInjectable:
		providedIn := propText(sf, c.Decorator, "providedIn")
		if providedIn == "" {
			providedIn = "null"
		}
		fmt.Fprintf(&b, "  static ɵprov = /*@__PURE__*/ i0.ɵɵdefineInjectable({ token: %s, factory: %s.ɵfac, providedIn: %s });\n",
			name, name, providedIn)
	case aot.KindNgModule:
		fmt.Fprintf(&b, "  static ɵmod = /*@__PURE__*/ i0.ɵɵdefineNgModule({ type: %s });\n", name)
		fmt.Fprintf(&b, "  static ɵinj = /*@__PURE__*/ i0.ɵɵdefineInjector({});\n")
	}
	return b.String()
}

func stylesOrEmpty(styles []string) []string {
	if styles == nil {
		return []string{}
	}
	return styles
}

// selectors converts "app-root, [appFoo]" into the runtime selector form.
func selectors(sel string) string {
	out := [][]string{}
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]"):
			out = append(out, []string{"", strings.Trim(part, "[]"), ""})
		default:
			out = append(out, []string{part})
		}
	}
	return jsValue(out)
}

func propText(sf *program.SourceFile, d *program.Decorator, key string) string {
	p, ok := d.Prop(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(sf.Content()[p.Value.Start:p.Value.End]))
}

func standalone(sf *program.SourceFile, d *program.Decorator) bool {
	return propText(sf, d, "standalone") != "false"
}
