package transform

import (
	"encoding/base64"
	"fmt"
	"strings"

	"ngbuild/internal/program"
)

// Namespace and specifier prefixes of the virtual resource modules.
const (
	JITNamespace      = "angular:jit"
	jitTemplateFile   = "angular:jit:template:file;"
	jitStyleFile      = "angular:jit:style:file;"
	jitStyleInline    = "angular:jit:style:inline;"
	resourceIdentBase = "__NG_CLI_RESOURCE__"
)

// ResourceReplacement turns templateUrl/styleUrl(s)/styles into imports of
// virtual modules so the bundler loads and processes the files.
type ResourceReplacement struct {
	// InlineStyles routes inline styles through the stylesheet pipeline.
	InlineStyles bool
}

func (ResourceReplacement) Name() string { return "resource-replacement" }

func (t ResourceReplacement) Edits(sf *program.SourceFile) ([]program.Edit, error) {
	var (
		edits   []program.Edit
		imports strings.Builder
		next    int
	)
	addImport := func(spec string) string {
		ident := fmt.Sprintf("%s%d", resourceIdentBase, next)
		next++
		fmt.Fprintf(&imports, "import %s from %s;\n", ident, jsValue(spec))
		return ident
	}

	for i := range sf.Syntax.Classes {
		c := &sf.Syntax.Classes[i]
		d, ok := c.Decorator("Component")
		if !ok {
			continue
		}
		if p, ok := d.Prop("templateUrl"); ok && len(p.Strings) == 1 && !p.IsArray {
			ident := addImport(jitTemplateFile + p.Strings[0].Value)
			edits = append(edits, replace(p.Range, "template: "+ident))
		}

		var styles []string
		var styleProps []*program.Property
		for _, key := range []string{"styleUrl", "styleUrls"} {
			if p, ok := d.Prop(key); ok {
				for _, s := range p.Strings {
					styles = append(styles, addImport(jitStyleFile+s.Value))
				}
				styleProps = append(styleProps, p)
			}
		}
		if p, ok := d.Prop("styles"); ok && t.InlineStyles {
			for _, s := range p.Strings {
				styles = append(styles, addImport(jitStyleInline+base64.StdEncoding.EncodeToString([]byte(s.Value))))
			}
			styleProps = append(styleProps, p)
		}
		if len(styleProps) == 0 {
			continue
		}
		edits = append(edits, replace(styleProps[0].Range, "styles: ["+strings.Join(styles, ", ")+"]"))
		for _, p := range styleProps[1:] {
			edits = append(edits, removeProperty(sf.Content(), p))
		}
	}
	if next == 0 {
		return nil, nil
	}
	return append([]program.Edit{insert(0, imports.String())}, edits...), nil
}

// ResourceSpecifier splits a virtual module specifier into its kind
// ("template" or "style"), origin ("file" or "inline") and payload.
func ResourceSpecifier(spec string) (kind, origin, payload string, ok bool) {
	rest, found := strings.CutPrefix(spec, JITNamespace+":")
	if !found {
		return "", "", "", false
	}
	head, payload, found := strings.Cut(rest, ";")
	if !found {
		return "", "", "", false
	}
	kind, origin, found = strings.Cut(head, ":")
	if !found {
		return "", "", "", false
	}
	if origin == "inline" {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", "", "", false
		}
		payload = string(data)
	}
	return kind, origin, payload, true
}
