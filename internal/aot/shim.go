package aot

import (
	"fmt"
	"path"
	"strings"

	"ngbuild/internal/program"
)

// shimContent renders the type-check shim of a component file. The
// resource hash is embedded so that template or style edits change the
// shim's version and surface as a semantic change of the shim.
func shimContent(sf *program.SourceFile, comps []*Component, resHash string) []byte {
	var b strings.Builder
	base := strings.TrimSuffix(path.Base(sf.Path), path.Ext(sf.Path))
	fmt.Fprintf(&b, "import * as i0 from \"./%s\";\n", base)
	fmt.Fprintf(&b, "export const ɵresources = %q;\n", resHash)
	for _, c := range comps {
		if c.Kind != KindComponent || c.Class.Name == "" || !c.Class.Exported {
			continue
		}
		fmt.Fprintf(&b, "export function _tcb_%s(ctx: i0.%s): void {}\n", c.Class.Name, c.Class.Name)
	}
	return []byte(b.String())
}
