package transform

import "ngbuild/internal/program"

const browserImport = "import * as ɵngBrowser from \"@angular/platform-browser\";\n"

// BootstrapSubstitution swaps the dynamic platform for the static one:
// with templates compiled ahead of time the runtime compiler is not needed.
type BootstrapSubstitution struct{}

func (BootstrapSubstitution) Name() string { return "bootstrap-substitution" }

func (BootstrapSubstitution) Edits(sf *program.SourceFile) ([]program.Edit, error) {
	var edits []program.Edit
	for _, call := range sf.Syntax.Calls {
		if call.Callee != "platformBrowserDynamic" {
			continue
		}
		if len(edits) == 0 {
			edits = append(edits, insert(0, browserImport))
		}
		edits = append(edits, replace(call.CalleeRange, "ɵngBrowser.platformBrowser"))
	}
	return edits, nil
}
