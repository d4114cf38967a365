package transform

import (
	"fmt"
	"path"

	"ngbuild/internal/program"
	"ngbuild/internal/source"
)

// ProcessWebWorkerFunc bundles a worker entry and returns the URL the
// containing file should load it from.
type ProcessWebWorkerFunc func(workerFile, containingFile string) (string, error)

// WebWorkers rewrites `new Worker(new URL('./x', import.meta.url))` to
// point at the processed worker output.
type WebWorkers struct {
	Process ProcessWebWorkerFunc
}

func (WebWorkers) Name() string { return "web-workers" }

func (t WebWorkers) Edits(sf *program.SourceFile) ([]program.Edit, error) {
	if t.Process == nil || len(sf.Syntax.Workers) == 0 {
		return nil, nil
	}
	edits := make([]program.Edit, 0, len(sf.Syntax.Workers))
	for _, w := range sf.Syntax.Workers {
		entry := source.NormalizePath(path.Join(path.Dir(sf.Path), w.URL.Value))
		out, err := t.Process(entry, sf.Path)
		if err != nil {
			return nil, fmt.Errorf("web worker %s: %w", w.URL.Value, err)
		}
		edits = append(edits, replace(w.URL.Range, jsValue(out)))
	}
	return edits, nil
}
