package compilation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ngbuild/internal/bridge"
	"ngbuild/internal/diag"
	"ngbuild/internal/source"
	"ngbuild/internal/template"
	"ngbuild/internal/tsconfig"
)

func TestParallelCompilationRoutesHostCallbacks(t *testing.T) {
	dir, cfgPath := workspace(t)
	writeFile(t, dir, "main.ts", "import { AppComponent } from './app.component';\nimport { b } from './util';\nconst w = new Worker(new URL('./background.worker', import.meta.url));\nconsole.log(AppComponent, b, w);\n")
	writeFile(t, dir, "background.worker.ts", "postMessage(1);\n")

	var stylesheets, transforms, workers atomic.Int32
	host := HostOptions{
		TransformStylesheet: func(_ context.Context, data, _, _ string) (string, error) {
			stylesheets.Add(1)
			return "/* processed */ " + data, nil
		},
		ProcessWebWorker: func(workerFile, _ string) (string, error) {
			workers.Add(1)
			if !strings.HasSuffix(workerFile, "background.worker") {
				t.Errorf("unexpected worker entry %s", workerFile)
			}
			return "worker-abc.js", nil
		},
	}
	transform := func(o *tsconfig.CompilerOptions) (*tsconfig.CompilerOptions, error) {
		transforms.Add(1)
		o.Target = "ES2020"
		return o, nil
	}

	pc := NewParallelCompilation(false, template.NewFactory())
	defer func() {
		if err := pc.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()
	ctx := context.Background()

	res, err := pc.Initialize(ctx, cfgPath, host, transform)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if res.CompilerOptions.Target != "ES2020" || transforms.Load() != 1 {
		t.Fatalf("options transform not applied: %+v", res.CompilerOptions)
	}
	if stylesheets.Load() != 1 {
		t.Fatalf("stylesheet transforms = %d", stylesheets.Load())
	}
	if diff := cmp.Diff([]diag.Code{diag.TplUnknownIdentifier}, codes(collect(pc))); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}

	files, err := pc.EmitAffectedFiles()
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	byName := map[string]string{}
	for _, f := range files {
		byName[filepath.Base(f.Filename)] = string(f.Contents)
	}
	if !strings.Contains(byName["main.ts"], "worker-abc.js") || workers.Load() != 1 {
		t.Fatalf("worker URL not replaced:\n%s", byName["main.ts"])
	}
	if !strings.Contains(byName["app.component.ts"], "/* processed */") {
		t.Fatalf("processed styles missing:\n%s", byName["app.component.ts"])
	}

	util := writeFile(t, dir, "util.ts", "export const b = 3;\n")
	host.ModifiedFiles = source.NewPathSet(util)
	res, err = pc.Initialize(ctx, cfgPath, host, transform)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if diff := cmp.Diff([]string{util}, res.Affected.Slice()); diff != "" {
		t.Fatalf("affected (-want +got):\n%s", diff)
	}
	if err := pc.Update([]string{util}); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestParallelCompilationErrors(t *testing.T) {
	dir := t.TempDir()
	pc := NewParallelCompilation(true, nil)
	defer pc.Close()

	_, err := pc.Initialize(context.Background(), filepath.Join(dir, "missing.json"), HostOptions{}, nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError across the bridge, got %v", err)
	}

	cfgPath := writeFile(t, dir, "tsconfig.json", `{"files": []}`)
	_, err = pc.Initialize(context.Background(), cfgPath, HostOptions{}, func(*tsconfig.CompilerOptions) (*tsconfig.CompilerOptions, error) {
		return nil, errors.New("denied")
	})
	var remote *bridge.RemoteError
	if !errors.As(err, &cfgErr) || !errors.As(err, &remote) || remote.Msg != "denied" {
		t.Fatalf("expected remote transformer error inside ConfigError, got %v", err)
	}
}

func TestParallelCompilationRequiresInitialize(t *testing.T) {
	pc := NewParallelCompilation(true, nil)
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, ErrNotInitialized) {
			t.Fatalf("expected ErrNotInitialized panic, got %v", err)
		}
		if err := pc.Close(); err != nil {
			t.Fatalf("close of unstarted coordinator: %v", err)
		}
	}()
	pc.Diagnose()
}
