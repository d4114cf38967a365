package jstransform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/hashicorp/go-multierror"
)

func TestNothingToDoReturnsInput(t *testing.T) {
	tr := New(Options{})
	in := []byte("export const a = 1 ;\n")
	out, err := tr.TransformData(context.Background(), "/w/a.js", in)
	if err != nil || string(out) != string(in) || tr.Runs() != 0 {
		t.Fatalf("unexpected transform: %q %v runs=%d", out, err, tr.Runs())
	}
}

func TestSourceMapsSkipThirdParty(t *testing.T) {
	tr := New(Options{SourceMap: true})
	ctx := context.Background()
	app, err := tr.TransformData(ctx, "/w/src/a.js", []byte("export const a = 1;\n"))
	if err != nil || !strings.Contains(string(app), "sourceMappingURL") {
		t.Fatalf("app file without source map: %q %v", app, err)
	}
	lib := []byte("export const b = 2;\n")
	out, err := tr.TransformData(ctx, "/w/node_modules/lib/b.js", lib)
	if err != nil || string(out) != string(lib) {
		t.Fatalf("third-party file transformed: %q %v", out, err)
	}
}

func TestConcurrentRequestsShareOneTransform(t *testing.T) {
	tr := New(Options{AdvancedOptimizations: true, Workers: 2})
	data := []byte("if (true) { console.log('x'); }\n")
	var wg sync.WaitGroup
	outs := make([][]byte, 8)
	for i := range outs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := tr.TransformData(context.Background(), "/w/a.js", data)
			if err != nil {
				t.Errorf("transform: %v", err)
			}
			outs[i] = out
		}()
	}
	wg.Wait()
	if tr.Runs() != 1 {
		t.Fatalf("runs = %d, want 1", tr.Runs())
	}
	for _, out := range outs {
		if string(out) != string(outs[0]) {
			t.Fatalf("results differ: %q vs %q", out, outs[0])
		}
	}
	if strings.Contains(string(outs[0]), "if (true)") {
		t.Fatalf("syntax not minified: %q", outs[0])
	}
}

func TestTransformFilesAggregatesErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.js")
	bad := filepath.Join(dir, "bad.js")
	if err := os.WriteFile(good, []byte("export const a = 1;\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("export const = ;\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.js")

	tr := New(Options{Target: api.ES2020})
	out, err := tr.TransformFiles(context.Background(), []string{good, bad, missing})
	if _, ok := out[good]; !ok || len(out) != 1 {
		t.Fatalf("outputs = %v", out)
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Fatalf("expected two aggregated errors, got %v", err)
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Path != bad {
		t.Fatalf("expected transform error for bad.js, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file error lost: %v", err)
	}
}
