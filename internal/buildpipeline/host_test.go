package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/project"
)

func TestStylesheetTransformer(t *testing.T) {
	transform := stylesheetTransformer(project.Target{})
	css, err := transform(context.Background(), "a {\n  color: #ff0000;\n}\n", "/app/a.component.ts", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(css, "color: #ff0000") || strings.HasSuffix(css, "\n") {
		t.Fatalf("unexpected css %q", css)
	}
}

func TestWorkerBundler(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "src/app.worker.ts", "import { n } from './dep';\npostMessage(n);\n")
	writeFile(t, dir, "src/dep.ts", "export const n: number = 7;\n")
	out := filepath.Join(dir, "dist")

	bundle := workerBundler(project.Target{OutDir: out})
	url, err := bundle(entry, filepath.Join(dir, "src", "main.ts"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "./worker-") || !strings.HasSuffix(url, ".js") {
		t.Fatalf("unexpected worker url %q", url)
	}
	data, err := os.ReadFile(filepath.Join(out, strings.TrimPrefix(url, "./")))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "postMessage") {
		t.Fatalf("worker not bundled:\n%s", data)
	}

	_, err = bundle(filepath.Join(dir, "src", "missing.ts"), entry)
	if err == nil || !strings.Contains(err.Error(), "web worker") {
		t.Fatalf("expected a worker build error, got %v", err)
	}
}

func TestMessagesErrorIsNilWithoutMessages(t *testing.T) {
	if err := messagesError("nothing", nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMessagesErrorListsEveryMessage(t *testing.T) {
	err := messagesError("stylesheet a.css", []api.Message{
		{Text: "bad token", Location: &api.Location{File: "a.css", Line: 1, Column: 1}},
		{Text: "unterminated block"},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"stylesheet a.css", "a.css:1:2: bad token", "unterminated block"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q misses %q", err, want)
		}
	}
}
