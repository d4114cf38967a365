package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadResolvesTargets(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "shop"

[[target]]
name = "browser"
tsconfig = "tsconfig.app.json"
entry = ["src/main.ts"]
build_info = ".cache/browser/.tsbuildinfo"
sourcemap = true

[target.file_replacements]
"src/env.ts" = "src/env.prod.ts"

[[target]]
name = "server"
tsconfig = "tsconfig.server.json"
entry = ["src/server.ts"]
mode = "jit"
parallel = true
depends_on = ["browser"]
`)
	nested := filepath.Join(dir, "src", "app")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := LoadFrom(nested)
	if err != nil {
		t.Fatal(err)
	}
	root, _ := filepath.Abs(dir)
	if m.Root != root || m.Config.Project.Name != "shop" {
		t.Fatalf("unexpected manifest %+v", m)
	}

	browser, ok := m.Target("browser")
	if !ok {
		t.Fatal("browser target missing")
	}
	want := Target{
		Name:      "browser",
		Tsconfig:  filepath.Join(root, "tsconfig.app.json"),
		Entry:     []string{filepath.Join(root, "src", "main.ts")},
		OutDir:    filepath.Join(root, "dist", "browser"),
		Mode:      ModeAOT,
		BuildInfo: filepath.Join(root, ".cache", "browser", ".tsbuildinfo"),
		Sourcemap: true,
		FileReplacements: map[string]string{
			filepath.Join(root, "src", "env.ts"): filepath.Join(root, "src", "env.prod.ts"),
		},
	}
	if diff := cmp.Diff(want, browser); diff != "" {
		t.Fatalf("browser target (-want +got):\n%s", diff)
	}
	if browser.CacheDir() != filepath.Join(root, ".cache", "browser") {
		t.Fatalf("cache dir = %q", browser.CacheDir())
	}

	server, _ := m.Target("server")
	if !server.JIT() || !server.Parallel || server.CacheDir() != "" {
		t.Fatalf("unexpected server target %+v", server)
	}
}

func TestLoadRejectsInvalidManifests(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no project", "[[target]]\nname = \"a\"\n", "missing [project]"},
		{"no name", "[project]\n[[target]]\nname = \"a\"\n", "missing [project].name"},
		{"no targets", "[project]\nname = \"p\"\n", "no [[target]] defined"},
		{"unknown key", "[project]\nname = \"p\"\ncolour = 1\n[[target]]\nname = \"a\"\ntsconfig = \"t.json\"\nentry = [\"m.ts\"]\n", `unknown key "project.colour"`},
		{"no tsconfig", "[project]\nname = \"p\"\n[[target]]\nname = \"a\"\nentry = [\"m.ts\"]\n", "a: missing tsconfig"},
		{"bad mode", "[project]\nname = \"p\"\n[[target]]\nname = \"a\"\ntsconfig = \"t.json\"\nentry = [\"m.ts\"]\nmode = \"fast\"\n", `mode must be "aot" or "jit"`},
		{"duplicate", "[project]\nname = \"p\"\n[[target]]\nname = \"a\"\ntsconfig = \"t.json\"\nentry = [\"m.ts\"]\n[[target]]\nname = \"a\"\ntsconfig = \"t.json\"\nentry = [\"m.ts\"]\n", `duplicate target "a"`},
		{"unknown dependency", "[project]\nname = \"p\"\n[[target]]\nname = \"a\"\ntsconfig = \"t.json\"\nentry = [\"m.ts\"]\ndepends_on = [\"b\"]\n", `depends on unknown target "b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromWithoutManifest(t *testing.T) {
	if _, err := LoadFrom(t.TempDir()); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("error = %v, want ErrNoManifest", err)
	}
}
