package tsconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ngbuild/internal/diag"
	"ngbuild/internal/source"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return source.NormalizePath(p)
}

func TestLoadFollowsExtends(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tsconfig.base.json", `{
		// base options
		"compilerOptions": {
			"target": "ES2020",
			"sourceMap": true,
			"outDir": "./dist",
		},
		"angularCompilerOptions": {"strictTemplates": true},
	}`)
	cfgPath := writeFile(t, dir, "tsconfig.json", `{
		"extends": "./tsconfig.base",
		"compilerOptions": {"target": "ES2022", "strict": true},
		"angularCompilerOptions": {"enableI18nLegacyMessageIdFormat": false},
		"files": ["src/main.ts"],
		"include": ["src/**/*.d.ts"]
	}`)
	mainTS := writeFile(t, dir, "src/main.ts", "export {};\n")
	typings := writeFile(t, dir, "src/typings.d.ts", "declare const x: number;\n")
	writeFile(t, dir, "src/other.ts", "export {};\n")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Errors) != 0 {
		t.Fatalf("unexpected diagnostics: %v", cfg.Errors)
	}
	if diff := cmp.Diff([]string{mainTS, typings}, cfg.RootNames); diff != "" {
		t.Fatalf("root names mismatch (-want +got):\n%s", diff)
	}
	if cfg.Options.Target != "ES2022" || !cfg.Options.SourceMap {
		t.Fatalf("options not merged: %+v", cfg.Options)
	}
	if cfg.Options.OutDir != source.NormalizePath(filepath.Join(dir, "dist")) {
		t.Fatalf("outDir must resolve against the declaring config, got %q", cfg.Options.OutDir)
	}
	if _, ok := cfg.Options.Raw["strict"]; !ok {
		t.Fatal("unknown options must be kept in Raw")
	}
	if cfg.Angular["strictTemplates"] != true || cfg.Angular["enableI18nLegacyMessageIdFormat"] != false {
		t.Fatalf("angular options not merged: %v", cfg.Angular)
	}
}

func TestLoadDefaultIncludeSkipsNodeModules(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "tsconfig.json", `{}`)
	app := writeFile(t, dir, "app.ts", "")
	writeFile(t, dir, "node_modules/lib/index.ts", "")
	writeFile(t, dir, "script.js", "")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{app}, cfg.RootNames); diff != "" {
		t.Fatalf("root names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNoInputs(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "tsconfig.json", `{"include": ["src"]}`)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Errors) != 1 || cfg.Errors[0].Code != diag.CfgNoInputs {
		t.Fatalf("expected a no-inputs diagnostic, got %v", cfg.Errors)
	}
	if !strings.Contains(cfg.Errors[0].Message, "No inputs were found") {
		t.Fatalf("unexpected message %q", cfg.Errors[0].Message)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"extends": "./b.json"}`)
	writeFile(t, dir, "b.json", `{"extends": "./a.json"}`)
	if _, err := Load(a); !errors.Is(err, ErrExtendsCycle) {
		t.Fatalf("expected extends cycle, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for unreadable config")
	}
	bad := writeFile(t, dir, "bad.json", `{"compilerOptions": `)
	if _, err := Load(bad); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestInvalidOptionTypeIsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ts", "")
	cfgPath := writeFile(t, dir, "tsconfig.json", `{"compilerOptions": {"sourceMap": "yes"}}`)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Errors) != 1 || cfg.Errors[0].Code != diag.CfgInvalidOptionType {
		t.Fatalf("expected option type diagnostic, got %v", cfg.Errors)
	}
}

func TestOptionsHashAndTarget(t *testing.T) {
	a := &CompilerOptions{Target: "ES2022"}
	b := a.Clone()
	if a.Hash() != b.Hash() {
		t.Fatal("clone must hash equally")
	}
	b.SourceMap = true
	if a.Hash() == b.Hash() {
		t.Fatal("changed options must change the hash")
	}
	if a.TargetYear() != 2022 || (&CompilerOptions{Target: "esnext"}).TargetYear() < 2022 {
		t.Fatal("unexpected target years")
	}
}
