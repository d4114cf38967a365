package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ngbuild/internal/diag"
)

func TestDiagnoseReportsTemplateErrorsWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	app(t, dir, "browser", "<p>{{ subtitle }}</p>\n")
	app(t, dir, "server", "<h1>{{ title }}</h1>\n")
	m := loadManifest(t, dir, twoTargets)

	bag, err := Diagnose(context.Background(), Request{Manifest: m}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bag.HasErrors() || bag.Count(diag.SevError) != 1 {
		t.Fatalf("expected one error, got %v", bag.Items())
	}
	var d diag.Diagnostic
	for _, item := range bag.Items() {
		if item.Severity == diag.SevError {
			d = item
		}
	}
	if d.Code != diag.TplUnknownIdentifier || filepath.Base(d.File()) != "app.component.html" {
		t.Fatalf("unexpected diagnostic %v", d)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Fatalf("diagnose wrote outputs: %v", err)
	}
}

func TestDiagnoseTurnsMissingTsconfigIntoDiagnostic(t *testing.T) {
	dir := t.TempDir()
	app(t, dir, "browser", "<h1>{{ title }}</h1>\n")
	m := loadManifest(t, dir, `
[project]
name = "broken"

[[target]]
name = "browser"
tsconfig = "browser/tsconfig.json"
entry = ["browser/main.ts"]

[[target]]
name = "ghost"
tsconfig = "ghost/tsconfig.json"
entry = ["ghost/main.ts"]
`)

	bag, err := Diagnose(context.Background(), Request{Manifest: m}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if bag.Count(diag.SevError) != 1 {
		t.Fatalf("expected a single error, got %v", bag.Items())
	}
	for _, d := range bag.Items() {
		if d.Severity == diag.SevError && d.Code != diag.CfgUnreadable {
			t.Fatalf("unexpected error %v", d)
		}
	}
}

func TestDiagnoseHonorsLimitAndSelection(t *testing.T) {
	dir := t.TempDir()
	app(t, dir, "browser", "<p>{{ a }}</p>\n<p>{{ b }}</p>\n<p>{{ c }}</p>\n")
	app(t, dir, "server", "<h1>{{ title }}</h1>\n")
	m := loadManifest(t, dir, twoTargets)

	bag, err := Diagnose(context.Background(), Request{Manifest: m, Targets: []string{"browser"}}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if bag.Len() != 2 {
		t.Fatalf("expected the limit to apply, got %d", bag.Len())
	}
	if _, err := Diagnose(context.Background(), Request{Manifest: m, Targets: []string{"nope"}}, 0); err == nil {
		t.Fatal("expected unknown target error")
	}
}
