package aot

import (
	"context"
	"errors"
	"io/fs"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ngbuild/internal/diag"
	"ngbuild/internal/program"
	"ngbuild/internal/source"
	"ngbuild/internal/template"
	"ngbuild/internal/tsconfig"
)

type memHost struct {
	files       map[string]string
	reads       []string
	stylesheets []string
}

func newMemHost(files map[string]string) *memHost {
	return &memHost{files: files}
}

func (h *memHost) FileExists(p string) bool {
	_, ok := h.files[p]
	return ok
}

func (h *memHost) GetSourceFile(p string) (*program.SourceFile, error) {
	content, ok := h.files[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return program.NewSourceFile(p, []byte(content)), nil
}

func (h *memHost) ReadResource(p string) ([]byte, error) {
	h.reads = append(h.reads, p)
	content, ok := h.files[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(content), nil
}

func (h *memHost) TransformStylesheet(_ context.Context, data, containingFile, stylesheetFile string) (string, error) {
	h.stylesheets = append(h.stylesheets, stylesheetFile)
	if strings.Contains(data, "@broken") {
		return "", errors.New("unexpected at-rule")
	}
	return strings.TrimSpace(data), nil
}

const componentTS = `import { Component } from '@angular/core';

@Component({
  selector: 'app-root',
  templateUrl: './app.component.html',
  styleUrl: './app.component.css',
})
export class AppComponent {
  title = 'demo';
  toggle() {}
}
`

func fixture() map[string]string {
	return map[string]string{
		"/w/main.ts":            "import { AppComponent } from './app.component';\nconsole.log(AppComponent);\n",
		"/w/app.component.ts":   componentTS,
		"/w/app.component.html": "<h1>{{ title }}</h1>\n<p>{{ subtitle }}</p>\n",
		"/w/app.component.css":  "h1 { color: red; }\n",
	}
}

func compiler(t *testing.T) *template.Compiler {
	t.Helper()
	c, err := template.NewFactory().Load(context.Background())
	if err != nil {
		t.Fatalf("template compiler: %v", err)
	}
	return c
}

func newProgram(t *testing.T, host *memHost, old *Program, modified *source.PathSet) *Program {
	t.Helper()
	return New(context.Background(), Options{
		ConfigPath:    "/w/tsconfig.json",
		RootNames:     []string{"/w/main.ts"},
		Compiler:      &tsconfig.CompilerOptions{},
		Host:          host,
		Templates:     compiler(t),
		ModifiedFiles: modified,
	}, old)
}

func TestAnalyzeComponentWithExternalResources(t *testing.T) {
	host := newMemHost(fixture())
	p := newProgram(t, host, nil, nil)

	comps := p.Components("/w/app.component.ts")
	if len(comps) != 1 || comps[0].Selector != "app-root" || comps[0].Kind != KindComponent {
		t.Fatalf("unexpected components: %+v", comps)
	}
	if diff := cmp.Diff([]string{"h1 { color: red; }"}, comps[0].Styles); diff != "" {
		t.Fatalf("styles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/w/app.component.css"}, host.stylesheets); diff != "" {
		t.Fatalf("stylesheet transform calls (-want +got):\n%s", diff)
	}

	shim := "/w/app.component.ngtypecheck.ts"
	if _, ok := p.TSProgram().SourceFile(shim); !ok {
		t.Fatalf("shim missing from program")
	}
	if !p.IgnoreForDiagnostics().Has(shim) || !p.IgnoreForEmit().Has(shim) {
		t.Fatalf("shim must be ignored for diagnostics and emit")
	}
	if orig, ok := p.ShimOriginal(shim); !ok || orig != "/w/app.component.ts" {
		t.Fatalf("ShimOriginal = %q, %v", orig, ok)
	}

	wantRefs := []string{"/w/main.ts", "/w/app.component.ts", "/w/app.component.html", "/w/app.component.css"}
	if diff := cmp.Diff(wantRefs, p.ReferencedFiles()); diff != "" {
		t.Fatalf("referenced files (-want +got):\n%s", diff)
	}
}

func TestTemplateDiagnosticsPointIntoTemplateFile(t *testing.T) {
	p := newProgram(t, newMemHost(fixture()), nil, nil)
	sf, _ := p.TSProgram().SourceFile("/w/app.component.ts")

	diags := p.DiagnosticsForFile(sf, SingleFile)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", diags)
	}
	d := diags[0]
	if d.Code != diag.TplUnknownIdentifier || d.File() != "/w/app.component.html" || d.Location.Line != 2 {
		t.Fatalf("unexpected diagnostic %v", d)
	}

	again := p.DiagnosticsForFile(sf, SingleFile)
	if len(p.Checked()) != 1 || len(again) != 1 {
		t.Fatalf("diagnostics recomputed: checked=%v", p.Checked())
	}
}

func TestWholeProgramChecksEveryComponentOnce(t *testing.T) {
	files := fixture()
	files["/w/main.ts"] += "import { Other } from './other';\n"
	files["/w/other.ts"] = "import { Component } from '@angular/core';\n@Component({ selector: 'x-other', template: '<b>{{ name }}</b>' })\nexport class Other { name = 'o'; }\n"
	p := newProgram(t, newMemHost(files), nil, nil)
	main, _ := p.TSProgram().SourceFile("/w/main.ts")

	if d := p.DiagnosticsForFile(main, WholeProgram); len(d) != 0 {
		t.Fatalf("main.ts has no components, got %v", d)
	}
	want := []string{"/w/app.component.ts", "/w/other.ts"}
	if diff := cmp.Diff(want, p.Checked()); diff != "" {
		t.Fatalf("checked files (-want +got):\n%s", diff)
	}
}

func TestMissingResourcesAreDiagnostics(t *testing.T) {
	files := fixture()
	delete(files, "/w/app.component.html")
	files["/w/app.component.css"] = "@broken;"
	p := newProgram(t, newMemHost(files), nil, nil)
	sf, _ := p.TSProgram().SourceFile("/w/app.component.ts")

	var codes []diag.Code
	for _, d := range p.DiagnosticsForFile(sf, SingleFile) {
		codes = append(codes, d.Code)
	}
	if diff := cmp.Diff([]diag.Code{diag.TplMissingResource, diag.BldStylesheetFailed}, codes); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
}

func TestStructuralDiagnostics(t *testing.T) {
	angular := map[string]any{
		"strictTemplates": true,
		"strictTemplatez": true,
		"compilationMode": "bogus",
	}
	got := structuralDiagnostics("/w/tsconfig.json", angular)
	if len(got) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", got)
	}
	if got[0].Code != diag.CfgInvalidOptionType || got[1].Code != diag.CfgUnknownOption {
		t.Fatalf("unexpected codes: %v", got)
	}
	if got[1].Severity != diag.SevWarning || !strings.Contains(got[1].Message, "strictTemplatez") {
		t.Fatalf("unexpected unknown-option diagnostic: %v", got[1])
	}
}

func TestSafeToSkipEmitTracksResources(t *testing.T) {
	host := newMemHost(fixture())
	p1 := newProgram(t, host, nil, nil)
	comp, _ := p1.TSProgram().SourceFile("/w/app.component.ts")
	main, _ := p1.TSProgram().SourceFile("/w/main.ts")
	if p1.SafeToSkipEmit(comp) {
		t.Fatalf("nothing emitted yet")
	}
	p1.RecordSuccessfulEmit(comp)
	p1.RecordSuccessfulEmit(main)

	host.reads = nil
	p2 := newProgram(t, host, p1, source.NewPathSet())
	comp2, _ := p2.TSProgram().SourceFile("/w/app.component.ts")
	if !p2.SafeToSkipEmit(comp2) {
		t.Fatalf("unchanged component must be skippable")
	}
	if len(host.reads) != 0 {
		t.Fatalf("unmodified resources re-read: %v", host.reads)
	}

	host.files["/w/app.component.html"] = "<h1>{{ title }}!</h1>"
	p3 := newProgram(t, host, p2, source.NewPathSet("/w/app.component.html"))
	comp3, _ := p3.TSProgram().SourceFile("/w/app.component.ts")
	main3, _ := p3.TSProgram().SourceFile("/w/main.ts")
	if p3.SafeToSkipEmit(comp3) {
		t.Fatalf("template edit must invalidate the component's output")
	}
	if !p3.SafeToSkipEmit(main3) {
		t.Fatalf("main.ts did not change")
	}
	if !slices.Equal(host.reads, []string{"/w/app.component.html"}) {
		t.Fatalf("expected only the modified template to be read, got %v", host.reads)
	}

	shim2, _ := p2.TSProgram().SourceFile("/w/app.component.ngtypecheck.ts")
	shim3, _ := p3.TSProgram().SourceFile("/w/app.component.ngtypecheck.ts")
	if shim2.Version == shim3.Version {
		t.Fatalf("shim version must follow template content")
	}
}
