package program

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ngbuild/internal/diag"
	"ngbuild/internal/source"
	"ngbuild/internal/tsconfig"
)

type memHost struct {
	files map[string]string
	reads map[string]int
}

func newMemHost(files map[string]string) *memHost {
	h := &memHost{files: make(map[string]string), reads: make(map[string]int)}
	for k, v := range files {
		h.files[source.NormalizePath(k)] = v
	}
	return h
}

func (h *memHost) FileExists(p string) bool {
	_, ok := h.files[source.NormalizePath(p)]
	return ok
}

func (h *memHost) GetSourceFile(p string) (*SourceFile, error) {
	p = source.NormalizePath(p)
	content, ok := h.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	h.reads[p]++
	return NewSourceFile(p, []byte(content)), nil
}

const componentSource = `import { Component, Inject } from '@angular/core';
import { Store } from './store';

@Component({
  selector: 'app-root',
  templateUrl: './app.component.html',
  styleUrls: ['./app.component.css'],
})
export class AppComponent {
  title = 'demo';
  constructor(private store: Store, @Inject(TOKEN) readonly token: string, plain: number) {}
  toggle() {}
}

const worker = new Worker(new URL('./app.worker', import.meta.url), { type: 'module' });
platformBrowserDynamic().bootstrapModule(AppModule);
`

func TestParseSyntaxExtractsComponentFacts(t *testing.T) {
	syn := ParseSyntax([]byte(componentSource))
	if len(syn.Errors) != 0 {
		t.Fatalf("unexpected parse errors: %+v", syn.Errors)
	}
	if len(syn.Imports) != 2 || syn.Imports[1].Specifier != "./store" {
		t.Fatalf("unexpected imports: %+v", syn.Imports)
	}
	if len(syn.Classes) != 1 {
		t.Fatalf("expected one class, got %d", len(syn.Classes))
	}
	cls := syn.Classes[0]
	if cls.Name != "AppComponent" || !cls.Exported {
		t.Fatalf("unexpected class %+v", cls)
	}
	dec, ok := cls.Decorator("Component")
	if !ok {
		t.Fatal("missing @Component decorator")
	}
	tpl, ok := dec.Prop("templateUrl")
	if !ok || len(tpl.Strings) != 1 || tpl.Strings[0].Value != "./app.component.html" {
		t.Fatalf("unexpected templateUrl %+v", tpl)
	}
	styles, ok := dec.Prop("styleUrls")
	if !ok || !styles.IsArray || len(styles.Strings) != 1 {
		t.Fatalf("unexpected styleUrls %+v", styles)
	}
	if len(cls.Ctor) != 3 || cls.Ctor[0].Type != "Store" || len(cls.Ctor[1].Decorators) != 1 {
		t.Fatalf("unexpected constructor params %+v", cls.Ctor)
	}
	for _, m := range []string{"title", "toggle", "store", "token"} {
		if !containsString(cls.Members, m) {
			t.Fatalf("member %q missing from %v", m, cls.Members)
		}
	}
	if containsString(cls.Members, "plain") {
		t.Fatal("plain constructor parameters are not members")
	}
	if len(syn.Workers) != 1 || syn.Workers[0].URL.Value != "./app.worker" {
		t.Fatalf("unexpected workers %+v", syn.Workers)
	}
	found := false
	for _, c := range syn.Calls {
		if c.Callee == "platformBrowserDynamic" {
			found = true
		}
	}
	if !found {
		t.Fatal("bootstrap call not recorded")
	}
}

func TestRangesAreByteOffsets(t *testing.T) {
	src := "// привет\nimport { a } from './a';\n"
	syn := ParseSyntax([]byte(src))
	if len(syn.Imports) != 1 {
		t.Fatalf("unexpected imports: %+v", syn.Imports)
	}
	r := syn.Imports[0].Range
	if got := src[r.Start:r.End]; !strings.Contains(got, "./a") {
		t.Fatalf("range %+v covers %q", r, got)
	}
	if got := offset(math.MaxUint); got != math.MaxInt {
		t.Fatalf("offset(MaxUint) = %d", got)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestSyntaxErrorsBecomeDiagnostics(t *testing.T) {
	sf := NewSourceFile("/w/bad.ts", []byte("export const x = ;\n"))
	diags := sf.SyntacticDiagnostics()
	if len(diags) == 0 {
		t.Fatal("expected syntax diagnostics")
	}
	if diags[0].Severity != diag.SevError || diags[0].Location == nil || diags[0].Location.Line != 1 {
		t.Fatalf("unexpected diagnostic %+v", diags[0])
	}
}

func TestProgramResolvesImports(t *testing.T) {
	host := newMemHost(map[string]string{
		"/w/main.ts":  "import { a } from './a';\nimport { b } from './missing';\nimport 'zone.js';\n",
		"/w/a.ts":     "export const a = 1;\n",
		"/w/extra.ts": "export {};\n",
	})
	p := New([]string{"/w/main.ts", "/w/gone.ts"}, &tsconfig.CompilerOptions{}, host, nil)

	if len(p.SourceFiles()) != 2 {
		t.Fatalf("expected main and a, got %v", p.SourceFiles())
	}
	if deps := p.Dependencies("/w/main.ts"); len(deps) != 1 || deps[0] != "/w/a.ts" {
		t.Fatalf("unexpected deps %v", deps)
	}
	main, _ := p.SourceFile("/w/main.ts")
	sem := p.SemanticDiagnostics(main)
	if len(sem) != 1 || sem[0].Code != diag.SemCannotFindModule || !strings.Contains(sem[0].Message, "./missing") {
		t.Fatalf("unexpected semantic diagnostics %v", sem)
	}
	if len(p.GlobalDiagnostics()) != 1 {
		t.Fatalf("missing root must be reported, got %v", p.GlobalDiagnostics())
	}
}

func drainSemantic(b *Builder, ignore func(*SourceFile) bool) []string {
	var out []string
	for {
		r, ok := b.SemanticDiagnosticsOfNextAffectedFile(ignore)
		if !ok {
			return out
		}
		out = append(out, r.File.Path)
	}
}

func TestBuilderIncrementalAffectedFiles(t *testing.T) {
	files := map[string]string{
		"/w/a.ts": "export const a = 1;\n",
		"/w/b.ts": "export const b = 2;\n",
		"/w/c.ts": "import { b } from './b';\nexport const c = b;\n",
	}
	opts := &tsconfig.CompilerOptions{}
	roots := []string{"/w/a.ts", "/w/b.ts", "/w/c.ts"}

	b1 := NewBuilder(New(roots, opts, newMemHost(files), nil), nil, nil)
	if got := drainSemantic(b1, nil); len(got) != 3 {
		t.Fatalf("first build must affect every file, got %v", got)
	}

	// no-op rebuild
	b2 := NewBuilder(New(roots, opts, newMemHost(files), nil), b1, nil)
	if got := drainSemantic(b2, nil); len(got) != 0 {
		t.Fatalf("no-op rebuild affected %v", got)
	}

	// body-only change: importers keep their state
	files["/w/b.ts"] = "export const b = 3;\n"
	b3 := NewBuilder(New(roots, opts, newMemHost(files), nil), b2, nil)
	if got := drainSemantic(b3, nil); len(got) != 1 || got[0] != "/w/b.ts" {
		t.Fatalf("expected only b.ts, got %v", got)
	}

	// export shape change: importer c.ts is affected as well
	files["/w/b.ts"] = "export const b = 3;\nexport const extra = 4;\n"
	b4 := NewBuilder(New(roots, opts, newMemHost(files), nil), b3, nil)
	if got := drainSemantic(b4, nil); len(got) != 2 || got[0] != "/w/b.ts" || got[1] != "/w/c.ts" {
		t.Fatalf("expected b.ts and c.ts, got %v", got)
	}
}

func TestBuilderIgnoreConsumesWithoutReporting(t *testing.T) {
	files := map[string]string{"/w/a.ts": "export {};\n", "/w/a.ngtypecheck.ts": "export {};\n"}
	b := NewBuilder(New([]string{"/w/a.ts", "/w/a.ngtypecheck.ts"}, &tsconfig.CompilerOptions{}, newMemHost(files), nil), nil, nil)
	var ignored []string
	got := drainSemantic(b, func(sf *SourceFile) bool {
		if source.IsShim(sf.Path) {
			ignored = append(ignored, sf.Path)
			return true
		}
		return false
	})
	if len(got) != 1 || got[0] != "/w/a.ts" || len(ignored) != 1 {
		t.Fatalf("unexpected result %v ignored %v", got, ignored)
	}
}

func TestEmitNextAffectedFileWritesBuildInfo(t *testing.T) {
	dir := t.TempDir()
	infoPath := source.NormalizePath(filepath.Join(dir, ".tsbuildinfo"))
	files := map[string]string{
		"/w/a.ts":       "export class A { constructor(public x: number) {} }\n",
		"/w/types.d.ts": "declare const y: number;\n",
	}
	opts := &tsconfig.CompilerOptions{Incremental: true, TsBuildInfoFile: infoPath}
	roots := []string{"/w/a.ts", "/w/types.d.ts"}
	b := NewBuilder(New(roots, opts, newMemHost(files), nil), nil, nil)
	drainSemantic(b, nil)

	written := map[string][]byte{}
	write := func(name string, data []byte, sources []*SourceFile) {
		written[name] = data
		if name == infoPath {
			if len(sources) != 0 {
				t.Fatalf("build info must not carry sources")
			}
			if err := WriteBuildInfo(name, data); err != nil {
				t.Fatalf("write build info: %v", err)
			}
		}
	}
	for {
		_, ok, err := b.EmitNextAffectedFile(write, nil)
		if err != nil {
			t.Fatalf("emit: %v", err)
		}
		if !ok {
			break
		}
	}
	js, ok := written["/w/a.js"]
	if !ok || !strings.Contains(string(js), "class A") {
		t.Fatalf("missing emitted JS: %q", js)
	}
	if _, ok := written["/w/types.js"]; ok {
		t.Fatal("declaration files are never emitted")
	}

	info, err := ReadBuildInfo(infoPath)
	if err != nil || info == nil {
		t.Fatalf("read build info: %v %v", info, err)
	}
	seeded := NewBuilder(New(roots, opts, newMemHost(files), nil), nil, info)
	if !seeded.UsingBuildInfo() {
		t.Fatal("expected builder seeded from build info")
	}
	if seeded.PendingEmit("/w/a.ts") {
		t.Fatal("emitted state must survive persistence")
	}
	if got := drainSemantic(seeded, nil); len(got) != 0 {
		t.Fatalf("unchanged files must not be affected, got %v", got)
	}
}

func TestApplyEditsRejectsOverlap(t *testing.T) {
	out, err := ApplyEdits([]byte("abcdef"), []Edit{{Start: 1, End: 1, Text: "X"}, {Start: 3, End: 5, Text: "-"}})
	if err != nil || string(out) != "aXbc-f" {
		t.Fatalf("unexpected result %q %v", out, err)
	}
	if _, err := ApplyEdits([]byte("abcdef"), []Edit{{Start: 1, End: 4}, {Start: 2, End: 3}}); !errors.Is(err, ErrOverlappingEdits) {
		t.Fatalf("expected overlap error, got %v", err)
	}
}
