package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ngbuild/internal/project"
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
	return p
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) index(target string, stage Stage, status Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.IndexFunc(s.events, func(ev Event) bool {
		return ev.Target == target && ev.Stage == stage && ev.Status == status
	})
}

const component = `import { Component } from '@angular/core';

@Component({
  selector: 'app-root',
  templateUrl: './app.component.html',
  styleUrl: './app.component.css',
})
export class AppComponent {
  title = 'demo';
}
`

// app writes a small application under dir/name.
func app(t *testing.T, dir, name, html string) {
	t.Helper()
	writeFile(t, dir, name+"/tsconfig.json", `{"compilerOptions": {"target": "ES2022"}, "files": ["main.ts"]}`)
	writeFile(t, dir, name+"/main.ts", "import { AppComponent } from './app.component';\nimport { b } from './util';\nconsole.log(AppComponent, b);\n")
	writeFile(t, dir, name+"/util.ts", "export const b = 2;\n")
	writeFile(t, dir, name+"/app.component.ts", component)
	writeFile(t, dir, name+"/app.component.html", html)
	writeFile(t, dir, name+"/app.component.css", "h1 { color: red; }\n")
}

func loadManifest(t *testing.T, dir, content string) *project.Manifest {
	t.Helper()
	writeFile(t, dir, project.ManifestName, content)
	m, err := project.LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

const twoTargets = `
[project]
name = "shop"

[[target]]
name = "browser"
tsconfig = "browser/tsconfig.json"
entry = ["browser/main.ts"]
external = ["@angular/*"]
build_info = ".cache/browser/.tsbuildinfo"

[[target]]
name = "server"
tsconfig = "server/tsconfig.json"
entry = ["server/main.ts"]
external = ["@angular/*"]
mode = "jit"
parallel = true
depends_on = ["browser"]
`

func TestBuildWritesTargetsInDependencyOrder(t *testing.T) {
	dir := t.TempDir()
	app(t, dir, "browser", "<h1>{{ title }}</h1>\n")
	app(t, dir, "server", "<h1>{{ title }}</h1>\n")
	m := loadManifest(t, dir, twoTargets)
	sink := &recordingSink{}

	report, err := Build(context.Background(), Request{Manifest: m, Progress: sink})
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed() {
		t.Fatalf("build failed: %+v", report)
	}
	var names []string
	for _, r := range report.Targets {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{"browser", "server"}, names); diff != "" {
		t.Fatalf("targets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dist/browser/main.js"}, report.Targets[0].Outputs); diff != "" {
		t.Fatalf("browser outputs (-want +got):\n%s", diff)
	}

	browser, err := os.ReadFile(filepath.Join(dir, "dist", "browser", "main.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(browser), "ɵcmp") {
		t.Fatalf("browser bundle is not compiled ahead of time:\n%s", browser)
	}
	server, err := os.ReadFile(filepath.Join(dir, "dist", "server", "main.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(server), "color: red") {
		t.Fatalf("server bundle misses the processed stylesheet:\n%s", server)
	}
	if _, err := os.Stat(filepath.Join(dir, ".cache", "browser", ".tsbuildinfo")); err != nil {
		t.Fatalf("build info not written: %v", err)
	}

	browserDone := sink.index("browser", StageWrite, StatusDone)
	serverStart := sink.index("server", StageCompile, StatusWorking)
	if browserDone < 0 || serverStart < browserDone {
		t.Fatalf("server started before browser finished: %+v", sink.events)
	}
	if !report.Targets[0].Timings.Has(StageCompile) || len(report.Targets[0].Phases.Phases) == 0 {
		t.Fatalf("timings missing: %+v", report.Targets[0])
	}
}

func TestFailedDependencySkipsDependents(t *testing.T) {
	dir := t.TempDir()
	app(t, dir, "browser", "<p>{{ subtitle }}</p>\n")
	app(t, dir, "server", "<h1>{{ title }}</h1>\n")
	m := loadManifest(t, dir, twoTargets)

	report, err := Build(context.Background(), Request{Manifest: m})
	if err != nil {
		t.Fatal(err)
	}
	if !report.Failed() || len(report.Targets) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Targets[0].Errors) != 1 || !report.Targets[1].Skipped {
		t.Fatalf("expected one browser error and a skipped server, got %+v", report.Targets)
	}
}

func TestRebuildOnlyTouchesAffectedTargets(t *testing.T) {
	dir := t.TempDir()
	app(t, dir, "a", "<h1>{{ title }}</h1>\n")
	app(t, dir, "b", "<h1>{{ title }}</h1>\n")
	m := loadManifest(t, dir, `
[project]
name = "pair"

[[target]]
name = "a"
tsconfig = "a/tsconfig.json"
entry = ["a/main.ts"]
external = ["@angular/*"]

[[target]]
name = "b"
tsconfig = "b/tsconfig.json"
entry = ["b/main.ts"]
external = ["@angular/*"]
`)
	ctx := context.Background()
	p, err := Open(ctx, Request{Manifest: m})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if _, err := p.Build(ctx); err != nil {
		t.Fatal(err)
	}

	util := writeFile(t, dir, "a/util.ts", "export const b = 42;\n")
	report, err := p.Rebuild(ctx, []string{util})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Targets) != 1 || report.Targets[0].Name != "a" || report.Failed() {
		t.Fatalf("unexpected rebuild report %+v", report)
	}
	out, err := os.ReadFile(filepath.Join(dir, "dist", "a", "main.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "42") {
		t.Fatalf("rebuild did not pick the change up:\n%s", out)
	}

	report, err = p.Rebuild(ctx, []string{filepath.Join(t.TempDir(), "elsewhere.ts")})
	if err != nil || len(report.Targets) != 0 {
		t.Fatalf("unrelated change rebuilt %+v (err %v)", report, err)
	}
}

func TestWatchRebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	app(t, dir, "browser", "<h1>{{ title }}</h1>\n")
	m := loadManifest(t, dir, `
[project]
name = "watched"

[[target]]
name = "browser"
tsconfig = "browser/tsconfig.json"
entry = ["browser/main.ts"]
external = ["@angular/*"]
`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p, err := Open(ctx, Request{Manifest: m})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if _, err := p.Build(ctx); err != nil {
		t.Fatal(err)
	}

	reports := make(chan Report, 4)
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, 20*time.Millisecond, func(r Report) { reports <- r }) }()

	// give the watcher a moment to register its directories
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "browser/app.component.html", "<h1>{{ title }}!</h1>\n")

	select {
	case r := <-reports:
		if r.Failed() || len(r.Targets) != 1 {
			t.Fatalf("unexpected watch report %+v", r)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no rebuild after a template change")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
}

func TestSelectTargets(t *testing.T) {
	m := &project.Manifest{Config: project.Config{Targets: []project.Target{
		{Name: "browser"},
		{Name: "server", DependsOn: []string{"browser"}},
	}}}
	got, err := selectTargets(m, []string{"server"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || len(got[0].DependsOn) != 0 {
		t.Fatalf("unexpected selection %+v", got)
	}
	if len(m.Config.Targets[1].DependsOn) != 1 {
		t.Fatal("selection modified the manifest")
	}
	if _, err := selectTargets(m, []string{"docs"}); err == nil {
		t.Fatal("expected an unknown target error")
	}
}

func TestDisplayPaths(t *testing.T) {
	base := t.TempDir()
	got := displayPaths([]string{
		filepath.Join(base, "dist", "b.js"),
		filepath.Join(base, "dist", "a.js"),
		filepath.Join(base, "dist", "a.js"),
		"",
	}, base)
	if diff := cmp.Diff([]string{"dist/a.js", "dist/b.js"}, got); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
}
