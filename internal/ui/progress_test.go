package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"ngbuild/internal/buildpipeline"
)

func TestProgressModelTracksTargets(t *testing.T) {
	events := make(chan buildpipeline.Event)
	m := NewProgressModel("ngbuild", []string{"browser", "server"}, events).(*progressModel)

	apply := func(ev buildpipeline.Event) { m.Update(eventMsg(ev)) }
	apply(buildpipeline.Event{Target: "browser", Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusWorking})
	apply(buildpipeline.Event{Target: "server", Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusSkipped})
	apply(buildpipeline.Event{Target: "unknown", Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusWorking})

	view := m.View()
	for _, want := range []string{"compiling", "skipped", "browser", "server"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view misses %q:\n%s", want, view)
		}
	}
	if got := m.percent(); got != (0.4+1.0)/2 {
		t.Fatalf("percent = %v", got)
	}

	apply(buildpipeline.Event{Target: "browser", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusDone, Elapsed: 12 * time.Millisecond})
	if view := m.View(); !strings.Contains(view, "(12.0 ms)") {
		t.Fatalf("elapsed time not shown:\n%s", view)
	}
	if m.percent() != 1 {
		t.Fatalf("percent = %v, want 1", m.percent())
	}

	apply(buildpipeline.Event{Stage: buildpipeline.StageWatch, Status: buildpipeline.StatusWorking})
	if !strings.Contains(m.View(), "(watching)") {
		t.Fatalf("pipeline stage not in header:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("browser-application", 10); got != "browser..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("构建应用程序目标", 9); got != "构建应..." || runewidth.StringWidth(got) != 9 {
		t.Fatalf("truncate = %q", got)
	}
}
