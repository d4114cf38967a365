package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStartPropagatesParent(t *testing.T) {
	ring := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), ring)

	ctx, outer := Start(ctx, ScopeBuild, "build")
	_, inner := Start(ctx, ScopeFile, "emit:a.ts")
	inner.End("")
	outer.End("ok")

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].ParentID != outer.ID() {
		t.Fatalf("inner span parent = %d, want %d", events[1].ParentID, outer.ID())
	}
	if events[3].Detail != "ok" {
		t.Fatalf("unexpected detail %q", events[3].Detail)
	}
}

func TestLevelFiltersFileScope(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	ctx := WithTracer(context.Background(), tr)

	_, span := Start(ctx, ScopeFile, "emit:a.ts")
	span.End("")
	if buf.Len() != 0 {
		t.Fatalf("file scope must be filtered at phase level, got %q", buf.String())
	}

	_, span = Start(ctx, ScopePhase, "emit")
	span.WithExtra("files", "3").End("")
	if !strings.Contains(buf.String(), "files=3") {
		t.Fatalf("expected extra in output, got %q", buf.String())
	}
}

func TestErrorPointPassesFilter(t *testing.T) {
	ring := NewRingTracer(4, LevelError)
	Error(ring, "emit", errTest)
	Point(ring, ScopePhase, "ignored", "")
	if got := len(ring.Snapshot()); got != 1 {
		t.Fatalf("expected 1 event, got %d", got)
	}
}

func TestNopTracerFromEmptyContext(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("expected Nop tracer")
	}
	ctx, span := Start(context.Background(), ScopePhase, "x")
	if span.ID() != 0 || CurrentSpan(ctx) != 0 {
		t.Fatal("disabled tracing must not allocate span ids")
	}
}

func TestTracersReportTheirLevel(t *testing.T) {
	var buf bytes.Buffer
	tracers := []struct {
		name    string
		tracer  Tracer
		level   Level
		enabled bool
	}{
		{"nop", Nop, LevelOff, false},
		{"ring", NewRingTracer(4, LevelPhase), LevelPhase, true},
		{"stream", NewStreamTracer(&buf, LevelError, FormatText), LevelError, true},
	}
	for _, tt := range tracers {
		if tt.tracer.Level() != tt.level || tt.tracer.Enabled() != tt.enabled {
			t.Fatalf("%s: level %v enabled %v", tt.name, tt.tracer.Level(), tt.tracer.Enabled())
		}
		if err := tt.tracer.Flush(); err != nil {
			t.Fatalf("%s: flush: %v", tt.name, err)
		}
		if err := tt.tracer.Close(); err != nil {
			t.Fatalf("%s: close: %v", tt.name, err)
		}
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTest = testErr("boom")
