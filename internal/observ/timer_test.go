package observ

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("initialize")
	tm.End(idx, "3 affected")
	tm.Record("emit", 2*time.Millisecond, "")
	tm.End(42, "ignored")

	report := tm.Report()
	var names []string
	for _, p := range report.Phases {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"initialize", "emit"}, names); diff != "" {
		t.Fatalf("phases (-want +got):\n%s", diff)
	}
	if report.Phases[0].Note != "3 affected" || report.Phases[1].DurationMS != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.TotalMS < 2 {
		t.Fatalf("total %.2f below recorded phase", report.TotalMS)
	}
	if s := tm.Summary(); !strings.Contains(s, "// 3 affected") || !strings.Contains(s, "total") {
		t.Fatalf("summary misses notes or total:\n%s", s)
	}
}

func TestTimerResetAndConcurrentUse(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin("load"), "")
		}()
	}
	wg.Wait()
	if got := len(tm.Report().Phases); got != 8 {
		t.Fatalf("got %d phases", got)
	}
	tm.Reset()
	if diff := cmp.Diff(Report{}, tm.Report()); diff != "" {
		t.Fatalf("reset report (-want +got):\n%s", diff)
	}
}
