package dag

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ngbuild/internal/project"
)

func names(waves [][]project.Target) [][]string {
	out := make([][]string, len(waves))
	for i, w := range waves {
		for _, t := range w {
			out[i] = append(out[i], t.Name)
		}
	}
	return out
}

func TestBuildIndexSortsNames(t *testing.T) {
	idx := BuildIndex([]project.Target{{Name: "server"}, {Name: "browser"}})
	if diff := cmp.Diff([]string{"browser", "server"}, idx.IDToName); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	if idx.NameToID["server"] != 1 {
		t.Fatalf("server id = %d", idx.NameToID["server"])
	}
}

func TestWavesFollowDependencies(t *testing.T) {
	targets := []project.Target{
		{Name: "server", DependsOn: []string{"browser"}},
		{Name: "worker"},
		{Name: "browser", DependsOn: []string{"worker", "worker"}},
		{Name: "docs"},
	}
	waves, err := Waves(targets)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"docs", "worker"}, {"browser"}, {"server"}}
	if diff := cmp.Diff(want, names(waves)); diff != "" {
		t.Fatalf("waves (-want +got):\n%s", diff)
	}
}

func TestToposortKahnBatches(t *testing.T) {
	targets := []project.Target{
		{Name: "b", DependsOn: []string{"c"}},
		{Name: "a"},
		{Name: "c"},
	}
	idx := BuildIndex(targets)
	topo := ToposortKahn(BuildGraph(idx, targets))
	if topo.Cyclic {
		t.Fatal("expected acyclic graph")
	}
	if diff := cmp.Diff([]string{"a", "c", "b"}, idx.Names(topo.Order)); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if len(topo.Batches) != 2 {
		t.Fatalf("batches = %v", topo.Batches)
	}
}

func TestWavesReportCycles(t *testing.T) {
	_, err := Waves([]project.Target{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
		{Name: "c"},
	})
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected a cycle error, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cycle.Targets); diff != "" {
		t.Fatalf("cycle (-want +got):\n%s", diff)
	}
}
