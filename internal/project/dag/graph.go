package dag

import (
	"fmt"
	"slices"
	"strings"

	"ngbuild/internal/project"
)

type Graph struct {
	Edges [][]TargetID // Edges[dep] = targets waiting for dep
	Indeg []int
}

// BuildGraph links every target to the targets it depends on. Unknown and
// self dependencies are skipped; the manifest loader rejects them first.
func BuildGraph(idx Index, targets []project.Target) Graph {
	n := len(idx.IDToName)
	g := Graph{
		Edges: make([][]TargetID, n),
		Indeg: make([]int, n),
	}
	for _, t := range targets {
		to, ok := idx.NameToID[t.Name]
		if !ok {
			continue
		}
		seen := make(map[TargetID]struct{}, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			from, ok := idx.NameToID[dep]
			if !ok || from == to {
				continue
			}
			if _, dup := seen[from]; dup {
				continue
			}
			seen[from] = struct{}{}
			g.Edges[from] = append(g.Edges[from], to)
			g.Indeg[to]++
		}
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}
	return g
}

// CycleError names the targets left in a dependency cycle.
type CycleError struct {
	Targets []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("targets depend on each other: %s", strings.Join(e.Targets, " -> "))
}

// Waves orders targets into batches that can build concurrently; every
// target comes after all of its dependencies.
func Waves(targets []project.Target) ([][]project.Target, error) {
	idx := BuildIndex(targets)
	topo := ToposortKahn(BuildGraph(idx, targets))
	if topo.Cyclic {
		return nil, &CycleError{Targets: idx.Names(topo.Cycles)}
	}
	byName := make(map[string]project.Target, len(targets))
	for _, t := range targets {
		byName[t.Name] = t
	}
	waves := make([][]project.Target, 0, len(topo.Batches))
	for _, batch := range topo.Batches {
		wave := make([]project.Target, 0, len(batch))
		for _, name := range idx.Names(batch) {
			wave = append(wave, byName[name])
		}
		waves = append(waves, wave)
	}
	return waves, nil
}
