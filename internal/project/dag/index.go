package dag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"ngbuild/internal/project"
)

type TargetID uint32

type Index struct {
	NameToID map[string]TargetID
	IDToName []string
}

// BuildIndex assigns ids to target names in sorted order.
func BuildIndex(targets []project.Target) Index {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name)
	}
	sort.Strings(names)

	nameToID := make(map[string]TargetID, len(names))
	for i, name := range names {
		id, err := safecast.Conv[TargetID](i)
		if err != nil {
			panic(fmt.Errorf("target id overflow: %w", err))
		}
		nameToID[name] = id
	}
	return Index{NameToID: nameToID, IDToName: names}
}

func (idx Index) Names(ids []TargetID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}
