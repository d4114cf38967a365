package source

import "iter"

// PathSet is an insertion-ordered set of normalized paths.
// Not safe for concurrent use.
type PathSet struct {
	index map[string]int
	items []string
}

// NewPathSet builds a set from paths, normalizing each one.
func NewPathSet(paths ...string) *PathSet {
	s := &PathSet{index: make(map[string]int, len(paths))}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p (normalized) and reports whether it was new.
func (s *PathSet) Add(p string) bool {
	p = NormalizePath(p)
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[p]; ok {
		return false
	}
	s.index[p] = len(s.items)
	s.items = append(s.items, p)
	return true
}

// Has reports membership. A nil set is empty.
func (s *PathSet) Has(p string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[NormalizePath(p)]
	return ok
}

func (s *PathSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Clear empties the set in place.
func (s *PathSet) Clear() {
	clear(s.index)
	s.items = s.items[:0]
}

// Slice returns a copy of the members in insertion order.
func (s *PathSet) Slice() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// All iterates members in insertion order.
func (s *PathSet) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		if s == nil {
			return
		}
		for _, p := range s.items {
			if !yield(p) {
				return
			}
		}
	}
}
