package cache

import (
	"slices"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/source"
)

// LoadResult is a cached load plus the files it was built from.
type LoadResult[R any] struct {
	Result     R
	WatchFiles []string
}

// LoadResultCache caches bundler load results by path. Each entry may name
// watch files; invalidating a watch file drops every entry that listed it.
// Safe for concurrent use.
type LoadResultCache[R any] struct {
	mu         sync.RWMutex
	entries    map[string]LoadResult[R]
	dependents map[string]map[string]struct{} // watch file -> cache keys
}

func NewLoadResultCache[R any]() *LoadResultCache[R] {
	return &LoadResultCache[R]{
		entries:    make(map[string]LoadResult[R]),
		dependents: make(map[string]map[string]struct{}),
	}
}

// Get returns the entry stored for path.
func (c *LoadResultCache[R]) Get(path string) (LoadResult[R], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey(path)]
	return e, ok
}

// Put stores entry and registers a reverse edge from every watch file to
// path.
func (c *LoadResultCache[R]) Put(path string, entry LoadResult[R]) {
	key := cacheKey(path)
	watch := make([]string, 0, len(entry.WatchFiles))
	for _, f := range entry.WatchFiles {
		watch = append(watch, source.NormalizePath(f))
	}
	entry.WatchFiles = watch

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	for _, f := range watch {
		set, ok := c.dependents[f]
		if !ok {
			set = make(map[string]struct{})
			c.dependents[f] = set
		}
		set[key] = struct{}{}
	}
}

// Invalidate removes the entry for path and every entry that listed path as
// a watch file. Dependents of those dependents are left alone: they reload
// and re-register on their next load. Reports whether anything was removed.
func (c *LoadResultCache[R]) Invalidate(path string) bool {
	key := cacheKey(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, changed := c.entries[key]
	delete(c.entries, key)

	if deps, ok := c.dependents[key]; ok {
		for dep := range deps {
			if _, ok := c.entries[dep]; ok {
				delete(c.entries, dep)
				changed = true
			}
		}
		delete(c.dependents, key)
	}
	return changed
}

// Len returns the number of cached entries.
func (c *LoadResultCache[R]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// WatchFiles lists the files watch mode should observe: every watch file of
// a live entry, sorted.
func (c *LoadResultCache[R]) WatchFiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, e := range c.entries {
		for _, f := range e.WatchFiles {
			seen[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// cacheKey normalizes file paths. Virtual module keys ("ns:path") are kept
// as they are.
func cacheKey(path string) string {
	if isVirtual(path) {
		return path
	}
	return source.NormalizePath(path)
}

func isVirtual(path string) bool {
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '/', '\\':
			return false
		case ':':
			return i > 1 // "C:" is a drive letter
		}
	}
	return false
}

// LoadFunc is an esbuild load callback.
type LoadFunc func(api.OnLoadArgs) (api.OnLoadResult, error)

// CachedLoad wraps load with c. Results are keyed by path for the file
// namespace and by "namespace:path" otherwise; file results always watch
// their own path. A nil cache disables caching.
func CachedLoad(c *LoadResultCache[api.OnLoadResult], load LoadFunc) LoadFunc {
	if c == nil {
		return load
	}
	return func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		key := args.Path
		if args.Namespace != "" && args.Namespace != "file" {
			key = args.Namespace + ":" + args.Path
		}
		if e, ok := c.Get(key); ok {
			return e.Result, nil
		}
		res, err := load(args)
		if err != nil || len(res.Errors) > 0 {
			return res, err
		}
		watch := slices.Clone(res.WatchFiles)
		if key == args.Path {
			watch = append(watch, args.Path)
		}
		c.Put(key, LoadResult[api.OnLoadResult]{Result: res, WatchFiles: watch})
		return res, nil
	}
}
