package cache

import (
	"path/filepath"
	"slices"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/puzpuzpuz/xsync/v3"

	"ngbuild/internal/program"
	"ngbuild/internal/source"
)

// Output is an emitted module held for the bundler. Final is set once the
// JavaScript post-processing ran on Contents.
type Output struct {
	Contents []byte
	Final    bool
}

// SourceFileCache survives the rebuilds of one build session: parsed files
// are reused by the next program, emitted outputs are served to the
// bundler, and resource loads are cached with their watch files.
type SourceFileCache struct {
	mu     sync.RWMutex
	parsed map[string]*program.SourceFile

	// Modified holds the files of the last Invalidate call.
	Modified *source.PathSet
	// TypeScriptOutputs is keyed by file URI.
	TypeScriptOutputs *xsync.MapOf[string, Output]
	// JavaScriptOutputs holds post-processed non-program JavaScript.
	JavaScriptOutputs *xsync.MapOf[string, []byte]
	Resources         *LoadResultCache[api.OnLoadResult]

	PersistentCachePath string

	refMu      sync.RWMutex
	referenced []string
}

// NewSourceFileCache creates an empty cache. persistentCachePath may be ""
// when nothing is kept across sessions.
func NewSourceFileCache(persistentCachePath string) *SourceFileCache {
	return &SourceFileCache{
		parsed:              make(map[string]*program.SourceFile),
		Modified:            source.NewPathSet(),
		TypeScriptOutputs:   xsync.NewMapOf[string, Output](),
		JavaScriptOutputs:   xsync.NewMapOf[string, []byte](),
		Resources:           NewLoadResultCache[api.OnLoadResult](),
		PersistentCachePath: persistentCachePath,
	}
}

// Parsed returns a file parsed by an earlier program.
func (c *SourceFileCache) Parsed(path string) (*program.SourceFile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sf, ok := c.parsed[source.NormalizePath(path)]
	return sf, ok
}

// PutParsed keeps sf for later programs.
func (c *SourceFileCache) PutParsed(sf *program.SourceFile) {
	c.mu.Lock()
	c.parsed[sf.Path] = sf
	c.mu.Unlock()
}

// Invalidate drops everything derived from files and records them as
// modified. Modified is reset first unless files is Modified itself.
func (c *SourceFileCache) Invalidate(files *source.PathSet) {
	snapshot := files.Slice()
	if files != c.Modified {
		c.Modified.Clear()
	}
	for _, f := range snapshot {
		c.JavaScriptOutputs.Delete(f)
		c.TypeScriptOutputs.Delete(source.FileURI(f))
		c.Resources.Invalidate(f)

		p := filepath.ToSlash(f)
		c.mu.Lock()
		delete(c.parsed, p)
		c.mu.Unlock()
		c.Modified.Add(p)
	}
}

// InvalidatePaths is Invalidate for a plain list of paths.
func (c *SourceFileCache) InvalidatePaths(paths ...string) {
	c.Invalidate(source.NewPathSet(paths...))
}

// SetReferencedFiles stores the files the last build read.
func (c *SourceFileCache) SetReferencedFiles(files []string) {
	c.refMu.Lock()
	c.referenced = slices.Clone(files)
	c.refMu.Unlock()
}

// ReferencedFiles returns the files of the last build.
func (c *SourceFileCache) ReferencedFiles() []string {
	c.refMu.RLock()
	defer c.refMu.RUnlock()
	return slices.Clone(c.referenced)
}

// BuildInfoFile is the default build info location inside the persistent
// cache, or "" without one.
func (c *SourceFileCache) BuildInfoFile() string {
	if c == nil || c.PersistentCachePath == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Join(c.PersistentCachePath, ".tsbuildinfo"))
}
