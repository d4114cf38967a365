// Package jstransform post-processes JavaScript that is not part of the
// TypeScript program (libraries, plain JS sources) on a bounded pool.
package jstransform

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/hashicorp/go-multierror"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"ngbuild/internal/trace"
)

// Options select the transformations applied to every file.
type Options struct {
	// SourceMap emits inline source maps for application files.
	SourceMap bool
	// ThirdPartySourceMaps extends SourceMap to node_modules.
	ThirdPartySourceMaps bool
	// AdvancedOptimizations enables syntax minification.
	AdvancedOptimizations bool
	// Target is the output language level. Zero means ES2022.
	Target api.Target
	// Workers bounds concurrent transforms. Zero means GOMAXPROCS.
	Workers int
}

// Error describes a failed transform of one file.
type Error struct {
	Path     string
	Messages []api.Message
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return "transform failed for " + e.Path
	}
	return fmt.Sprintf("transform failed for %s: %s", e.Path, e.Messages[0].Text)
}

// Transformer runs transforms on a fixed number of slots. Concurrent
// requests for the same content share one transform and results are
// cached by content.
type Transformer struct {
	opts    Options
	workers int
	sem     *semaphore.Weighted
	flight  singleflight.Group
	results *xsync.MapOf[string, []byte]
	runs    atomic.Int64
}

func New(opts Options) *Transformer {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if opts.Target == 0 {
		opts.Target = api.ES2022
	}
	return &Transformer{
		opts:    opts,
		workers: workers,
		sem:     semaphore.NewWeighted(int64(workers)),
		results: xsync.NewMapOf[string, []byte](),
	}
}

// Runs returns how many transforms actually ran.
func (t *Transformer) Runs() int64 { return t.runs.Load() }

func isThirdParty(path string) bool {
	return strings.Contains(path, "/node_modules/")
}

func (t *Transformer) sourceMap(path string) bool {
	return t.opts.SourceMap && (t.opts.ThirdPartySourceMaps || !isThirdParty(path))
}

// needed reports whether any transformation applies to path.
func (t *Transformer) needed(path string) bool {
	return t.opts.AdvancedOptimizations || t.sourceMap(path) || t.lowersSyntax()
}

func (t *Transformer) lowersSyntax() bool {
	return t.opts.Target != api.ESNext && t.opts.Target < api.ES2022
}

// TransformData transforms data as the contents of path.
func (t *Transformer) TransformData(ctx context.Context, path string, data []byte) ([]byte, error) {
	if !t.needed(path) {
		return data, nil
	}
	sum := sha256.Sum256(data)
	key := path + "#" + hex.EncodeToString(sum[:8])
	if out, ok := t.results.Load(key); ok {
		return out, nil
	}

	v, err, _ := t.flight.Do(key, func() (any, error) {
		if err := t.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer t.sem.Release(1)

		_, span := trace.Start(ctx, trace.ScopeFile, "js_transform")
		span.WithExtra("file", path)
		out, err := t.transform(path, data)
		if err != nil {
			span.End("error")
			return nil, err
		}
		span.End(fmt.Sprintf("bytes=%d", len(out)))
		t.results.Store(key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (t *Transformer) transform(path string, data []byte) ([]byte, error) {
	t.runs.Add(1)
	opts := api.TransformOptions{
		Loader:       api.LoaderJS,
		Format:       api.FormatDefault,
		Target:       t.opts.Target,
		Sourcefile:   path,
		Charset:      api.CharsetUTF8,
		MinifySyntax: t.opts.AdvancedOptimizations,
		LogLevel:     api.LogLevelSilent,
	}
	if t.sourceMap(path) {
		opts.Sourcemap = api.SourceMapInline
		opts.SourcesContent = api.SourcesContentInclude
	}
	res := api.Transform(string(data), opts)
	if len(res.Errors) > 0 {
		return nil, &Error{Path: path, Messages: res.Errors}
	}
	return res.Code, nil
}

// TransformFile reads and transforms path.
func (t *Transformer) TransformFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return t.TransformData(ctx, path, data)
}

// TransformFiles transforms every file. All failures are reported
// together; successful outputs are returned either way.
func (t *Transformer) TransformFiles(ctx context.Context, paths []string) (map[string][]byte, error) {
	var (
		mu   sync.Mutex
		out  = make(map[string][]byte, len(paths))
		merr *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for _, p := range paths {
		g.Go(func() error {
			data, err := t.TransformFile(gctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				merr = multierror.Append(merr, err)
				return nil
			}
			out[p] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return out, merr.ErrorOrNil()
}
