package buildpipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"ngbuild/internal/source"
	"ngbuild/internal/trace"
)

// DefaultDebounce groups the file events of one save.
const DefaultDebounce = 50 * time.Millisecond

// Rebuild invalidates changed files in every session and rebuilds the
// targets that read one of them or watch a directory holding one.
func (p *Pipeline) Rebuild(ctx context.Context, changed []string) (Report, error) {
	for i, f := range changed {
		changed[i] = source.NormalizePath(f)
	}
	affected := make(map[string]bool, len(p.order))
	for _, name := range p.order {
		s := p.sessions[name]
		files := s.WatchFiles()
		dirs := watchDirs(files)
		hit := slices.ContainsFunc(changed, func(f string) bool {
			_, found := slices.BinarySearch(files, f)
			_, inDir := slices.BinarySearch(dirs, filepath.Dir(filepath.FromSlash(f)))
			return found || inDir
		})
		if !hit {
			continue
		}
		if err := s.Invalidate(changed); err != nil {
			return Report{}, fmt.Errorf("target %s: %w", name, err)
		}
		affected[name] = true
	}
	if len(affected) == 0 {
		return Report{}, nil
	}
	return p.build(ctx, func(name string) bool { return affected[name] })
}

// watchedDirs lists the project directories the sessions read from.
func (p *Pipeline) watchedDirs() []string {
	var files []string
	for _, name := range p.order {
		files = append(files, p.sessions[name].WatchFiles()...)
	}
	return watchDirs(filterFilesUnderRoot(files, p.root))
}

// Watch rebuilds after file changes until ctx is done. Every rebuild report
// is passed to onReport. Build must have run once so the sessions know
// their files.
func (p *Pipeline) Watch(ctx context.Context, debounce time.Duration, onReport func(Report)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer w.Close()
	tracer := trace.FromContext(ctx)

	watched := make(map[string]struct{})
	addDirs := func() {
		for _, dir := range p.watchedDirs() {
			if _, ok := watched[dir]; ok {
				continue
			}
			if err := w.Add(dir); err != nil {
				trace.Error(tracer, "watch_add", err)
				continue
			}
			watched[dir] = struct{}{}
		}
	}
	addDirs()
	emitStage(p.progress, "", StageWatch, StatusWorking, nil, 0)

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := source.NewPathSet()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				pending.Add(ev.Name)
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			trace.Error(tracer, "watch", err)
		case <-timer.C:
			changed := pending.Slice()
			pending.Clear()
			trace.Point(tracer, trace.ScopeDriver, "rebuild", fmt.Sprintf("%d changed", len(changed)))
			report, err := p.Rebuild(ctx, changed)
			if err != nil {
				return err
			}
			if len(report.Targets) > 0 && onReport != nil {
				onReport(report)
			}
			addDirs()
			emitStage(p.progress, "", StageWatch, StatusWorking, nil, 0)
		}
	}
}
