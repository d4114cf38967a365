// Package buildpipeline builds the targets of a project manifest and
// rebuilds them on file changes.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"ngbuild/internal/project"
	"ngbuild/internal/project/dag"
	"ngbuild/internal/template"
	"ngbuild/internal/trace"
)

// Request selects what a pipeline builds.
type Request struct {
	Manifest *project.Manifest
	// Targets limits the build to the named targets; empty means all.
	Targets  []string
	Progress ProgressSink
}

// Pipeline holds one session per selected target.
type Pipeline struct {
	root     string
	waves    [][]project.Target
	order    []string
	sessions map[string]*Session
	progress ProgressSink
}

func selectTargets(m *project.Manifest, names []string) ([]project.Target, error) {
	if len(names) == 0 {
		return slices.Clone(m.Config.Targets), nil
	}
	selected := make([]project.Target, 0, len(names))
	for _, name := range names {
		t, ok := m.Target(name)
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		selected = append(selected, t)
	}
	// dependencies outside the selection do not hold the build back
	for i := range selected {
		selected[i].DependsOn = slices.DeleteFunc(slices.Clone(selected[i].DependsOn), func(dep string) bool {
			return !slices.Contains(names, dep)
		})
	}
	return selected, nil
}

// Open creates the sessions of the requested targets. The template
// compiler is shared between them.
func Open(ctx context.Context, req Request) (*Pipeline, error) {
	if req.Manifest == nil {
		return nil, errors.New("missing project manifest")
	}
	targets, err := selectTargets(req.Manifest, req.Targets)
	if err != nil {
		return nil, err
	}
	waves, err := dag.Waves(targets)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		root:     req.Manifest.Root,
		waves:    waves,
		sessions: make(map[string]*Session, len(targets)),
		progress: req.Progress,
	}
	templates := template.NewFactory()
	for _, wave := range waves {
		for _, t := range wave {
			s, err := NewSession(ctx, t, p.root, templates, req.Progress)
			if err != nil {
				return nil, errors.Join(err, p.Close())
			}
			p.sessions[t.Name] = s
			p.order = append(p.order, t.Name)
		}
	}
	return p, nil
}

// Targets returns the target names in build order.
func (p *Pipeline) Targets() []string { return slices.Clone(p.order) }

// Build runs every wave; the targets of a wave build concurrently. A target
// whose dependency failed is skipped.
func (p *Pipeline) Build(ctx context.Context) (Report, error) {
	return p.build(ctx, func(string) bool { return true })
}

func (p *Pipeline) build(ctx context.Context, include func(string) bool) (Report, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "build")
	start := time.Now()
	emitQueued(p.progress, slices.DeleteFunc(slices.Clone(p.order), func(name string) bool { return !include(name) }))
	defer func() { span.End(time.Since(start).String()) }()

	results := make(map[string]TargetResult, len(p.order))
	failed := make(map[string]bool, len(p.order))
	for _, wave := range p.waves {
		waveResults := make([]TargetResult, len(wave))
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range wave {
			if !include(t.Name) {
				continue
			}
			if slices.ContainsFunc(t.DependsOn, func(dep string) bool { return failed[dep] }) {
				waveResults[i] = TargetResult{Name: t.Name, Skipped: true}
				emitStage(p.progress, t.Name, StageCompile, StatusSkipped, nil, 0)
				continue
			}
			g.Go(func() error {
				r, err := p.sessions[t.Name].Build(gctx)
				waveResults[i] = r
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return p.report(results), err
		}
		for i, t := range wave {
			if !include(t.Name) {
				continue
			}
			results[t.Name] = waveResults[i]
			failed[t.Name] = waveResults[i].Failed()
		}
	}
	return p.report(results), nil
}

func (p *Pipeline) report(results map[string]TargetResult) Report {
	var r Report
	for _, name := range p.order {
		if res, ok := results[name]; ok {
			r.Targets = append(r.Targets, res)
		}
	}
	return r
}

// Close releases every session.
func (p *Pipeline) Close() error {
	var errs []error
	for _, name := range p.order {
		if err := p.sessions[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Build opens a pipeline, builds it once and closes it.
func Build(ctx context.Context, req Request) (Report, error) {
	p, err := Open(ctx, req)
	if err != nil {
		return Report{}, err
	}
	report, err := p.Build(ctx)
	return report, errors.Join(err, p.Close())
}
