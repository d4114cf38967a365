package buildpipeline

import (
	"context"
	"errors"
	"fmt"

	"ngbuild/internal/cache"
	"ngbuild/internal/compilation"
	"ngbuild/internal/diag"
	"ngbuild/internal/template"
	"ngbuild/internal/trace"
)

// Diagnose type-checks the requested targets without bundling or writing
// anything. Files shared by several targets are reported once. An
// unreadable tsconfig becomes a diagnostic of its target.
func Diagnose(ctx context.Context, req Request, maxDiagnostics int) (*diag.Bag, error) {
	if req.Manifest == nil {
		return nil, errors.New("missing project manifest")
	}
	targets, err := selectTargets(req.Manifest, req.Targets)
	if err != nil {
		return nil, err
	}
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "diagnose")
	bag := diag.NewBag(0)
	defer func() { span.End(fmt.Sprintf("diagnostics=%d", bag.Len())) }()

	// files shared by several targets report the same diagnostics
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	templates := template.NewFactory()
	for _, t := range targets {
		// nothing is emitted, so the worker would only add a round trip
		t.Parallel = false
		comp := newCompilation(t, templates)
		host := compilation.HostOptions{
			FileReplacements:    t.FileReplacements,
			SourceFileCache:     cache.NewSourceFileCache(""),
			TransformStylesheet: stylesheetTransformer(t),
			ProcessWebWorker:    workerBundler(t),
		}
		_, err := comp.Initialize(ctx, t.Tsconfig, host, nil)
		if err != nil {
			closeErr := comp.Close()
			var cfgErr *compilation.ConfigError
			if !errors.As(err, &cfgErr) {
				return nil, errors.Join(fmt.Errorf("target %s: %w", t.Name, err), closeErr)
			}
			reporter.Report(diag.NewError(diag.CfgUnreadable, &diag.Location{File: cfgErr.Path}, cfgErr.Error()))
			continue
		}
		for d := range comp.Diagnose() {
			reporter.Report(d)
		}
		if err := comp.Close(); err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}
	}

	bag.Sort()
	if maxDiagnostics <= 0 || bag.Len() <= maxDiagnostics {
		return bag, nil
	}
	limited := diag.NewBag(maxDiagnostics)
	for _, d := range bag.Items() {
		limited.Add(d)
	}
	return limited, nil
}
