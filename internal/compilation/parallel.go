package compilation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"ngbuild/internal/bridge"
	"ngbuild/internal/diag"
	"ngbuild/internal/template"
	"ngbuild/internal/trace"
	"ngbuild/internal/tsconfig"
)

// ParallelCompilation hosts an AOT or JIT compilation on a worker
// goroutine. Host callbacks issued by the worker run on the coordinator
// side: stylesheets asynchronously, option transforms and web worker
// bundling synchronously.
type ParallelCompilation struct {
	jit       bool
	templates *template.Factory

	ports  workerPorts
	ids    atomic.Uint64
	cancel context.CancelFunc
	done   chan error

	hostMu    sync.RWMutex
	host      HostOptions
	transform OptionsTransformer

	initialized bool
}

// NewParallelCompilation creates a coordinator. The worker starts on the
// first Initialize.
func NewParallelCompilation(jit bool, templates *template.Factory) *ParallelCompilation {
	return &ParallelCompilation{jit: jit, templates: templates}
}

func (p *ParallelCompilation) start(ctx context.Context) {
	p.ports = workerPorts{
		calls:        bridge.NewPort(),
		results:      bridge.NewPort(),
		requests:     bridge.NewPort(),
		syncReplies:  bridge.NewPort(),
		asyncReplies: bridge.NewPort(),
		signal:       bridge.NewSignal(),
		ids:          &p.ids,
	}
	// the worker outlives the Initialize call that started it
	wctx := trace.WithTracer(context.Background(), trace.FromContext(ctx))
	wctx, p.cancel = context.WithCancel(wctx)
	p.done = make(chan error, 1)

	w := newWorker(wctx, p.templates, p.ports)
	go func() { p.done <- w.Run() }()
	go p.serveRequests(wctx)
}

// call posts a worker call and waits for its result.
func (p *ParallelCompilation) call(kind string, payload any) (any, error) {
	id := p.ids.Add(1)
	if !p.ports.calls.Post(bridge.Message{ID: id, Kind: kind, Payload: payload}) {
		return nil, fmt.Errorf("%s: %w", kind, bridge.ErrPortClosed)
	}
	reply, err := p.ports.results.Receive(context.Background())
	if err != nil {
		return nil, err
	}
	if reply.ID != id {
		return nil, fmt.Errorf("%s call %d: %w", kind, id, bridge.ErrUnexpectedReply)
	}
	if reply.Err != "" {
		if cfgErr, ok := reply.Payload.(*ConfigError); ok {
			return nil, cfgErr
		}
		return nil, &bridge.RemoteError{Kind: kind, Msg: reply.Err}
	}
	return reply.Payload, nil
}

func (p *ParallelCompilation) Initialize(ctx context.Context, tsconfigPath string, host HostOptions, transform OptionsTransformer) (*InitResult, error) {
	if p.cancel == nil {
		p.start(ctx)
	}
	p.hostMu.Lock()
	p.host, p.transform = host, transform
	p.hostMu.Unlock()

	req := InitRequest{
		Tsconfig:         tsconfigPath,
		JIT:              p.jit,
		FileReplacements: host.FileReplacements,
		ModifiedFiles:    host.modifiedFiles().Slice(),
		TransformOptions: transform != nil,
		ProcessWebWorker: host.ProcessWebWorker != nil,
	}
	if host.SourceFileCache != nil {
		req.PersistentCachePath = host.SourceFileCache.PersistentCachePath
	}
	out, err := p.call(callInitialize, req)
	if err != nil {
		return nil, err
	}
	p.initialized = true
	res, _ := out.(*InitResult)
	return res, nil
}

// Initialized reports whether a worker compilation exists.
func (p *ParallelCompilation) Initialized() bool { return p.initialized }

func (p *ParallelCompilation) mustInit(op string) {
	if !p.initialized {
		panic(fmt.Errorf("%w: %s called before Initialize", ErrNotInitialized, op))
	}
}

func (p *ParallelCompilation) Diagnose() iter.Seq[diag.Diagnostic] {
	p.mustInit("Diagnose")
	return func(yield func(diag.Diagnostic) bool) {
		out, err := p.call(callDiagnose, nil)
		if err != nil {
			yield(diag.NewError(diag.BldWorkerFailed, nil, err.Error()))
			return
		}
		ds, _ := out.([]diag.Diagnostic)
		for _, d := range ds {
			if !yield(d) {
				return
			}
		}
	}
}

func (p *ParallelCompilation) EmitAffectedFiles() ([]EmitFileResult, error) {
	p.mustInit("EmitAffectedFiles")
	out, err := p.call(callEmit, nil)
	if err != nil {
		return nil, err
	}
	files, _ := out.([]EmitFileResult)
	return files, nil
}

// Update invalidates files in the worker's source file cache.
func (p *ParallelCompilation) Update(files []string) error {
	p.mustInit("Update")
	_, err := p.call(callUpdate, files)
	return err
}

// Close stops the worker. It is safe to call on an unstarted coordinator.
func (p *ParallelCompilation) Close() error {
	if p.cancel == nil {
		return nil
	}
	_, callErr := p.call(callClose, nil)
	runErr := <-p.done
	p.cancel()
	p.ports.calls.Close()
	p.ports.requests.Close()
	p.cancel = nil
	p.initialized = false
	return errors.Join(callErr, runErr)
}

// serveRequests answers host callbacks of the worker until ctx is done.
func (p *ParallelCompilation) serveRequests(ctx context.Context) {
	for {
		msg, err := p.ports.requests.Receive(ctx)
		if err != nil {
			return
		}
		switch msg.Kind {
		case requestStylesheet:
			go p.replyStylesheet(ctx, msg)
		case requestTransformOptions:
			bridge.Respond(p.ports.syncReplies, p.ports.signal, msg, p.transformOptions)
		case requestWebWorker:
			bridge.Respond(p.ports.syncReplies, p.ports.signal, msg, p.processWebWorker)
		default:
			trace.Point(trace.FromContext(ctx), trace.ScopePhase, "bridge_unknown_request", msg.Kind)
		}
	}
}

func (p *ParallelCompilation) replyStylesheet(ctx context.Context, msg bridge.Message) {
	req, _ := msg.Payload.(stylesheetRequest)
	p.hostMu.RLock()
	transform := p.host.TransformStylesheet
	p.hostMu.RUnlock()

	reply := bridge.Message{ID: msg.ID, Kind: msg.Kind, Payload: req.Data}
	if transform != nil {
		css, err := transform(ctx, req.Data, req.ContainingFile, req.StylesheetFile)
		reply.Payload = css
		if err != nil {
			reply.Err = err.Error()
		}
	}
	p.ports.asyncReplies.Post(reply)
}

func (p *ParallelCompilation) transformOptions(payload any) (any, error) {
	opts, _ := payload.(*tsconfig.CompilerOptions)
	p.hostMu.RLock()
	transform := p.transform
	p.hostMu.RUnlock()
	if transform == nil {
		return opts, nil
	}
	return transform(opts)
}

func (p *ParallelCompilation) processWebWorker(payload any) (any, error) {
	req, _ := payload.(webWorkerRequest)
	p.hostMu.RLock()
	process := p.host.ProcessWebWorker
	p.hostMu.RUnlock()
	if process == nil {
		return nil, errors.New("no web worker processor configured")
	}
	return process(req.WorkerFile, req.ContainingFile)
}
