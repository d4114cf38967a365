package compilation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"ngbuild/internal/bridge"
	"ngbuild/internal/cache"
	"ngbuild/internal/source"
	"ngbuild/internal/template"
	"ngbuild/internal/tsconfig"
)

// Calls served by a Worker.
const (
	callInitialize = "initialize"
	callDiagnose   = "diagnose"
	callEmit       = "emit"
	callUpdate     = "update"
	callClose      = "close"
)

// Requests a Worker sends back to its coordinator.
const (
	requestStylesheet       = "stylesheet"
	requestTransformOptions = "transform-options"
	requestWebWorker        = "web-worker"
)

// InitRequest starts a build inside a worker. The host callbacks stay on
// the coordinator side; the flags tell the worker which ones exist.
type InitRequest struct {
	Tsconfig            string
	JIT                 bool
	FileReplacements    map[string]string
	ModifiedFiles       []string
	PersistentCachePath string
	TransformOptions    bool
	ProcessWebWorker    bool
}

type stylesheetRequest struct {
	Data           string
	ContainingFile string
	StylesheetFile string
}

type webWorkerRequest struct {
	WorkerFile     string
	ContainingFile string
}

// Worker owns a compilation and serves calls posted on its call port. It
// runs on its own goroutine.
type Worker struct {
	ctx       context.Context
	templates *template.Factory

	calls        *bridge.Port
	results      *bridge.Port
	asyncReplies *bridge.Port
	sync         *bridge.SyncCaller
	async        *bridge.AsyncCaller

	compilation Compilation
	jit         bool
	cache       *cache.SourceFileCache
}

type workerPorts struct {
	calls        *bridge.Port
	results      *bridge.Port
	requests     *bridge.Port
	syncReplies  *bridge.Port
	asyncReplies *bridge.Port
	signal       *bridge.Signal
	ids          *atomic.Uint64
}

func newWorker(ctx context.Context, templates *template.Factory, ports workerPorts) *Worker {
	return &Worker{
		ctx:          ctx,
		templates:    templates,
		calls:        ports.calls,
		results:      ports.results,
		asyncReplies: ports.asyncReplies,
		sync:         bridge.NewSyncCaller(ports.requests, ports.syncReplies, ports.signal, ports.ids),
		async:        bridge.NewAsyncCaller(ports.requests, ports.ids),
	}
}

// Run serves calls until close is requested or the call port is closed.
func (w *Worker) Run() error {
	ctx, cancel := context.WithCancel(w.ctx)
	defer cancel()
	go func() { _ = w.async.Listen(ctx, w.asyncReplies) }() //nolint:errcheck

	for {
		msg, err := w.calls.Receive(ctx)
		if err != nil {
			if errors.Is(err, bridge.ErrPortClosed) {
				return nil
			}
			return err
		}
		if w.serve(ctx, msg) {
			return nil
		}
	}
}

// serve handles one call and posts exactly one result.
func (w *Worker) serve(ctx context.Context, msg bridge.Message) (stop bool) {
	var (
		result any
		err    error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		reply := bridge.Message{ID: msg.ID, Kind: msg.Kind, Payload: result}
		if err != nil {
			reply.Err = err.Error()
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				reply.Payload = cfgErr
			}
		}
		w.results.Post(reply)
	}()

	switch msg.Kind {
	case callInitialize:
		req, _ := msg.Payload.(InitRequest)
		result, err = w.initialize(ctx, req)
	case callDiagnose:
		result = slices.Collect(w.current().Diagnose())
	case callEmit:
		result, err = w.current().EmitAffectedFiles()
	case callUpdate:
		files, _ := msg.Payload.([]string)
		if w.cache != nil {
			w.cache.InvalidatePaths(files...)
		}
	case callClose:
		if w.compilation != nil {
			err = w.compilation.Close()
		}
		stop = true
	default:
		err = fmt.Errorf("unknown worker call %q", msg.Kind)
	}
	return stop
}

func (w *Worker) current() Compilation {
	if w.compilation == nil {
		panic(fmt.Errorf("%w: worker has no compilation", ErrNotInitialized))
	}
	return w.compilation
}

func (w *Worker) initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	if w.compilation == nil || w.jit != req.JIT {
		w.jit = req.JIT
		if req.JIT {
			w.compilation = NewJitCompilation()
		} else {
			w.compilation = NewAotCompilation(w.templates)
		}
	}
	if w.cache == nil {
		w.cache = cache.NewSourceFileCache(req.PersistentCachePath)
	}
	if len(req.ModifiedFiles) > 0 {
		w.cache.Invalidate(source.NewPathSet(req.ModifiedFiles...))
	}

	host := HostOptions{
		FileReplacements:    req.FileReplacements,
		SourceFileCache:     w.cache,
		TransformStylesheet: w.transformStylesheet,
	}
	if req.ProcessWebWorker {
		host.ProcessWebWorker = w.processWebWorker
	}
	var transform OptionsTransformer
	if req.TransformOptions {
		transform = w.transformOptions
	}
	return w.compilation.Initialize(ctx, req.Tsconfig, host, transform)
}

func (w *Worker) transformStylesheet(ctx context.Context, data, containingFile, stylesheetFile string) (string, error) {
	out, err := w.async.Call(ctx, requestStylesheet, stylesheetRequest{
		Data:           data,
		ContainingFile: containingFile,
		StylesheetFile: stylesheetFile,
	})
	if err != nil {
		return "", err
	}
	css, _ := out.(string)
	return css, nil
}

func (w *Worker) transformOptions(opts *tsconfig.CompilerOptions) (*tsconfig.CompilerOptions, error) {
	out, err := w.sync.Call(requestTransformOptions, opts.Clone())
	if err != nil {
		return nil, err
	}
	transformed, ok := out.(*tsconfig.CompilerOptions)
	if !ok || transformed == nil {
		return opts, nil
	}
	return transformed, nil
}

func (w *Worker) processWebWorker(workerFile, containingFile string) (string, error) {
	out, err := w.sync.Call(requestWebWorker, webWorkerRequest{WorkerFile: workerFile, ContainingFile: containingFile})
	if err != nil {
		return "", err
	}
	url, _ := out.(string)
	return url, nil
}
