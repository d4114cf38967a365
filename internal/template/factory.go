package template

import (
	"context"
	"sync"
	"sync/atomic"
)

// Factory owns the template compiler. The compiler is created at most once,
// on first use; every caller receives the same instance or the same error.
type Factory struct {
	once     sync.Once
	compiler *Compiler
	err      error
	loads    atomic.Int32
}

// NewFactory returns a factory that has not loaded anything yet.
func NewFactory() *Factory { return &Factory{} }

// Load returns the shared compiler, creating it on the first call.
func (f *Factory) Load(ctx context.Context) (*Compiler, error) {
	f.once.Do(func() {
		f.loads.Add(1)
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.compiler, f.err = newCompiler()
	})
	return f.compiler, f.err
}

// Loads reports how many times the compiler was created (0 or 1).
func (f *Factory) Loads() int { return int(f.loads.Load()) }
