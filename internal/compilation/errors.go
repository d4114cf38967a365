package compilation

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is the panic value of operations used before Initialize.
var ErrNotInitialized = errors.New("compilation: not initialized")

// ConfigError reports an unreadable or invalid tsconfig.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("failed to read TypeScript configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
