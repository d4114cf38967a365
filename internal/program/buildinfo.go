package program

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"ngbuild/internal/diag"
)

// Current schema version - increment when BuildInfo format changes.
const buildInfoSchemaVersion uint16 = 1

// FileState is the builder's per-file incremental record.
type FileState struct {
	Version   string
	Signature string
	Deps      []string

	Semantic    []diag.Diagnostic
	HasSemantic bool

	// SemanticPending: affected but not yet handed out by
	// SemanticDiagnosticsOfNextAffectedFile.
	SemanticPending bool
	Emitted         bool
}

// BuildInfo is the persisted builder state.
type BuildInfo struct {
	Schema      uint16
	OptionsHash string
	Files       map[string]*FileState
}

// ReadBuildInfo loads persisted state. A missing file or an outdated schema
// yields (nil, nil).
func ReadBuildInfo(path string) (*BuildInfo, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var info BuildInfo
	if err := msgpack.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	if info.Schema != buildInfoSchemaVersion {
		return nil, nil
	}
	return &info, nil
}

// WriteBuildInfo stores encoded build info atomically.
func WriteBuildInfo(path string, data []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "buildinfo-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name()) //nolint:errcheck
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close() //nolint:errcheck
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), path)
}

func encodeBuildInfo(info *BuildInfo) ([]byte, error) {
	info.Schema = buildInfoSchemaVersion
	return msgpack.Marshal(info)
}
