package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Compilation modes of a target.
const (
	ModeAOT = "aot"
	ModeJIT = "jit"
)

// ErrNoManifest is returned by LoadFrom when no ngbuild.toml is found.
var ErrNoManifest = errors.New("no " + ManifestName + " found")

// Manifest is a loaded ngbuild.toml. Target paths are absolute.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Project ProjectSection `toml:"project"`
	Targets []Target       `toml:"target"`
}

type ProjectSection struct {
	Name string `toml:"name"`
}

// Target is one [[target]] table.
type Target struct {
	Name      string   `toml:"name"`
	Tsconfig  string   `toml:"tsconfig"`
	Entry     []string `toml:"entry"`
	OutDir    string   `toml:"out_dir"`
	Mode      string   `toml:"mode"`
	Parallel  bool     `toml:"parallel"`
	BuildInfo string   `toml:"build_info"`
	Workers   int      `toml:"workers"`
	Sourcemap bool     `toml:"sourcemap"`
	// External module specifiers are left to the runtime.
	External []string `toml:"external"`
	// DependsOn names targets that must finish first.
	DependsOn        []string          `toml:"depends_on"`
	FileReplacements map[string]string `toml:"file_replacements"`
}

// JIT reports whether the target compiles in JIT mode.
func (t Target) JIT() bool { return t.Mode == ModeJIT }

// CacheDir is the persistent cache directory holding the build info, or "".
func (t Target) CacheDir() string {
	if t.BuildInfo == "" {
		return ""
	}
	return filepath.Dir(t.BuildInfo)
}

// Target returns the target called name.
func (m *Manifest) Target(name string) (Target, bool) {
	for _, t := range m.Config.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// LoadFrom finds and loads the manifest above startDir.
func LoadFrom(startDir string) (*Manifest, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoManifest
	}
	return Load(path)
}

// Load parses and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: missing [project]", path)
	}
	if !meta.IsDefined("project", "name") || strings.TrimSpace(cfg.Project.Name) == "" {
		return nil, fmt.Errorf("%s: missing [project].name", path)
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("%s: no [[target]] defined", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	seen := make(map[string]struct{}, len(cfg.Targets))
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		if err := t.resolve(root); err != nil {
			return nil, fmt.Errorf("%s: target %d: %w", path, i+1, err)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate target %q", path, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	for _, t := range cfg.Targets {
		for _, dep := range t.DependsOn {
			if _, ok := seen[dep]; !ok {
				return nil, fmt.Errorf("%s: target %q depends on unknown target %q", path, t.Name, dep)
			}
		}
	}
	return &Manifest{Path: path, Root: root, Config: cfg}, nil
}

func (t *Target) resolve(root string) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return errors.New("missing name")
	}
	if strings.TrimSpace(t.Tsconfig) == "" {
		return fmt.Errorf("%s: missing tsconfig", t.Name)
	}
	if len(t.Entry) == 0 {
		return fmt.Errorf("%s: missing entry", t.Name)
	}
	switch t.Mode {
	case "":
		t.Mode = ModeAOT
	case ModeAOT, ModeJIT:
	default:
		return fmt.Errorf("%s: mode must be %q or %q, got %q", t.Name, ModeAOT, ModeJIT, t.Mode)
	}
	if t.Workers < 0 {
		return fmt.Errorf("%s: workers must not be negative", t.Name)
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, filepath.FromSlash(p))
	}
	t.Tsconfig = abs(t.Tsconfig)
	for i, e := range t.Entry {
		t.Entry[i] = abs(e)
	}
	if t.OutDir == "" {
		t.OutDir = filepath.Join("dist", t.Name)
	}
	t.OutDir = abs(t.OutDir)
	t.BuildInfo = abs(t.BuildInfo)
	if len(t.FileReplacements) > 0 {
		replacements := make(map[string]string, len(t.FileReplacements))
		for from, to := range t.FileReplacements {
			replacements[abs(from)] = abs(to)
		}
		t.FileReplacements = replacements
	}
	return nil
}
