package tsconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"ngbuild/internal/diag"
	"ngbuild/internal/source"
)

// ErrExtendsCycle is returned when an extends chain revisits a config.
var ErrExtendsCycle = errors.New("circular extends")

// ParsedConfig is a fully resolved tsconfig.
type ParsedConfig struct {
	Path      string
	Dir       string
	Options   *CompilerOptions
	Angular   map[string]any // angularCompilerOptions, merged along extends
	RootNames []string
	// Errors are option-level diagnostics; the config is still usable.
	Errors []diag.Diagnostic
}

type rawConfig struct {
	Extends                json.RawMessage            `json:"extends"`
	CompilerOptions        map[string]json.RawMessage `json:"compilerOptions"`
	AngularCompilerOptions map[string]any             `json:"angularCompilerOptions"`
	Files                  *[]string                  `json:"files"`
	Include                *[]string                  `json:"include"`
	Exclude                *[]string                  `json:"exclude"`
}

// layer is one config merged with everything it extends. File lists and
// path-valued options are already absolute.
type layer struct {
	options map[string]json.RawMessage
	angular map[string]any
	files   *[]string
	include *[]string
	exclude *[]string
}

// Load reads the config at path, following extends. Unreadable or malformed
// files and extends cycles are errors; problems with individual options or
// inputs are reported in ParsedConfig.Errors.
func Load(path string) (*ParsedConfig, error) {
	abs := source.NormalizePath(path)
	l, err := loadLayer(abs, make(map[string]bool))
	if err != nil {
		return nil, err
	}

	cfg := &ParsedConfig{
		Path:    abs,
		Dir:     filepath.ToSlash(filepath.Dir(abs)),
		Angular: l.angular,
	}
	cfg.Options, cfg.Errors = decodeOptions(l.options, abs)
	roots, errs := resolveRootNames(cfg, l)
	cfg.RootNames = roots
	cfg.Errors = append(cfg.Errors, errs...)
	return cfg, nil
}

func loadLayer(path string, visiting map[string]bool) (*layer, error) {
	if visiting[path] {
		return nil, fmt.Errorf("%w: %s", ErrExtendsCycle, path)
	}
	visiting[path] = true
	defer delete(visiting, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file '%s': %w", path, err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", path, err)
	}
	var raw rawConfig
	if err := json.Unmarshal(std, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", path, err)
	}

	dir := filepath.Dir(path)
	out := &layer{
		options: make(map[string]json.RawMessage),
		angular: make(map[string]any),
	}
	extends, err := extendsList(raw.Extends)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", path, err)
	}
	for _, ext := range extends {
		parentPath, err := resolveExtends(dir, ext)
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", path, err)
		}
		parent, err := loadLayer(parentPath, visiting)
		if err != nil {
			return nil, err
		}
		out.merge(parent)
	}
	out.merge(ownLayer(dir, &raw))
	return out, nil
}

func ownLayer(dir string, raw *rawConfig) *layer {
	l := &layer{
		options: make(map[string]json.RawMessage, len(raw.CompilerOptions)),
		angular: raw.AngularCompilerOptions,
	}
	for k, v := range raw.CompilerOptions {
		l.options[k] = v
	}
	for _, k := range pathOptions {
		v, ok := l.options[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(v, &s) != nil || s == "" {
			continue
		}
		resolved, err := json.Marshal(absJoin(dir, s))
		if err == nil {
			l.options[k] = resolved
		}
	}
	l.files = absList(dir, raw.Files)
	l.include = absList(dir, raw.Include)
	l.exclude = absList(dir, raw.Exclude)
	return l
}

func (l *layer) merge(other *layer) {
	maps.Copy(l.options, other.options)
	maps.Copy(l.angular, other.angular)
	if other.files != nil {
		l.files = other.files
	}
	if other.include != nil {
		l.include = other.include
	}
	if other.exclude != nil {
		l.exclude = other.exclude
	}
}

func extendsList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, errors.New("'extends' must be a string or an array of strings")
	}
	return many, nil
}

// resolveExtends handles relative paths and package names looked up in
// node_modules of dir and its ancestors.
func resolveExtends(dir, ext string) (string, error) {
	if strings.HasPrefix(ext, ".") || filepath.IsAbs(ext) {
		p := absJoin(dir, ext)
		if !strings.HasSuffix(p, ".json") && !fileExists(p) {
			p += ".json"
		}
		return p, nil
	}
	for d := dir; ; d = filepath.Dir(d) {
		base := filepath.Join(d, "node_modules", filepath.FromSlash(ext))
		candidates := []string{base, base + ".json", filepath.Join(base, "tsconfig.json")}
		for _, c := range candidates {
			if fileExists(c) {
				return source.NormalizePath(c), nil
			}
		}
		if parent := filepath.Dir(d); parent == d {
			break
		}
	}
	return "", fmt.Errorf("file '%s' not found", ext)
}

func absJoin(dir, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return source.NormalizePath(p)
}

func absList(dir string, in *[]string) *[]string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(*in))
	for _, p := range *in {
		out = append(out, absJoin(dir, p))
	}
	return &out
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
