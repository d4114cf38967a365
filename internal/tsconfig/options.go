package tsconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// CompilerOptions is the subset of TypeScript compiler options the build
// understands. Everything else stays in Raw so it survives round-trips and
// contributes to Hash.
type CompilerOptions struct {
	Target                  string
	Module                  string
	AllowJS                 bool
	SourceMap               bool
	InlineSourceMap         bool
	InlineSources           bool
	Declaration             bool
	Incremental             bool
	NoEmit                  bool
	TsBuildInfoFile         string
	OutDir                  string
	RootDir                 string
	BaseURL                 string
	ExperimentalDecorators  bool
	UseDefineForClassFields *bool
	PreserveSymlinks        bool

	Raw map[string]json.RawMessage
}

// pathOptions are resolved against the directory of the config that sets them.
var pathOptions = []string{"outDir", "rootDir", "baseUrl", "tsBuildInfoFile", "declarationDir", "mapRoot"}

// Clone returns a deep copy; options transformers work on clones.
func (o *CompilerOptions) Clone() *CompilerOptions {
	if o == nil {
		return nil
	}
	c := *o
	c.Raw = maps.Clone(o.Raw)
	if o.UseDefineForClassFields != nil {
		v := *o.UseDefineForClassFields
		c.UseDefineForClassFields = &v
	}
	return &c
}

// TargetYear maps the target to an ECMAScript year; ESNext is treated as
// newer than any year. Unknown or empty targets map to 0.
func (o *CompilerOptions) TargetYear() int {
	t := strings.ToLower(o.Target)
	switch {
	case t == "esnext":
		return 9999
	case t == "es5":
		return 2009
	case t == "es6":
		return 2015
	case strings.HasPrefix(t, "es20") && len(t) == 6:
		year := 0
		for _, ch := range t[2:] {
			year = year*10 + int(ch-'0')
		}
		return year
	}
	return 0
}

// Hash fingerprints the options. A changed hash invalidates every file of
// an incremental builder.
func (o *CompilerOptions) Hash() string {
	m := map[string]any{
		"target":                  o.Target,
		"module":                  o.Module,
		"allowJs":                 o.AllowJS,
		"sourceMap":               o.SourceMap,
		"inlineSourceMap":         o.InlineSourceMap,
		"inlineSources":           o.InlineSources,
		"declaration":             o.Declaration,
		"experimentalDecorators":  o.ExperimentalDecorators,
		"useDefineForClassFields": o.UseDefineForClassFields,
		"baseUrl":                 o.BaseURL,
	}
	for _, k := range slices.Sorted(maps.Keys(o.Raw)) {
		m["raw:"+k] = string(o.Raw[k])
	}
	data, err := json.Marshal(m) // map keys are sorted by encoding/json
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// BuildInfoPath returns where incremental state is persisted, or "".
func (o *CompilerOptions) BuildInfoPath() string {
	if !o.Incremental {
		return ""
	}
	return o.TsBuildInfoFile
}
