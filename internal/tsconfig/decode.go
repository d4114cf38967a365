package tsconfig

import (
	"encoding/json"
	"fmt"

	"ngbuild/internal/diag"
)

type optionDecoder struct {
	kind string
	set  func(o *CompilerOptions, raw json.RawMessage) error
}

func boolOption(field func(o *CompilerOptions) *bool) optionDecoder {
	return optionDecoder{kind: "boolean", set: func(o *CompilerOptions, raw json.RawMessage) error {
		return json.Unmarshal(raw, field(o))
	}}
}

func stringOption(field func(o *CompilerOptions) *string) optionDecoder {
	return optionDecoder{kind: "string", set: func(o *CompilerOptions, raw json.RawMessage) error {
		return json.Unmarshal(raw, field(o))
	}}
}

var knownOptions = map[string]optionDecoder{
	"target":                 stringOption(func(o *CompilerOptions) *string { return &o.Target }),
	"module":                 stringOption(func(o *CompilerOptions) *string { return &o.Module }),
	"tsBuildInfoFile":        stringOption(func(o *CompilerOptions) *string { return &o.TsBuildInfoFile }),
	"outDir":                 stringOption(func(o *CompilerOptions) *string { return &o.OutDir }),
	"rootDir":                stringOption(func(o *CompilerOptions) *string { return &o.RootDir }),
	"baseUrl":                stringOption(func(o *CompilerOptions) *string { return &o.BaseURL }),
	"allowJs":                boolOption(func(o *CompilerOptions) *bool { return &o.AllowJS }),
	"sourceMap":              boolOption(func(o *CompilerOptions) *bool { return &o.SourceMap }),
	"inlineSourceMap":        boolOption(func(o *CompilerOptions) *bool { return &o.InlineSourceMap }),
	"inlineSources":          boolOption(func(o *CompilerOptions) *bool { return &o.InlineSources }),
	"declaration":            boolOption(func(o *CompilerOptions) *bool { return &o.Declaration }),
	"incremental":            boolOption(func(o *CompilerOptions) *bool { return &o.Incremental }),
	"noEmit":                 boolOption(func(o *CompilerOptions) *bool { return &o.NoEmit }),
	"experimentalDecorators": boolOption(func(o *CompilerOptions) *bool { return &o.ExperimentalDecorators }),
	"preserveSymlinks":       boolOption(func(o *CompilerOptions) *bool { return &o.PreserveSymlinks }),
	"useDefineForClassFields": {kind: "boolean", set: func(o *CompilerOptions, raw json.RawMessage) error {
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		o.UseDefineForClassFields = &v
		return nil
	}},
}

// decodeOptions fills typed fields from the merged option map. A value of
// the wrong type becomes a diagnostic and the option keeps its default.
func decodeOptions(merged map[string]json.RawMessage, path string) (*CompilerOptions, []diag.Diagnostic) {
	opts := &CompilerOptions{Raw: make(map[string]json.RawMessage)}
	var errs []diag.Diagnostic
	for key, raw := range merged {
		dec, ok := knownOptions[key]
		if !ok {
			opts.Raw[key] = raw
			continue
		}
		if string(raw) == "null" {
			continue
		}
		if err := dec.set(opts, raw); err != nil {
			errs = append(errs, diag.NewError(diag.CfgInvalidOptionType, &diag.Location{File: path},
				fmt.Sprintf("Compiler option '%s' requires a value of type %s.", key, dec.kind)))
		}
	}
	diagSort(errs)
	return opts, errs
}

func diagSort(ds []diag.Diagnostic) {
	if len(ds) < 2 {
		return
	}
	b := diag.NewBag(0)
	for _, d := range ds {
		b.Add(d)
	}
	b.Sort()
	copy(ds, b.Items())
}
