package program

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"slices"
	"strings"

	"ngbuild/internal/diag"
	"ngbuild/internal/source"
)

// SourceFile is one parsed file of a program. Values are immutable once
// built and may be shared between successive programs.
type SourceFile struct {
	Path          string
	Text          *source.Text
	Version       string
	Signature     string // changes when the file's public shape changes
	IsDeclaration bool
	IsJS          bool
	Syntax        *Syntax
	syntactic     []diag.Diagnostic
}

// NewSourceFile normalizes, parses and fingerprints a file.
func NewSourceFile(filePath string, content []byte) *SourceFile {
	p := source.NormalizePath(filePath)
	text := source.NewText(p, content)
	sf := &SourceFile{
		Path:          p,
		Text:          text,
		Version:       text.Version(),
		IsDeclaration: source.IsDeclarationFile(p),
		IsJS:          isJSFile(p),
		Syntax:        ParseSyntax(text.Content),
	}
	sf.Signature = signatureOf(sf.Syntax)
	sf.syntactic = syntaxDiagnostics(text, sf.Syntax)
	return sf
}

// Content returns the normalized text.
func (sf *SourceFile) Content() []byte { return sf.Text.Content }

// SyntacticDiagnostics returns parse errors of the file.
func (sf *SourceFile) SyntacticDiagnostics() []diag.Diagnostic {
	return sf.syntactic
}

func (sf *SourceFile) String() string { return sf.Path }

func isJSFile(p string) bool {
	switch path.Ext(p) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return true
	}
	return false
}

func syntaxDiagnostics(text *source.Text, syn *Syntax) []diag.Diagnostic {
	if len(syn.Errors) == 0 {
		return nil
	}
	out := make([]diag.Diagnostic, 0, len(syn.Errors))
	for _, e := range syn.Errors {
		loc := text.Location(e.Range.Start, e.Range.End)
		if e.Missing {
			out = append(out, diag.NewError(diag.SynMissing, loc, fmt.Sprintf("'%s' expected.", e.Text)))
			continue
		}
		msg := "Declaration or statement expected."
		if e.Text != "" {
			msg = fmt.Sprintf("Unexpected '%s'.", strings.TrimSpace(e.Text))
		}
		out = append(out, diag.NewError(diag.SynUnexpected, loc, msg))
	}
	return out
}

// signatureOf approximates a declaration-file hash: exported names, import
// specifiers and class shapes.
func signatureOf(syn *Syntax) string {
	h := sha256.New()
	exports := slices.Clone(syn.Exports)
	slices.Sort(exports)
	for _, e := range exports {
		h.Write([]byte("e:" + e + "\n"))
	}
	for _, imp := range syn.Imports {
		h.Write([]byte("i:" + imp.Specifier + "\n"))
	}
	for _, c := range syn.Classes {
		h.Write([]byte("c:" + c.Name + "\n"))
		for _, m := range c.Members {
			h.Write([]byte("m:" + m + "\n"))
		}
		for _, p := range c.Ctor {
			h.Write([]byte("p:" + p.Type + "\n"))
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}
