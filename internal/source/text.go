package source

import (
	"crypto/sha256"
	"encoding/hex"

	"ngbuild/internal/diag"
)

// Text is a normalized file body with a line index.
type Text struct {
	Path    string
	Content []byte
	Hash    [32]byte
	Flags   FileFlags
	lineIdx []uint32
}

// NewText normalizes BOM and CRLF and indexes lines.
func NewText(path string, content []byte) *Text {
	flags := FileFlags(0)
	content, hadBOM := removeBOM(content)
	if hadBOM {
		flags |= FileHadBOM
	}
	content, crlf := normalizeCRLF(content)
	if crlf {
		flags |= FileNormalizedCRLF
	}
	return &Text{
		Path:    path,
		Content: content,
		Hash:    sha256.Sum256(content),
		Flags:   flags,
		lineIdx: buildLineIndex(content),
	}
}

// Version is the hex content hash used as the file's version string.
func (t *Text) Version() string {
	return hex.EncodeToString(t.Hash[:])
}

// LineCol converts a byte offset.
func (t *Text) LineCol(off int) LineCol {
	if off < 0 {
		off = 0
	}
	if off > len(t.Content) {
		off = len(t.Content)
	}
	return toLineCol(t.lineIdx, toU32(off))
}

// Line returns the text of 1-based line n without the newline.
func (t *Text) Line(n int) string {
	if n < 1 || n > len(t.lineIdx)+1 {
		return ""
	}
	start := 0
	if n > 1 {
		start = int(t.lineIdx[n-2]) + 1
	}
	end := len(t.Content)
	if n <= len(t.lineIdx) {
		end = int(t.lineIdx[n-1])
	}
	return string(t.Content[start:end])
}

// Location builds a diagnostic location for [start, end).
func (t *Text) Location(start, end int) *diag.Location {
	lc := t.LineCol(start)
	length := end - start
	if length < 0 {
		length = 0
	}
	return &diag.Location{
		File:     t.Path,
		Line:     int(lc.Line),
		Column:   int(lc.Col),
		Length:   length,
		LineText: t.Line(int(lc.Line)),
	}
}
