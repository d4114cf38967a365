package source

import (
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	got := NormalizePath("/work/app/./src/../src/main.ts")
	if got != "/work/app/src/main.ts" {
		t.Fatalf("unexpected normalized path %q", got)
	}
	// NFD "é" must collapse to NFC
	nfd := "/work/cafe\u0301.ts"
	if NormalizePath(nfd) != "/work/caf\u00e9.ts" {
		t.Fatalf("expected NFC form, got %q", NormalizePath(nfd))
	}
	if !strings.HasPrefix(NormalizePath("rel/x.ts"), "/") {
		t.Fatalf("relative path must become absolute")
	}
}

func TestFileURI(t *testing.T) {
	if got := FileURI("/work/a b.ts"); got != "file:///work/a%20b.ts" {
		t.Fatalf("unexpected uri %q", got)
	}
}

func TestShimNames(t *testing.T) {
	if ShimFor("/w/app.component.ts") != "/w/app.component.ngtypecheck.ts" {
		t.Fatalf("unexpected shim %q", ShimFor("/w/app.component.ts"))
	}
	orig, ok := OriginalOfShim("/w/app.component.ngtypecheck.ts")
	if !ok || orig != "/w/app.component.ts" {
		t.Fatalf("unexpected original %q %v", orig, ok)
	}
	if _, ok := OriginalOfShim("/w/app.ts"); ok {
		t.Fatal("plain file is not a shim")
	}
}

func TestTextLocation(t *testing.T) {
	txt := NewText("/w/a.ts", []byte("\xEF\xBB\xBFline one\r\nsecond line\nthird"))
	if txt.Flags&FileHadBOM == 0 || txt.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected BOM and CRLF flags, got %b", txt.Flags)
	}
	off := strings.Index(string(txt.Content), "line\nthird")
	loc := txt.Location(off, off+4)
	if loc.Line != 2 || loc.Column != 8 || loc.LineText != "second line" {
		t.Fatalf("unexpected location %+v", loc)
	}
	if lc := txt.LineCol(len(txt.Content)); lc.Line != 3 || lc.Col != 6 {
		t.Fatalf("unexpected end position %+v", lc)
	}
	if txt.LineCol(0) != (LineCol{Line: 1, Col: 1}) {
		t.Fatal("offset 0 must map to 1:1")
	}
}

func TestPathSetOrder(t *testing.T) {
	s := NewPathSet("/b.ts", "/a.ts", "/b.ts")
	if s.Len() != 2 || s.Slice()[0] != "/b.ts" {
		t.Fatalf("unexpected set %v", s.Slice())
	}
	if !s.Has("/x/../a.ts") {
		t.Fatal("Has must normalize")
	}
	var nilSet *PathSet
	if nilSet.Has("/a.ts") || nilSet.Len() != 0 {
		t.Fatal("nil set must be empty")
	}
}
