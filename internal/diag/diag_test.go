package diag

import "testing"

func TestCodeIDRanges(t *testing.T) {
	cases := map[Code]string{
		CfgNoInputs:              "CFG1004",
		SynUnexpected:            "SYN2001",
		SemCannotFindModule:      "SEM3001",
		TplUnclosedInterpolation: "TPL4002",
		IOMissingFromProgram:     "IO5002",
		BldStylesheetFailed:      "BLD6001",
		UnknownCode:              "E0000",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Fatalf("%d: got %s, want %s", code, got, want)
		}
	}
	if Code(1999).Title() != "Unknown error" {
		t.Fatalf("unexpected fallback title %q", Code(1999).Title())
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(0)
	b.Add(NewError(SemCannotFindModule, &Location{File: "b.ts", Line: 1, Column: 1}, "x"))
	b.Add(NewWarning(CfgUnknownOption, nil, "opt"))
	b.Add(NewError(SynUnexpected, &Location{File: "a.ts", Line: 3, Column: 2}, "y"))
	b.Add(NewError(SynUnexpected, &Location{File: "a.ts", Line: 3, Column: 2}, "y"))

	b.Dedup()
	if b.Len() != 3 {
		t.Fatalf("expected 3 after dedup, got %d", b.Len())
	}
	b.Sort()
	items := b.Items()
	if items[0].Location != nil || items[1].File() != "a.ts" || items[2].File() != "b.ts" {
		t.Fatalf("unexpected order: %v", items)
	}
	if !b.HasErrors() || b.Count(SevWarning) != 1 {
		t.Fatal("severity accounting is off")
	}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(1)
	if !b.Add(NewError(SynMissing, nil, "a")) {
		t.Fatal("first add must succeed")
	}
	if b.Add(NewError(SynMissing, nil, "b")) {
		t.Fatal("second add must hit the limit")
	}
}

func TestWithNoteDoesNotAlias(t *testing.T) {
	base := NewError(IOMissingFromProgram, nil, "missing").WithNote(nil, "first")
	a := base.WithNote(nil, "a")
	b := base.WithNote(nil, "b")
	if a.Notes[1].Msg != "a" || b.Notes[1].Msg != "b" {
		t.Fatalf("notes alias: %v %v", a.Notes, b.Notes)
	}
}

func TestParseCodeRoundTrips(t *testing.T) {
	for _, code := range []Code{CfgUnreadable, SynMissing, SemDuplicateSymbol, TplParseError, IOLoadFileError, BldEmitFailed} {
		got, ok := ParseCode(code.ID())
		if !ok || got != code {
			t.Fatalf("ParseCode(%s) = %d, %v", code.ID(), got, ok)
		}
	}
	for _, id := range []string{"", "E0000", "CFG2001", "TPL40", "unsupported-regexp", "BLDxxxx"} {
		if _, ok := ParseCode(id); ok {
			t.Fatalf("ParseCode(%q) should fail", id)
		}
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag})
	loc := &Location{File: "a.ts", Line: 1, Column: 1}
	r.Report(NewError(SemCannotFindModule, loc, "Cannot find module './x'"))
	r.Report(NewError(SemCannotFindModule, &Location{File: "a.ts", Line: 1, Column: 1}, "Cannot find module './x'"))
	r.Report(NewWarning(SemCannotFindModule, loc, "Cannot find module './x'"))
	if bag.Len() != 2 {
		t.Fatalf("got %d diagnostics, want 2", bag.Len())
	}
}
