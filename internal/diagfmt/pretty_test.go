package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"ngbuild/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemCannotFindModule, &diag.Location{
		File:     "/home/user/shop/src/main.ts",
		Line:     1,
		Column:   19,
		Length:   11,
		LineText: "import { x } from './missing';",
	}, "Cannot find module './missing'.").WithNote(nil, "Imported from main.ts"))
	bag.Add(diag.NewWarning(diag.CfgUnknownOption, nil, "Unknown angularCompilerOptions key 'fullTemplateTypeChek'."))
	bag.Sort()
	return bag
}

func TestPathModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     PathMode
		prefix   string
	}{
		{"absolute", PathModeAbsolute, "/home/user/shop/src/main.ts:1:19: "},
		{"relative", PathModeRelative, "src/main.ts:1:19: "},
		{"basename", PathModeBasename, "main.ts:1:19: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Pretty(&buf, sampleBag(), PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/shop"}); err != nil {
				t.Fatal(err)
			}
			output := buf.String()
			lines := strings.Split(output, "\n")
			if len(lines) < 2 || !strings.HasPrefix(lines[1], tt.prefix) {
				t.Errorf("expected the error line to start with %q, got:\n%s", tt.prefix, output)
			}
			if !strings.Contains(output, "ERROR SEM3001: Cannot find module './missing'.") {
				t.Errorf("missing error line in:\n%s", output)
			}
		})
	}
}

func TestPrettyPreviewAndNotes(t *testing.T) {
	var buf bytes.Buffer
	err := Pretty(&buf, sampleBag(), PrettyOpts{
		PathMode:    PathModeAuto,
		BaseDir:     "/home/user/shop",
		ShowPreview: true,
		ShowNotes:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"WARNING CFG1005: Unknown angularCompilerOptions key 'fullTemplateTypeChek'.",
		"src/main.ts:1:19: ERROR SEM3001: Cannot find module './missing'.",
		"    1 | import { x } from './missing';",
		"      | " + strings.Repeat(" ", 18) + "^" + strings.Repeat("~", 10),
		"  note: Imported from main.ts",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("pretty output mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyColorAndWidth(t *testing.T) {
	var plain, colored bytes.Buffer
	if err := Pretty(&plain, sampleBag(), PrettyOpts{Width: 20}); err != nil {
		t.Fatal(err)
	}
	if err := Pretty(&colored, sampleBag(), PrettyOpts{Color: true}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(plain.String(), "\x1b[") || !strings.Contains(colored.String(), "\x1b[") {
		t.Fatal("color option not honored")
	}
	if !strings.Contains(plain.String(), "Cannot find modul...") {
		t.Fatalf("message not clipped:\n%s", plain.String())
	}
}

func TestFormatPathAutoKeepsOutsideFiles(t *testing.T) {
	if got := formatPath("/opt/lib/x.ts", PathModeAuto, "/home/user/shop"); got != "/opt/lib/x.ts" {
		t.Fatalf("formatPath = %q", got)
	}
	if got := formatPath("/opt/lib/x.ts", PathModeRelative, "/home/user/shop"); got != "../../../opt/lib/x.ts" {
		t.Fatalf("formatPath = %q", got)
	}
}
