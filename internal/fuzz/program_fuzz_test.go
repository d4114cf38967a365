package fuzztests

import (
	"testing"
	"time"

	"ngbuild/internal/program"
)

// parseTimeout is the maximum time allowed for parsing a single input.
const parseTimeout = 5 * time.Second

func FuzzParseSyntax(f *testing.F) {
	addTestdataSeeds(f, ".ts")
	f.Add([]byte("@Component({templateUrl: `./a.html`}) class A {}"))
	f.Add([]byte("import {"))
	f.Add([]byte("new Worker(new URL('./w', import.meta.url), {type: 'module'})"))
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		done := make(chan *program.Syntax, 1)
		go func() { done <- program.ParseSyntax(input) }()
		select {
		case syn := <-done:
			for _, imp := range syn.Imports {
				if imp.Range.Start < 0 || imp.Range.End > len(input) || imp.Range.Start > imp.Range.End {
					t.Fatalf("import range %v outside input of %d bytes", imp.Range, len(input))
				}
			}
		case <-time.After(parseTimeout):
			t.Fatalf("parse did not finish within %s", parseTimeout)
		}
	})
}
