package bundler

import (
	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/diag"
)

func fromLocation(l *api.Location) *diag.Location {
	if l == nil {
		return nil
	}
	return &diag.Location{
		File:     l.File,
		Line:     l.Line,
		Column:   l.Column + 1,
		Length:   l.Length,
		LineText: l.LineText,
	}
}

// Diagnostic turns a build message back into a diagnostic. Messages that
// esbuild reports itself carry no known code.
func Diagnostic(sev diag.Severity, msg api.Message) diag.Diagnostic {
	d := diag.New(sev, codeOf(msg), fromLocation(msg.Location), msg.Text)
	for _, n := range msg.Notes {
		d = d.WithNote(fromLocation(n.Location), n.Text)
	}
	return d
}

// Bag collects build errors and warnings into a diagnostics bag.
func Bag(errs, warnings []api.Message, max int) *diag.Bag {
	bag := diag.NewBag(max)
	for _, m := range errs {
		bag.Add(Diagnostic(diag.SevError, m))
	}
	for _, m := range warnings {
		bag.Add(Diagnostic(diag.SevWarning, m))
	}
	return bag
}
