package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ngbuild/internal/diag"
)

type palette struct {
	err, warn, info, code, note, caret, path *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:   mk(color.FgRed, color.Bold),
		warn:  mk(color.FgYellow, color.Bold),
		info:  mk(color.FgBlue, color.Bold),
		code:  mk(color.FgHiBlack),
		note:  mk(color.FgCyan),
		caret: mk(color.FgGreen, color.Bold),
		path:  mk(color.Bold),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes the bag's diagnostics for humans. Each diagnostic is
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// optionally followed by the source line with a caret underline and by its
// notes. Callers sort the bag first.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		if err := prettyOne(w, p, d, opts); err != nil {
			return err
		}
	}
	return nil
}

func location(l *diag.Location, opts PrettyOpts) string {
	path := formatPath(l.File, opts.PathMode, opts.BaseDir)
	if l.Line == 0 {
		return path
	}
	return fmt.Sprintf("%s:%d:%d", path, l.Line, l.Column)
}

func prettyOne(w io.Writer, p palette, d diag.Diagnostic, opts PrettyOpts) error {
	var b strings.Builder
	if d.Location != nil {
		b.WriteString(p.path.Sprint(location(d.Location, opts)))
		b.WriteString(": ")
	}
	b.WriteString(p.severity(d.Severity).Sprint(d.Severity.String()))
	b.WriteString(" ")
	b.WriteString(p.code.Sprint(d.Code.ID()))
	b.WriteString(": ")
	b.WriteString(clip(d.Message, opts.Width))
	b.WriteString("\n")

	if opts.ShowPreview && d.Location != nil {
		writePreview(&b, p, d.Location)
	}
	if opts.ShowNotes {
		for _, n := range d.Notes {
			b.WriteString("  ")
			b.WriteString(p.note.Sprint("note"))
			b.WriteString(": ")
			b.WriteString(clip(n.Msg, opts.Width))
			if n.Location != nil {
				fmt.Fprintf(&b, " (%s)", location(n.Location, opts))
			}
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writePreview prints the line and an underline starting at the column.
// Columns count bytes; the underline is placed by display width.
func writePreview(b *strings.Builder, p palette, l *diag.Location) {
	if l.LineText == "" || l.Line == 0 {
		return
	}
	line := strings.TrimRight(l.LineText, "\r\n")
	gutter := fmt.Sprintf("%5d | ", l.Line)
	b.WriteString(gutter)
	b.WriteString(line)
	b.WriteString("\n")

	col := min(max(l.Column-1, 0), len(line))
	pad := runewidth.StringWidth(line[:col])
	length := max(l.Length, 1)
	end := min(col+length, len(line))
	width := max(runewidth.StringWidth(line[col:end]), 1)

	b.WriteString(strings.Repeat(" ", len(gutter)-2))
	b.WriteString("| ")
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(p.caret.Sprint("^" + strings.Repeat("~", width-1)))
	b.WriteString("\n")
}

func clip(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
