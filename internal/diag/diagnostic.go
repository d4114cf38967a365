package diag

import "fmt"

// Location points into a file. Line and Column are 1-based; Column counts
// bytes. LineText holds the full source line for previews.
type Location struct {
	File     string
	Line     int
	Column   int
	Length   int
	LineText string
}

func (l Location) String() string {
	if l.Line == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

type Note struct {
	Location *Location
	Msg      string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Location *Location
	Notes    []Note
}

// File returns the path of the primary location or "".
func (d Diagnostic) File() string {
	if d.Location == nil {
		return ""
	}
	return d.Location.File
}

func (d Diagnostic) String() string {
	if d.Location == nil {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code.ID(), d.Message)
	}
	return fmt.Sprintf("%s: %s %s: %s", d.Location, d.Severity, d.Code.ID(), d.Message)
}
