package diag

func New(sev Severity, code Code, loc *Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Location: loc,
		Message:  msg,
	}
}

func NewError(code Code, loc *Location, msg string) Diagnostic {
	return New(SevError, code, loc, msg)
}

func NewWarning(code Code, loc *Location, msg string) Diagnostic {
	return New(SevWarning, code, loc, msg)
}

func (d Diagnostic) WithNote(loc *Location, msg string) Diagnostic {
	notes := make([]Note, len(d.Notes), len(d.Notes)+1)
	copy(notes, d.Notes)
	d.Notes = append(notes, Note{Location: loc, Msg: msg})
	return d
}
