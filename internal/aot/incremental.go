package aot

import "ngbuild/internal/program"

type emitRecord struct {
	version   string
	resources string
}

// SafeToSkipEmit reports whether sf's previous output is still valid: it
// was emitted by an earlier build and neither the file nor its component
// resources changed since.
func (p *Program) SafeToSkipEmit(sf *program.SourceFile) bool {
	if sf.IsDeclaration {
		return true
	}
	rec, ok := p.emitted[sf.Path]
	return ok && rec.version == sf.Version && rec.resources == p.resHash[sf.Path]
}

// RecordSuccessfulEmit remembers that sf's current content was emitted.
func (p *Program) RecordSuccessfulEmit(sf *program.SourceFile) {
	p.emitted[sf.Path] = emitRecord{version: sf.Version, resources: p.resHash[sf.Path]}
}
