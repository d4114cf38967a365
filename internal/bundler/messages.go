package bundler

import (
	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/diag"
)

func toLocation(l *diag.Location) *api.Location {
	if l == nil {
		return nil
	}
	return &api.Location{
		File:     l.File,
		Line:     l.Line,
		Column:   max(l.Column-1, 0),
		Length:   l.Length,
		LineText: l.LineText,
	}
}

// toMessage converts a diagnostic to an esbuild message. Columns become
// zero-based. The code rides in Detail: esbuild drops the ID of messages
// returned by plugins.
func toMessage(d diag.Diagnostic) api.Message {
	msg := api.Message{
		Detail:     d.Code.ID(),
		PluginName: Name,
		Text:       d.Message,
		Location:   toLocation(d.Location),
	}
	for _, n := range d.Notes {
		msg.Notes = append(msg.Notes, api.Note{Text: n.Msg, Location: toLocation(n.Location)})
	}
	return msg
}

func errorMessage(code diag.Code, err error) api.Message {
	return api.Message{Detail: code.ID(), PluginName: Name, Text: err.Error()}
}

// codeOf reads back the code stored by toMessage.
func codeOf(msg api.Message) diag.Code {
	id, _ := msg.Detail.(string)
	if id == "" {
		id = msg.ID
	}
	code, _ := diag.ParseCode(id)
	return code
}
