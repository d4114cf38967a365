package aot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"ngbuild/internal/diag"
	"ngbuild/internal/program"
	"ngbuild/internal/source"
)

// Host is what the analysis program needs from its environment.
type Host interface {
	program.Host
	ReadResource(path string) ([]byte, error)
	// TransformStylesheet processes component CSS. stylesheetFile is "" for
	// inline styles.
	TransformStylesheet(ctx context.Context, data, containingFile, stylesheetFile string) (string, error)
}

type resource struct {
	content []byte
	hash    string
	styled  string
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// loadResource returns a template or stylesheet file, reusing the previous
// program's copy when the file was not modified.
func (p *Program) loadResource(name string) (*resource, error) {
	if r, ok := p.resources[name]; ok {
		return r, nil
	}
	if p.old != nil && p.opts.ModifiedFiles != nil && !p.opts.ModifiedFiles.Has(name) {
		if r, ok := p.old.resources[name]; ok {
			p.resources[name] = r
			return r, nil
		}
	}
	data, err := p.opts.Host.ReadResource(name)
	if err != nil {
		return nil, err
	}
	r := &resource{content: data, hash: hashOf(data)}
	p.resources[name] = r
	return r, nil
}

// stylesheet runs a stylesheet through the host transform once per content.
func (p *Program) stylesheet(ctx context.Context, containingFile, file string, data []byte) (string, error) {
	key := file
	if key == "" {
		key = "inline:" + containingFile + "#" + hashOf(data)
	}
	r, ok := p.styles[key]
	if !ok && p.old != nil {
		if prev, found := p.old.styles[key]; found && prev.hash == hashOf(data) {
			r, ok = prev, true
		}
	}
	if ok {
		p.styles[key] = r
		return r.styled, nil
	}
	css, err := p.opts.Host.TransformStylesheet(ctx, string(data), containingFile, file)
	if err != nil {
		return "", err
	}
	p.styles[key] = &resource{content: data, hash: hashOf(data), styled: css}
	return css, nil
}

func (p *Program) loadTemplate(sf *program.SourceFile, c *Component) {
	d := c.Decorator
	if url, _, ok := stringProp(d, "templateUrl"); ok {
		file := resolveResource(sf.Path, url.Value)
		r, err := p.loadResource(file)
		if err != nil {
			c.diagnostics = append(c.diagnostics, diag.NewError(diag.TplMissingResource,
				sf.Text.Location(url.Range.Start, url.Range.End),
				fmt.Sprintf("Could not find template file '%s'.", url.Value)))
			return
		}
		c.TemplateFile = file
		text := source.NewText(file, r.content)
		c.Template = p.opts.Templates.Parse(text, 0, len(text.Content))
		return
	}
	lit, prop, ok := stringProp(d, "template")
	switch {
	case ok:
		c.Template = p.opts.Templates.Parse(sf.Text, lit.Range.Start+1, lit.Range.End-1)
	case prop != nil:
		// computed template expression, nothing to check
	default:
		c.diagnostics = append(c.diagnostics, diag.NewError(diag.TplMissingTemplate,
			sf.Text.Location(d.Range.Start, d.Range.End),
			fmt.Sprintf("Component '%s' is missing a template.", c.Class.Name)))
	}
}

func (p *Program) loadStyles(ctx context.Context, sf *program.SourceFile, c *Component) {
	d := c.Decorator
	for _, key := range []string{"styleUrl", "styleUrls"} {
		prop, ok := d.Prop(key)
		if !ok {
			continue
		}
		for _, url := range prop.Strings {
			loc := sf.Text.Location(url.Range.Start, url.Range.End)
			file := resolveResource(sf.Path, url.Value)
			r, err := p.loadResource(file)
			if err != nil {
				c.diagnostics = append(c.diagnostics, diag.NewError(diag.TplMissingResource, loc,
					fmt.Sprintf("Could not find stylesheet file '%s'.", url.Value)))
				continue
			}
			c.StyleFiles = append(c.StyleFiles, file)
			css, err := p.stylesheet(ctx, sf.Path, file, r.content)
			if err != nil {
				c.diagnostics = append(c.diagnostics, diag.NewError(diag.BldStylesheetFailed, loc, err.Error()))
				continue
			}
			c.Styles = append(c.Styles, css)
		}
	}
	if prop, ok := d.Prop("styles"); ok {
		for _, lit := range prop.Strings {
			css, err := p.stylesheet(ctx, sf.Path, "", []byte(lit.Value))
			if err != nil {
				c.diagnostics = append(c.diagnostics, diag.NewError(diag.BldStylesheetFailed,
					sf.Text.Location(lit.Range.Start, lit.Range.End), err.Error()))
				continue
			}
			c.Styles = append(c.Styles, css)
		}
	}
}
