package announcer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// Renderer turns template data into the final announcement body.
type Renderer interface {
	Render(ctx context.Context, realm, style string, data Data) (string, error)
}

// TemplateRenderer renders with Go templates: text/template for plain text
// styles and html/template for HTML. Defaults for the shipped realms are
// embedded; SetTemplate replaces or adds templates.
//
// Thread safety: Safe for concurrent use.
type TemplateRenderer struct {
	mu   sync.RWMutex
	text map[string]*texttemplate.Template
	html map[string]*htmltemplate.Template
}

// NewTemplateRenderer creates a renderer loaded with the default templates.
// Template files are named <realm>.<plain|html>.tmpl.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		text: make(map[string]*texttemplate.Template),
		html: make(map[string]*htmltemplate.Template),
	}
	names, err := fs.Glob(templateFiles, "templates/*.tmpl")
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to list templates", err)
	}
	for _, name := range names {
		parts := strings.Split(strings.TrimSuffix(path.Base(name), ".tmpl"), ".")
		if len(parts) != 2 {
			continue
		}
		style := StylePlain
		if parts[1] == "html" {
			style = StyleHTML
		}
		src, err := templateFiles.ReadFile(name)
		if err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to read template "+name, err)
		}
		if err := r.SetTemplate(parts[0], style, string(src)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetTemplate parses and installs the template for a realm and style.
func (r *TemplateRenderer) SetTemplate(realm, style, src string) error {
	name := realm + " " + style
	r.mu.Lock()
	defer r.mu.Unlock()
	if style == StyleHTML {
		t, err := htmltemplate.New(name).Parse(src)
		if err != nil {
			return NewErrorWithCause(ErrCodeConfiguration, "failed to parse template "+name, err)
		}
		r.html[realm] = t
		return nil
	}
	t, err := texttemplate.New(name).Parse(src)
	if err != nil {
		return NewErrorWithCause(ErrCodeConfiguration, "failed to parse template "+name, err)
	}
	r.text[realm+"\x00"+style] = t
	return nil
}

// Render executes the template for the realm and style.
func (r *TemplateRenderer) Render(_ context.Context, realm, style string, data Data) (string, error) {
	r.mu.RLock()
	ht := r.html[realm]
	tt := r.text[realm+"\x00"+style]
	r.mu.RUnlock()

	var buf bytes.Buffer
	var err error
	switch {
	case style == StyleHTML && ht != nil:
		err = ht.Execute(&buf, data)
	case style != StyleHTML && tt != nil:
		err = tt.Execute(&buf, data)
	default:
		return "", NewError(ErrCodeRender, fmt.Sprintf("no template for realm %q style %q", realm, style))
	}
	if err != nil {
		return "", NewErrorWithCause(ErrCodeRender, fmt.Sprintf("failed to render %s %s", realm, style), err)
	}
	return buf.String(), nil
}

// RenderContent renders the data and degrades to the raw text when the
// renderer fails. The failure is logged with the full error chain.
func RenderContent(ctx context.Context, renderer Renderer, logger Logger, realm, style string, data Data) (string, bool) {
	content, err := renderer.Render(ctx, realm, style, data)
	if err == nil {
		return content, true
	}
	logger.Errorf("Render failed, sending raw text: realm=%s, style=%s, target=%s, error=%+v", realm, style, data.TargetID, err)
	return data.Raw(), false
}
