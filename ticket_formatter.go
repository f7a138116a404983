package announcer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/coregx/announcer/diff"
	"github.com/coregx/announcer/model"
)

// DefaultTicketHeaderFields are the ticket fields shown in announcement headers.
var DefaultTicketHeaderFields = []string{"owner", "reporter", "milestone", "priority", "severity"}

// TicketFormatter formats ticket events in plain text and HTML.
// Multi-line field changes become diff blocks; comments and descriptions
// are rendered from markdown in the HTML style.
type TicketFormatter struct {
	canonicalFallback
	headerFields []string
	markdown     goldmark.Markdown
}

// TicketFormatterOption configures a TicketFormatter.
type TicketFormatterOption func(*TicketFormatter)

// WithHeaderFields sets the fields shown in the header. A single "*"
// shows every field of the ticket.
func WithHeaderFields(fields ...string) TicketFormatterOption {
	return func(f *TicketFormatter) {
		f.headerFields = make([]string, 0, len(fields))
		for _, field := range fields {
			if field = strings.TrimSpace(field); field != "" {
				f.headerFields = append(f.headerFields, field)
			}
		}
	}
}

// NewTicketFormatter creates a ticket formatter.
func NewTicketFormatter(opts ...TicketFormatterOption) *TicketFormatter {
	f := &TicketFormatter{
		canonicalFallback: canonicalFallback{styles: []string{StylePlain, StyleHTML}},
		headerFields:      DefaultTicketHeaderFields,
		markdown:          goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Realm returns model.RealmTicket.
func (f *TicketFormatter) Realm() string {
	return model.RealmTicket
}

// Data builds ticket template data.
func (f *TicketFormatter) Data(_ context.Context, project Project, style string, event model.Event) (Data, error) {
	te, ok := event.(*model.TicketEvent)
	if !ok {
		return Data{}, NewError(ErrCodeValidation, fmt.Sprintf("ticket formatter cannot format %T", event))
	}
	if !slices.Contains(f.styles, style) {
		return Data{}, NewError(ErrCodeValidation, fmt.Sprintf("ticket formatter does not support style %q", style))
	}
	ticket := te.Ticket()

	data := newData(project, style, event)
	data.Title = ticket.Field(model.FieldSummary)
	data.Permalink = project.Link("ticket", ticket.ResourceID())
	data.Fields = f.header(ticket)

	width := diff.PlainWidth
	if style == StyleHTML {
		width = diff.HTMLWidth
	}
	for field, oldValue := range te.Changes() {
		newValue := ticket.Field(field)
		if strings.Contains(oldValue, "\n") || strings.Contains(newValue, "\n") {
			data.LongChanges = append(data.LongChanges, LongChange{
				Field: field,
				Label: label(field),
				Block: diff.FieldBlock(oldValue, newValue, width),
			})
			continue
		}
		data.ShortChanges = append(data.ShortChanges, Change{Field: field, Label: label(field), Old: oldValue, New: newValue})
	}
	data.finish()

	if style == StyleHTML {
		data.CommentHTML = f.toHTML(&data, "comment", te.Comment())
		data.DescriptionHTML = f.toHTML(&data, "description", ticket.Field(model.FieldDescription))
		if te.Attachment() != nil {
			data.Extra["attachment_link"] = project.Link("attachment", "ticket", ticket.ResourceID(), te.Attachment().Filename)
		}
	}
	return data, nil
}

func (f *TicketFormatter) header(ticket *model.Ticket) []HeaderField {
	names := f.headerFields
	if len(names) == 1 && names[0] == "*" {
		names = ticket.FieldNames()
	}
	fields := make([]HeaderField, 0, len(names))
	for _, name := range names {
		fields = append(fields, HeaderField{Name: name, Label: label(name), Value: ticket.Field(name)})
	}
	return fields
}

// toHTML renders markdown. Failures fall back to escaped preformatted text.
func (f *TicketFormatter) toHTML(data *Data, what, text string) template.HTML {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := f.markdown.Convert([]byte(text), &buf); err != nil {
		data.Warnings = append(data.Warnings, fmt.Sprintf("%s: markdown rendering failed: %v", what, err))
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(buf.String())
}
