package announcer

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"slices"
	"strings"

	"github.com/coregx/announcer/model"
)

// Formatter turns events of one realm into template data.
type Formatter interface {
	// Realm returns the realm the formatter handles.
	Realm() string

	// Styles returns the supported styles, preferred first.
	Styles() []string

	// FallbackStyle returns the canonical style when requested differs from it.
	FallbackStyle(requested string) (string, bool)

	// Data builds the template data for the event in the given style.
	Data(ctx context.Context, project Project, style string, event model.Event) (Data, error)
}

// Project describes the installation announcements originate from. It is
// passed explicitly to every formatter call.
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Link builds an absolute link below the project URL.
func (p Project) Link(parts ...string) string {
	base := strings.TrimRight(p.URL, "/")
	for _, part := range parts {
		base += "/" + url.PathEscape(part)
	}
	return base
}

// Change is a single line field change.
type Change struct {
	Field string
	Label string
	Old   string
	New   string
}

// LongChange is a multi-line field change rendered as a diff block.
type LongChange struct {
	Field string
	Label string
	Block string
}

// HeaderField is a field shown in an announcement header.
type HeaderField struct {
	Name  string
	Label string
	Value string
}

// Data is the contract between formatters and templates.
type Data struct {
	Realm     string
	Category  string
	Style     string
	Target    model.Resource
	TargetID  string
	Title     string
	Author    string
	Comment   string
	Permalink string

	ShortChanges []Change
	LongChanges  []LongChange
	HasChanges   bool

	ProjectName string
	ProjectDesc string
	ProjectLink string

	Attachment *model.Attachment
	Fields     []HeaderField

	// Rich text renditions, set for text/html only.
	CommentHTML     template.HTML
	DescriptionHTML template.HTML

	// Extra carries realm specific values such as a page diff.
	Extra map[string]any

	// Warnings collects non fatal problems met while building the data.
	Warnings []string
}

// newData fills the realm independent part of the contract.
func newData(project Project, style string, event model.Event) Data {
	d := Data{
		Realm:       event.Realm(),
		Category:    event.Category(),
		Style:       style,
		Target:      event.Target(),
		Author:      event.Author(),
		Comment:     event.Comment(),
		ProjectName: project.Name,
		ProjectDesc: project.Description,
		ProjectLink: project.Link(),
		Attachment:  event.Attachment(),
		Extra:       map[string]any{},
	}
	if d.Target != nil {
		d.TargetID = d.Target.ResourceID()
	}
	return d
}

// finish sorts changes by field and derives HasChanges.
func (d *Data) finish() {
	slices.SortFunc(d.ShortChanges, func(a, b Change) int { return strings.Compare(a.Field, b.Field) })
	slices.SortFunc(d.LongChanges, func(a, b LongChange) int { return strings.Compare(a.Field, b.Field) })
	d.HasChanges = len(d.ShortChanges) > 0 || len(d.LongChanges) > 0
}

// Raw renders the data without templates. It is what recipients get when
// the template renderer fails.
func (d Data) Raw() string {
	var b strings.Builder
	title := d.TargetID
	if d.Title != "" {
		title = fmt.Sprintf("%s: %s", d.TargetID, d.Title)
	}
	fmt.Fprintf(&b, "%s %s %s", d.Realm, title, d.Category)
	if d.Author != "" {
		fmt.Fprintf(&b, " by %s", d.Author)
	}
	b.WriteString("\n")
	if d.Permalink != "" {
		fmt.Fprintf(&b, "%s\n", d.Permalink)
	}
	for _, c := range d.ShortChanges {
		fmt.Fprintf(&b, "\n  * %s: %s => %s", c.Label, c.Old, c.New)
	}
	for _, c := range d.LongChanges {
		fmt.Fprintf(&b, "\n  * %s:\n%s\n", c.Label, c.Block)
	}
	if d.Comment != "" {
		fmt.Fprintf(&b, "\nComment:\n%s\n", d.Comment)
	}
	if d.Attachment != nil {
		fmt.Fprintf(&b, "\nAttachment: %s\n", d.Attachment.Filename)
	}
	if diff, ok := d.Extra["diff"].(string); ok && diff != "" {
		b.WriteString(diff)
	}
	fmt.Fprintf(&b, "\n--\n%s <%s>\n", d.ProjectName, d.ProjectLink)
	return b.String()
}

// label capitalizes a field name for display.
func label(field string) string {
	if field == "" {
		return ""
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
