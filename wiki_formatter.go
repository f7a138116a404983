package announcer

import (
	"context"
	"fmt"

	"github.com/coregx/announcer/diff"
	"github.com/coregx/announcer/model"
)

// WikiFormatter formats wiki events in plain text. Changes to an existing
// page carry a diff against the previous version.
type WikiFormatter struct {
	canonicalFallback
	emailDiff bool
	history   PageHistory
}

// WikiFormatterOption configures a WikiFormatter.
type WikiFormatterOption func(*WikiFormatter)

// WithWikiDiff toggles the page diff. Enabled by default.
func WithWikiDiff(enabled bool) WikiFormatterOption {
	return func(f *WikiFormatter) { f.emailDiff = enabled }
}

// WithPageHistory sets where previous page versions are read from when the
// event does not carry the previous text itself.
func WithPageHistory(history PageHistory) WikiFormatterOption {
	return func(f *WikiFormatter) { f.history = history }
}

// NewWikiFormatter creates a wiki formatter.
func NewWikiFormatter(opts ...WikiFormatterOption) *WikiFormatter {
	f := &WikiFormatter{
		canonicalFallback: canonicalFallback{styles: []string{StylePlain}},
		emailDiff:         true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Realm returns model.RealmWiki.
func (f *WikiFormatter) Realm() string {
	return model.RealmWiki
}

// Data builds wiki template data.
func (f *WikiFormatter) Data(ctx context.Context, project Project, style string, event model.Event) (Data, error) {
	we, ok := event.(*model.WikiEvent)
	if !ok {
		return Data{}, NewError(ErrCodeValidation, fmt.Sprintf("wiki formatter cannot format %T", event))
	}
	if style != StylePlain {
		return Data{}, NewError(ErrCodeValidation, fmt.Sprintf("wiki formatter does not support style %q", style))
	}
	page := we.Page()

	data := newData(project, style, event)
	data.Title = page.Name
	data.Permalink = project.Link("wiki", page.Name)
	data.Extra["version"] = page.Version
	data.finish()

	if we.Category() != model.CategoryChanged || page.Version <= 0 {
		return data, nil
	}
	data.Extra["changed"] = true
	data.Extra["diff_link"] = fmt.Sprintf("%s?action=diff&version=%d", data.Permalink, page.Version)
	if !f.emailDiff {
		return data, nil
	}

	previous, err := f.previousText(ctx, we)
	if err != nil {
		data.Warnings = append(data.Warnings, fmt.Sprintf("page diff omitted: %v", err))
		return data, nil
	}
	data.Extra["diff"] = diff.VersionDiff(page.Name, page.Version, previous, page.Text)
	return data, nil
}

func (f *WikiFormatter) previousText(ctx context.Context, we *model.WikiEvent) (string, error) {
	if text, ok := we.PreviousText(); ok {
		return text, nil
	}
	page := we.Page()
	if page.Version == 1 {
		return "", nil
	}
	if f.history == nil {
		return "", fmt.Errorf("no history for %s version %d", page.Name, page.Version-1)
	}
	return f.history.PageText(ctx, page.Name, page.Version-1)
}
