package model

import (
	"iter"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// WikiPage is a versioned wiki page.
type WikiPage struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
	Text    string `json:"text"`
}

// NewWikiPage creates a page snapshot.
func NewWikiPage(name string, version int, text string) *WikiPage {
	return &WikiPage{Name: name, Version: version, Text: text}
}

// ResourceID returns the page name.
func (p *WikiPage) ResourceID() string { return p.Name }

// ResourceVersion returns the page version.
func (p *WikiPage) ResourceVersion() int { return p.Version }

// ResourceText returns the page body.
func (p *WikiPage) ResourceText() string { return p.Text }

// WikiEvent is an announcement about a wiki page.
type WikiEvent struct {
	event
	page         *WikiPage
	previousText *string
}

var wikiCategories = []interface{}{
	CategoryCreated, CategoryChanged, CategoryDeleted, CategoryVersionDeleted, CategoryAttachmentAdded,
}

// WikiEventOption configures wiki specific event data.
type WikiEventOption func(*WikiEvent)

// WithPreviousText records the text of the version preceding the page's
// current one, sparing formatters a history lookup.
func WithPreviousText(text string) WikiEventOption {
	return func(e *WikiEvent) { e.previousText = &text }
}

// NewWikiEvent builds and validates a wiki event.
func NewWikiEvent(category string, page *WikiPage, opts []EventOption, wikiOpts ...WikiEventOption) (*WikiEvent, error) {
	e := &WikiEvent{event: newEvent(RealmWiki, category, opts), page: page}
	for _, opt := range wikiOpts {
		opt(e)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the event invariants.
func (e *WikiEvent) Validate() error {
	var target Resource
	if e.page != nil {
		target = e.page
	}
	if err := e.validate(target, wikiCategories...); err != nil {
		return err
	}
	return validation.Validate(e.page.Version, validation.Min(0))
}

// Target returns the page.
func (e *WikiEvent) Target() Resource { return e.page }

// Page returns the page snapshot the event was raised for.
func (e *WikiEvent) Page() *WikiPage { return e.page }

// Version returns the page version the event refers to.
func (e *WikiEvent) Version() int { return e.page.Version }

// PreviousText returns the text of the preceding version when the producer
// supplied it.
func (e *WikiEvent) PreviousText() (string, bool) {
	if e.previousText == nil {
		return "", false
	}
	return *e.previousText, true
}

// BasicTerms yields realm and category.
func (e *WikiEvent) BasicTerms() iter.Seq[string] {
	return func(yield func(string) bool) {
		e.basicTerms(yield)
	}
}

// SessionTerms yields "updater" when the subject authored the change. As
// with tickets, the author names a user account, so anonymous subjects
// hold no role even when their sid matches.
func (e *WikiEvent) SessionTerms(subject Identity) iter.Seq[string] {
	return func(yield func(string) bool) {
		if subject.Authenticated && subject.SID != "" && subject.SID == e.author {
			yield(RoleUpdater)
		}
	}
}
