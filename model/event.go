package model

import (
	"fmt"
	"iter"
	"maps"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Resource is the entity an event is about.
type Resource interface {
	// ResourceID identifies the resource within its realm (ticket number, page name).
	ResourceID() string
}

// FieldedResource is a resource with named fields, like a ticket.
// Event change sets are keyed by these field names.
type FieldedResource interface {
	Resource
	Field(name string) string
	FieldNames() []string
}

// VersionedResource is a resource with a monotonically increasing version
// and a text body, like a wiki page.
type VersionedResource interface {
	Resource
	ResourceVersion() int
	ResourceText() string
}

// Event is an announcement raised by a producer right after a domain action
// commits. Events are immutable and live only for the duration of a dispatch.
//
// BasicTerms yields coarse tags (realm, category, realm specific tags such as
// the ticket component). SessionTerms yields the roles ("updater", "owner",
// "reporter") the given subscriber holds with respect to the event. Both
// sequences are lazy; consumers may stop early.
type Event interface {
	Realm() string
	Category() string
	Target() Resource
	Author() string
	Comment() string
	Changes() map[string]string
	Attachment() *Attachment
	BasicTerms() iter.Seq[string]
	SessionTerms(subject Identity) iter.Seq[string]
}

// Session roles yielded by SessionTerms.
const (
	RoleUpdater  = "updater"
	RoleOwner    = "owner"
	RoleReporter = "reporter"
)

// EventOption configures optional event data at construction time.
type EventOption func(*event)

// WithAuthor sets the session id of the user who caused the event.
func WithAuthor(author string) EventOption {
	return func(e *event) { e.author = author }
}

// WithComment attaches the free text comment of the change.
func WithComment(comment string) EventOption {
	return func(e *event) { e.comment = comment }
}

// WithChanges sets the previous values of the fields touched by the change.
// The map is copied.
func WithChanges(changes map[string]string) EventOption {
	return func(e *event) { e.changes = maps.Clone(changes) }
}

// WithAttachment attaches a file reference to the event.
func WithAttachment(attachment *Attachment) EventOption {
	return func(e *event) { e.attachment = attachment }
}

// event holds the fields shared by all concrete events.
type event struct {
	realm      string
	category   string
	author     string
	comment    string
	changes    map[string]string
	attachment *Attachment
}

func newEvent(realm, category string, opts []EventOption) event {
	e := event{realm: realm, category: category}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Realm returns the content kind of the target.
func (e *event) Realm() string { return e.realm }

// Category returns the action that raised the event.
func (e *event) Category() string { return e.category }

// Author returns the session id of the user who caused the event, or "".
func (e *event) Author() string { return e.author }

// Comment returns the change comment, or "".
func (e *event) Comment() string { return e.comment }

// Changes returns a copy of the field to previous value map.
func (e *event) Changes() map[string]string {
	if len(e.changes) == 0 {
		return map[string]string{}
	}
	return maps.Clone(e.changes)
}

// Attachment returns the attachment reference, or nil.
func (e *event) Attachment() *Attachment { return e.attachment }

func (e *event) basicTerms(yield func(string) bool) bool {
	return yield(e.realm) && yield(e.category)
}

func (e *event) validate(target Resource, categories ...interface{}) error {
	return validation.Errors{
		"realm":    validation.Validate(e.realm, validation.Required),
		"category": validation.Validate(e.category, validation.Required, validation.In(categories...)),
		"target":   validation.Validate(target, validation.NotNil),
		"changes":  validation.Validate(e.changes, validation.By(changesWithin(target))),
	}.Filter()
}

// changesWithin rejects change keys that are not fields of the target.
func changesWithin(target Resource) validation.RuleFunc {
	return func(value interface{}) error {
		changes, _ := value.(map[string]string)
		if len(changes) == 0 {
			return nil
		}
		fielded, ok := target.(FieldedResource)
		if !ok {
			return fmt.Errorf("target has no fields but %d changes were given", len(changes))
		}
		known := make(map[string]struct{})
		for _, name := range fielded.FieldNames() {
			known[name] = struct{}{}
		}
		for name := range changes {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("unknown field %q", name)
			}
		}
		return nil
	}
}
