package model

import (
	"iter"
	"maps"
	"slices"
	"strconv"
)

// Ticket field names the announcer itself relies on.
const (
	FieldSummary     = "summary"
	FieldDescription = "description"
	FieldReporter    = "reporter"
	FieldOwner       = "owner"
	FieldComponent   = "component"
	FieldCC          = "cc"
)

// Ticket is an issue tracker ticket as seen by the announcer: an id and a
// flat set of string fields.
type Ticket struct {
	ID     int64             `json:"id"`
	Fields map[string]string `json:"fields"`
}

// NewTicket creates a ticket snapshot. The field map is copied.
func NewTicket(id int64, fields map[string]string) *Ticket {
	return &Ticket{ID: id, Fields: maps.Clone(fields)}
}

// ResourceID returns the ticket number.
func (t *Ticket) ResourceID() string {
	return strconv.FormatInt(t.ID, 10)
}

// Field returns the current value of a field, or "".
func (t *Ticket) Field(name string) string {
	return t.Fields[name]
}

// FieldNames returns the ticket's field names in sorted order.
func (t *Ticket) FieldNames() []string {
	return slices.Sorted(maps.Keys(t.Fields))
}

// TicketEvent is an announcement about a ticket.
type TicketEvent struct {
	event
	ticket *Ticket
}

var ticketCategories = []interface{}{
	CategoryCreated, CategoryChanged, CategoryDeleted, CategoryAttachmentAdded,
}

// NewTicketEvent builds and validates a ticket event. Every key in the change
// set must be a field of the ticket.
func NewTicketEvent(category string, ticket *Ticket, opts ...EventOption) (*TicketEvent, error) {
	e := &TicketEvent{event: newEvent(RealmTicket, category, opts), ticket: ticket}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the event invariants.
func (e *TicketEvent) Validate() error {
	var target Resource
	if e.ticket != nil {
		target = e.ticket
	}
	return e.validate(target, ticketCategories...)
}

// Target returns the ticket.
func (e *TicketEvent) Target() Resource { return e.ticket }

// Ticket returns the ticket snapshot the event was raised for.
func (e *TicketEvent) Ticket() *Ticket { return e.ticket }

// BasicTerms yields realm, category and, when set, the ticket component.
func (e *TicketEvent) BasicTerms() iter.Seq[string] {
	return func(yield func(string) bool) {
		if !e.basicTerms(yield) {
			return
		}
		if component := e.ticket.Field(FieldComponent); component != "" {
			yield(component)
		}
	}
}

// SessionTerms yields the roles the subject holds on the ticket. Ticket
// roles name user accounts, so anonymous subjects hold none.
func (e *TicketEvent) SessionTerms(subject Identity) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !subject.Authenticated || subject.SID == "" {
			return
		}
		if subject.SID == e.author && !yield(RoleUpdater) {
			return
		}
		if subject.SID == e.ticket.Field(FieldOwner) && !yield(RoleOwner) {
			return
		}
		if subject.SID == e.ticket.Field(FieldReporter) {
			yield(RoleReporter)
		}
	}
}
