package matchers

import (
	"context"
	"slices"

	"github.com/coregx/announcer/model"
)

// Rule classes of the built-in matchers.
const (
	ClassTicketOwner    = "ticket_owner"
	ClassTicketReporter = "ticket_reporter"
	ClassTicketUpdater  = "ticket_updater"
	ClassAll            = "all"
	ClassWatch          = "watch"
	ClassExpression     = "expression"
)

// ticketCategories are the ticket actions role holders hear about.
var ticketCategories = []string{
	model.CategoryCreated,
	model.CategoryChanged,
	model.CategoryAttachmentAdded,
}

// RoleMatcher matches when the rule's subscriber holds a role on the
// event's ticket: owner, reporter or updater.
type RoleMatcher struct {
	class string
	role  string
}

// NewRoleMatcher creates a matcher for rules of class that match when the
// subscriber holds role, one of the model.Role constants.
func NewRoleMatcher(class, role string) *RoleMatcher {
	return &RoleMatcher{class: class, role: role}
}

// NewOwnerMatcher matches tickets the subscriber owns.
func NewOwnerMatcher() *RoleMatcher {
	return NewRoleMatcher(ClassTicketOwner, model.RoleOwner)
}

// NewReporterMatcher matches tickets the subscriber reported.
func NewReporterMatcher() *RoleMatcher {
	return NewRoleMatcher(ClassTicketReporter, model.RoleReporter)
}

// NewUpdaterMatcher matches the subscriber's own ticket updates.
func NewUpdaterMatcher() *RoleMatcher {
	return NewRoleMatcher(ClassTicketUpdater, model.RoleUpdater)
}

// Class returns the rule class.
func (m *RoleMatcher) Class() string { return m.class }

// Role returns the role the matcher looks for.
func (m *RoleMatcher) Role() string { return m.role }

// Matches reports whether the rule's subscriber holds the role.
func (m *RoleMatcher) Matches(_ context.Context, event model.Event, rule model.Rule) (bool, error) {
	if !applies(event) {
		return false, nil
	}
	for term := range event.SessionTerms(rule.Subscriber()) {
		if term == m.role {
			return true, nil
		}
	}
	return false, nil
}

// Candidates returns the account holding the role, if any. Ticket roles
// name user accounts, so the identity is always authenticated.
func (m *RoleMatcher) Candidates(_ context.Context, event model.Event) ([]model.Identity, error) {
	if !applies(event) {
		return nil, nil
	}
	var sid string
	switch m.role {
	case model.RoleUpdater:
		sid = event.Author()
	case model.RoleOwner:
		sid = ticketField(event, model.FieldOwner)
	case model.RoleReporter:
		sid = ticketField(event, model.FieldReporter)
	}
	if sid == "" {
		return nil, nil
	}
	return []model.Identity{model.NewIdentity(sid, true)}, nil
}

func applies(event model.Event) bool {
	return event.Realm() == model.RealmTicket && slices.Contains(ticketCategories, event.Category())
}

func ticketField(event model.Event, name string) string {
	if ticket, ok := event.Target().(model.FieldedResource); ok {
		return ticket.Field(name)
	}
	return ""
}
