package matchers

import (
	"context"
	"slices"

	"github.com/coregx/announcer/model"
)

// AllMatcher matches every event of its realms and categories, for
// subscribers who want to hear about everything.
type AllMatcher struct {
	class      string
	realms     []string
	categories []string
}

// AllOption configures an AllMatcher.
type AllOption func(*AllMatcher)

// WithClass overrides the rule class. Default: ClassAll.
func WithClass(class string) AllOption {
	return func(m *AllMatcher) { m.class = class }
}

// WithRealms restricts the matcher to the given realms. Default: any realm.
func WithRealms(realms ...string) AllOption {
	return func(m *AllMatcher) { m.realms = append(m.realms, realms...) }
}

// WithCategories restricts the matcher to the given categories. Default:
// any category.
func WithCategories(categories ...string) AllOption {
	return func(m *AllMatcher) { m.categories = append(m.categories, categories...) }
}

// NewAllMatcher creates an AllMatcher.
func NewAllMatcher(opts ...AllOption) *AllMatcher {
	m := &AllMatcher{class: ClassAll}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewAllTicketsMatcher matches created, changed and attachment events of
// every ticket under the given class.
func NewAllTicketsMatcher(class string) *AllMatcher {
	return NewAllMatcher(WithClass(class), WithRealms(model.RealmTicket), WithCategories(ticketCategories...))
}

// Class returns the rule class.
func (m *AllMatcher) Class() string { return m.class }

// Matches reports whether the event is in scope.
func (m *AllMatcher) Matches(_ context.Context, event model.Event, _ model.Rule) (bool, error) {
	if len(m.realms) > 0 && !slices.Contains(m.realms, event.Realm()) {
		return false, nil
	}
	if len(m.categories) > 0 && !slices.Contains(m.categories, event.Category()) {
		return false, nil
	}
	return true, nil
}
