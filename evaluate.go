package announcer

import (
	"context"
	"fmt"
	"slices"

	"github.com/coregx/announcer/model"
)

// RuleMatcher decides whether rules of one class apply to an event.
// Matchers are registered once at startup under their class name.
type RuleMatcher interface {
	// Class returns the rule class this matcher is responsible for.
	Class() string

	// Matches reports whether the rule applies to the event.
	Matches(ctx context.Context, event model.Event, rule model.Rule) (bool, error)
}

// CandidateFinder is implemented by matchers that can narrow down which
// subscribers an event may concern. The dispatcher then loads only those
// subscribers' rules of the matcher's class instead of every rule of it.
type CandidateFinder interface {
	Candidates(ctx context.Context, event model.Event) ([]model.Identity, error)
}

// MatcherRegistry maps rule classes to their matchers.
type MatcherRegistry struct {
	matchers map[string]RuleMatcher
	classes  []string
}

// NewMatcherRegistry builds a registry. Registering two matchers for the
// same class is a configuration error.
func NewMatcherRegistry(matchers ...RuleMatcher) (*MatcherRegistry, error) {
	r := &MatcherRegistry{matchers: make(map[string]RuleMatcher, len(matchers))}
	for _, m := range matchers {
		if m == nil {
			return nil, NewError(ErrCodeConfiguration, "matcher cannot be nil")
		}
		class := m.Class()
		if class == "" {
			return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("matcher %T has an empty class", m))
		}
		if _, dup := r.matchers[class]; dup {
			return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("duplicate matcher for class %q", class))
		}
		r.matchers[class] = m
		r.classes = append(r.classes, class)
	}
	return r, nil
}

// Lookup returns the matcher registered for class.
func (r *MatcherRegistry) Lookup(class string) (RuleMatcher, bool) {
	m, ok := r.matchers[class]
	return m, ok
}

// Classes returns the registered classes in registration order.
func (r *MatcherRegistry) Classes() []string {
	return slices.Clone(r.classes)
}

// Verdict is the result of evaluating a rule chain against an event.
type Verdict struct {
	Matched bool         // a rule matched
	Adverb  model.Adverb // adverb of the matching rule
	Rule    model.Rule   // the matching rule
	Skipped []string     // classes of rules skipped for lack of a matcher
}

// Deliver reports whether the verdict accepts delivery, falling back to
// the default adverb when no rule matched.
func (v Verdict) Deliver(defaultAdverb model.Adverb) bool {
	if v.Matched {
		return v.Adverb == model.AdverbAccept
	}
	return defaultAdverb == model.AdverbAccept
}

// Evaluate walks the rules in ascending priority and stops at the first one
// whose matcher accepts the event; later rules are never consulted. Rules
// of unregistered classes are skipped. A matcher error aborts the walk.
func Evaluate(ctx context.Context, registry *MatcherRegistry, event model.Event, rules []model.Rule) (Verdict, error) {
	ordered := slices.Clone(rules)
	model.SortByPriority(ordered)

	var v Verdict
	for _, rule := range ordered {
		matcher, ok := registry.Lookup(rule.Class)
		if !ok {
			v.Skipped = append(v.Skipped, rule.Class)
			continue
		}
		matched, err := matcher.Matches(ctx, event, rule)
		if err != nil {
			return v, NewErrorWithCause(ErrCodeMatch,
				fmt.Sprintf("matcher %q failed on rule %d", rule.Class, rule.ID), err)
		}
		if matched {
			v.Matched = true
			v.Adverb = rule.Adverb
			v.Rule = rule
			return v, nil
		}
	}
	return v, nil
}
