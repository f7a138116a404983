package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
)

// RuleRepository implements announcer.RuleRepository in memory.
//
// Thread safety: Safe for concurrent use. Every operation holds one lock
// for its whole read-modify-write, so mutations are atomic.
type RuleRepository struct {
	mu     sync.Mutex
	nextID int64
	rules  map[int64]model.Rule
}

// NewRuleRepository creates an empty RuleRepository.
func NewRuleRepository() *RuleRepository {
	return &RuleRepository{rules: make(map[int64]model.Rule)}
}

// Add appends the rule to its group with priority N+1.
func (r *RuleRepository) Add(_ context.Context, rule model.Rule) (model.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rule.ID = r.nextID
	rule.Priority = model.NextPriority(r.group(rule.Group()))
	if rule.Time == 0 {
		rule.Time = time.Now().UnixMicro()
		rule.ChangeTime = rule.Time
	}
	r.rules[rule.ID] = rule
	return rule, nil
}

// Load retrieves a rule by ID.
func (r *RuleRepository) Load(_ context.Context, id int64) (model.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return model.Rule{}, announcer.ErrNotFound
	}
	return rule, nil
}

// Delete removes a rule and closes the gap in its group.
func (r *RuleRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return announcer.ErrNotFound
	}
	delete(r.rules, id)
	r.apply(model.Renumber(r.group(rule.Group())))
	return nil
}

// Move places a rule at priority. Priorities outside 1..N are ignored.
func (r *RuleRepository) Move(_ context.Context, id int64, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return announcer.ErrNotFound
	}
	if updates, ok := model.Rethread(r.group(rule.Group()), id, priority); ok {
		r.apply(updates)
	}
	return nil
}

// UpdateFormat sets the format of every rule of the subscriber for the distributor.
func (r *RuleRepository) UpdateFormat(_ context.Context, distributor string, subscriber model.Identity, format string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UnixMicro()
	for _, rule := range r.group(model.Group{Subscriber: subscriber, Distributor: distributor}) {
		rule.Format = format
		rule.ChangeTime = now
		r.rules[rule.ID] = rule
	}
	return nil
}

// FindBySubscriberAndDistributor returns the group in ascending priority.
func (r *RuleRepository) FindBySubscriberAndDistributor(_ context.Context, subscriber model.Identity, distributor string) ([]model.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.group(model.Group{Subscriber: subscriber, Distributor: distributor}), nil
}

// FindBySubscribersAndClass returns the class's rules of any of the subscribers.
func (r *RuleRepository) FindBySubscribersAndClass(_ context.Context, subscribers []model.Identity, class string) ([]model.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.filter(func(rule model.Rule) bool {
		return rule.Class == class && slices.Contains(subscribers, rule.Subscriber())
	}), nil
}

// FindByClass returns every rule of the class.
func (r *RuleRepository) FindByClass(_ context.Context, class string) ([]model.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.filter(func(rule model.Rule) bool { return rule.Class == class }), nil
}

func (r *RuleRepository) group(group model.Group) []model.Rule {
	rules := r.filter(func(rule model.Rule) bool { return rule.Group() == group })
	model.SortByPriority(rules)
	return rules
}

// filter returns matching rules ordered like the SQL repository orders them.
func (r *RuleRepository) filter(keep func(model.Rule) bool) []model.Rule {
	out := []model.Rule{}
	for _, rule := range r.rules {
		if keep(rule) {
			out = append(out, rule)
		}
	}
	slices.SortFunc(out, func(a, b model.Rule) int {
		return cmp.Or(
			cmp.Compare(a.SID, b.SID),
			compareBool(a.Authenticated, b.Authenticated),
			cmp.Compare(a.Distributor, b.Distributor),
			cmp.Compare(a.Priority, b.Priority),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

func (r *RuleRepository) apply(updates []model.PriorityUpdate) {
	now := time.Now().UnixMicro()
	for _, u := range updates {
		rule := r.rules[u.ID]
		rule.Priority = u.Priority
		rule.ChangeTime = now
		r.rules[u.ID] = rule
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
