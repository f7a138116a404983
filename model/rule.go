package model

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Adverb is the outcome a rule applies when it matches.
type Adverb string

const (
	AdverbAccept Adverb = "accept" // deliver the announcement
	AdverbDeny   Adverb = "deny"   // suppress the announcement
)

// ParseAdverb parses an adverb, also accepting the legacy "always"/"never"
// spellings.
func ParseAdverb(s string) (Adverb, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "always":
		return AdverbAccept, nil
	case "deny", "never":
		return AdverbDeny, nil
	default:
		return "", fmt.Errorf("unknown adverb %q", s)
	}
}

// Valid reports whether a is one of the known adverbs.
func (a Adverb) Valid() bool {
	return a == AdverbAccept || a == AdverbDeny
}

// Rule is one entry of a subscriber's ordered rule list for a distributor.
//
// For a fixed (subscriber, distributor) group the priorities are exactly
// 1..N. Rules are evaluated in ascending priority and the first rule whose
// class matches the event decides the outcome.
type Rule struct {
	ID            int64  `json:"id" db:"id"`                       // Store assigned key
	Time          int64  `json:"time" db:"time"`                   // Creation, epoch microseconds
	ChangeTime    int64  `json:"changetime" db:"changetime"`       // Last change, epoch microseconds
	SID           string `json:"sid" db:"sid"`                     // Subscriber session id
	Authenticated bool   `json:"authenticated" db:"authenticated"` // Subscriber session kind
	Distributor   string `json:"distributor" db:"distributor"`     // Delivery channel name
	Format        string `json:"format" db:"format"`               // Requested style, "" for default
	Priority      int    `json:"priority" db:"priority"`           // Position within the group, 1 first
	Adverb        Adverb `json:"adverb" db:"adverb"`               // accept or deny
	Class         string `json:"class" db:"class"`                 // Matcher deciding whether the rule applies
}

// TableName returns the database table name for Rule.
func (r Rule) TableName() string {
	return "subscription"
}

// NewRule creates an unsaved rule. ID and priority are assigned by the store.
func NewRule(subscriber Identity, distributor, format string, adverb Adverb, class string) Rule {
	now := nowMicros()
	return Rule{
		Time:          now,
		ChangeTime:    now,
		SID:           subscriber.SID,
		Authenticated: subscriber.Authenticated,
		Distributor:   distributor,
		Format:        format,
		Adverb:        adverb,
		Class:         class,
	}
}

// Subscriber returns the identity owning the rule.
func (r Rule) Subscriber() Identity {
	return Identity{SID: r.SID, Authenticated: r.Authenticated}
}

// Group returns the ordering group the rule belongs to.
func (r Rule) Group() Group {
	return Group{Subscriber: r.Subscriber(), Distributor: r.Distributor}
}

// CreatedAt returns the creation time.
func (r Rule) CreatedAt() time.Time {
	return time.UnixMicro(r.Time)
}

// ChangedAt returns the time of the last change.
func (r Rule) ChangedAt() time.Time {
	return time.UnixMicro(r.ChangeTime)
}

// Group is a (subscriber, distributor) pair; priorities are contiguous within it.
type Group struct {
	Subscriber  Identity
	Distributor string
}

// String renders the group for logs and lock keys.
func (g Group) String() string {
	return fmt.Sprintf("%s/%t/%s", g.Subscriber.SID, g.Subscriber.Authenticated, g.Distributor)
}

// PriorityUpdate is a pending priority change for one rule.
type PriorityUpdate struct {
	ID       int64
	Priority int
}

// SortByPriority orders rules by ascending priority, ties broken by id.
func SortByPriority(rules []Rule) {
	slices.SortStableFunc(rules, func(a, b Rule) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
	})
}

// Renumber computes the updates that close gaps in a group, assigning
// 1..N in the current order. Rules already in place produce no update.
func Renumber(rules []Rule) []PriorityUpdate {
	ordered := slices.Clone(rules)
	SortByPriority(ordered)
	return assign(ordered)
}

// Rethread computes the updates that move ruleID to priority target within
// its group, keeping every other rule in its original relative order. It
// reports false, with no updates, when target lies outside 1..N or the rule
// is not part of the group.
func Rethread(rules []Rule, ruleID int64, target int) ([]PriorityUpdate, bool) {
	if target < 1 || target > len(rules) {
		return nil, false
	}
	ordered := slices.Clone(rules)
	SortByPriority(ordered)
	from := slices.IndexFunc(ordered, func(r Rule) bool { return r.ID == ruleID })
	if from < 0 {
		return nil, false
	}
	moved := ordered[from]
	ordered = slices.Delete(ordered, from, from+1)
	ordered = slices.Insert(ordered, target-1, moved)
	return assign(ordered), true
}

// NextPriority returns the priority a rule appended to the group receives.
func NextPriority(rules []Rule) int {
	return len(rules) + 1
}

// CheckContiguous verifies that the group's priorities are exactly 1..N.
func CheckContiguous(rules []Rule) error {
	seen := make(map[int]int64, len(rules))
	for _, r := range rules {
		if r.Priority < 1 || r.Priority > len(rules) {
			return fmt.Errorf("rule %d has priority %d outside 1..%d", r.ID, r.Priority, len(rules))
		}
		if other, dup := seen[r.Priority]; dup {
			return fmt.Errorf("rules %d and %d share priority %d", other, r.ID, r.Priority)
		}
		seen[r.Priority] = r.ID
	}
	return nil
}

// ApplyUpdates returns a copy of rules with the updates applied, sorted by
// the new priorities.
func ApplyUpdates(rules []Rule, updates []PriorityUpdate) []Rule {
	byID := make(map[int64]int, len(updates))
	for _, u := range updates {
		byID[u.ID] = u.Priority
	}
	out := slices.Clone(rules)
	for i := range out {
		if p, ok := byID[out[i].ID]; ok {
			out[i].Priority = p
		}
	}
	SortByPriority(out)
	return out
}

func assign(ordered []Rule) []PriorityUpdate {
	var updates []PriorityUpdate
	for i, r := range ordered {
		if r.Priority != i+1 {
			updates = append(updates, PriorityUpdate{ID: r.ID, Priority: i + 1})
		}
	}
	return updates
}
