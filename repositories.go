package announcer

import (
	"context"

	"github.com/coregx/announcer/model"
)

// RuleRepository defines the persistence interface for subscription rules.
//
// Rules are grouped by (subscriber, distributor). Within a group the
// priorities are always exactly 1..N; every mutation below preserves that
// and runs as a single transaction scoped to the group, so a failed step
// leaves the previous priorities untouched and concurrent mutations of the
// same group never interleave.
//
// Implementations must be safe for concurrent use.
type RuleRepository interface {
	// Add appends the rule to its group. ID and Priority of the argument are
	// ignored: the stored rule gets a fresh id and priority N+1, computed in
	// the same transaction as the insert. Returns the stored rule.
	Add(ctx context.Context, rule model.Rule) (model.Rule, error)

	// Load returns a rule by id.
	// Returns ErrNotFound if the rule does not exist.
	Load(ctx context.Context, id int64) (model.Rule, error)

	// Delete removes a rule and renumbers the rest of its group to 1..N-1,
	// keeping their relative order.
	// Returns ErrNotFound if the rule does not exist.
	Delete(ctx context.Context, id int64) error

	// Move places a rule at the given priority, shifting the rules between
	// its old and new slot by one. A priority beyond the group size (or
	// below 1) is a no-op. All updates of the group are applied atomically.
	// Returns ErrNotFound if the rule does not exist.
	Move(ctx context.Context, id int64, priority int) error

	// UpdateFormat sets the requested style of every rule of the subscriber
	// for the distributor. Priorities are not affected.
	UpdateFormat(ctx context.Context, distributor string, subscriber model.Identity, format string) error

	// FindBySubscriberAndDistributor returns the group's rules in ascending
	// priority, the order in which they are evaluated.
	// Returns an empty slice if the group has no rules.
	FindBySubscriberAndDistributor(ctx context.Context, subscriber model.Identity, distributor string) ([]model.Rule, error)

	// FindBySubscribersAndClass returns the rules of the given class owned by
	// any of the subscribers, using a single query.
	FindBySubscribersAndClass(ctx context.Context, subscribers []model.Identity, class string) ([]model.Rule, error)

	// FindByClass returns every rule of the given class.
	FindByClass(ctx context.Context, class string) ([]model.Rule, error)
}

// AttributeRepository defines the persistence interface for subscription
// attributes, the facts rule classes keep per subscriber (watched pages,
// components, expressions).
//
// Deletes scoped by subscriber, class, realm or target remove every matching
// row atomically and are no-ops when nothing matches.
type AttributeRepository interface {
	// Add stores one attribute per target for the subscriber and class.
	// Returns the stored attributes with populated ids.
	Add(ctx context.Context, subscriber model.Identity, class, realm string, targets ...string) ([]model.Attribute, error)

	// Delete removes a single attribute by id. Missing ids are ignored.
	Delete(ctx context.Context, id int64) error

	// DeleteBySubscriberAndClass removes all of a subscriber's attributes for a class.
	DeleteBySubscriberAndClass(ctx context.Context, subscriber model.Identity, class string) error

	// DeleteBySubscriberClassAndTarget removes a subscriber's attributes for a class and target.
	DeleteBySubscriberClassAndTarget(ctx context.Context, subscriber model.Identity, class, target string) error

	// DeleteByClassRealmAndTarget removes every subscriber's attributes for a
	// class, realm and target; used when the target itself is deleted.
	DeleteByClassRealmAndTarget(ctx context.Context, class, realm, target string) error

	// FindBySubscriberAndClass returns a subscriber's attributes for a class, ordered by target.
	FindBySubscriberAndClass(ctx context.Context, subscriber model.Identity, class string) ([]model.Attribute, error)

	// FindBySubscriberClassAndTarget returns a subscriber's attributes for a class and target.
	FindBySubscriberClassAndTarget(ctx context.Context, subscriber model.Identity, class, target string) ([]model.Attribute, error)

	// FindBySubscriberClassRealmAndTarget returns a subscriber's attributes for a class, realm and target.
	FindBySubscriberClassRealmAndTarget(ctx context.Context, subscriber model.Identity, class, realm, target string) ([]model.Attribute, error)

	// FindByClassRealmAndTarget returns all subscribers' attributes for a class, realm and target.
	FindByClassRealmAndTarget(ctx context.Context, class, realm, target string) ([]model.Attribute, error)

	// FindByClassAndRealm returns all subscribers' attributes for a class and realm.
	FindByClassAndRealm(ctx context.Context, class, realm string) ([]model.Attribute, error)
}

// SessionRepository reads per-session preferences kept by the host
// application. The announcer only reads them.
type SessionRepository interface {
	// Get returns the named preference of the session.
	// Returns ok=false when the preference is unset or empty.
	Get(ctx context.Context, subscriber model.Identity, name string) (value string, ok bool, err error)
}

// PageHistory gives access to older versions of versioned pages.
type PageHistory interface {
	// PageText returns the text of the page at the given version.
	// Returns ErrNotFound if that version does not exist.
	PageText(ctx context.Context, name string, version int) (string, error)
}
