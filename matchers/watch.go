package matchers

import (
	"context"
	"fmt"
	"sync"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
)

// WatchMatcher lets subscribers watch individual resources. A watch is a
// subscription attribute of the matcher's class whose target is either a
// resource id (ticket number, page name) or one of the event's basic terms,
// such as a ticket component.
//
// WatchMatcher implements announcer.DeletionListener; register it with the
// producers so that watches on deleted resources are dropped.
type WatchMatcher struct {
	attrs  announcer.AttributeRepository
	class  string
	logger announcer.Logger

	// mu serializes read-modify-write sequences of Watch, Unwatch and Toggle.
	mu sync.Mutex
}

// WatchOption configures a WatchMatcher.
type WatchOption func(*WatchMatcher)

// WithWatchClass overrides the rule and attribute class. Default: ClassWatch.
func WithWatchClass(class string) WatchOption {
	return func(m *WatchMatcher) { m.class = class }
}

// WithWatchLogger sets the logger. Default: NoopLogger.
func WithWatchLogger(logger announcer.Logger) WatchOption {
	return func(m *WatchMatcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewWatchMatcher creates a WatchMatcher storing watches in attrs.
func NewWatchMatcher(attrs announcer.AttributeRepository, opts ...WatchOption) (*WatchMatcher, error) {
	if attrs == nil {
		return nil, announcer.NewError(announcer.ErrCodeConfiguration, "AttributeRepository is required")
	}
	m := &WatchMatcher{attrs: attrs, class: ClassWatch, logger: &announcer.NoopLogger{}}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Class returns the rule class.
func (m *WatchMatcher) Class() string { return m.class }

// Watch starts watching target in realm. Watching twice keeps a single watch.
func (m *WatchMatcher) Watch(ctx context.Context, subscriber model.Identity, realm, target string) error {
	if err := checkWatch(subscriber, realm, target); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watch(ctx, subscriber, realm, target)
}

// Unwatch stops watching target in realm. Unwatching an unwatched target
// is a no-op.
func (m *WatchMatcher) Unwatch(ctx context.Context, subscriber model.Identity, realm, target string) error {
	if err := checkWatch(subscriber, realm, target); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unwatch(ctx, subscriber, realm, target)
}

// Toggle flips the watch on target and returns whether the subscriber
// watches it afterwards.
func (m *WatchMatcher) Toggle(ctx context.Context, subscriber model.Identity, realm, target string) (bool, error) {
	if err := checkWatch(subscriber, realm, target); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	watching, err := m.isWatching(ctx, subscriber, realm, target)
	if err != nil {
		return false, err
	}
	if watching {
		return false, m.unwatch(ctx, subscriber, realm, target)
	}
	return true, m.watch(ctx, subscriber, realm, target)
}

// IsWatching reports whether the subscriber watches target in realm.
func (m *WatchMatcher) IsWatching(ctx context.Context, subscriber model.Identity, realm, target string) (bool, error) {
	if err := checkWatch(subscriber, realm, target); err != nil {
		return false, err
	}
	return m.isWatching(ctx, subscriber, realm, target)
}

// Watched returns the targets the subscriber watches in realm.
func (m *WatchMatcher) Watched(ctx context.Context, subscriber model.Identity, realm string) ([]string, error) {
	attrs, err := m.attrs.FindBySubscriberAndClass(ctx, subscriber, m.class)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to load watches", err)
	}
	targets := []string{}
	for _, a := range attrs {
		if a.Realm == realm {
			targets = append(targets, a.Target)
		}
	}
	return targets, nil
}

// Matches reports whether the rule's subscriber watches the event's
// resource or one of its basic terms.
func (m *WatchMatcher) Matches(ctx context.Context, event model.Event, rule model.Rule) (bool, error) {
	attrs, err := m.attrs.FindBySubscriberAndClass(ctx, rule.Subscriber(), m.class)
	if err != nil {
		return false, err
	}
	watched := make(map[string]bool)
	for _, a := range attrs {
		if a.Realm == event.Realm() {
			watched[a.Target] = true
		}
	}
	if len(watched) == 0 {
		return false, nil
	}
	for _, target := range targets(event) {
		if watched[target] {
			return true, nil
		}
	}
	return false, nil
}

// Candidates returns the subscribers watching the event's resource or one
// of its basic terms.
func (m *WatchMatcher) Candidates(ctx context.Context, event model.Event) ([]model.Identity, error) {
	attrs, err := m.attrs.FindByClassAndRealm(ctx, m.class, event.Realm())
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool)
	for _, target := range targets(event) {
		wanted[target] = true
	}
	seen := make(map[model.Identity]bool)
	var out []model.Identity
	for _, a := range attrs {
		subscriber := a.Subscriber()
		if wanted[a.Target] && !seen[subscriber] {
			seen[subscriber] = true
			out = append(out, subscriber)
		}
	}
	return out, nil
}

// ResourceDeleted drops every watch on a deleted resource.
func (m *WatchMatcher) ResourceDeleted(ctx context.Context, realm, resourceID string) error {
	if err := m.attrs.DeleteByClassRealmAndTarget(ctx, m.class, realm, resourceID); err != nil {
		return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to drop watches", err)
	}
	m.logger.Debugf("Watches dropped: realm=%s, resource=%s", realm, resourceID)
	return nil
}

func (m *WatchMatcher) watch(ctx context.Context, subscriber model.Identity, realm, target string) error {
	if err := m.unwatch(ctx, subscriber, realm, target); err != nil {
		return err
	}
	if _, err := m.attrs.Add(ctx, subscriber, m.class, realm, target); err != nil {
		return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to add watch", err)
	}
	m.logger.Infof("Watch added: subscriber=%s, realm=%s, target=%s", subscriber, realm, target)
	return nil
}

func (m *WatchMatcher) unwatch(ctx context.Context, subscriber model.Identity, realm, target string) error {
	attrs, err := m.attrs.FindBySubscriberClassRealmAndTarget(ctx, subscriber, m.class, realm, target)
	if err != nil {
		return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to load watches", err)
	}
	for _, a := range attrs {
		if err := m.attrs.Delete(ctx, a.ID); err != nil {
			return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to remove watch", err)
		}
	}
	if len(attrs) > 0 {
		m.logger.Infof("Watch removed: subscriber=%s, realm=%s, target=%s", subscriber, realm, target)
	}
	return nil
}

func (m *WatchMatcher) isWatching(ctx context.Context, subscriber model.Identity, realm, target string) (bool, error) {
	attrs, err := m.attrs.FindBySubscriberClassRealmAndTarget(ctx, subscriber, m.class, realm, target)
	if err != nil {
		return false, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to load watches", err)
	}
	return len(attrs) > 0, nil
}

// targets lists what a watch may name for the event: the resource id
// followed by the basic terms.
func targets(event model.Event) []string {
	var out []string
	if target := event.Target(); target != nil {
		out = append(out, target.ResourceID())
	}
	for term := range event.BasicTerms() {
		out = append(out, term)
	}
	return out
}

func checkWatch(subscriber model.Identity, realm, target string) error {
	switch {
	case subscriber.IsZero():
		return announcer.NewError(announcer.ErrCodeValidation, "subscriber is required")
	case realm == "":
		return announcer.NewError(announcer.ErrCodeValidation, "realm is required")
	case target == "":
		return announcer.NewError(announcer.ErrCodeValidation, fmt.Sprintf("target is required in realm %s", realm))
	}
	return nil
}
