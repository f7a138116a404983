package announcer

import (
	"context"

	"github.com/coregx/announcer/model"
)

// SubscriptionFilter gets the last word on an accepted subscription before
// an address is resolved. Filters run in registration order; the first one
// to refuse drops the subscriber for this event.
type SubscriptionFilter interface {
	Allow(ctx context.Context, event model.Event, subscriber model.Identity, distributor string) (bool, error)
}

// SubscriptionFilterFunc adapts a function to SubscriptionFilter.
type SubscriptionFilterFunc func(ctx context.Context, event model.Event, subscriber model.Identity, distributor string) (bool, error)

// Allow calls f.
func (f SubscriptionFilterFunc) Allow(ctx context.Context, event model.Event, subscriber model.Identity, distributor string) (bool, error) {
	return f(ctx, event, subscriber, distributor)
}

// PermissionChecker answers whether a subscriber may see a resource.
// The host application implements it.
type PermissionChecker interface {
	CanView(ctx context.Context, subscriber model.Identity, realm, resourceID string) (bool, error)
}

// PermissionFilter drops subscribers that may not view the event target.
type PermissionFilter struct {
	Checker PermissionChecker
}

// Allow asks the checker about the event target.
func (f PermissionFilter) Allow(ctx context.Context, event model.Event, subscriber model.Identity, _ string) (bool, error) {
	target := event.Target()
	if target == nil {
		return true, nil
	}
	ok, err := f.Checker.CanView(ctx, subscriber, event.Realm(), target.ResourceID())
	if err != nil {
		return false, NewErrorWithCause(ErrCodeValidation, "permission check failed", err)
	}
	return ok, nil
}

// AuthorFilter drops the authenticated author of the event, who already
// knows about the change.
type AuthorFilter struct{}

// Allow refuses the event's own author.
func (AuthorFilter) Allow(_ context.Context, event model.Event, subscriber model.Identity, _ string) (bool, error) {
	return !(subscriber.Authenticated && subscriber.SID != "" && subscriber.SID == event.Author()), nil
}
