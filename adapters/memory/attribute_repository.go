package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/coregx/announcer/model"
)

// AttributeRepository implements announcer.AttributeRepository in memory.
//
// Thread safety: Safe for concurrent use.
type AttributeRepository struct {
	mu     sync.Mutex
	nextID int64
	attrs  map[int64]model.Attribute
}

// NewAttributeRepository creates an empty AttributeRepository.
func NewAttributeRepository() *AttributeRepository {
	return &AttributeRepository{attrs: make(map[int64]model.Attribute)}
}

// Add stores one attribute per target.
func (r *AttributeRepository) Add(_ context.Context, subscriber model.Identity, class, realm string, targets ...string) ([]model.Attribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Attribute, 0, len(targets))
	for _, target := range targets {
		r.nextID++
		a := model.NewAttribute(subscriber, class, realm, target)
		a.ID = r.nextID
		r.attrs[a.ID] = a
		out = append(out, a)
	}
	return out, nil
}

// Delete removes a single attribute.
func (r *AttributeRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.attrs, id)
	return nil
}

// DeleteBySubscriberAndClass removes a subscriber's attributes for a class.
func (r *AttributeRepository) DeleteBySubscriberAndClass(_ context.Context, subscriber model.Identity, class string) error {
	r.deleteWhere(func(a model.Attribute) bool {
		return a.Subscriber() == subscriber && a.Class == class
	})
	return nil
}

// DeleteBySubscriberClassAndTarget removes a subscriber's attributes for a class and target.
func (r *AttributeRepository) DeleteBySubscriberClassAndTarget(_ context.Context, subscriber model.Identity, class, target string) error {
	r.deleteWhere(func(a model.Attribute) bool {
		return a.Subscriber() == subscriber && a.Class == class && a.Target == target
	})
	return nil
}

// DeleteByClassRealmAndTarget removes every subscriber's attributes for a class, realm and target.
func (r *AttributeRepository) DeleteByClassRealmAndTarget(_ context.Context, class, realm, target string) error {
	r.deleteWhere(func(a model.Attribute) bool {
		return a.Class == class && a.Realm == realm && a.Target == target
	})
	return nil
}

// FindBySubscriberAndClass returns a subscriber's attributes for a class, ordered by target.
func (r *AttributeRepository) FindBySubscriberAndClass(_ context.Context, subscriber model.Identity, class string) ([]model.Attribute, error) {
	out := r.findWhere(func(a model.Attribute) bool {
		return a.Subscriber() == subscriber && a.Class == class
	})
	slices.SortStableFunc(out, func(a, b model.Attribute) int { return cmp.Compare(a.Target, b.Target) })
	return out, nil
}

// FindBySubscriberClassAndTarget returns a subscriber's attributes for a class and target.
func (r *AttributeRepository) FindBySubscriberClassAndTarget(_ context.Context, subscriber model.Identity, class, target string) ([]model.Attribute, error) {
	return r.findWhere(func(a model.Attribute) bool {
		return a.Subscriber() == subscriber && a.Class == class && a.Target == target
	}), nil
}

// FindBySubscriberClassRealmAndTarget returns a subscriber's attributes for a class, realm and target.
func (r *AttributeRepository) FindBySubscriberClassRealmAndTarget(_ context.Context, subscriber model.Identity, class, realm, target string) ([]model.Attribute, error) {
	return r.findWhere(func(a model.Attribute) bool {
		return a.Subscriber() == subscriber && a.Class == class && a.Realm == realm && a.Target == target
	}), nil
}

// FindByClassRealmAndTarget returns every subscriber's attributes for a class, realm and target.
func (r *AttributeRepository) FindByClassRealmAndTarget(_ context.Context, class, realm, target string) ([]model.Attribute, error) {
	return r.findWhere(func(a model.Attribute) bool {
		return a.Class == class && a.Realm == realm && a.Target == target
	}), nil
}

// FindByClassAndRealm returns every subscriber's attributes for a class and realm.
func (r *AttributeRepository) FindByClassAndRealm(_ context.Context, class, realm string) ([]model.Attribute, error) {
	return r.findWhere(func(a model.Attribute) bool {
		return a.Class == class && a.Realm == realm
	}), nil
}

func (r *AttributeRepository) deleteWhere(match func(model.Attribute) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.attrs {
		if match(a) {
			delete(r.attrs, id)
		}
	}
}

// findWhere returns matching attributes in id order.
func (r *AttributeRepository) findWhere(match func(model.Attribute) bool) []model.Attribute {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.Attribute{}
	for _, a := range r.attrs {
		if match(a) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Attribute) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
