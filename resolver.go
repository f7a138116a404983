package announcer

import (
	"context"
	"fmt"
	"strings"

	"github.com/coregx/announcer/model"
)

// AddressResolver maps a subscriber to a delivery address for one channel.
// ok=false means "no address known here"; the next resolver is tried.
type AddressResolver interface {
	Resolve(ctx context.Context, subscriber model.Identity) (address string, ok bool, err error)
}

// AddressResolverFunc adapts a function to AddressResolver.
type AddressResolverFunc func(ctx context.Context, subscriber model.Identity) (string, bool, error)

// Resolve calls f.
func (f AddressResolverFunc) Resolve(ctx context.Context, subscriber model.Identity) (string, bool, error) {
	return f(ctx, subscriber)
}

// ResolverChain asks its resolvers in order and returns the first non-empty
// address. A failing resolver is logged and skipped.
type ResolverChain struct {
	resolvers []AddressResolver
	logger    Logger
}

// NewResolverChain creates a chain. A nil logger discards resolver errors.
func NewResolverChain(logger Logger, resolvers ...AddressResolver) *ResolverChain {
	if logger == nil {
		logger = &NoopLogger{}
	}
	return &ResolverChain{resolvers: resolvers, logger: logger}
}

// Resolve returns the first address any resolver knows for the subscriber.
func (c *ResolverChain) Resolve(ctx context.Context, subscriber model.Identity) (string, bool) {
	for i, r := range c.resolvers {
		address, ok, err := r.Resolve(ctx, subscriber)
		if err != nil {
			c.logger.Warnf("Address resolver failed: resolver=%d (%T), subscriber=%s, error=%v", i, r, subscriber, err)
			continue
		}
		if ok && address != "" {
			return address, true
		}
	}
	return "", false
}

// Len returns the number of resolvers in the chain.
func (c *ResolverChain) Len() int {
	return len(c.resolvers)
}

// DefaultDomainResolver appends a fixed domain to bare session ids.
type DefaultDomainResolver struct {
	Domain string
}

// Resolve returns sid@domain, or nothing when no domain is configured.
// Session ids that already look like addresses are returned unchanged.
func (r DefaultDomainResolver) Resolve(_ context.Context, subscriber model.Identity) (string, bool, error) {
	if r.Domain == "" || subscriber.SID == "" {
		return "", false, nil
	}
	if strings.Contains(subscriber.SID, "@") {
		return subscriber.SID, true, nil
	}
	return fmt.Sprintf("%s@%s", subscriber.SID, r.Domain), true, nil
}

// SessionAttributeResolver reads the address from a session preference,
// by default the "email" attribute.
type SessionAttributeResolver struct {
	sessions SessionRepository
	name     string
	authOnly bool
}

// NewSessionEmailResolver resolves the session's "email" preference for
// anonymous and authenticated sessions alike.
func NewSessionEmailResolver(sessions SessionRepository) *SessionAttributeResolver {
	return &SessionAttributeResolver{sessions: sessions, name: model.SessionEmail}
}

// NewSpecifiedAddressResolver resolves an address the user explicitly
// chose in their announcer preferences, e.g. model.SessionSpecifiedEmail or
// model.SessionSpecifiedXMPP. Only authenticated sessions can set it.
func NewSpecifiedAddressResolver(sessions SessionRepository, name string) *SessionAttributeResolver {
	return &SessionAttributeResolver{sessions: sessions, name: name, authOnly: true}
}

// Resolve looks up the preference for the subscriber.
func (r *SessionAttributeResolver) Resolve(ctx context.Context, subscriber model.Identity) (string, bool, error) {
	if r.authOnly && !subscriber.Authenticated {
		return "", false, nil
	}
	value, ok, err := r.sessions.Get(ctx, subscriber, r.name)
	if err != nil {
		return "", false, NewErrorWithCause(ErrCodeDatabase,
			fmt.Sprintf("failed to read session attribute %q", r.name), err)
	}
	value = strings.TrimSpace(value)
	return value, ok && value != "", nil
}

// StaticResolver resolves from a fixed map keyed by session id. Entries
// apply to authenticated sessions only unless Anonymous is set.
type StaticResolver struct {
	Addresses map[string]string
	Anonymous bool
}

// Resolve looks the session id up in the map.
func (r StaticResolver) Resolve(_ context.Context, subscriber model.Identity) (string, bool, error) {
	if !subscriber.Authenticated && !r.Anonymous {
		return "", false, nil
	}
	address, ok := r.Addresses[subscriber.SID]
	return address, ok && address != "", nil
}
