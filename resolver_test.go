package announcer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/adapters/memory"
	"github.com/coregx/announcer/model"
)

type countingResolver struct {
	address string
	err     error
	calls   int
}

func (r *countingResolver) Resolve(context.Context, model.Identity) (string, bool, error) {
	r.calls++
	return r.address, r.address != "", r.err
}

func TestResolverChain_FirstNonEmptyWins(t *testing.T) {
	first := &countingResolver{}
	second := &countingResolver{address: "alice@second.example"}
	third := &countingResolver{address: "alice@third.example"}
	chain := announcer.NewResolverChain(nil, first, second, third)

	address, ok := chain.Resolve(context.Background(), alice)

	assert.True(t, ok)
	assert.Equal(t, "alice@second.example", address)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls, "later resolvers are not asked")
	assert.Equal(t, 3, chain.Len())
}

func TestResolverChain_NoneResolves(t *testing.T) {
	failing := &countingResolver{err: errBoom}
	chain := announcer.NewResolverChain(&announcer.NoopLogger{}, failing, &countingResolver{})

	_, ok := chain.Resolve(context.Background(), alice)
	assert.False(t, ok)
	assert.Equal(t, 1, failing.calls)
}

func TestResolverChain_SkipsFailingResolver(t *testing.T) {
	chain := announcer.NewResolverChain(nil,
		&countingResolver{err: errBoom, address: "ignored@example.org"},
		&countingResolver{address: "alice@example.org"},
	)
	address, ok := chain.Resolve(context.Background(), alice)
	assert.True(t, ok)
	assert.Equal(t, "alice@example.org", address)
}

func TestDefaultDomainResolver(t *testing.T) {
	tests := []struct {
		name       string
		domain     string
		subscriber model.Identity
		want       string
		wantOK     bool
	}{
		{"bare sid", "example.org", alice, "alice@example.org", true},
		{"sid is an address", "example.org", model.NewIdentity("carol@mail.example", false), "carol@mail.example", true},
		{"anonymous sessions too", "example.org", aliceAnon, "alice@example.org", true},
		{"no domain", "", alice, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := announcer.DefaultDomainResolver{Domain: tt.domain}.Resolve(context.Background(), tt.subscriber)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionAttributeResolvers(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewSessionRepository()
	require.NoError(t, sessions.Set(ctx, alice, model.SessionEmail, "alice@home.example"))
	require.NoError(t, sessions.Set(ctx, alice, model.SessionSpecifiedEmail, " alice@work.example "))
	require.NoError(t, sessions.Set(ctx, aliceAnon, model.SessionSpecifiedEmail, "anon@example.org"))
	require.NoError(t, sessions.Set(ctx, bob, model.SessionEmail, "   "))

	specified := announcer.NewSpecifiedAddressResolver(sessions, model.SessionSpecifiedEmail)
	email := announcer.NewSessionEmailResolver(sessions)
	chain := announcer.NewResolverChain(nil, specified, email)

	address, ok := chain.Resolve(ctx, alice)
	assert.True(t, ok)
	assert.Equal(t, "alice@work.example", address)

	_, ok, err := specified.Resolve(ctx, aliceAnon)
	require.NoError(t, err)
	assert.False(t, ok, "anonymous sessions cannot specify an address")

	_, ok = chain.Resolve(ctx, bob)
	assert.False(t, ok, "blank preferences do not count")
}

func TestStaticResolver(t *testing.T) {
	r := announcer.StaticResolver{Addresses: map[string]string{"alice": "alice@static.example"}}

	address, ok, err := r.Resolve(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice@static.example", address)

	_, ok, _ = r.Resolve(context.Background(), aliceAnon)
	assert.False(t, ok)
}
