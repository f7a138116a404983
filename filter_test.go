package announcer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
)

type checker struct {
	allowed map[string]bool
	err     error
}

func (c checker) CanView(_ context.Context, subscriber model.Identity, _, _ string) (bool, error) {
	return c.allowed[subscriber.SID], c.err
}

func TestAuthorFilter(t *testing.T) {
	event := newTicketEvent(t, model.CategoryChanged, model.WithAuthor("alice"), model.WithComment("done"))

	tests := []struct {
		name       string
		subscriber model.Identity
		want       bool
	}{
		{"author", alice, false},
		{"anonymous namesake", aliceAnon, true},
		{"someone else", bob, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := announcer.AuthorFilter{}.Allow(context.Background(), event, tt.subscriber, "email")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPermissionFilter(t *testing.T) {
	event := newTicketEvent(t, model.CategoryCreated)
	f := announcer.PermissionFilter{Checker: checker{allowed: map[string]bool{"alice": true}}}

	ok, err := f.Allow(context.Background(), event, alice, "email")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Allow(context.Background(), event, bob, "email")
	require.NoError(t, err)
	assert.False(t, ok)

	f = announcer.PermissionFilter{Checker: checker{err: errBoom}}
	_, err = f.Allow(context.Background(), event, alice, "email")
	assert.ErrorIs(t, err, errBoom)
}

func TestSubscriptionFilterFunc(t *testing.T) {
	f := announcer.SubscriptionFilterFunc(func(_ context.Context, _ model.Event, _ model.Identity, distributor string) (bool, error) {
		return distributor == "email", nil
	})
	event := newTicketEvent(t, model.CategoryCreated)

	ok, _ := f.Allow(context.Background(), event, alice, "email")
	assert.True(t, ok)
	ok, _ = f.Allow(context.Background(), event, alice, "xmpp")
	assert.False(t, ok)
}
