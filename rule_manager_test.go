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

func newRuleManager(t *testing.T, opts ...announcer.RuleManagerOption) (*announcer.RuleManager, *recordingNotifications) {
	t.Helper()
	notes := &recordingNotifications{}
	base := []announcer.RuleManagerOption{
		announcer.WithRuleManagerRepository(memory.NewRuleRepository()),
		announcer.WithRuleManagerLogger(&announcer.NoopLogger{}),
		announcer.WithRuleManagerNotifications(notes),
	}
	rm, err := announcer.NewRuleManager(append(base, opts...)...)
	require.NoError(t, err)
	return rm, notes
}

func addRequest(class, adverb string) announcer.AddRuleRequest {
	return announcer.AddRuleRequest{SID: "alice", Authenticated: true, Distributor: "email", Adverb: adverb, Class: class}
}

func priorities(t *testing.T, rm *announcer.RuleManager) map[string]int {
	t.Helper()
	rules, err := rm.ListRules(context.Background(), alice, "email")
	require.NoError(t, err)
	out := make(map[string]int, len(rules))
	for _, r := range rules {
		out[r.Class] = r.Priority
	}
	return out
}

func TestRuleManager_Lifecycle(t *testing.T) {
	rm, notes := newRuleManager(t)
	ctx := context.Background()

	owner, err := rm.AddRule(ctx, addRequest("ticket_owner", "accept"))
	require.NoError(t, err)
	updater, err := rm.AddRule(ctx, addRequest("ticket_updater", "never"))
	require.NoError(t, err)
	watch, err := rm.AddRule(ctx, addRequest("watch", "always"))
	require.NoError(t, err)

	assert.Equal(t, model.AdverbDeny, updater.Adverb)
	assert.Equal(t, model.AdverbAccept, watch.Adverb)
	assert.Equal(t, map[string]int{"ticket_owner": 1, "ticket_updater": 2, "watch": 3}, priorities(t, rm))

	require.NoError(t, rm.MoveRule(ctx, watch.ID, 1))
	assert.Equal(t, map[string]int{"watch": 1, "ticket_owner": 2, "ticket_updater": 3}, priorities(t, rm))

	// Out of range moves change nothing.
	require.NoError(t, rm.MoveRule(ctx, watch.ID, 9))
	require.NoError(t, rm.MoveRule(ctx, watch.ID, 0))
	require.NoError(t, rm.MoveRule(ctx, watch.ID, 1))
	assert.Equal(t, map[string]int{"watch": 1, "ticket_owner": 2, "ticket_updater": 3}, priorities(t, rm))

	require.NoError(t, rm.DeleteRule(ctx, owner.ID))
	assert.Equal(t, map[string]int{"watch": 1, "ticket_updater": 2}, priorities(t, rm))

	got, err := rm.GetRule(ctx, updater.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Priority)

	assert.Equal(t, []int64{owner.ID, updater.ID, watch.ID}, notes.added)
	assert.Equal(t, []int64{owner.ID}, notes.deleted)
	assert.Equal(t, []movedRule{{ID: watch.ID, From: 3, To: 1}}, notes.moved)
}

func TestRuleManager_SetFormat(t *testing.T) {
	rm, _ := newRuleManager(t)
	ctx := context.Background()
	_, err := rm.AddRule(ctx, addRequest("ticket_owner", "accept"))
	require.NoError(t, err)
	_, err = rm.AddRule(ctx, addRequest("watch", "accept"))
	require.NoError(t, err)

	require.NoError(t, rm.SetFormat(ctx, alice, "email", announcer.StyleHTML))
	rules, err := rm.ListRules(ctx, alice, "email")
	require.NoError(t, err)
	for _, r := range rules {
		assert.Equal(t, announcer.StyleHTML, r.Format)
	}

	err = rm.SetFormat(ctx, model.Identity{}, "email", announcer.StyleHTML)
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeValidation))
	err = rm.SetFormat(ctx, alice, "", announcer.StyleHTML)
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeValidation))
}

func TestRuleManager_Groups(t *testing.T) {
	rm, _ := newRuleManager(t)
	ctx := context.Background()

	_, err := rm.AddRule(ctx, addRequest("ticket_owner", "accept"))
	require.NoError(t, err)
	req := addRequest("ticket_owner", "accept")
	req.Authenticated = false
	anon, err := rm.AddRule(ctx, req)
	require.NoError(t, err)
	req = addRequest("ticket_owner", "accept")
	req.Distributor = "xmpp"
	xmpp, err := rm.AddRule(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, anon.Priority, "anonymous sessions have their own list")
	assert.Equal(t, 1, xmpp.Priority, "each distributor has its own list")

	rules, err := rm.ListRules(ctx, aliceAnon, "email")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, anon.ID, rules[0].ID)

	rules, err = rm.ListRules(ctx, bob, "email")
	require.NoError(t, err)
	assert.NotNil(t, rules)
	assert.Empty(t, rules)
}

func TestRuleManager_Validation(t *testing.T) {
	registry, err := announcer.NewMatcherRegistry(alwaysMatcher{class: "ticket_owner"})
	require.NoError(t, err)
	rm, notes := newRuleManager(t, announcer.WithRuleManagerMatchers(registry))
	ctx := context.Background()

	tests := []struct {
		name string
		req  announcer.AddRuleRequest
	}{
		{"missing sid", announcer.AddRuleRequest{Distributor: "email", Adverb: "accept", Class: "ticket_owner"}},
		{"missing distributor", announcer.AddRuleRequest{SID: "alice", Adverb: "accept", Class: "ticket_owner"}},
		{"bad adverb", addRequest("ticket_owner", "maybe")},
		{"missing class", addRequest("", "accept")},
		{"unknown class", addRequest("ticket_cc", "accept")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rm.AddRule(ctx, tt.req)
			assert.True(t, announcer.IsCode(err, announcer.ErrCodeValidation), "got %v", err)
		})
	}
	assert.Empty(t, notes.added)
}

func TestRuleManager_NotFound(t *testing.T) {
	rm, _ := newRuleManager(t)
	ctx := context.Background()

	assert.True(t, announcer.IsNotFound(rm.DeleteRule(ctx, 99)))
	assert.True(t, announcer.IsNotFound(rm.MoveRule(ctx, 99, 1)))
	_, err := rm.GetRule(ctx, 99)
	assert.True(t, announcer.IsNotFound(err))

	assert.True(t, announcer.IsCode(rm.DeleteRule(ctx, 0), announcer.ErrCodeValidation))
}

func TestNewRuleManager_Configuration(t *testing.T) {
	_, err := announcer.NewRuleManager(announcer.WithRuleManagerLogger(&announcer.NoopLogger{}))
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeConfiguration))

	_, err = announcer.NewRuleManager(announcer.WithRuleManagerRepository(memory.NewRuleRepository()))
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeConfiguration))

	_, err = announcer.NewRuleManager(announcer.WithRuleManagerRepository(nil))
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeConfiguration))
}
