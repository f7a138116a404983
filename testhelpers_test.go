package announcer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
)

var (
	alice     = model.NewIdentity("alice", true)
	aliceAnon = model.NewIdentity("alice", false)
	bob       = model.NewIdentity("bob", true)

	errBoom = errors.New("boom")
)

// stubMatcher answers from a fixed table keyed by rule id and records every
// rule it was asked about.
type stubMatcher struct {
	class   string
	answers map[int64]bool
	err     error

	mu    sync.Mutex
	calls []int64
}

func newStubMatcher(class string) *stubMatcher {
	return &stubMatcher{class: class, answers: make(map[int64]bool)}
}

func (m *stubMatcher) Class() string { return m.class }

func (m *stubMatcher) Matches(_ context.Context, _ model.Event, rule model.Rule) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, rule.ID)
	if m.err != nil {
		return false, m.err
	}
	return m.answers[rule.ID], nil
}

func (m *stubMatcher) Calls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.calls...)
}

// alwaysMatcher matches every event.
type alwaysMatcher struct{ class string }

func (m alwaysMatcher) Class() string { return m.class }

func (alwaysMatcher) Matches(context.Context, model.Event, model.Rule) (bool, error) {
	return true, nil
}

func newTicketEvent(t *testing.T, category string, opts ...model.EventOption) *model.TicketEvent {
	t.Helper()
	ticket := model.NewTicket(42, map[string]string{
		model.FieldSummary:     "Parser drops trailing comments",
		model.FieldReporter:    "bob",
		model.FieldOwner:       "alice",
		model.FieldComponent:   "parser",
		model.FieldDescription: "Steps:\n1. parse\n2. look",
		"status":               "new",
	})
	event, err := model.NewTicketEvent(category, ticket, opts...)
	require.NoError(t, err)
	return event
}

func newWikiEvent(t *testing.T, category string, version int, text string, opts []model.EventOption, wikiOpts ...model.WikiEventOption) *model.WikiEvent {
	t.Helper()
	event, err := model.NewWikiEvent(category, model.NewWikiPage("WikiStart", version, text), opts, wikiOpts...)
	require.NoError(t, err)
	return event
}

func addRule(t *testing.T, rules announcer.RuleRepository, who model.Identity, distributor, format string, adverb model.Adverb, class string) model.Rule {
	t.Helper()
	rule, err := rules.Add(context.Background(), model.NewRule(who, distributor, format, adverb, class))
	require.NoError(t, err)
	return rule
}

type movedRule struct {
	ID       int64
	From, To int
}

// recordingNotifications keeps every notification it receives.
type recordingNotifications struct {
	mu       sync.Mutex
	added    []int64
	deleted  []int64
	moved    []movedRule
	failures []announcer.Result
}

func (n *recordingNotifications) NotifyRuleAdded(_ context.Context, rule model.Rule) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.added = append(n.added, rule.ID)
	return nil
}

func (n *recordingNotifications) NotifyRuleDeleted(_ context.Context, rule model.Rule) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, rule.ID)
	return nil
}

func (n *recordingNotifications) NotifyRuleMoved(_ context.Context, rule model.Rule, from, to int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.moved = append(n.moved, movedRule{ID: rule.ID, From: from, To: to})
	return nil
}

func (n *recordingNotifications) NotifyDeliveryFailure(_ context.Context, _ model.Event, result announcer.Result) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, result)
	return nil
}
