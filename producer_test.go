package announcer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
)

type recordingSender struct {
	mu     sync.Mutex
	events []model.Event
}

func (s *recordingSender) Send(_ context.Context, event model.Event) (*announcer.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return &announcer.Report{Realm: event.Realm(), Category: event.Category()}, nil
}

type deletionRecorder struct {
	err     error
	deleted []string
}

func (r *deletionRecorder) ResourceDeleted(_ context.Context, realm, resourceID string) error {
	r.deleted = append(r.deleted, realm+":"+resourceID)
	return r.err
}

func TestTicketProducer_Changed(t *testing.T) {
	ticket := model.NewTicket(7, map[string]string{model.FieldSummary: "Crash", model.FieldCC: "bob", "status": "new"})

	tests := []struct {
		name      string
		opts      []announcer.ProducerOption
		comment   string
		oldValues map[string]string
		sent      bool
	}{
		{"nothing changed", nil, "", nil, false},
		{"comment only", nil, "ping", nil, true},
		{"field change", nil, "", map[string]string{"status": "assigned"}, true},
		{"cc change announced by default", nil, "", map[string]string{model.FieldCC: ""}, true},
		{"cc change ignored", []announcer.ProducerOption{announcer.WithIgnoreCCChanges()}, "", map[string]string{model.FieldCC: ""}, false},
		{"cc change with comment", []announcer.ProducerOption{announcer.WithIgnoreCCChanges()}, "cc me", map[string]string{model.FieldCC: ""}, true},
		{"cc and status", []announcer.ProducerOption{announcer.WithIgnoreCCChanges()}, "", map[string]string{model.FieldCC: "", "status": "assigned"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			p, err := announcer.NewTicketProducer(sender, tt.opts...)
			require.NoError(t, err)

			report, err := p.TicketChanged(context.Background(), ticket, "alice", tt.comment, tt.oldValues)
			require.NoError(t, err)
			if !tt.sent {
				assert.Nil(t, report)
				assert.Empty(t, sender.events)
				return
			}
			require.Len(t, sender.events, 1)
			event := sender.events[0]
			assert.Equal(t, model.CategoryChanged, event.Category())
			assert.Equal(t, "alice", event.Author())
			assert.Equal(t, tt.comment, event.Comment())
		})
	}
}

func TestTicketProducer_Events(t *testing.T) {
	sender := &recordingSender{}
	watches := &deletionRecorder{}
	p, err := announcer.NewTicketProducer(sender, announcer.WithDeletionListeners(watches))
	require.NoError(t, err)
	ctx := context.Background()
	ticket := model.NewTicket(7, map[string]string{model.FieldSummary: "Crash"})

	_, err = p.TicketCreated(ctx, ticket, "bob")
	require.NoError(t, err)
	_, err = p.AttachmentAdded(ctx, ticket, &model.Attachment{Filename: "trace.log", Author: "carol", Description: "stack"})
	require.NoError(t, err)

	require.Len(t, sender.events, 2)
	assert.Equal(t, model.CategoryCreated, sender.events[0].Category())
	assert.Equal(t, model.CategoryAttachmentAdded, sender.events[1].Category())
	assert.Equal(t, "carol", sender.events[1].Author())
	assert.Equal(t, "trace.log", sender.events[1].Attachment().Filename)

	_, err = p.TicketChanged(ctx, ticket, "bob", "", map[string]string{"nonexistent": "x"})
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeValidation))

	p.TicketDeleted(ctx, ticket)
	assert.Equal(t, []string{"ticket:7"}, watches.deleted)
	assert.Len(t, sender.events, 2, "deleted tickets are not announced")
}

func TestWikiProducer_Events(t *testing.T) {
	sender := &recordingSender{}
	failing := &deletionRecorder{err: errBoom}
	watches := &deletionRecorder{}
	p, err := announcer.NewWikiProducer(sender, announcer.WithDeletionListeners(failing, watches))
	require.NoError(t, err)
	ctx := context.Background()
	page := model.NewWikiPage("Guide", 3, "text")

	_, err = p.PageAdded(ctx, page, "alice", "first")
	require.NoError(t, err)
	_, err = p.PageChanged(ctx, page, "alice", "", model.WithPreviousText("old"))
	require.NoError(t, err)
	_, err = p.PageVersionDeleted(ctx, page)
	require.NoError(t, err)
	_, err = p.AttachmentAdded(ctx, page, &model.Attachment{Filename: "diagram.png", Author: "bob"})
	require.NoError(t, err)
	_, err = p.PageDeleted(ctx, page)
	require.NoError(t, err)

	categories := make([]string, 0, len(sender.events))
	for _, e := range sender.events {
		categories = append(categories, e.Category())
	}
	assert.Equal(t, []string{
		model.CategoryCreated, model.CategoryChanged, model.CategoryVersionDeleted,
		model.CategoryAttachmentAdded, model.CategoryDeleted,
	}, categories)

	previous, ok := sender.events[1].(*model.WikiEvent).PreviousText()
	assert.True(t, ok)
	assert.Equal(t, "old", previous)

	assert.Equal(t, []string{"wiki:Guide"}, failing.deleted)
	assert.Equal(t, []string{"wiki:Guide"}, watches.deleted, "a failing listener does not stop the others")
}

func TestNewProducer_RequiresSender(t *testing.T) {
	_, err := announcer.NewTicketProducer(nil)
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeConfiguration))

	_, err = announcer.NewWikiProducer(nil)
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeConfiguration))
}
