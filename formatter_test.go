package announcer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/adapters/memory"
	"github.com/coregx/announcer/model"
)

var project = announcer.Project{Name: "Trac", Description: "Issue tracker", URL: "https://trac.example.org/"}

func TestTicketFormatter_HasChanges(t *testing.T) {
	f := announcer.NewTicketFormatter()
	ctx := context.Background()

	data, err := f.Data(ctx, project, announcer.StylePlain, newTicketEvent(t, model.CategoryChanged, model.WithComment("Looking into it.")))
	require.NoError(t, err)
	assert.False(t, data.HasChanges)
	assert.Equal(t, "Looking into it.", data.Comment)

	data, err = f.Data(ctx, project, announcer.StylePlain, newTicketEvent(t, model.CategoryChanged,
		model.WithChanges(map[string]string{"status": "assigned", model.FieldOwner: "carol"})))
	require.NoError(t, err)
	assert.True(t, data.HasChanges)
	require.Len(t, data.ShortChanges, 2)
	assert.Equal(t, announcer.Change{Field: "owner", Label: "Owner", Old: "carol", New: "alice"}, data.ShortChanges[0])
	assert.Equal(t, "status", data.ShortChanges[1].Field)
	assert.Equal(t, "https://trac.example.org/ticket/42", data.Permalink)
	assert.Equal(t, "Parser drops trailing comments", data.Title)
	assert.Equal(t, "42", data.TargetID)
}

func TestTicketFormatter_LongChange(t *testing.T) {
	f := announcer.NewTicketFormatter()
	event := newTicketEvent(t, model.CategoryChanged,
		model.WithChanges(map[string]string{model.FieldDescription: "Steps:\n1. parse"}))

	data, err := f.Data(context.Background(), project, announcer.StylePlain, event)
	require.NoError(t, err)
	assert.Empty(t, data.ShortChanges)
	require.Len(t, data.LongChanges, 1)

	lines := strings.Split(data.LongChanges[0].Block, "\n")
	assert.Contains(t, lines, "+2. look")
	for _, line := range lines {
		assert.False(t, strings.HasPrefix(line, "---"), line)
		assert.False(t, strings.HasPrefix(line, "+++"), line)
		assert.False(t, strings.HasPrefix(line, "@@"), line)
	}
}

func TestTicketFormatter_HTML(t *testing.T) {
	f := announcer.NewTicketFormatter()
	event := newTicketEvent(t, model.CategoryChanged, model.WithComment("Fixed in **r12**."))

	data, err := f.Data(context.Background(), project, announcer.StyleHTML, event)
	require.NoError(t, err)
	assert.Contains(t, string(data.CommentHTML), "<strong>r12</strong>")
	assert.Contains(t, string(data.DescriptionHTML), "<li>parse</li>")

	plain, err := f.Data(context.Background(), project, announcer.StylePlain, event)
	require.NoError(t, err)
	assert.Empty(t, plain.CommentHTML, "rich text is only built for html")
}

func TestTicketFormatter_HeaderFields(t *testing.T) {
	event := newTicketEvent(t, model.CategoryCreated)

	data, err := announcer.NewTicketFormatter(announcer.WithHeaderFields("owner", " ", "component")).
		Data(context.Background(), project, announcer.StylePlain, event)
	require.NoError(t, err)
	assert.Equal(t, []announcer.HeaderField{
		{Name: "owner", Label: "Owner", Value: "alice"},
		{Name: "component", Label: "Component", Value: "parser"},
	}, data.Fields)

	data, err = announcer.NewTicketFormatter(announcer.WithHeaderFields("*")).
		Data(context.Background(), project, announcer.StylePlain, event)
	require.NoError(t, err)
	assert.Len(t, data.Fields, 6)
}

func TestTicketFormatter_Rejects(t *testing.T) {
	f := announcer.NewTicketFormatter()

	_, err := f.Data(context.Background(), project, "text/x-unknown", newTicketEvent(t, model.CategoryCreated))
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeValidation))

	_, err = f.Data(context.Background(), project, announcer.StylePlain, newWikiEvent(t, model.CategoryCreated, 1, "x", nil))
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeValidation))
}

func TestWikiFormatter_DiffFromHistory(t *testing.T) {
	history := memory.NewPageHistory()
	history.Store("WikiStart", 2, "one\ntwo\nthree\nfour\nfive\nsix\nseven\neight")
	f := announcer.NewWikiFormatter(announcer.WithPageHistory(history))

	event := newWikiEvent(t, model.CategoryChanged, 3, "one\ntwo\nthree\nfour\nFIVE\nsix\nseven\neight",
		[]model.EventOption{model.WithAuthor("bob")})
	data, err := f.Data(context.Background(), project, announcer.StylePlain, event)
	require.NoError(t, err)
	assert.Empty(t, data.Warnings)

	d, ok := data.Extra["diff"].(string)
	require.True(t, ok)
	assert.Contains(t, d, "Index: WikiStart")
	assert.Contains(t, d, "--- WikiStart (version: 2)")
	assert.Contains(t, d, "+++ WikiStart (version: 3)")
	assert.Contains(t, d, "@@ -2,7 +2,7 @@")
	assert.Contains(t, d, "\n-five\n+FIVE\n")
	assert.NotContains(t, d, " one\n", "only three lines of context")
	assert.Equal(t, "https://trac.example.org/wiki/WikiStart?action=diff&version=3", data.Extra["diff_link"])
}

func TestWikiFormatter_PreviousTextOnEvent(t *testing.T) {
	f := announcer.NewWikiFormatter()
	event := newWikiEvent(t, model.CategoryChanged, 5, "new", nil, model.WithPreviousText("old"))

	data, err := f.Data(context.Background(), project, announcer.StylePlain, event)
	require.NoError(t, err)
	d, _ := data.Extra["diff"].(string)
	assert.Contains(t, d, "-old\n+new\n")
}

func TestWikiFormatter_NoHistory(t *testing.T) {
	f := announcer.NewWikiFormatter()
	event := newWikiEvent(t, model.CategoryChanged, 5, "new", nil)

	data, err := f.Data(context.Background(), project, announcer.StylePlain, event)
	require.NoError(t, err)
	assert.NotContains(t, data.Extra, "diff")
	require.Len(t, data.Warnings, 1)
	assert.Contains(t, data.Warnings[0], "page diff omitted")
}

func TestWikiFormatter_DiffDisabled(t *testing.T) {
	f := announcer.NewWikiFormatter(announcer.WithWikiDiff(false))
	event := newWikiEvent(t, model.CategoryChanged, 2, "new", nil, model.WithPreviousText("old"))

	data, err := f.Data(context.Background(), project, announcer.StylePlain, event)
	require.NoError(t, err)
	assert.NotContains(t, data.Extra, "diff")
	assert.Equal(t, true, data.Extra["changed"])
}

func TestWikiFormatter_Created(t *testing.T) {
	data, err := announcer.NewWikiFormatter().Data(context.Background(), project, announcer.StylePlain,
		newWikiEvent(t, model.CategoryCreated, 1, "hello", nil))
	require.NoError(t, err)
	assert.NotContains(t, data.Extra, "diff_link")
	assert.Equal(t, 1, data.Extra["version"])
}

func TestData_Raw(t *testing.T) {
	data, err := announcer.NewTicketFormatter().Data(context.Background(), project, announcer.StylePlain,
		newTicketEvent(t, model.CategoryChanged, model.WithAuthor("bob"), model.WithComment("ping"),
			model.WithChanges(map[string]string{"status": "closed"})))
	require.NoError(t, err)

	raw := data.Raw()
	assert.True(t, strings.HasPrefix(raw, "ticket 42: Parser drops trailing comments changed by bob\n"))
	assert.Contains(t, raw, "  * Status: closed => new")
	assert.Contains(t, raw, "Comment:\nping")
	assert.Contains(t, raw, "Trac <https://trac.example.org>")
}
