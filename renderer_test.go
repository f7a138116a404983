package announcer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
)

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, string, string, announcer.Data) (string, error) {
	return "", announcer.NewError(announcer.ErrCodeRender, "broken template")
}

func TestTemplateRenderer_Defaults(t *testing.T) {
	r, err := announcer.NewTemplateRenderer()
	require.NoError(t, err)
	ctx := context.Background()
	event := newTicketEvent(t, model.CategoryChanged, model.WithAuthor("bob"), model.WithComment("Fixed <b>now</b>."),
		model.WithChanges(map[string]string{"status": "assigned"}))

	tests := []struct {
		realm     string
		style     string
		event     model.Event
		formatter announcer.Formatter
		contains  []string
	}{
		{
			realm: model.RealmTicket, style: announcer.StylePlain, event: event, formatter: announcer.NewTicketFormatter(),
			contains: []string{"Ticket #42: Parser drops trailing comments (changed by bob)", "  * Status: assigned => new", "Comment:\nFixed <b>now</b>."},
		},
		{
			realm: model.RealmTicket, style: announcer.StyleHTML, event: event, formatter: announcer.NewTicketFormatter(),
			contains: []string{`<a href="https://trac.example.org/ticket/42">`, "assigned &rarr; new", "<h3>Comment</h3>"},
		},
		{
			realm: model.RealmWiki, style: announcer.StylePlain, formatter: announcer.NewWikiFormatter(),
			event:    newWikiEvent(t, model.CategoryChanged, 2, "b", []model.EventOption{model.WithAuthor("bob")}, model.WithPreviousText("a")),
			contains: []string{`Page "WikiStart" changed by bob`, "Changes: https://trac.example.org/wiki/WikiStart?action=diff&version=2", "-a\n+b\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.realm+" "+tt.style, func(t *testing.T) {
			data, err := tt.formatter.Data(ctx, project, tt.style, tt.event)
			require.NoError(t, err)
			out, err := r.Render(ctx, tt.realm, tt.style, data)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestTemplateRenderer_SetTemplate(t *testing.T) {
	r, err := announcer.NewTemplateRenderer()
	require.NoError(t, err)

	err = r.SetTemplate(model.RealmTicket, announcer.StylePlain, "{{.Title")
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeConfiguration))

	require.NoError(t, r.SetTemplate("milestone", announcer.StylePlain, "Milestone {{.Title}}"))
	out, err := r.Render(context.Background(), "milestone", announcer.StylePlain, announcer.Data{Title: "1.0"})
	require.NoError(t, err)
	assert.Equal(t, "Milestone 1.0", out)

	_, err = r.Render(context.Background(), "milestone", announcer.StyleHTML, announcer.Data{})
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeRender))
}

func TestTemplateRenderer_ExecutionError(t *testing.T) {
	r, err := announcer.NewTemplateRenderer()
	require.NoError(t, err)
	require.NoError(t, r.SetTemplate("milestone", announcer.StylePlain, "{{.Missing}}"))

	_, err = r.Render(context.Background(), "milestone", announcer.StylePlain, announcer.Data{})
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeRender))
}

func TestRenderContent_DegradesToRaw(t *testing.T) {
	data := announcer.Data{Realm: model.RealmTicket, Category: model.CategoryCreated, TargetID: "42", Title: "Crash", ProjectName: "Trac"}

	content, ok := announcer.RenderContent(context.Background(), failingRenderer{}, &announcer.NoopLogger{},
		model.RealmTicket, announcer.StylePlain, data)
	assert.False(t, ok)
	assert.Equal(t, data.Raw(), content)
}
