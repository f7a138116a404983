package announcer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
)

func TestFormatterRegistry_Negotiate(t *testing.T) {
	registry, err := announcer.NewFormatterRegistry(announcer.NewTicketFormatter(), announcer.NewWikiFormatter())
	require.NoError(t, err)

	tests := []struct {
		name      string
		realm     string
		requested string
		want      string
		wantOK    bool
	}{
		{"default style", model.RealmTicket, "", announcer.StylePlain, true},
		{"supported", model.RealmTicket, announcer.StyleHTML, announcer.StyleHTML, true},
		{"wiki falls back to plain", model.RealmWiki, announcer.StyleHTML, announcer.StylePlain, true},
		{"unknown style falls back", model.RealmTicket, "text/x-markdown", announcer.StylePlain, true},
		{"unknown realm", "milestone", announcer.StylePlain, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := registry.Negotiate(tt.realm, tt.requested)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatterRegistry_Duplicate(t *testing.T) {
	_, err := announcer.NewFormatterRegistry(announcer.NewWikiFormatter(), announcer.NewWikiFormatter())
	assert.True(t, announcer.IsCode(err, announcer.ErrCodeConfiguration))
}

func TestFormatterRegistry_Styles(t *testing.T) {
	registry, err := announcer.NewFormatterRegistry(announcer.NewTicketFormatter())
	require.NoError(t, err)

	assert.Equal(t, []string{announcer.StylePlain, announcer.StyleHTML}, registry.SupportedStyles(model.RealmTicket))
	assert.Nil(t, registry.SupportedStyles(model.RealmWiki))

	_, ok := registry.FallbackStyle(model.RealmTicket, announcer.StylePlain)
	assert.False(t, ok, "the canonical style needs no substitute")
	style, ok := registry.FallbackStyle(model.RealmTicket, announcer.StyleHTML)
	assert.True(t, ok)
	assert.Equal(t, announcer.StylePlain, style)
}
