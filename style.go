package announcer

import (
	"fmt"
	"slices"
)

// Content styles understood by the shipped formatters.
const (
	StylePlain = "text/plain"
	StyleHTML  = "text/html"
)

// FormatterRegistry maps realms to their formatters and negotiates the
// style an announcement is rendered in.
type FormatterRegistry struct {
	formatters map[string]Formatter
}

// NewFormatterRegistry builds a registry. Two formatters for the same realm
// is a configuration error.
func NewFormatterRegistry(formatters ...Formatter) (*FormatterRegistry, error) {
	r := &FormatterRegistry{formatters: make(map[string]Formatter, len(formatters))}
	for _, f := range formatters {
		if f == nil {
			return nil, NewError(ErrCodeConfiguration, "formatter cannot be nil")
		}
		if len(f.Styles()) == 0 {
			return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("formatter for realm %q supports no styles", f.Realm()))
		}
		if _, dup := r.formatters[f.Realm()]; dup {
			return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("duplicate formatter for realm %q", f.Realm()))
		}
		r.formatters[f.Realm()] = f
	}
	return r, nil
}

// Lookup returns the formatter of a realm.
func (r *FormatterRegistry) Lookup(realm string) (Formatter, bool) {
	f, ok := r.formatters[realm]
	return f, ok
}

// SupportedStyles returns the realm's styles, preferred first. Unknown
// realms support nothing.
func (r *FormatterRegistry) SupportedStyles(realm string) []string {
	f, ok := r.formatters[realm]
	if !ok {
		return nil
	}
	return slices.Clone(f.Styles())
}

// FallbackStyle returns the realm's canonical style when requested is not
// already it. ok=false means no substitution is needed or the realm is unknown.
func (r *FormatterRegistry) FallbackStyle(realm, requested string) (string, bool) {
	f, ok := r.formatters[realm]
	if !ok {
		return "", false
	}
	return f.FallbackStyle(requested)
}

// Negotiate picks the style to render a realm's event in for a rule
// requesting the given style. An empty request takes the preferred style.
// A request the realm cannot serve falls back to its canonical style.
// ok=false means nothing usable was found and the announcement is skipped.
func (r *FormatterRegistry) Negotiate(realm, requested string) (string, bool) {
	styles := r.SupportedStyles(realm)
	if len(styles) == 0 {
		return "", false
	}
	if requested == "" {
		return styles[0], true
	}
	if slices.Contains(styles, requested) {
		return requested, true
	}
	if fallback, ok := r.FallbackStyle(realm, requested); ok && slices.Contains(styles, fallback) {
		return fallback, true
	}
	return "", false
}

// canonicalFallback implements Formatter.FallbackStyle for formatters
// whose canonical style is their first one.
type canonicalFallback struct {
	styles []string
}

// Styles returns the supported styles, preferred first.
func (c canonicalFallback) Styles() []string {
	return slices.Clone(c.styles)
}

// FallbackStyle returns the canonical style unless it was requested.
func (c canonicalFallback) FallbackStyle(requested string) (string, bool) {
	if len(c.styles) == 0 || requested == c.styles[0] {
		return "", false
	}
	return c.styles[0], true
}
