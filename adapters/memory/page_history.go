package memory

import (
	"context"
	"sync"

	"github.com/coregx/announcer"
)

// PageHistory implements announcer.PageHistory in memory.
//
// Thread safety: Safe for concurrent use.
type PageHistory struct {
	mu    sync.RWMutex
	pages map[string]map[int]string
}

// NewPageHistory creates an empty PageHistory.
func NewPageHistory() *PageHistory {
	return &PageHistory{pages: make(map[string]map[int]string)}
}

// Store records the text of a page version.
func (h *PageHistory) Store(name string, version int, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pages[name] == nil {
		h.pages[name] = make(map[int]string)
	}
	h.pages[name][version] = text
}

// PageText returns the text of a page version.
func (h *PageHistory) PageText(_ context.Context, name string, version int) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	text, ok := h.pages[name][version]
	if !ok {
		return "", announcer.ErrNotFound
	}
	return text, nil
}
