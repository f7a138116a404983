package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/coregx/announcer/model"
)

type sessionKey struct {
	subscriber model.Identity
	name       string
}

// SessionRepository implements announcer.SessionRepository in memory.
//
// Thread safety: Safe for concurrent use.
type SessionRepository struct {
	mu     sync.RWMutex
	values map[sessionKey]string
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{values: make(map[sessionKey]string)}
}

// Get returns the named preference of the session.
func (r *SessionRepository) Get(_ context.Context, subscriber model.Identity, name string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.values[sessionKey{subscriber, name}]
	return value, ok && strings.TrimSpace(value) != "", nil
}

// Set stores a preference, replacing any previous value.
func (r *SessionRepository) Set(_ context.Context, subscriber model.Identity, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[sessionKey{subscriber, name}] = value
	return nil
}
