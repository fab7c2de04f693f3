package session

import (
	"sync"

	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore keeps active sessions in memory. Sessions are transient:
// durable state lives in the progress store, so losing the process only
// loses the in-flight step position, which resumes from persisted progress.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewMemoryStore creates an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*Session)}
}

// Save stores a session by id.
func (m *MemoryStore) Save(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get retrieves a session by id.
func (m *MemoryStore) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
