package redis

import (
	"context"
	"sync"
	"time"

	"synapse-service/internal/models"
)

type memoryEntry struct {
	session  *models.Session
	identity string
	expires  time.Time
}

// MemoryStore is the process-local SessionStore used when no Redis URL is configured.
// Sessions do not survive restarts and are not shared between replicas.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry), now: time.Now}
}

// entry returns the live entry for id, dropping it when expired. Caller holds mu.
func (m *MemoryStore) entry(id string) *memoryEntry {
	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, id)
		return nil
	}
	return e
}

func (m *MemoryStore) upsert(id string, ttl time.Duration) *memoryEntry {
	e := m.entry(id)
	if e == nil {
		e = &memoryEntry{}
		m.entries[id] = e
	}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	return e
}

func (m *MemoryStore) Regenerate(ctx context.Context, oldID string) (string, error) {
	if oldID != "" {
		_ = m.Destroy(ctx, oldID)
	}
	return NewSessionID(), nil
}

func (m *MemoryStore) Save(_ context.Context, session *models.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.upsert(session.SessionID, ttl).session = &copied
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(sessionID)
	if e == nil || e.session == nil {
		return nil, ErrSessionNotFound
	}
	copied := *e.session
	return &copied, nil
}

func (m *MemoryStore) Destroy(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}

func (m *MemoryStore) SetIdentity(_ context.Context, sessionID, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsert(sessionID, ttl).identity = userID
	return nil
}

func (m *MemoryStore) GetIdentity(_ context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(sessionID)
	if e == nil || e.identity == "" {
		return "", ErrSessionNotFound
	}
	return e.identity, nil
}
