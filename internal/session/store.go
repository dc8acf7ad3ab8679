package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nirmal8344/ScramblerKey/internal/keyboard"
)

// DefaultTTL is how long a session lives without being recreated.
const DefaultTTL = time.Hour

// Store is the session persistence boundary. GetOrCreate with an empty
// or unknown id allocates a fresh session (scrambled uppercase layout,
// empty buffers, identifier active); an expired session is treated as
// absent. Save replaces the whole record.
type Store interface {
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

func newSession(id string, ttl time.Duration) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Session{
		ID:        id,
		Layout:    keyboard.Generate(true, true),
		Active:    FieldIdentifier,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// MemoryStore keeps sessions in a mutex-guarded map. Expired entries
// are swept opportunistically on access.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range m.sessions {
		if v.Expired(now) {
			delete(m.sessions, k)
		}
	}

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return clone(s), nil
		}
	}

	s := newSession(id, m.ttl)
	m.sessions[s.ID] = clone(s)
	return s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// clone keeps callers and the store from sharing a record mid-edit.
func clone(s *Session) *Session {
	c := *s
	c.Layout = make(keyboard.Layout, len(s.Layout))
	for i, row := range s.Layout {
		c.Layout[i] = append([]string(nil), row...)
	}
	return &c
}
