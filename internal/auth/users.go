package auth

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrIdentifierTaken = errors.New("identifier already exists")
)

// User is a credential record: an identifier typed on the scrambled
// keyboard plus the argon2id digest of the typed secret.
type User struct {
	ID         string
	Identifier string
	SecretHash string
	Roles      []Role
	CreatedAt  time.Time
}

type UserStore interface {
	FindByIdentifier(identifier string) (*User, error)
	Add(u *User) error
	List() ([]*User, error)
}

type MemoryUserStore struct {
	mu           sync.Mutex
	byIdentifier map[string]*User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byIdentifier: map[string]*User{}}
}

func (s *MemoryUserStore) Add(u *User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	identifier := strings.TrimSpace(u.Identifier)
	if identifier == "" {
		return errors.New("identifier is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byIdentifier[identifier]; exists {
		return ErrIdentifierTaken
	}
	clone := *u
	clone.Identifier = identifier
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	s.byIdentifier[identifier] = &clone
	*u = clone
	return nil
}

func (s *MemoryUserStore) FindByIdentifier(identifier string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byIdentifier[strings.TrimSpace(identifier)]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) List() ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*User, 0, len(s.byIdentifier))
	for _, u := range s.byIdentifier {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}
