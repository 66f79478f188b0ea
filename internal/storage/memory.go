package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe store used in tests and when no database is
// desired.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]User)}
}

// CreateUser stores a user keyed by id, enforcing email uniqueness.
func (s *InMemoryStore) CreateUser(_ context.Context, input User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == input.Email {
			return User{}, ErrUserExists
		}
	}

	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}

	s.users[input.ID] = input
	return input, nil
}

// GetUserByEmail scans for the account with the given email.
func (s *InMemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// GetUserByID returns the account with the given id.
func (s *InMemoryStore) GetUserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}

// Close satisfies the Store interface.
func (s *InMemoryStore) Close() {}
