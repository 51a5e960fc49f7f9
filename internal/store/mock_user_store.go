package store

import (
	"context"
	"sync"
	"time"

	"movie-catalog/internal/domain"
)

// MockUserStore is an in-memory UserStore for tests.
type MockUserStore struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMockUserStore creates an empty MockUserStore.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]*domain.User)}
}

func (m *MockUserStore) CreateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	user.CreatedAt = time.Now().UTC()
	userCopy := *user
	m.users[user.ID] = &userCopy
	return nil
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}
