package auth_test

import (
	"context"
	"sync"
	"time"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/models"
	"taskify/backend/internal/repositories"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type memRegistry struct {
	mu        sync.Mutex
	tokens    map[string]models.UserToken
	writes    int
	lookups   int
	lookupErr error
	recordErr error
}

func newMemRegistry() *memRegistry {
	return &memRegistry{tokens: make(map[string]models.UserToken)}
}

func (r *memRegistry) Record(_ context.Context, token *models.UserToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	r.writes++
	r.tokens[token.TokenUUID] = *token
	return nil
}

func (r *memRegistry) Lookup(_ context.Context, tokenUUID string) (*models.UserToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	token, ok := r.tokens[tokenUUID]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}
	return &token, nil
}

func (r *memRegistry) Revoke(_ context.Context, tokenUUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	delete(r.tokens, tokenUUID)
	return nil
}

func (r *memRegistry) RevokeAll(_ context.Context, userID uint) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	var ids []string
	for id, token := range r.tokens {
		if token.UserID == userID {
			ids = append(ids, id)
			delete(r.tokens, id)
		}
	}
	return ids, nil
}

func (r *memRegistry) put(token models.UserToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.TokenUUID] = token
}

func (r *memRegistry) snapshot() (int, map[string]models.UserToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[string]models.UserToken, len(r.tokens))
	for k, v := range r.tokens {
		copied[k] = v
	}
	return r.writes, copied
}

type memUsers struct {
	mu    sync.Mutex
	users map[uint]*models.User
	err   error
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{users: make(map[uint]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) remove(id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}
