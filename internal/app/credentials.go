package app

import (
	"context"
	"sync"

	"github.com/evanschultz/trackit/internal/domain"
)

// MemoryCredentials is an in-process CredentialStore.
type MemoryCredentials struct {
	mu    sync.RWMutex
	creds Credentials
	ok    bool
	clrs  int
}

// NewMemoryCredentials constructs an empty store.
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{}
}

// Get returns the stored session.
func (m *MemoryCredentials) Get(context.Context) (Credentials, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds, m.ok, nil
}

// Set replaces the stored session.
func (m *MemoryCredentials) Set(_ context.Context, token string, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{Token: token, User: user}
	m.ok = true
	return nil
}

// Clear removes the stored session.
func (m *MemoryCredentials) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	m.ok = false
	m.clrs++
	return nil
}

// Clears reports how many times Clear ran.
func (m *MemoryCredentials) Clears() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clrs
}
