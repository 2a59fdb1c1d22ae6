package repository

import (
	"context"
	"sync"

	"github.com/lockbox/lockbox/internal/model"
)

// MemoryStore is a process-local user and secret store guarded by a mutex.
// It backs STORAGE_BACKEND=memory and the in-process tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	emails  map[string]string
	secrets map[string]*model.Secret
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*model.User),
		emails:  make(map[string]string),
		secrets: make(map[string]*model.Secret),
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// CreateUser stores a user, rejecting duplicate emails.
func (m *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[user.Email]; ok {
		return ErrEmailExists
	}

	u := *user
	m.users[u.ID] = &u
	m.emails[u.Email] = u.ID
	return nil
}

// GetUserByID retrieves a user by ID.
func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// GetUserByEmail retrieves a user by exact email.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *m.users[id]
	return &c, nil
}

// DeleteUser removes a user and every secret they own.
func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}

	delete(m.emails, u.Email)
	delete(m.users, id)
	for sid, s := range m.secrets {
		if s.OwnerID == id {
			delete(m.secrets, sid)
		}
	}
	return nil
}

// CreateSecret stores a secret.
func (m *MemoryStore) CreateSecret(_ context.Context, secret *model.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.secrets[secret.ID] = secret.Clone()
	return nil
}

// GetSecret retrieves a secret by ID, scoped to its owner.
func (m *MemoryStore) GetSecret(_ context.Context, ownerID, id string) (*model.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.secrets[id]
	if !ok || s.OwnerID != ownerID {
		return nil, ErrSecretNotFound
	}
	return s.Clone(), nil
}

// ListSecrets returns a page of an owner's secrets, newest first.
func (m *MemoryStore) ListSecrets(_ context.Context, ownerID string, filter SecretFilter) ([]*model.Secret, error) {
	m.mu.RLock()
	owned := make([]*model.Secret, 0)
	for _, s := range m.secrets {
		if s.OwnerID == ownerID {
			owned = append(owned, s.Clone())
		}
	}
	m.mu.RUnlock()

	return filter.Apply(owned), nil
}

// UpdateSecret applies mutate to a copy of the owner's secret under the
// write lock. Nothing is stored if mutate fails.
func (m *MemoryStore) UpdateSecret(_ context.Context, ownerID, id string, mutate func(*model.Secret) error) (*model.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.secrets[id]
	if !ok || current.OwnerID != ownerID {
		return nil, ErrSecretNotFound
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.OwnerID = current.OwnerID
	next.CreatedAt = current.CreatedAt

	m.secrets[id] = next
	return next.Clone(), nil
}

// DeleteSecret removes an owner's secret.
func (m *MemoryStore) DeleteSecret(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.secrets[id]
	if !ok || s.OwnerID != ownerID {
		return ErrSecretNotFound
	}
	delete(m.secrets, id)
	return nil
}

// SampleCiphertexts returns up to limit stored ciphertexts, newest first.
func (m *MemoryStore) SampleCiphertexts(_ context.Context, limit int) ([]CiphertextRef, error) {
	m.mu.RLock()
	all := make([]*model.Secret, 0, len(m.secrets))
	for _, s := range m.secrets {
		all = append(all, s)
	}
	m.mu.RUnlock()

	SortNewestFirst(all)
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}

	refs := make([]CiphertextRef, 0, len(all))
	for _, s := range all {
		refs = append(refs, CiphertextRef{ID: s.ID, Ciphertext: s.Ciphertext})
	}
	return refs, nil
}
