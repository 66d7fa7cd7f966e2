package auth

import (
	"context"
	"sync"

	id "agriproof/pkg/domain"
	"agriproof/pkg/platform/sentinel"
)

// CredentialStore persists bcrypt hashes keyed by address. Plaintext secrets
// never reach a store.
type CredentialStore interface {
	SetCredential(ctx context.Context, address id.Address, secretHash string) error
	GetCredential(ctx context.Context, address id.Address) (string, error)
}

// InMemoryCredentialStore is a mutex-guarded map store.
type InMemoryCredentialStore struct {
	mu     sync.RWMutex
	hashes map[id.Address]string
}

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{hashes: make(map[id.Address]string)}
}

// SetCredential stores or rotates the hash for an address.
func (s *InMemoryCredentialStore) SetCredential(_ context.Context, address id.Address, secretHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[address] = secretHash
	return nil
}

func (s *InMemoryCredentialStore) GetCredential(_ context.Context, address id.Address) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.hashes[address]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return hash, nil
}
