package memory

import (
	"context"
	"sync"

	"readnex-service/internal/domain"
)

// CredentialStore is an in-memory implementation of app.CredentialStore.
// The whole group is swapped under one lock, so readers never observe a token
// without its user record.
type CredentialStore struct {
	mu    sync.RWMutex
	creds domain.Credentials
	set   bool
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// NewCredentialStoreWith seeds the store, standing in for credentials left by
// a previous run.
func NewCredentialStoreWith(creds domain.Credentials) *CredentialStore {
	return &CredentialStore{creds: creds, set: true}
}

func (s *CredentialStore) Load(_ context.Context) (domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return domain.Credentials{}, nil
	}
	creds := s.creds
	if creds.User != nil {
		u := *creds.User
		creds.User = &u
	}
	return creds, nil
}

func (s *CredentialStore) Save(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if creds.User != nil {
		u := *creds.User
		creds.User = &u
	}
	s.creds = creds
	s.set = true
	return nil
}

func (s *CredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = domain.Credentials{}
	s.set = false
	return nil
}
