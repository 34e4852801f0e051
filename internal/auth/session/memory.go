package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements the Store interface using in-memory storage
type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryStore creates a new memory store instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
	}
}

// Revoke marks a token id as revoked until the TTL elapses
func (s *MemoryStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[tokenID] = time.Now().Add(ttl)
	return nil
}

// IsRevoked reports whether a token id has been revoked. Expired entries
// are removed lazily.
func (s *MemoryStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// Close releases the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = make(map[string]time.Time)
	return nil
}
