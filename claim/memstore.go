package claim

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store. It is the reference implementation of the
// ledger contract and the default backing for tests.
type MemStore struct {
	mu     sync.Mutex
	claims map[string]Claim
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{claims: make(map[string]Claim)}
}

// Put implements Store. The first writer wins; a re-put with matching
// content is a no-op and the original record is kept.
func (s *MemStore) Put(_ context.Context, c Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.claims[c.ID]; ok {
		if existing.Matches(c) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateClaim, c.ID)
	}
	s.claims[c.ID] = c
	return nil
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, id string) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[id]
	if !ok {
		return Claim{}, fmt.Errorf("%w: %s", ErrClaimNotFound, id)
	}
	return c, nil
}

// Len returns the number of stored claims.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}
