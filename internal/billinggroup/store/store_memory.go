// Package store holds the storage backends of the billing group table. The
// in-memory backend lives here; SQL backends live in subpackages.
package store

import (
	"context"
	"sync"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
)

// InMemoryStore keeps each policy's rows in insertion order.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[id.PolicyID][]models.Member
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rows: make(map[id.PolicyID][]models.Member)}
}

// List returns the stored rows of a policy. A policy without rows yields an
// empty list.
func (s *InMemoryStore) List(_ context.Context, policyID id.PolicyID) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneMembers(s.rows[policyID]), nil
}

// Replace swaps the stored rows of a policy for members.
func (s *InMemoryStore) Replace(_ context.Context, policyID id.PolicyID, members []models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(members) == 0 {
		delete(s.rows, policyID)
		return nil
	}
	s.rows[policyID] = models.CloneMembers(members)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
