package persistence

import (
	"context"
	"sync"
)

// MemoryDedupStore is the in-process DedupStore used by single-node
// deployments and tests. Multi-node deployments want the redis-backed one.
type MemoryDedupStore struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{claimed: make(map[string]bool)}
}

func (s *MemoryDedupStore) Claim(_ context.Context, eventID, workflowID string) (bool, error) {
	key := eventID + ":" + workflowID

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claimed[key] {
		return false, nil
	}

	s.claimed[key] = true

	return true, nil
}

func (s *MemoryDedupStore) Close(_ context.Context) error {
	return nil
}
