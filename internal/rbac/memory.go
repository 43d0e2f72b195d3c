package rbac

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryStore keeps role memberships in process memory. Used by tests and by
// tools that run without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	roles map[common.Hash]map[common.Address]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{roles: make(map[common.Hash]map[common.Address]struct{})}
}

func (s *MemoryStore) Has(_ context.Context, role common.Hash, account common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[role][account]
	return ok, nil
}

func (s *MemoryStore) Add(_ context.Context, role common.Hash, account common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles[role] == nil {
		s.roles[role] = make(map[common.Address]struct{})
	}
	s.roles[role][account] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, role common.Hash, account common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles[role], account)
	return nil
}
