package share

import (
	"sync"

	"github.com/threepartysql/threepc/core/errs"
)

// MemoryStore is an in-memory Store, suitable for tests and the
// cmd/node reference server. A real deployment would back Store with
// a database keyed the same way.
type MemoryStore struct {
	mu    sync.Mutex
	seen  map[string]bool
	byKey map[string]BinaryPartyData
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen:  map[string]bool{},
		byKey: map[string]BinaryPartyData{},
	}
}

// Put records data under key, failing with errs.ErrDuplicateSubmission
// if key has already been recorded. Delivery is idempotent keyed by
// (owner_id, table_id, submission_timestamp).
func (s *MemoryStore) Put(key, storagePath string, data BinaryPartyData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return errs.ErrDuplicateSubmission
	}
	s.seen[key] = true
	s.byKey[key] = data
	return nil
}

// Get returns the bundle recorded under key, if any.
func (s *MemoryStore) Get(key string) (BinaryPartyData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.byKey[key]
	return data, ok
}
