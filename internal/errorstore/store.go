// Package errorstore keeps the user-visible error banners produced by
// failed loads and operations. Records are keyed by id so a repeated
// failure updates its banner in place instead of stacking duplicates.
package errorstore

import (
	"sync"

	"github.com/parleyhq/parley-go/internal/types"
)

// Store is a small ordered collection of error records. Safe for
// concurrent use.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]int // id -> index into order
	order []types.ErrorRecord
}

func New() *Store {
	return &Store{byID: make(map[string]int)}
}

// Add inserts rec, replacing any existing record with the same id in
// place so its position in the list is stable.
func (s *Store) Add(rec types.ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.byID[rec.ID]; ok {
		s.order[idx] = rec
		return
	}
	s.byID[rec.ID] = len(s.order)
	s.order = append(s.order, rec)
}

// Remove drops the record with the given id. Unknown ids are a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return
	}
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	delete(s.byID, id)
	for i := idx; i < len(s.order); i++ {
		s.byID[s.order[i].ID] = i
	}
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (types.ErrorRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return types.ErrorRecord{}, false
	}
	return s.order[idx], true
}

// List returns the records in insertion order.
func (s *Store) List() []types.ErrorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ErrorRecord, len(s.order))
	copy(out, s.order)
	return out
}

// Clear removes every record.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]int)
	s.order = nil
}
