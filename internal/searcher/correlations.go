package searcher

import (
	"fmt"
	"sync"

	"github.com/dshills/binlocate/pkg/types"
)

// CorrelationStore maps match identifiers to the data needed to act on the
// match later. Entries live for the whole session and are never evicted.
//
// The MCP host may dispatch tool calls concurrently, so access is guarded.
type CorrelationStore struct {
	mu      sync.RWMutex
	entries map[types.MatchID]types.Correlation
}

// NewCorrelationStore creates an empty store
func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{
		entries: make(map[types.MatchID]types.Correlation),
	}
}

// Insert stores c under id, replacing any previous record
func (s *CorrelationStore) Insert(id types.MatchID, c types.Correlation) {
	s.mu.Lock()
	s.entries[id] = c
	s.mu.Unlock()
}

// Lookup returns the record stored under id
func (s *CorrelationStore) Lookup(id types.MatchID) (types.Correlation, error) {
	s.mu.RLock()
	c, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return types.Correlation{}, fmt.Errorf("match %s: %w", id, types.ErrNotFound)
	}
	return c, nil
}

// Len returns the number of stored records
func (s *CorrelationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
