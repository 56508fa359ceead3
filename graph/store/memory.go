package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store.
//
// Checkpoints are kept in serialized form, so a loaded state never shares
// memory with the one that was saved and has the same shape it would have
// after a round trip through a database.
//
// MemStore is safe for concurrent use. Data is lost when the process exits.
type MemStore[S any] struct {
	mu      sync.RWMutex
	records map[string]record
}

// NewMemStore creates an empty in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{records: make(map[string]record)}
}

// Load implements Store.
func (m *MemStore[S]) Load(_ context.Context, threadID string) (Checkpoint[S], error) {
	m.mu.RLock()
	r, ok := m.records[threadID]
	m.mu.RUnlock()

	if !ok {
		return Checkpoint[S]{}, ErrNotFound
	}
	return decode[S](r)
}

// Save implements Store.
func (m *MemStore[S]) Save(_ context.Context, cp Checkpoint[S]) error {
	r, err := encode(cp)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.records[cp.ThreadID] = r
	m.mu.Unlock()
	return nil
}

// List implements Lister.
func (m *MemStore[S]) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of stored threads.
func (m *MemStore[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
