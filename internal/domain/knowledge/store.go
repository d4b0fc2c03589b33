package knowledge

import (
	"context"
	"sync"
)

// VectorStore keeps embedded chunks and ranks them against a query vector.
type VectorStore interface {
	Add(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore is a process-local VectorStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Add(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *MemoryStore) Search(_ context.Context, query []float32, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return rankRecords(query, m.records, resolveK(k)), nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}
