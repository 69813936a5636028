package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, prepare(e))
	return nil
}

func (m *MemoryStore) List(_ context.Context, q Query) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Entry{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < q.limit(); i-- {
		e := m.entries[i]
		if q.Source != "" && e.Source != q.Source {
			continue
		}
		if q.RecordID != "" && e.RecordID != q.RecordID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
