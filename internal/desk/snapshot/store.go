// Package snapshot owns the single in-memory record snapshot. Every fetch
// takes a generation number up front; a result is applied only if no newer
// fetch has been applied first, so late responses are dropped instead of
// overwriting fresher data.
package snapshot

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

// Listener is notified after each successful Apply with the new generation.
type Listener func(gen uint64)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	issued    uint64
	applied   uint64
	records   []models.VisitRecord
	updatedAt time.Time
	seeded    bool
	listeners []Listener
	now       func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// Begin issues the next fetch generation.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Apply replaces the snapshot with records if gen is newer than the last
// applied generation. It returns false for a stale generation, in which case
// nothing changes.
func (s *Store) Apply(gen uint64, records []models.VisitRecord) bool {
	s.mu.Lock()
	if gen <= s.applied {
		s.mu.Unlock()
		return false
	}
	s.applied = gen
	s.records = models.CloneAll(records)
	if s.records == nil {
		s.records = []models.VisitRecord{}
	}
	s.updatedAt = s.now()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(gen)
	}
	return true
}

// Seed installs records ahead of the first live fetch. It never consumes a
// generation, so any fetch already in flight still wins. Seed is a no-op
// once a fetch has been applied.
func (s *Store) Seed(records []models.VisitRecord) bool {
	s.mu.Lock()
	if s.applied > 0 {
		s.mu.Unlock()
		return false
	}
	s.records = models.CloneAll(records)
	if s.records == nil {
		s.records = []models.VisitRecord{}
	}
	s.seeded = true
	s.updatedAt = s.now()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(0)
	}
	return true
}

// Records returns a copy of the current snapshot.
func (s *Store) Records() []models.VisitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneAll(s.records)
}

// Find looks a record up by source and id.
func (s *Store) Find(src models.Source, id string) (models.VisitRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Source == src && r.ID == id {
			return r.Clone(), true
		}
	}
	return models.VisitRecord{}, false
}

// Generation is the last applied generation; zero before the first Apply.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// Loaded reports whether any snapshot, seeded or fetched, is present.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied > 0 || s.seeded
}

// UpdatedAt is when the current snapshot was applied.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Subscribe registers l for future applies.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
