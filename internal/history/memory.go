package history

import (
	"context"
	"sync"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, rec := range s.records {
		if rec.LastUpdated < cutoff {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func copyRecord(rec Record) Record {
	rec.Messages = append([]Message(nil), rec.Messages...)
	return rec
}
