package statestore

import (
	"context"
	"sync"
)

// MemoryStore keeps handles in process memory. It does not survive a restart
// and is meant for tests and --no-persist runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]HandleRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]HandleRecord)}
}

// Load implements HandleStore.
func (s *MemoryStore) Load(_ context.Context, key string) (*HandleRecord, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Save implements HandleStore.
func (s *MemoryStore) Save(_ context.Context, key string, rec *HandleRecord) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = *rec
	return nil
}

// Clear implements HandleStore.
func (s *MemoryStore) Clear(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
