package storage

import (
	"context"
	"sync"
)

type MemStorage struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemStorage() *MemStorage {
	return &MemStorage{m: make(map[string][]byte)}
}

func (s *MemStorage) Ping(ctx context.Context) error { return nil }

func (s *MemStorage) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}

	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, true, nil
}

func (s *MemStorage) Save(ctx context.Context, key string, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = cp
	return nil
}

func (s *MemStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
