package stats

import (
	"context"
	"sync"

	"github.com/verte-zerg/moviequiz/internal/model"
)

// MemoryStore is an in-process Storage and History. Data is lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	rounds []model.RoundRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Get implements Storage.
func (s *MemoryStore) Get(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := s.values[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

// Set writes values directly.
func (s *MemoryStore) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

// Update implements Storage.
func (s *MemoryStore) Update(_ context.Context, keys []string, fn func(map[string]string) (map[string]string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := s.values[key]; ok {
			current[key] = v
		}
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	for k, v := range next {
		s.values[k] = v
	}
	return nil
}

// AppendRound implements History.
func (s *MemoryStore) AppendRound(_ context.Context, round model.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = append(s.rounds, round)
	return nil
}

// ListRounds implements History.
func (s *MemoryStore) ListRounds(_ context.Context, limit int) ([]model.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rounds := s.rounds
	if limit > 0 && len(rounds) > limit {
		rounds = rounds[len(rounds)-limit:]
	}
	return append([]model.RoundRecord(nil), rounds...), nil
}
