package store

import (
	"context"
	"sync"

	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
)

// MemoryStore implements Store with in-memory maps. State does not survive a
// restart, which makes it suitable for tests and ephemeral runs only.
type MemoryStore struct {
	mu        sync.RWMutex
	clocks    map[string]interview.ClockRecord
	decisions map[string]interview.Decision
}

var _ Store = &MemoryStore{}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clocks:    make(map[string]interview.ClockRecord),
		decisions: make(map[string]interview.Decision),
	}
}

func (s *MemoryStore) GetClock(_ context.Context, resumeID string) (interview.ClockRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.clocks[resumeID]
	return rec, ok, nil
}

func (s *MemoryStore) SetClock(_ context.Context, resumeID string, rec interview.ClockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clocks[resumeID] = rec
	return nil
}

func (s *MemoryStore) ClearClock(_ context.Context, resumeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clocks, resumeID)
	return nil
}

func (s *MemoryStore) GetDecision(_ context.Context, resumeID string) (interview.Decision, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[resumeID]
	return d, ok, nil
}

func (s *MemoryStore) SetDecision(_ context.Context, resumeID string, d interview.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[resumeID] = d
	return nil
}

func (s *MemoryStore) ClearDecision(_ context.Context, resumeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decisions, resumeID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
