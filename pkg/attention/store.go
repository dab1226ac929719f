package attention

import (
	"context"
	"sync"

	"classlens/pkg/scoring"
)

// Store persists the stability state of each frame stream between requests.
type Store interface {
	Load(ctx context.Context, sessionID string) (scoring.AttentionState, bool, error)
	Save(ctx context.Context, sessionID string, state scoring.AttentionState) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps state in process. Managers sharing one MemoryStore are
// serialized per session through Lock.
type MemoryStore struct {
	mu       sync.RWMutex
	states   map[string]scoring.AttentionState
	sessions *keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:   make(map[string]scoring.AttentionState),
		sessions: newKeyedMutex(),
	}
}

func (s *MemoryStore) Lock(_ context.Context, sessionID string) (func(), error) {
	return s.sessions.lock(sessionID), nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (scoring.AttentionState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sessionID]
	return state, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, state scoring.AttentionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = state
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}
