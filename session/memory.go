package session

import (
	"context"
	"sync"
)

// MemoryStore keeps per-user session slices in a mutex-guarded map. Slices
// preserve insertion order, which carries the FIFO eviction contract.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string][]*Session
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string][]*Session)}
}

func (s *MemoryStore) Append(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sess
	s.users[sess.UserID] = append(s.users[sess.UserID], &copied)
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.users[userID]
	out := make([]*Session, 0, len(stored))
	for _, sess := range stored {
		copied := *sess
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) Remove(_ context.Context, userID, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.users[userID]
	for i, sess := range stored {
		if sess.SessionID != sessionID {
			continue
		}
		removed := *sess
		s.users[userID] = append(stored[:i], stored[i+1:]...)
		if len(s.users[userID]) == 0 {
			delete(s.users, userID)
		}
		return &removed, nil
	}

	return nil, ErrSessionNotFound
}

func (s *MemoryStore) RemoveAll(_ context.Context, userID string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.users[userID]
	out := make([]*Session, 0, len(stored))
	for _, sess := range stored {
		copied := *sess
		out = append(out, &copied)
	}
	delete(s.users, userID)

	return out, nil
}

func (s *MemoryStore) Count(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users[userID]), nil
}
