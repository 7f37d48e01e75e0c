package lock

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu    sync.Mutex
	holds map[string]Hold
}

// NewMemoryStore creates an in-process Store. Expired holds are dropped
// lazily on access, mirroring Redis key expiry closely enough for tests and
// single-instance deployments.
func NewMemoryStore() Store {
	return &memoryStore{holds: make(map[string]Hold)}
}

// current returns the live hold for slotID, pruning it if expired.
// Caller must hold s.mu.
func (s *memoryStore) current(slotID string) (Hold, bool) {
	h, ok := s.holds[slotID]
	if !ok {
		return Hold{}, false
	}
	if time.Now().After(h.ExpiresAt) {
		delete(s.holds, slotID)
		return Hold{}, false
	}
	return h, true
}

func (s *memoryStore) Reserve(_ context.Context, slotID, userID string, ttl time.Duration) (*Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.current(slotID); ok && h.UserID != userID {
		return nil, ErrConflict
	}

	h := Hold{SlotID: slotID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}
	s.holds[slotID] = h
	return &h, nil
}

func (s *memoryStore) Release(_ context.Context, slotID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.current(slotID); ok && h.UserID == userID {
		delete(s.holds, slotID)
	}
	return nil
}

func (s *memoryStore) Extend(_ context.Context, slotID, userID string, ttl time.Duration) (*Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.current(slotID)
	if !ok || h.UserID != userID {
		return nil, ErrNotHeld
	}

	h.ExpiresAt = time.Now().Add(ttl)
	s.holds[slotID] = h
	return &h, nil
}

func (s *memoryStore) Status(_ context.Context, slotID string) (*Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.current(slotID)
	if !ok {
		return nil, nil
	}
	return &h, nil
}
