package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pickleplex/booking-backend/internal/lock"
)

// recordingStore counts release calls per slot ID.
type recordingStore struct {
	mu       sync.Mutex
	released map[string]int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{released: make(map[string]int)}
}

func (s *recordingStore) Reserve(_ context.Context, slotID, userID string, ttl time.Duration) (*lock.Hold, error) {
	return &lock.Hold{SlotID: slotID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (s *recordingStore) Release(_ context.Context, slotID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released[slotID]++
	return nil
}

func (s *recordingStore) Extend(_ context.Context, slotID, userID string, ttl time.Duration) (*lock.Hold, error) {
	return &lock.Hold{SlotID: slotID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (s *recordingStore) Status(context.Context, string) (*lock.Hold, error) {
	return nil, nil
}

func (s *recordingStore) releaseCount(slotID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released[slotID]
}

func (s *recordingStore) totalReleases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.released {
		n += c
	}
	return n
}

func TestManagerOneSessionPerUser(t *testing.T) {
	m := NewManager(newRecordingStore(), 10*time.Minute, zap.NewNop())

	assert.Same(t, m.Get("alice"), m.Get("alice"))
	assert.NotSame(t, m.Get("alice"), m.Get("bob"))
}

func TestManagerExpiryReleasesEveryHeldSlotOnce(t *testing.T) {
	store := newRecordingStore()
	m := NewManager(store, 2*time.Second, zap.NewNop())

	m.Start("alice", []string{"s1", "s2"})

	m.tickAll()
	require.Equal(t, 0, store.totalReleases())

	m.tickAll()

	require.Eventually(t, func() bool {
		return store.totalReleases() == 2
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, store.releaseCount("s1"))
	assert.Equal(t, 1, store.releaseCount("s2"))
	assert.False(t, m.Get("alice").Snapshot().Active)

	// Further ticks must not release again.
	m.tickAll()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, store.totalReleases())
}

func TestManagerStopReleasesHolds(t *testing.T) {
	store := newRecordingStore()
	m := NewManager(store, 10*time.Minute, zap.NewNop())

	m.Start("alice", []string{"s1", "s2"})
	m.Stop(context.Background(), "alice")

	assert.Equal(t, 1, store.releaseCount("s1"))
	assert.Equal(t, 1, store.releaseCount("s2"))
	assert.False(t, m.Get("alice").Snapshot().Active)
}

func TestManagerClearReleasesNothing(t *testing.T) {
	store := newRecordingStore()
	m := NewManager(store, 10*time.Minute, zap.NewNop())

	m.Start("alice", []string{"s1", "s2"})
	m.Clear("alice")

	assert.Equal(t, 0, store.totalReleases())
	assert.False(t, m.Get("alice").Snapshot().Active)
}

func TestManagerPrunesIdleSessions(t *testing.T) {
	store := newRecordingStore()
	m := NewManager(store, 2*time.Second, zap.NewNop())

	m.Start("alice", []string{"a"})
	m.Get("bob") // created but never started

	m.tickAll()
	assert.Equal(t, 1, sessionCount(m)) // bob dropped, alice still counting

	m.tickAll() // alice's countdown hits zero
	assert.Equal(t, 0, sessionCount(m))

	// A pruned user simply gets a fresh idle session next time.
	assert.False(t, m.Get("alice").Snapshot().Active)
}

func sessionCount(m *Manager) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func TestManagerTicksEachUserIndependently(t *testing.T) {
	store := newRecordingStore()
	m := NewManager(store, 3*time.Second, zap.NewNop())

	m.Start("alice", []string{"a"})
	m.tickAll()
	m.Start("bob", []string{"b"})

	assert.Equal(t, 2, m.Get("alice").Snapshot().RemainingSeconds)
	assert.Equal(t, 3, m.Get("bob").Snapshot().RemainingSeconds)
}
