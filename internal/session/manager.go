package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pickleplex/booking-backend/internal/lock"
)

// Manager owns one Session per user and drives every active countdown with a
// shared 1-second ticker. It is handed to components through the container
// rather than kept as a package global, so "one session per user" is scoped
// by the Manager instance.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	budgetSeconds int
	locks         lock.Store
	log           *zap.Logger
}

// NewManager creates a Manager releasing expired holds through locks.
func NewManager(locks lock.Store, budget time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		sessions:      make(map[string]*Session),
		budgetSeconds: int(budget.Seconds()),
		locks:         locks,
		log:           log,
	}
}

// Get returns the user's session, creating an idle one on first use.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getLocked(userID)
}

// getLocked looks up or creates the user's session. Caller must hold m.mu.
func (m *Manager) getLocked(userID string) *Session {
	s, ok := m.sessions[userID]
	if !ok {
		s = New(m.budgetSeconds)
		m.sessions[userID] = s
	}
	return s
}

// Start activates (or merges into) the user's session. Lookup and activation
// happen under the manager lock so a concurrent tick cannot prune the session
// in between.
func (m *Manager) Start(userID string, slotIDs []string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(userID)
	s.Start(slotIDs)
	return s
}

// Stop cancels the user's session and releases every held slot. Release
// failures do not block the caller; they are logged and the hold TTL cleans
// up after us.
func (m *Manager) Stop(ctx context.Context, userID string) {
	s := m.Get(userID)
	m.releaseAll(ctx, userID, s.Stop())
}

// Clear resets the user's session without releasing holds. Used after the
// holds have been promoted into a booking.
func (m *Manager) Clear(userID string) {
	m.Get(userID).Clear()
}

// Run drives all active countdowns until ctx is cancelled. Expiry releases
// are fire-and-forget so a slow lock store cannot stall the tick.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tickAll()
		}
	}
}

func (m *Manager) tickAll() {
	m.mu.Lock()
	type expiry struct {
		userID string
		ids    []string
	}
	var expired []expiry
	for userID, s := range m.sessions {
		if ids := s.Tick(); len(ids) > 0 {
			expired = append(expired, expiry{userID: userID, ids: ids})
		}
		// Idle sessions carry no state, so dropping them keeps the map
		// bounded by currently active users. Get recreates on demand.
		if !s.Snapshot().Active {
			delete(m.sessions, userID)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		go func(e expiry) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			m.log.Info("booking session expired, releasing holds",
				zap.String("user_id", e.userID),
				zap.Int("slots", len(e.ids)))
			m.releaseAll(ctx, e.userID, e.ids)
		}(e)
	}
}

// releaseAll is best-effort: the error is logged and discarded because a
// dangling hold expires on its own.
func (m *Manager) releaseAll(ctx context.Context, userID string, slotIDs []string) {
	if len(slotIDs) == 0 {
		return
	}
	if err := lock.ReleaseMany(ctx, m.locks, userID, slotIDs); err != nil {
		m.log.Warn("failed to release slot holds",
			zap.String("user_id", userID),
			zap.Int("slots", len(slotIDs)),
			zap.Error(err))
	}
}
