// Package session tracks one in-progress booking attempt per user: a single
// countdown budget spanning the whole multi-step flow plus the set of slot
// holds acquired along the way. When the countdown runs out, every held slot
// is released and the session resets.
package session

import (
	"fmt"
	"sort"
	"sync"
)

// Snapshot is a read-only view of a session for display and gating.
type Snapshot struct {
	Active           bool
	RemainingSeconds int
	ReservedSlotIDs  []string
}

// Countdown renders the remaining time as MM:SS.
func (s Snapshot) Countdown() string {
	return fmt.Sprintf("%02d:%02d", s.RemainingSeconds/60, s.RemainingSeconds%60)
}

// Session is the countdown state machine: Idle, or Active with a remaining
// budget and a set of reserved slot IDs. All methods are safe for concurrent
// use; the 1-second tick and user-driven mutations may interleave freely
// because slot IDs are tracked as a set and the backing hold TTL is the
// safety net for any release that lands late.
type Session struct {
	mu        sync.Mutex
	active    bool
	remaining int
	reserved  map[string]struct{}

	budget int // seconds granted on Start
}

// New creates an idle session with the given countdown budget in seconds.
func New(budgetSeconds int) *Session {
	return &Session{
		reserved: make(map[string]struct{}),
		budget:   budgetSeconds,
	}
}

// Start activates the session with the given slot IDs. Starting an already
// active session merges the IDs but leaves the countdown running: the budget
// spans the whole booking flow and is never reset by re-entering a step.
func (s *Session) Start(slotIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		s.active = true
		s.remaining = s.budget
	}
	for _, id := range slotIDs {
		s.reserved[id] = struct{}{}
	}
}

// UpdateReserved replaces the tracked slot-ID set. The countdown is not
// affected. No-op while idle.
func (s *Session) UpdateReserved(slotIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.reserved = make(map[string]struct{}, len(slotIDs))
	for _, id := range slotIDs {
		s.reserved[id] = struct{}{}
	}
}

// Add tracks one more reserved slot. No-op while idle.
func (s *Session) Add(slotID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.reserved[slotID] = struct{}{}
}

// Remove drops one slot from the tracked set.
func (s *Session) Remove(slotID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reserved, slotID)
}

// Tick advances the countdown by one second. When the budget reaches zero
// the session resets to idle and the slot IDs held at that moment are
// returned exactly once so the caller can release them.
func (s *Session) Tick() (expired []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}

	s.remaining--
	if s.remaining > 0 {
		return nil
	}

	expired = s.drainLocked()
	return expired
}

// Stop cancels the session from any state and returns the slot IDs that were
// held, which the caller must release.
func (s *Session) Stop() (released []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.drainLocked()
}

// Clear resets the session to idle WITHOUT handing back any slot IDs for
// release. Used exactly once per flow, right after the holds have been
// promoted into a confirmed booking.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.remaining = 0
	s.reserved = make(map[string]struct{})
}

// Snapshot returns the current state for display.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Active:           s.active,
		RemainingSeconds: s.remaining,
		ReservedSlotIDs:  s.sortedIDsLocked(),
	}
}

// drainLocked resets to idle and returns the previously held IDs.
// Caller must hold s.mu.
func (s *Session) drainLocked() []string {
	ids := s.sortedIDsLocked()
	s.active = false
	s.remaining = 0
	s.reserved = make(map[string]struct{})
	return ids
}

// sortedIDsLocked returns the reserved IDs in stable order.
// Caller must hold s.mu.
func (s *Session) sortedIDsLocked() []string {
	ids := make([]string, 0, len(s.reserved))
	for id := range s.reserved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
