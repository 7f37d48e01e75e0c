// Package lock implements TTL-bound holds on time slots. A hold keeps a slot
// out of other users' reach while its owner walks through the booking flow;
// an unrenewed hold expires on its own, so an abandoned flow self-heals.
package lock

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pickleplex/booking-backend/internal/pkg/apperror"
)

var (
	ErrConflict = apperror.New(http.StatusConflict, "slot is held by another user")
	ErrNotHeld  = apperror.New(http.StatusNotFound, "no active hold on this slot")
)

// Hold is one user's time-bounded claim on one slot.
type Hold struct {
	SlotID    string
	UserID    string
	ExpiresAt time.Time
}

// Store manages slot holds. Implementations must be safe for concurrent use.
type Store interface {
	// Reserve places an exclusive hold on slotID for userID. Re-reserving a
	// slot already held by the same user refreshes the TTL. Returns
	// ErrConflict when another user holds the slot.
	Reserve(ctx context.Context, slotID, userID string, ttl time.Duration) (*Hold, error)

	// Release drops the hold on slotID if userID owns it. Releasing a slot
	// with no hold, or one held by someone else, is a no-op: callers treat
	// release as idempotent.
	Release(ctx context.Context, slotID, userID string) error

	// Extend renews the TTL of an existing hold. Returns ErrNotHeld when
	// userID has no current hold on the slot.
	Extend(ctx context.Context, slotID, userID string, ttl time.Duration) (*Hold, error)

	// Status reports the current hold on slotID, or nil when unlocked.
	Status(ctx context.Context, slotID string) (*Hold, error)
}

// ReleaseMany releases every given slot ID. All IDs are attempted even when
// some fail; successful releases are not rolled back since unreleased holds
// expire on their own. The first failure is reported.
func ReleaseMany(ctx context.Context, s Store, userID string, slotIDs []string) error {
	var firstErr error
	for _, id := range slotIDs {
		if err := s.Release(ctx, id, userID); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release slot %s failed: %w", id, err)
		}
	}
	return firstErr
}
