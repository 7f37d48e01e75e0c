// Package selection mediates between the slot grid, the lock store, and the
// user's booking session: selecting a slot reserves it, deselecting releases
// it, and the final selection must form one contiguous time range.
package selection

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pickleplex/booking-backend/internal/booking"
	"github.com/pickleplex/booking-backend/internal/court"
	"github.com/pickleplex/booking-backend/internal/lock"
	"github.com/pickleplex/booking-backend/internal/pkg/apperror"
	"github.com/pickleplex/booking-backend/internal/session"
	"github.com/pickleplex/booking-backend/internal/timeslot"
)

var (
	ErrSlotUnavailable = apperror.New(http.StatusConflict, "slot is no longer available, please refresh and re-select")
	ErrSlotBusy        = apperror.New(http.StatusConflict, "another operation on this slot is still in progress")
	ErrNotContiguous   = apperror.New(http.StatusBadRequest, "please select consecutive time slots")
	ErrNoSlotsSelected = apperror.New(http.StatusBadRequest, "no slots selected")
	ErrCourtInactive   = apperror.New(http.StatusNotFound, "court is not open for booking")
)

type Service interface {
	// LoadSlots returns the slot grid for a court and date, decorated with
	// availability and lock state for the viewing user, and (re)enters the
	// user into the booking session with any slots they already hold.
	LoadSlots(ctx context.Context, userID, courtID string, date time.Time) ([]timeslot.View, error)

	// Select reserves one slot for the user and tracks it in the session.
	// On any failure nothing is tracked, so there is no local state to roll
	// back beyond surfacing the error.
	Select(ctx context.Context, userID, slotID string, ttl time.Duration) (*lock.Hold, error)

	// Deselect releases one slot. The slot always leaves the session, even
	// when the remote release fails: a dangling hold expires on its own.
	Deselect(ctx context.Context, userID, slotID string) error

	// Extend renews the hold on one selected slot.
	Extend(ctx context.Context, userID, slotID string, ttl time.Duration) (*lock.Hold, error)

	// HoldStatus reports the current hold on a slot.
	HoldStatus(ctx context.Context, slotID string) (*lock.Hold, error)

	// ReleaseAll drops every hold of the user and resets their session.
	// Used on cancel and date change; local state clears regardless of
	// gateway outcome.
	ReleaseAll(ctx context.Context, userID string) error

	// ValidateSelection checks that the chosen start times form one
	// contiguous run on the court's slot grid before the flow may proceed.
	ValidateSelection(ctx context.Context, courtID string, starts []time.Time) error
}

type service struct {
	courts   court.Service
	bookings booking.Repository
	locks    lock.Store
	index    timeslot.Index
	sessions *session.Manager
	log      *zap.Logger

	indexTTL time.Duration

	// inflight guards against overlapping reserve/release calls for the
	// same slot by the same user.
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewService(
	courts court.Service,
	bookings booking.Repository,
	locks lock.Store,
	index timeslot.Index,
	sessions *session.Manager,
	indexTTL time.Duration,
	log *zap.Logger,
) Service {
	return &service{
		courts:   courts,
		bookings: bookings,
		locks:    locks,
		index:    index,
		sessions: sessions,
		log:      log,
		indexTTL: indexTTL,
		inflight: make(map[string]struct{}),
	}
}

func (s *service) LoadSlots(ctx context.Context, userID, courtID string, date time.Time) ([]timeslot.View, error) {
	c, err := s.courts.GetByID(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrCourtInactive
	}

	slots, err := timeslot.Generate(c, date)
	if err != nil {
		return nil, err
	}

	// Register the grid so bare slot IDs stay resolvable for reserve calls.
	if err := s.index.Save(ctx, slots, s.indexTTL); err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	booked, err := s.bookings.ListRange(ctx, courtID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	views := make([]timeslot.View, 0, len(slots))
	var mine []string
	for _, sl := range slots {
		v := timeslot.View{Slot: sl, Available: !overlapsAny(sl, booked)}

		hold, err := s.locks.Status(ctx, sl.ID)
		if err != nil {
			return nil, err
		}
		if hold != nil {
			v.Locked = true
			v.LockedBy = hold.UserID
			v.LockedByMe = hold.UserID == userID
			if v.LockedByMe {
				mine = append(mine, sl.ID)
			}
		}

		views = append(views, v)
	}

	// Entering the screen starts (or re-joins) the session; slots already
	// held by this user are reconciled back into it.
	s.sessions.Start(userID, mine)

	return views, nil
}

func (s *service) Select(ctx context.Context, userID, slotID string, ttl time.Duration) (*lock.Hold, error) {
	if err := s.acquireSlot(slotID, userID); err != nil {
		return nil, err
	}
	defer s.releaseSlot(slotID, userID)

	sl, err := s.index.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}

	// Selectable only when no confirmed booking covers the slot and nobody
	// else holds it. The reserve call re-checks the hold atomically; this
	// check exists to fail with the right message before touching the lock.
	conflict, err := s.bookings.HasOverlap(ctx, sl.CourtID, sl.StartTime, sl.EndTime, "")
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrSlotUnavailable
	}

	hold, err := s.locks.Reserve(ctx, slotID, userID, ttl)
	if err != nil {
		// Nothing was added to the session, so the selection is already
		// rolled back from the user's point of view.
		return nil, err
	}

	s.sessions.Start(userID, nil)
	s.sessions.Get(userID).Add(slotID)

	return hold, nil
}

func (s *service) Deselect(ctx context.Context, userID, slotID string) error {
	if err := s.acquireSlot(slotID, userID); err != nil {
		return err
	}
	defer s.releaseSlot(slotID, userID)

	if err := s.locks.Release(ctx, slotID, userID); err != nil {
		// Best effort: the hold TTL is the fallback. Deselection must never
		// fail from the user's point of view.
		s.log.Warn("failed to release slot hold on deselect",
			zap.String("slot_id", slotID),
			zap.String("user_id", userID),
			zap.Error(err))
	}

	s.sessions.Get(userID).Remove(slotID)
	return nil
}

func (s *service) Extend(ctx context.Context, userID, slotID string, ttl time.Duration) (*lock.Hold, error) {
	return s.locks.Extend(ctx, slotID, userID, ttl)
}

func (s *service) HoldStatus(ctx context.Context, slotID string) (*lock.Hold, error) {
	return s.locks.Status(ctx, slotID)
}

func (s *service) ReleaseAll(ctx context.Context, userID string) error {
	ids := s.sessions.Get(userID).Stop()
	if len(ids) == 0 {
		return nil
	}

	if err := lock.ReleaseMany(ctx, s.locks, userID, ids); err != nil {
		// Session state is already cleared; the user is not stuck on a
		// half-released selection.
		s.log.Warn("failed to release all slot holds",
			zap.String("user_id", userID),
			zap.Int("slots", len(ids)),
			zap.Error(err))
	}
	return nil
}

func (s *service) ValidateSelection(ctx context.Context, courtID string, starts []time.Time) error {
	if len(starts) == 0 {
		return ErrNoSlotsSelected
	}

	c, err := s.courts.GetByID(ctx, courtID)
	if err != nil {
		return err
	}

	if !ValidateContiguous(starts, c.SlotMinutes) {
		return ErrNotContiguous
	}
	return nil
}

// ValidateContiguous reports whether the given slot start times, sorted
// ascending, form one unbroken run of slotMinutes-long slots.
func ValidateContiguous(starts []time.Time, slotMinutes int) bool {
	if len(starts) == 0 {
		return false
	}

	sorted := make([]time.Time, len(starts))
	copy(sorted, starts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	step := time.Duration(slotMinutes) * time.Minute
	for i := 1; i < len(sorted); i++ {
		if !sorted[i].Equal(sorted[i-1].Add(step)) {
			return false
		}
	}
	return true
}

func overlapsAny(sl timeslot.Slot, bookings []*booking.Booking) bool {
	for _, b := range bookings {
		if b.Status == booking.StatusCancelled {
			continue
		}
		if sl.StartTime.Before(b.EndTime) && sl.EndTime.After(b.StartTime) {
			return true
		}
	}
	return false
}

func (s *service) acquireSlot(slotID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "|" + slotID
	if _, busy := s.inflight[key]; busy {
		return ErrSlotBusy
	}
	s.inflight[key] = struct{}{}
	return nil
}

func (s *service) releaseSlot(slotID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, userID+"|"+slotID)
}
