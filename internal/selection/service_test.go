package selection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pickleplex/booking-backend/internal/booking"
	"github.com/pickleplex/booking-backend/internal/court"
	"github.com/pickleplex/booking-backend/internal/lock"
	"github.com/pickleplex/booking-backend/internal/session"
	"github.com/pickleplex/booking-backend/internal/timeslot"
)

type stubCourtService struct {
	courts map[string]*court.Court
}

func (s *stubCourtService) Create(context.Context, court.CreateRequest) (*court.Court, error) {
	panic("not used")
}

func (s *stubCourtService) GetByID(_ context.Context, id string) (*court.Court, error) {
	c, ok := s.courts[id]
	if !ok {
		return nil, court.ErrNotFound
	}
	return c, nil
}

func (s *stubCourtService) List(context.Context, court.Filter) ([]*court.Court, int, error) {
	panic("not used")
}

func (s *stubCourtService) Update(context.Context, string, court.UpdateRequest) (*court.Court, error) {
	panic("not used")
}

func (s *stubCourtService) Delete(context.Context, string) error {
	panic("not used")
}

type stubBookingRepo struct {
	booked []*booking.Booking
}

func (r *stubBookingRepo) Create(context.Context, *booking.Booking) error { panic("not used") }

func (r *stubBookingRepo) GetByID(context.Context, string) (*booking.Booking, error) {
	panic("not used")
}

func (r *stubBookingRepo) List(context.Context, booking.Filter) ([]*booking.Booking, int, error) {
	panic("not used")
}

func (r *stubBookingRepo) UpdateStatus(context.Context, string, booking.Status) error {
	panic("not used")
}

func (r *stubBookingRepo) HasOverlap(_ context.Context, courtID string, start, end time.Time, _ string) (bool, error) {
	for _, b := range r.booked {
		if b.CourtID == courtID && b.Status != booking.StatusCancelled &&
			start.Before(b.EndTime) && end.After(b.StartTime) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubBookingRepo) ListRange(_ context.Context, courtID string, start, end time.Time) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range r.booked {
		if b.CourtID == courtID && b.Status != booking.StatusCancelled &&
			b.StartTime.Before(end) && b.EndTime.After(start) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fixture struct {
	service  Service
	locks    lock.Store
	sessions *session.Manager
	bookings *stubBookingRepo
	court    *court.Court
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLocks(t, lock.NewMemoryStore())
}

func newFixtureWithLocks(t *testing.T, locks lock.Store) *fixture {
	t.Helper()

	c := &court.Court{
		ID:          "court-1",
		Name:        "Center Court",
		OpenTime:    "08:00",
		CloseTime:   "20:00",
		SlotMinutes: 60,
		HourlyRate:  20,
		IsActive:    true,
	}

	bookings := &stubBookingRepo{}
	sessions := session.NewManager(locks, 10*time.Minute, zap.NewNop())

	svc := NewService(
		&stubCourtService{courts: map[string]*court.Court{c.ID: c}},
		bookings,
		locks,
		timeslot.NewMemoryIndex(),
		sessions,
		24*time.Hour,
		zap.NewNop(),
	)

	return &fixture{service: svc, locks: locks, sessions: sessions, bookings: bookings, court: c}
}

var testDate = time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

func (f *fixture) loadSlots(t *testing.T, userID string) []timeslot.View {
	t.Helper()
	views, err := f.service.LoadSlots(context.Background(), userID, f.court.ID, testDate)
	require.NoError(t, err)
	require.NotEmpty(t, views)
	return views
}

func TestLoadSlotsDecoratesAvailability(t *testing.T) {
	f := newFixture(t)
	f.bookings.booked = []*booking.Booking{{
		CourtID:   f.court.ID,
		StartTime: time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC),
		Status:    booking.StatusConfirmed,
	}}

	views := f.loadSlots(t, "alice")
	require.Len(t, views, 12)

	assert.True(t, views[0].Available)  // 08:00
	assert.False(t, views[1].Available) // 09:00 is booked
	assert.True(t, views[2].Available)  // 10:00
}

func TestLoadSlotsMarksLocks(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	_, err := f.locks.Reserve(context.Background(), views[0].ID, "alice", time.Minute)
	require.NoError(t, err)
	_, err = f.locks.Reserve(context.Background(), views[1].ID, "bob", time.Minute)
	require.NoError(t, err)

	views = f.loadSlots(t, "alice")

	assert.True(t, views[0].Locked)
	assert.True(t, views[0].LockedByMe)
	assert.True(t, views[1].Locked)
	assert.False(t, views[1].LockedByMe)
	assert.False(t, views[2].Locked)
}

func TestLoadSlotsReconcilesHeldSlotsIntoSession(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	_, err := f.locks.Reserve(context.Background(), views[0].ID, "alice", time.Minute)
	require.NoError(t, err)

	f.loadSlots(t, "alice")

	snap := f.sessions.Get("alice").Snapshot()
	assert.True(t, snap.Active)
	assert.Equal(t, []string{views[0].ID}, snap.ReservedSlotIDs)
}

func TestLoadSlotsInactiveCourt(t *testing.T) {
	f := newFixture(t)
	f.court.IsActive = false

	_, err := f.service.LoadSlots(context.Background(), "alice", f.court.ID, testDate)
	assert.ErrorIs(t, err, ErrCourtInactive)
}

func TestSelectReservesAndTracks(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	hold, err := f.service.Select(context.Background(), "alice", views[0].ID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "alice", hold.UserID)
	assert.Equal(t, views[0].ID, hold.SlotID)

	snap := f.sessions.Get("alice").Snapshot()
	assert.True(t, snap.Active)
	assert.Contains(t, snap.ReservedSlotIDs, views[0].ID)
}

func TestSelectStaleSlotID(t *testing.T) {
	f := newFixture(t)

	// Never loaded, so the ID resolves to nothing.
	_, err := f.service.Select(context.Background(), "alice", "00000000-0000-0000-0000-000000000000", time.Minute)
	assert.ErrorIs(t, err, timeslot.ErrSlotNotFound)
}

func TestSelectConflictLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	_, err := f.locks.Reserve(context.Background(), views[0].ID, "bob", time.Minute)
	require.NoError(t, err)

	_, err = f.service.Select(context.Background(), "alice", views[0].ID, time.Minute)
	assert.ErrorIs(t, err, lock.ErrConflict)

	snap := f.sessions.Get("alice").Snapshot()
	assert.NotContains(t, snap.ReservedSlotIDs, views[0].ID)
}

// gatedStore parks Reserve calls until released so a test can hold one call
// in flight while issuing others.
type gatedStore struct {
	lock.Store
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Reserve(ctx context.Context, slotID, userID string, ttl time.Duration) (*lock.Hold, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.Store.Reserve(ctx, slotID, userID, ttl)
}

func TestSelectWhileSameSlotInFlight(t *testing.T) {
	locks := &gatedStore{
		Store:   lock.NewMemoryStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixtureWithLocks(t, locks)
	views := f.loadSlots(t, "alice")
	slotID := views[0].ID

	done := make(chan error, 1)
	go func() {
		_, err := f.service.Select(context.Background(), "alice", slotID, time.Minute)
		done <- err
	}()
	<-locks.entered // the first call now sits inside Reserve

	// Overlapping operations on the same user+slot are rejected, not queued.
	_, err := f.service.Select(context.Background(), "alice", slotID, time.Minute)
	assert.ErrorIs(t, err, ErrSlotBusy)

	err = f.service.Deselect(context.Background(), "alice", slotID)
	assert.ErrorIs(t, err, ErrSlotBusy)

	// The rejected call must not have tracked anything.
	assert.NotContains(t, f.sessions.Get("alice").Snapshot().ReservedSlotIDs, slotID)

	close(locks.release)
	require.NoError(t, <-done)

	snap := f.sessions.Get("alice").Snapshot()
	assert.Contains(t, snap.ReservedSlotIDs, slotID)

	// Once the first call has finished the slot is operable again.
	require.NoError(t, f.service.Deselect(context.Background(), "alice", slotID))
	assert.NotContains(t, f.sessions.Get("alice").Snapshot().ReservedSlotIDs, slotID)
}

func TestSelectBookedSlot(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	f.bookings.booked = []*booking.Booking{{
		CourtID:   f.court.ID,
		StartTime: views[0].StartTime,
		EndTime:   views[0].EndTime,
		Status:    booking.StatusConfirmed,
	}}

	_, err := f.service.Select(context.Background(), "alice", views[0].ID, time.Minute)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestDeselectReleasesAndUntracks(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	_, err := f.service.Select(context.Background(), "alice", views[0].ID, time.Minute)
	require.NoError(t, err)

	require.NoError(t, f.service.Deselect(context.Background(), "alice", views[0].ID))

	hold, err := f.locks.Status(context.Background(), views[0].ID)
	require.NoError(t, err)
	assert.Nil(t, hold)

	snap := f.sessions.Get("alice").Snapshot()
	assert.NotContains(t, snap.ReservedSlotIDs, views[0].ID)
}

func TestDeselectNeverFails(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	// Nothing selected, nothing held; still succeeds.
	assert.NoError(t, f.service.Deselect(context.Background(), "alice", views[0].ID))
}

func TestExtendRenewsOwnHoldOnly(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	_, err := f.service.Select(context.Background(), "alice", views[0].ID, time.Minute)
	require.NoError(t, err)

	before, err := f.locks.Status(context.Background(), views[0].ID)
	require.NoError(t, err)

	hold, err := f.service.Extend(context.Background(), "alice", views[0].ID, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, hold.ExpiresAt.After(before.ExpiresAt))

	_, err = f.service.Extend(context.Background(), "bob", views[0].ID, 10*time.Minute)
	assert.ErrorIs(t, err, lock.ErrNotHeld)
}

func TestReleaseAll(t *testing.T) {
	f := newFixture(t)
	views := f.loadSlots(t, "alice")

	for _, v := range views[:3] {
		_, err := f.service.Select(context.Background(), "alice", v.ID, time.Minute)
		require.NoError(t, err)
	}

	require.NoError(t, f.service.ReleaseAll(context.Background(), "alice"))

	for _, v := range views[:3] {
		hold, err := f.locks.Status(context.Background(), v.ID)
		require.NoError(t, err)
		assert.Nil(t, hold)
	}

	snap := f.sessions.Get("alice").Snapshot()
	assert.False(t, snap.Active)
	assert.Empty(t, snap.ReservedSlotIDs)
}

func TestReleaseAllIdleSession(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.service.ReleaseAll(context.Background(), "alice"))
}

func TestValidateSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := func(hour int) time.Time {
		return time.Date(2026, 9, 10, hour, 0, 0, 0, time.UTC)
	}

	err := f.service.ValidateSelection(ctx, f.court.ID, []time.Time{at(17), at(18), at(19)})
	assert.NoError(t, err)

	// Order of selection does not matter.
	err = f.service.ValidateSelection(ctx, f.court.ID, []time.Time{at(19), at(17), at(18)})
	assert.NoError(t, err)

	err = f.service.ValidateSelection(ctx, f.court.ID, []time.Time{at(17), at(19)})
	assert.ErrorIs(t, err, ErrNotContiguous)

	err = f.service.ValidateSelection(ctx, f.court.ID, nil)
	assert.ErrorIs(t, err, ErrNoSlotsSelected)
}

func TestValidateContiguous(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2026, 9, 10, hour, min, 0, 0, time.UTC)
	}

	tests := []struct {
		name        string
		starts      []time.Time
		slotMinutes int
		want        bool
	}{
		{"single slot", []time.Time{at(5, 0)}, 60, true},
		{"consecutive hours", []time.Time{at(5, 0), at(6, 0), at(7, 0)}, 60, true},
		{"gap", []time.Time{at(5, 0), at(7, 0)}, 60, false},
		{"unsorted but contiguous", []time.Time{at(7, 0), at(5, 0), at(6, 0)}, 60, true},
		{"half-hour slots", []time.Time{at(5, 0), at(5, 30), at(6, 0)}, 30, true},
		{"half-hour gap", []time.Time{at(5, 0), at(6, 0)}, 30, false},
		{"duplicate start", []time.Time{at(5, 0), at(5, 0)}, 60, false},
		{"empty", nil, 60, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateContiguous(tt.starts, tt.slotMinutes))
		})
	}
}
