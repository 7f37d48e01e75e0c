package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pickleplex/booking-backend/internal/court"
	"github.com/pickleplex/booking-backend/internal/lock"
	"github.com/pickleplex/booking-backend/internal/session"
	"github.com/pickleplex/booking-backend/internal/timeslot"
)

type memoryRepo struct {
	bookings map[string]*Booking
	nextID   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{bookings: make(map[string]*Booking)}
}

func (r *memoryRepo) Create(_ context.Context, b *Booking) error {
	r.nextID++
	b.ID = fmt.Sprintf("booking-%d", r.nextID)
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *memoryRepo) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	var out []*Booking
	for _, b := range r.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		clone := *b
		out = append(out, &clone)
	}
	return out, len(out), nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	return nil
}

func (r *memoryRepo) HasOverlap(_ context.Context, courtID string, start, end time.Time, excludeBookingID string) (bool, error) {
	for _, b := range r.bookings {
		if b.ID == excludeBookingID || b.CourtID != courtID || b.Status == StatusCancelled {
			continue
		}
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) ListRange(_ context.Context, courtID string, start, end time.Time) ([]*Booking, error) {
	var out []*Booking
	for _, b := range r.bookings {
		if b.CourtID != courtID || b.Status == StatusCancelled {
			continue
		}
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

type stubCourtService struct {
	c *court.Court
}

func (s *stubCourtService) Create(context.Context, court.CreateRequest) (*court.Court, error) {
	panic("not used")
}

func (s *stubCourtService) GetByID(_ context.Context, id string) (*court.Court, error) {
	if s.c == nil || s.c.ID != id {
		return nil, court.ErrNotFound
	}
	return s.c, nil
}

func (s *stubCourtService) List(context.Context, court.Filter) ([]*court.Court, int, error) {
	panic("not used")
}

func (s *stubCourtService) Update(context.Context, string, court.UpdateRequest) (*court.Court, error) {
	panic("not used")
}

func (s *stubCourtService) Delete(context.Context, string) error { panic("not used") }

type fixture struct {
	service  Service
	repo     *memoryRepo
	locks    lock.Store
	sessions *session.Manager
	court    *court.Court
	slots    []timeslot.Slot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &court.Court{
		ID:             "court-1",
		Name:           "Center Court",
		OpenTime:       "08:00",
		CloseTime:      "20:00",
		SlotMinutes:    60,
		HourlyRate:     20,
		PeakStartHour:  17,
		PeakEndHour:    20,
		PeakMultiplier: 1.5,
		IsActive:       true,
	}

	// Two days out so every slot of the day is safely in the future.
	date := time.Now().UTC().AddDate(0, 0, 2)
	slots, err := timeslot.Generate(c, date)
	require.NoError(t, err)

	repo := newMemoryRepo()
	locks := lock.NewMemoryStore()
	sessions := session.NewManager(locks, 10*time.Minute, zap.NewNop())

	return &fixture{
		service:  NewService(repo, &stubCourtService{c: c}, locks, sessions, zap.NewNop()),
		repo:     repo,
		locks:    locks,
		sessions: sessions,
		court:    c,
		slots:    slots,
	}
}

// holdSlots reserves the given slots for userID and tracks them in the session,
// the way the selection flow would before checkout.
func (f *fixture) holdSlots(t *testing.T, userID string, slots []timeslot.Slot) {
	t.Helper()
	var ids []string
	for _, sl := range slots {
		_, err := f.locks.Reserve(context.Background(), sl.ID, userID, time.Minute)
		require.NoError(t, err)
		ids = append(ids, sl.ID)
	}
	f.sessions.Start(userID, ids)
}

func TestCreatePromotesHeldSlots(t *testing.T) {
	f := newFixture(t)
	held := f.slots[2:4] // 10:00-12:00, off-peak
	f.holdSlots(t, "alice", held)

	b, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   f.court.ID,
		StartTime: held[0].StartTime,
		EndTime:   held[1].EndTime,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, 40.0, b.TotalPrice)

	// The holds were consumed, not left to expire.
	for _, sl := range held {
		hold, err := f.locks.Status(context.Background(), sl.ID)
		require.NoError(t, err)
		assert.Nil(t, hold)
	}

	// The session ends without a release round-trip.
	snap := f.sessions.Get("alice").Snapshot()
	assert.False(t, snap.Active)
	assert.Empty(t, snap.ReservedSlotIDs)
}

func TestCreateSumsPeakPricing(t *testing.T) {
	f := newFixture(t)
	held := f.slots[8:10] // 16:00-18:00: one off-peak, one peak slot
	f.holdSlots(t, "alice", held)

	b, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   f.court.ID,
		StartTime: held[0].StartTime,
		EndTime:   held[1].EndTime,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, b.TotalPrice) // 20 + 20*1.5
}

func TestCreateRequiresHolds(t *testing.T) {
	f := newFixture(t)
	sl := f.slots[0]

	_, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   f.court.ID,
		StartTime: sl.StartTime,
		EndTime:   sl.EndTime,
	})
	assert.ErrorIs(t, err, ErrSlotsNotHeld)
}

func TestCreateRejectsSlotsHeldByAnother(t *testing.T) {
	f := newFixture(t)
	held := f.slots[0:2]
	f.holdSlots(t, "alice", held[:1])
	f.holdSlots(t, "bob", held[1:])

	_, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   f.court.ID,
		StartTime: held[0].StartTime,
		EndTime:   held[1].EndTime,
	})
	assert.ErrorIs(t, err, ErrSlotsNotHeld)
}

func TestCreateRejectsMisalignedRange(t *testing.T) {
	f := newFixture(t)
	sl := f.slots[0]
	f.holdSlots(t, "alice", f.slots[0:1])

	_, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   f.court.ID,
		StartTime: sl.StartTime.Add(15 * time.Minute),
		EndTime:   sl.EndTime.Add(15 * time.Minute),
	})
	assert.ErrorIs(t, err, ErrNotAligned)
}

func TestCreateRejectsInvalidRange(t *testing.T) {
	f := newFixture(t)
	sl := f.slots[0]

	_, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   f.court.ID,
		StartTime: sl.EndTime,
		EndTime:   sl.StartTime,
	})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestCreateRejectsPastStart(t *testing.T) {
	f := newFixture(t)

	start := time.Now().UTC().Add(-2 * time.Hour)
	_, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   f.court.ID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrStartTimePast)
}

func TestCreateRejectsUnknownCourt(t *testing.T) {
	f := newFixture(t)
	sl := f.slots[0]

	_, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   "missing",
		StartTime: sl.StartTime,
		EndTime:   sl.EndTime,
	})
	assert.ErrorIs(t, err, ErrCourtNotFound)
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	sl := f.slots[0]

	f.holdSlots(t, "alice", f.slots[0:1])
	f.repo.bookings["existing"] = &Booking{
		ID:        "existing",
		CourtID:   f.court.ID,
		UserID:    "bob",
		StartTime: sl.StartTime,
		EndTime:   sl.EndTime,
		Status:    StatusConfirmed,
	}

	_, err := f.service.Create(context.Background(), CreateRequest{
		UserID:    "alice",
		CourtID:   f.court.ID,
		StartTime: sl.StartTime,
		EndTime:   sl.EndTime,
	})
	assert.ErrorIs(t, err, ErrTimeConflict)
}

func TestGetByIDEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	f.repo.bookings["b1"] = &Booking{ID: "b1", UserID: "alice", Status: StatusConfirmed}

	b, err := f.service.GetByID(context.Background(), "b1", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)

	_, err = f.service.GetByID(context.Background(), "b1", "bob", false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// System admins can read anyone's booking.
	_, err = f.service.GetByID(context.Background(), "b1", "bob", true)
	assert.NoError(t, err)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	f.repo.bookings["b1"] = &Booking{ID: "b1", UserID: "alice", Status: StatusConfirmed}

	b, err := f.service.Cancel(context.Background(), "b1", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, b.Status)

	_, err = f.service.Cancel(context.Background(), "b1", "alice", false)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCancelPermissionDenied(t *testing.T) {
	f := newFixture(t)
	f.repo.bookings["b1"] = &Booking{ID: "b1", UserID: "alice", Status: StatusConfirmed}

	_, err := f.service.Cancel(context.Background(), "b1", "bob", false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	b, err := f.service.Cancel(context.Background(), "b1", "bob", true)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, b.Status)
}

func TestCoveredSlots(t *testing.T) {
	c := &court.Court{
		ID:          "court-1",
		OpenTime:    "08:00",
		CloseTime:   "20:00",
		SlotMinutes: 60,
		HourlyRate:  20,
	}

	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	at := func(hour int) time.Time { return day.Add(time.Duration(hour) * time.Hour) }

	covered, err := coveredSlots(c, at(10), at(13))
	require.NoError(t, err)
	require.Len(t, covered, 3)
	assert.Equal(t, at(10), covered[0].StartTime)
	assert.Equal(t, at(13), covered[2].EndTime)

	// Range edges off the grid.
	_, err = coveredSlots(c, at(10).Add(30*time.Minute), at(12))
	assert.ErrorIs(t, err, ErrNotAligned)

	// Range past closing time.
	_, err = coveredSlots(c, at(19), at(21))
	assert.ErrorIs(t, err, ErrNotAligned)

	// Range before opening.
	_, err = coveredSlots(c, at(6), at(9))
	assert.ErrorIs(t, err, ErrNotAligned)
}
