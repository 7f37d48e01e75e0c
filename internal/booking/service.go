package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pickleplex/booking-backend/internal/court"
	"github.com/pickleplex/booking-backend/internal/lock"
	"github.com/pickleplex/booking-backend/internal/session"
	"github.com/pickleplex/booking-backend/internal/timeslot"
)

type CreateRequest struct {
	UserID    string
	CourtID   string
	StartTime time.Time
	EndTime   time.Time
}

type Service interface {
	// Create promotes the caller's slot holds into a confirmed booking. The
	// requested range must map onto the court's slot grid and every covered
	// slot must currently be held by the caller. On success the holds are
	// consumed and the caller's booking session is cleared without any
	// further release round-trip.
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string, requesterID string, isSysAdmin bool) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Cancel(ctx context.Context, id string, requesterID string, isSysAdmin bool) (*Booking, error)
}

type service struct {
	repo      Repository
	ctService court.Service
	locks     lock.Store
	sessions  *session.Manager
	log       *zap.Logger
}

func NewService(repo Repository, ctService court.Service, locks lock.Store, sessions *session.Manager, log *zap.Logger) Service {
	return &service{
		repo:      repo,
		ctService: ctService,
		locks:     locks,
		sessions:  sessions,
		log:       log,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if req.EndTime.Before(req.StartTime) || req.EndTime.Equal(req.StartTime) {
		return nil, ErrInvalidTimeRange
	}
	if req.StartTime.Before(time.Now().UTC()) {
		return nil, ErrStartTimePast
	}

	c, err := s.ctService.GetByID(ctx, req.CourtID)
	if err != nil {
		return nil, ErrCourtNotFound
	}

	// Map the requested range back onto the court's slot grid. A range that
	// does not cover whole grid slots end to end cannot be booked.
	covered, err := coveredSlots(c, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	// Every covered slot must be held by the requester; the multi-step flow
	// reserves them one by one before reaching this point.
	for _, sl := range covered {
		hold, err := s.locks.Status(ctx, sl.ID)
		if err != nil {
			return nil, err
		}
		if hold == nil || hold.UserID != req.UserID {
			return nil, ErrSlotsNotHeld
		}
	}

	hasOverlap, err := s.repo.HasOverlap(ctx, req.CourtID, req.StartTime, req.EndTime, "")
	if err != nil {
		return nil, err
	}
	if hasOverlap {
		return nil, ErrTimeConflict
	}

	var total float64
	for _, sl := range covered {
		total += sl.Price
	}

	b := &Booking{
		CourtID:    req.CourtID,
		UserID:     req.UserID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		TotalPrice: total,
		Status:     StatusConfirmed,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	// The holds are now backed by a real booking. Consuming them is best
	// effort: a leftover hold only shadows a slot that is unavailable anyway
	// and expires on its own.
	ids := make([]string, len(covered))
	for i, sl := range covered {
		ids[i] = sl.ID
	}
	if err := lock.ReleaseMany(ctx, s.locks, req.UserID, ids); err != nil {
		s.log.Warn("failed to consume promoted slot holds",
			zap.String("booking_id", b.ID),
			zap.String("user_id", req.UserID),
			zap.Error(err))
	}

	// Clear, not Stop: the session ends without releasing anything further.
	s.sessions.Clear(req.UserID)

	return b, nil
}

func (s *service) GetByID(ctx context.Context, id string, requesterID string, isSysAdmin bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != requesterID && !isSysAdmin {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Cancel(ctx context.Context, id string, requesterID string, isSysAdmin bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if b.UserID != requesterID && !isSysAdmin {
		return nil, ErrPermissionDenied
	}
	if b.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	b.Status = StatusCancelled
	return b, nil
}

// coveredSlots regenerates the slot grid for the booking day and returns the
// slots exactly covering [start, end). ErrNotAligned when the range does not
// land on slot boundaries.
func coveredSlots(c *court.Court, start, end time.Time) ([]timeslot.Slot, error) {
	grid, err := timeslot.Generate(c, start)
	if err != nil {
		return nil, err
	}

	var covered []timeslot.Slot
	for _, sl := range grid {
		if !sl.StartTime.Before(start) && !sl.EndTime.After(end) {
			covered = append(covered, sl)
		}
	}

	if len(covered) == 0 {
		return nil, ErrNotAligned
	}

	// The covered slots must tile the range exactly.
	if !covered[0].StartTime.Equal(start) || !covered[len(covered)-1].EndTime.Equal(end) {
		return nil, ErrNotAligned
	}
	for i := 1; i < len(covered); i++ {
		if !covered[i].StartTime.Equal(covered[i-1].EndTime) {
			return nil, ErrNotAligned
		}
	}

	return covered, nil
}
