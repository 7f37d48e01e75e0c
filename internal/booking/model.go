package booking

import (
	"net/http"
	"time"

	"github.com/pickleplex/booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrTimeConflict     = apperror.New(http.StatusConflict, "time slot already booked")
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrStartTimePast    = apperror.New(http.StatusBadRequest, "cannot create booking in the past")
	ErrNotAligned       = apperror.New(http.StatusBadRequest, "time range does not align to the court's slot grid")
	ErrSlotsNotHeld     = apperror.New(http.StatusConflict, "one or more slots are not held by you, please re-select")
	ErrCourtNotFound    = apperror.New(http.StatusNotFound, "court not found")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrAlreadyCancelled = apperror.New(http.StatusConflict, "booking is already cancelled")
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Booking struct {
	ID         string
	CourtID    string
	CourtName  string
	UserID     string
	StartTime  time.Time
	EndTime    time.Time
	TotalPrice float64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Filter struct {
	UserID    string
	CourtID   string
	Status    string
	StartTime *time.Time // Filter bookings ending after this time
	EndTime   *time.Time // Filter bookings starting before this time
	Page      int
	PageSize  int
}
