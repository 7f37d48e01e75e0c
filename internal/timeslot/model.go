package timeslot

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pickleplex/booking-backend/internal/court"
	"github.com/pickleplex/booking-backend/internal/pkg/apperror"
	"github.com/pickleplex/booking-backend/internal/pricing"
)

var (
	ErrSlotNotFound = apperror.New(http.StatusNotFound, "time slot not found or no longer offered")
	ErrInvalidDate  = apperror.New(http.StatusBadRequest, "invalid date")
)

// slotIDNamespace seeds the deterministic slot ID derivation.
var slotIDNamespace = uuid.MustParse("7f1cf1f4-64c5-4f14-9d9e-3a7b1d6a9b02")

// Slot is one bookable unit of time on a court. IDs are derived from the
// court and start time, so the same slot always resolves to the same ID
// across requests.
type Slot struct {
	ID        string    `json:"id"`
	CourtID   string    `json:"court_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Price     float64   `json:"price"`
}

// View decorates a Slot with its availability and lock state for one viewer.
type View struct {
	Slot
	Available  bool   `json:"available"`
	Locked     bool   `json:"locked"`
	LockedByMe bool   `json:"locked_by_me"`
	LockedBy   string `json:"-"`
}

// SlotID derives the stable, opaque identifier for a court/start-time pair.
func SlotID(courtID string, start time.Time) string {
	return uuid.NewSHA1(slotIDNamespace, []byte(courtID+"|"+start.UTC().Format(time.RFC3339))).String()
}

// Generate produces the full slot grid for a court on one date, with
// resolved prices. Returns nil when the court's hours cannot be parsed.
func Generate(c *court.Court, date time.Time) ([]Slot, error) {
	open, err := court.ParseClock(c.OpenTime)
	if err != nil {
		return nil, apperror.Wrap(err, http.StatusInternalServerError, "invalid court open time")
	}
	close_, err := court.ParseClock(c.CloseTime)
	if err != nil {
		return nil, apperror.Wrap(err, http.StatusInternalServerError, "invalid court close time")
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	slotLen := time.Duration(c.SlotMinutes) * time.Minute

	var slots []Slot
	for start := day.Add(open); start.Add(slotLen).Sub(day) <= close_; start = start.Add(slotLen) {
		slots = append(slots, Slot{
			ID:        SlotID(c.ID, start),
			CourtID:   c.ID,
			StartTime: start,
			EndTime:   start.Add(slotLen),
			Price:     pricing.Resolve(c, start),
		})
	}

	return slots, nil
}
