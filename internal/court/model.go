package court

import (
	"net/http"
	"time"

	"github.com/pickleplex/booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "court not found")
	ErrEmptyName        = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrInvalidHours     = apperror.New(http.StatusBadRequest, "open time must be before close time")
	ErrInvalidSlotSize  = apperror.New(http.StatusBadRequest, "slot length must divide the open hours evenly")
	ErrInvalidRate      = apperror.New(http.StatusBadRequest, "hourly rate must be positive")
	ErrInvalidPeakHours = apperror.New(http.StatusBadRequest, "invalid peak hour window")
)

// Court represents one bookable pickleball court.
// OpenTime and CloseTime are wall-clock strings ("HH:MM" or "HH:MM:SS").
type Court struct {
	ID          string
	Name        string
	Surface     string
	OpenTime    string
	CloseTime   string
	SlotMinutes int
	HourlyRate  float64

	// Peak pricing window: slots starting within [PeakStartHour, PeakEndHour)
	// are charged HourlyRate * PeakMultiplier.
	PeakStartHour  int
	PeakEndHour    int
	PeakMultiplier float64

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter defines parameters for listing courts.
type Filter struct {
	Surface  string
	IsActive *bool
	Page     int
	PageSize int
}

// ParseClock parses a wall-clock string in "HH:MM" or "HH:MM:SS" form.
func ParseClock(s string) (time.Duration, error) {
	layouts := []string{"15:04:05", "15:04"}

	var t time.Time
	var err error
	for _, layout := range layouts {
		t, err = time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, err
}
