// Package pricing resolves the final price of a time slot, folding the
// court's peak-hour modifier into the base hourly rate so that callers never
// see an unresolved price.
package pricing

import (
	"math"
	"time"

	"github.com/pickleplex/booking-backend/internal/court"
)

// Resolve returns the price of one slot starting at start on the given court.
// The base hourly rate is prorated to the slot length; slots starting inside
// the court's peak window are multiplied by the peak modifier.
func Resolve(c *court.Court, start time.Time) float64 {
	price := c.HourlyRate * float64(c.SlotMinutes) / 60

	if isPeak(c, start) {
		price *= c.PeakMultiplier
	}

	return round2(price)
}

func isPeak(c *court.Court, start time.Time) bool {
	if c.PeakMultiplier <= 1 || c.PeakEndHour <= c.PeakStartHour {
		return false
	}
	h := start.Hour()
	return h >= c.PeakStartHour && h < c.PeakEndHour
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
