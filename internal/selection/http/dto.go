package http

import (
	"math"
	"time"

	"github.com/pickleplex/booking-backend/internal/lock"
	"github.com/pickleplex/booking-backend/internal/session"
	"github.com/pickleplex/booking-backend/internal/timeslot"
)

// ListSlotsRequest defines query parameters for the slot grid.
type ListSlotsRequest struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// ReserveRequest defines the optional hold TTL override in minutes.
type ReserveRequest struct {
	Minutes int `form:"minutes" binding:"omitempty,min=1,max=30"`
}

// ValidateSelectionRequest carries the chosen slot start times.
type ValidateSelectionRequest struct {
	CourtID    string      `json:"court_id" binding:"required,uuid"`
	StartTimes []time.Time `json:"start_times" binding:"required"`
}

type SlotResponse struct {
	ID         string    `json:"id"`
	CourtID    string    `json:"court_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Price      float64   `json:"price"`
	Available  bool      `json:"available"`
	Locked     bool      `json:"locked"`
	LockedByMe bool      `json:"locked_by_me"`
}

func NewSlotResponse(v timeslot.View) SlotResponse {
	return SlotResponse{
		ID:         v.ID,
		CourtID:    v.CourtID,
		StartTime:  v.StartTime,
		EndTime:    v.EndTime,
		Price:      v.Price,
		Available:  v.Available,
		Locked:     v.Locked,
		LockedByMe: v.LockedByMe,
	}
}

type HoldResponse struct {
	SlotID           string    `json:"slot_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresInMinutes int       `json:"expires_in_minutes"`
}

func NewHoldResponse(h *lock.Hold) HoldResponse {
	return HoldResponse{
		SlotID:           h.SlotID,
		ExpiresAt:        h.ExpiresAt,
		ExpiresInMinutes: int(math.Ceil(time.Until(h.ExpiresAt).Minutes())),
	}
}

type HoldStatusResponse struct {
	SlotID   string `json:"slot_id"`
	IsLocked bool   `json:"is_locked"`
}

// SessionResponse is the reactive surface of the booking session: the
// countdown banner text, the active flag, and the held slot IDs.
type SessionResponse struct {
	Active           bool     `json:"active"`
	RemainingSeconds int      `json:"remaining_seconds"`
	Countdown        string   `json:"countdown"`
	ReservedSlotIDs  []string `json:"reserved_slot_ids"`
}

func NewSessionResponse(snap session.Snapshot) SessionResponse {
	ids := snap.ReservedSlotIDs
	if ids == nil {
		ids = make([]string, 0)
	}
	return SessionResponse{
		Active:           snap.Active,
		RemainingSeconds: snap.RemainingSeconds,
		Countdown:        snap.Countdown(),
		ReservedSlotIDs:  ids,
	}
}
