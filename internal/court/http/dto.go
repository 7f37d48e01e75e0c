package http

import (
	"time"

	"github.com/pickleplex/booking-backend/internal/court"
	"github.com/pickleplex/booking-backend/internal/pkg/request"
)

// ListCourtsRequest defines query parameters for listing courts.
type ListCourtsRequest struct {
	request.ListParams
	Surface  string `form:"surface"`
	IsActive *bool  `form:"is_active"`
}

type CreateCourtRequest struct {
	Name           string  `json:"name" binding:"required"`
	Surface        string  `json:"surface"`
	OpenTime       string  `json:"open_time" binding:"required"`
	CloseTime      string  `json:"close_time" binding:"required"`
	SlotMinutes    int     `json:"slot_minutes" binding:"required,min=15,max=240"`
	HourlyRate     float64 `json:"hourly_rate" binding:"required,gt=0"`
	PeakStartHour  int     `json:"peak_start_hour" binding:"omitempty,min=0,max=23"`
	PeakEndHour    int     `json:"peak_end_hour" binding:"omitempty,min=0,max=24"`
	PeakMultiplier float64 `json:"peak_multiplier" binding:"omitempty,gte=1"`
}

type UpdateCourtRequest struct {
	Name           *string  `json:"name"`
	Surface        *string  `json:"surface"`
	HourlyRate     *float64 `json:"hourly_rate"`
	PeakMultiplier *float64 `json:"peak_multiplier"`
	IsActive       *bool    `json:"is_active"`
}

type CourtResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Surface        string    `json:"surface"`
	OpenTime       string    `json:"open_time"`
	CloseTime      string    `json:"close_time"`
	SlotMinutes    int       `json:"slot_minutes"`
	HourlyRate     float64   `json:"hourly_rate"`
	PeakStartHour  int       `json:"peak_start_hour"`
	PeakEndHour    int       `json:"peak_end_hour"`
	PeakMultiplier float64   `json:"peak_multiplier"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CourtTag is a brief representation of a court.
type CourtTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewCourtResponse(c *court.Court) CourtResponse {
	return CourtResponse{
		ID:             c.ID,
		Name:           c.Name,
		Surface:        c.Surface,
		OpenTime:       c.OpenTime,
		CloseTime:      c.CloseTime,
		SlotMinutes:    c.SlotMinutes,
		HourlyRate:     c.HourlyRate,
		PeakStartHour:  c.PeakStartHour,
		PeakEndHour:    c.PeakEndHour,
		PeakMultiplier: c.PeakMultiplier,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
