package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pickleplex/booking-backend/internal/auth"
	"github.com/pickleplex/booking-backend/internal/pkg/response"
	"github.com/pickleplex/booking-backend/internal/selection"
	"github.com/pickleplex/booking-backend/internal/session"
)

type Handler struct {
	service  selection.Service
	sessions *session.Manager

	// defaultHoldTTL applies when a reserve call does not override minutes.
	defaultHoldTTL time.Duration
}

func NewHandler(service selection.Service, sessions *session.Manager, defaultHoldTTL time.Duration) *Handler {
	return &Handler{
		service:        service,
		sessions:       sessions,
		defaultHoldTTL: defaultHoldTTL,
	}
}

// ListSlots returns the slot grid for one court and date.
func (h *Handler) ListSlots(c *gin.Context) {
	courtID := c.Param("id")
	if _, err := uuid.Parse(courtID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var req ListSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	userID := auth.GetUserID(c)

	views, err := h.service.LoadSlots(c.Request.Context(), userID, courtID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(views))
	for i, v := range views {
		items[i] = NewSlotResponse(v)
	}

	c.JSON(http.StatusOK, gin.H{"date": req.Date, "slots": items})
}

// Reserve places a hold on one slot for the current user.
func (h *Handler) Reserve(c *gin.Context) {
	slotID := c.Param("id")
	if _, err := uuid.Parse(slotID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minutes parameter"})
		return
	}

	ttl := h.defaultHoldTTL
	if req.Minutes > 0 {
		ttl = time.Duration(req.Minutes) * time.Minute
	}

	userID := auth.GetUserID(c)

	hold, err := h.service.Select(c.Request.Context(), userID, slotID, ttl)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewHoldResponse(hold))
}

// Release drops the current user's hold on one slot.
func (h *Handler) Release(c *gin.Context) {
	slotID := c.Param("id")
	if _, err := uuid.Parse(slotID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	userID := auth.GetUserID(c)

	if err := h.service.Deselect(c.Request.Context(), userID, slotID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Extend renews the current user's hold on one slot.
func (h *Handler) Extend(c *gin.Context) {
	slotID := c.Param("id")
	if _, err := uuid.Parse(slotID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minutes parameter"})
		return
	}

	ttl := h.defaultHoldTTL
	if req.Minutes > 0 {
		ttl = time.Duration(req.Minutes) * time.Minute
	}

	userID := auth.GetUserID(c)

	hold, err := h.service.Extend(c.Request.Context(), userID, slotID, ttl)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewHoldResponse(hold))
}

// Status reports whether a slot is currently locked.
func (h *Handler) Status(c *gin.Context) {
	slotID := c.Param("id")
	if _, err := uuid.Parse(slotID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	hold, err := h.service.HoldStatus(c.Request.Context(), slotID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, HoldStatusResponse{
		SlotID:   slotID,
		IsLocked: hold != nil,
	})
}

// GetSession returns the current user's booking-session state.
func (h *Handler) GetSession(c *gin.Context) {
	userID := auth.GetUserID(c)

	snap := h.sessions.Get(userID).Snapshot()
	c.JSON(http.StatusOK, NewSessionResponse(snap))
}

// CancelSession stops the countdown and releases every held slot.
func (h *Handler) CancelSession(c *gin.Context) {
	userID := auth.GetUserID(c)

	if err := h.service.ReleaseAll(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ValidateSelection checks a proposed selection for contiguity.
func (h *Handler) ValidateSelection(c *gin.Context) {
	var req ValidateSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.service.ValidateSelection(c.Request.Context(), req.CourtID, req.StartTimes); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}
