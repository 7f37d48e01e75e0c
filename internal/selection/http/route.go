package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	// Slot grid for one court; lock state is viewer-dependent, so auth is
	// required even for browsing the booking flow.
	g.GET("/courts/:id/slots", authMiddleware, h.ListSlots)

	slots := g.Group("/time-slots")
	slots.Use(authMiddleware)
	{
		slots.POST("/:id/reserve", h.Reserve)
		slots.DELETE("/:id/reserve", h.Release)
		slots.PUT("/:id/reserve/extend", h.Extend)
		slots.GET("/:id/reserve/status", h.Status)
	}

	sessionGroup := g.Group("/booking-session")
	sessionGroup.Use(authMiddleware)
	{
		sessionGroup.GET("", h.GetSession)
		sessionGroup.DELETE("", h.CancelSession)
		sessionGroup.POST("/validate", h.ValidateSelection)
	}
}
