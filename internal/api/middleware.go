package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pickleplex/booking-backend/internal/auth"
	"github.com/pickleplex/booking-backend/internal/user"
)

// RequireSystemAdmin ensures the authenticated user has system admin
// privileges. Must run after auth.AuthRequired.
func RequireSystemAdmin(userService user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		u, err := userService.GetByID(c.Request.Context(), userID)
		if err != nil || !u.IsSystemAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		c.Next()
	}
}
