package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pickleplex/booking-backend/internal/auth"
	"github.com/pickleplex/booking-backend/internal/booking"
	bookingHttp "github.com/pickleplex/booking-backend/internal/booking/http"
	"github.com/pickleplex/booking-backend/internal/court"
	courtHttp "github.com/pickleplex/booking-backend/internal/court/http"
	"github.com/pickleplex/booking-backend/internal/selection"
	selectionHttp "github.com/pickleplex/booking-backend/internal/selection/http"
	"github.com/pickleplex/booking-backend/internal/session"
	"github.com/pickleplex/booking-backend/internal/user"
	userHttp "github.com/pickleplex/booking-backend/internal/user/http"
)

// Config holds everything the router needs to assemble middleware and routes.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService      user.Service
	CourtService     court.Service
	BookingService   booking.Service
	SelectionService selection.Service
	Sessions         *session.Manager
	JWTManager       *auth.JWTManager

	DefaultHoldTTL time.Duration
}

// NewRouter initializes the HTTP router engine: CORS, auth middleware, and
// the routes of every module.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8081"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	adminMiddleware := RequireSystemAdmin(cfg.UserService)

	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	courtHandler := courtHttp.NewHandler(cfg.CourtService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.UserService)
	selectionHandler := selectionHttp.NewHandler(cfg.SelectionService, cfg.Sessions, cfg.DefaultHoldTTL)

	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		courtHttp.RegisterRoutes(v1, courtHandler, authMiddleware, adminMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		selectionHttp.RegisterRoutes(v1, selectionHandler, authMiddleware)
	}

	return r
}
