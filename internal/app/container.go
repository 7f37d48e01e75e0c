package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pickleplex/booking-backend/internal/api"
	"github.com/pickleplex/booking-backend/internal/auth"
	"github.com/pickleplex/booking-backend/internal/booking"
	"github.com/pickleplex/booking-backend/internal/court"
	"github.com/pickleplex/booking-backend/internal/lock"
	"github.com/pickleplex/booking-backend/internal/selection"
	"github.com/pickleplex/booking-backend/internal/session"
	"github.com/pickleplex/booking-backend/internal/timeslot"
	"github.com/pickleplex/booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool

	// RedisClient may be nil, in which case the in-memory lock store and
	// slot index are used (single-instance only).
	RedisClient *redis.Client

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	SessionBudget time.Duration
	HoldTTL       time.Duration
	SlotIndexTTL  time.Duration

	Logger *zap.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Sessions   *session.Manager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	// Court Module
	courtRepo := court.NewPgxRepository(cfg.DBPool)
	courtService := court.NewService(courtRepo)

	// Lock store and slot index share the Redis client when available.
	var lockStore lock.Store
	var slotIndex timeslot.Index
	if cfg.RedisClient != nil {
		lockStore = lock.NewRedisStore(cfg.RedisClient)
		slotIndex = timeslot.NewRedisIndex(cfg.RedisClient)
	} else {
		lockStore = lock.NewMemoryStore()
		slotIndex = timeslot.NewMemoryIndex()
	}

	// Booking sessions: one countdown per user, expiry releases holds.
	sessions := session.NewManager(lockStore, cfg.SessionBudget, cfg.Logger)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, courtService, lockStore, sessions, cfg.Logger)

	// Selection Module
	selectionService := selection.NewService(
		courtService, bookingRepo, lockStore, slotIndex, sessions, cfg.SlotIndexTTL, cfg.Logger)

	router := api.NewRouter(api.Config{
		IsProduction:     cfg.IsProduction,
		ProdOrigins:      cfg.ProdOrigins,
		UserService:      userService,
		CourtService:     courtService,
		BookingService:   bookingService,
		SelectionService: selectionService,
		Sessions:         sessions,
		JWTManager:       jwtManager,
		DefaultHoldTTL:   cfg.HoldTTL,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Sessions:   sessions,
	}
}
