package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prodstudio/internal/config"
	"prodstudio/internal/domain"
	"prodstudio/internal/middleware"
	"prodstudio/internal/modules/auth"
	"prodstudio/internal/modules/booking"
	"prodstudio/internal/pkg/jwt"
	"prodstudio/internal/pkg/lock"
	"prodstudio/internal/pkg/response"
)

// Deps are the collaborators the router cannot build from config alone.
type Deps struct {
	Users    domain.UserStore
	Bookings domain.BookingStore
	Locker   lock.Locker
	// Google is nil when federated login is not configured.
	Google auth.GoogleProvider
	// Now overrides the scheduler clock; nil means time.Now.
	Now func() time.Time
}

// Server holds the assembled engine and the services background jobs need.
type Server struct {
	Engine   *gin.Engine
	Tokens   *jwt.Service
	Auth     *auth.Service
	Bookings *booking.Service
}

func New(cfg *config.Config, deps Deps) *Server {
	if deps.Locker == nil {
		deps.Locker = lock.NewMemoryLocker()
	}

	tokens := jwt.New(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	authService := auth.NewService(deps.Users, tokens, deps.Google, cfg.AdminEmail, cfg.GoogleExchangeTimeout)
	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Secure:     cfg.CookieSecure,
		SameSite:   http.SameSiteLaxMode,
		AccessTTL:  cfg.JWTAccessTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
	}, cfg.ClientURL)

	hub := booking.NewHub(cfg.CORSAllowedOrigins)
	bookingService := booking.NewService(deps.Bookings, deps.Locker, hub)
	if deps.Now != nil {
		bookingService = bookingService.WithClock(deps.Now)
	}
	bookingHandler := booking.NewHandler(bookingService, hub)

	r := gin.New()
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.CookieAuth(tokens)
	api := r.Group("/api")
	{
		authHandler.RegisterRoutes(api, requireAuth)
		bookingHandler.RegisterRoutes(api, requireAuth)
	}

	return &Server{
		Engine:   r,
		Tokens:   tokens,
		Auth:     authService,
		Bookings: bookingService,
	}
}
