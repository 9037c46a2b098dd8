// Package router assembles the gin engine: global middleware, route groups
// and their rate-limit tiers.
package router

import (
	"time"

	"user_management/internal/handler"
	"user_management/internal/middleware"
	"user_management/internal/ratelimit"
	"user_management/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the routes are built from. A nil Limiter turns
// rate limiting off and a nil DB skips the health ping.
type Deps struct {
	AuthService  service.AuthService
	UserService  service.UserService
	Limiter      *ratelimit.Limiter
	DB           handler.Pinger
	Logger       logrus.FieldLogger
	APIPrefix    string
	MaxBodyBytes int64
	PingTimeout  time.Duration
}

// New builds the HTTP handler.
func New(d Deps) *gin.Engine {
	if d.PingTimeout <= 0 {
		d.PingTimeout = 2 * time.Second
	}

	router := gin.New()
	_ = router.SetTrustedProxies(nil)
	router.Use(
		middleware.Recovery(d.Logger),
		middleware.RequestID(),
		middleware.RequestLogger(d.Logger),
		middleware.SecurityHeaders(),
		middleware.CORS(),
		middleware.BodyLimit(d.MaxBodyBytes),
	)

	authMW := middleware.AuthMiddleware(d.AuthService, d.Logger)
	apiTier := middleware.RateLimit(d.Limiter, ratelimit.TierAPI, d.Logger)
	authTier := middleware.RateLimit(d.Limiter, ratelimit.TierAuth, d.Logger)
	writesTier := middleware.RateLimit(d.Limiter, ratelimit.TierWrites, d.Logger)

	authHandler := handler.NewAuthHandler(d.AuthService, d.Logger, d.MaxBodyBytes)
	userHandler := handler.NewUserHandler(d.UserService, d.Logger, d.MaxBodyBytes)
	healthHandler := handler.NewHealthHandler(d.DB, d.PingTimeout, d.Logger)

	api := router.Group(d.APIPrefix)
	authHandler.RegisterAuthRoutes(api,
		[]gin.HandlerFunc{authTier},
		[]gin.HandlerFunc{authMW, apiTier},
	)
	userHandler.RegisterUserRoutes(api,
		[]gin.HandlerFunc{authMW, apiTier},
		[]gin.HandlerFunc{writesTier},
	)
	api.GET("/health", healthHandler.Health)

	router.NoRoute(handler.NotFound(d.APIPrefix))
	return router
}
